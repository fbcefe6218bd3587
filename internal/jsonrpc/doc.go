// Package jsonrpc implements the line-delimited JSON-RPC 2.0 wire format
// spoken with worker processes.
//
// The package provides the Message tagged union and a Framer that turns raw
// stdout chunks into complete messages, regardless of how the bytes were
// split across reads.
package jsonrpc

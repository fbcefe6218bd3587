// Package errors defines error types for the worker RPC client.
//
// This package provides structured error types that wrap the different failure
// scenarios of supervising a worker process and talking to it. All error types
// support error unwrapping and can be checked using errors.Is, errors.As, and
// errors.AsType.
package errors

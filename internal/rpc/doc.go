// Package rpc correlates JSON-RPC requests written to a worker with the
// responses it eventually sends back.
//
// A Table hands out monotonically increasing request ids, tracks each
// outstanding request until it settles, and enforces per-request deadlines.
// Every request settles exactly once: by its matching response, by its
// deadline, by the caller abandoning it, or by a table-wide rejection when
// the worker goes away. Whichever comes first wins; the rest are no-ops.
//
// Example usage:
//
//	table := rpc.NewTable(log, process)
//	call := table.Issue(ctx, "tools/call", params, 30*time.Second)
//	result, err := call.Wait(ctx)
package rpc

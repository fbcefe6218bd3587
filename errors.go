package toolbridge

import "github.com/wagiedev/toolbridge-go/internal/errors"

// Re-export error types from internal package

// BridgeError is the base interface for all toolbridge errors.
type BridgeError = errors.BridgeError

// SpawnFailedError indicates the worker executable could not be launched.
type SpawnFailedError = errors.SpawnFailedError

// ProcessTerminatedError indicates the worker exited or its pipes failed.
// It matches ErrProcessTerminated via errors.Is.
type ProcessTerminatedError = errors.ProcessTerminatedError

// ProtocolError is a JSON-RPC error response from the worker.
type ProtocolError = errors.ProtocolError

// ToolError indicates a tools/call request failed.
type ToolError = errors.ToolError

// Re-export sentinel errors from internal package.
var (
	// ErrNotInitialized indicates a call on a client that is not Ready.
	ErrNotInitialized = errors.ErrNotInitialized

	// ErrInitializationTimeout indicates the handshake did not finish in time.
	ErrInitializationTimeout = errors.ErrInitializationTimeout

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrProcessTerminated indicates the worker process exited or failed.
	ErrProcessTerminated = errors.ErrProcessTerminated

	// ErrClientCleanedUp indicates outstanding requests were rejected by Cleanup.
	ErrClientCleanedUp = errors.ErrClientCleanedUp

	// ErrProcessExited indicates a write to a worker that has already exited.
	ErrProcessExited = errors.ErrProcessExited

	// ErrUnknownWorker indicates a registry lookup for an unregistered name.
	ErrUnknownWorker = errors.ErrUnknownWorker

	// ErrRegistryClosed indicates use of a registry after Close.
	ErrRegistryClosed = errors.ErrRegistryClosed
)

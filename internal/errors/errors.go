package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// BridgeError is the base interface for all toolbridge errors.
type BridgeError interface {
	error
	IsBridgeError() bool
}

// Compile-time verification that all error types implement BridgeError.
var (
	_ BridgeError = (*SpawnFailedError)(nil)
	_ BridgeError = (*ProcessTerminatedError)(nil)
	_ BridgeError = (*ProtocolError)(nil)
	_ BridgeError = (*ToolError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotInitialized indicates a tool call on a client that is not Ready.
	ErrNotInitialized = errors.New("client not initialized")

	// ErrInitializationTimeout indicates the handshake did not finish in time.
	ErrInitializationTimeout = errors.New("initialization timeout")

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrProcessTerminated indicates the worker process exited or failed.
	ErrProcessTerminated = errors.New("worker process terminated")

	// ErrClientCleanedUp indicates pending requests were rejected by Cleanup.
	ErrClientCleanedUp = errors.New("client cleaned up")

	// ErrProcessExited indicates a write to a worker that has already exited.
	ErrProcessExited = errors.New("worker process exited")

	// ErrUnknownWorker indicates a registry lookup for a name that was never registered.
	ErrUnknownWorker = errors.New("unknown worker")

	// ErrRegistryClosed indicates use of a registry after Close.
	ErrRegistryClosed = errors.New("registry closed")
)

// SpawnFailedError indicates the worker executable could not be launched.
type SpawnFailedError struct {
	Command string
	Err     error
}

func (e *SpawnFailedError) Error() string {
	return fmt.Sprintf("failed to spawn worker %q: %v", e.Command, e.Err)
}

func (e *SpawnFailedError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *SpawnFailedError) IsBridgeError() bool { return true }

// ProcessTerminatedError indicates the worker exited while requests were
// outstanding or mid-handshake. It matches ErrProcessTerminated via errors.Is.
type ProcessTerminatedError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessTerminatedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("worker process terminated (exit %d): %v", e.ExitCode, e.Err)
	}

	if e.Stderr != "" {
		return fmt.Sprintf("worker process terminated (exit %d): %s", e.ExitCode, e.Stderr)
	}

	return fmt.Sprintf("worker process terminated (exit %d)", e.ExitCode)
}

func (e *ProcessTerminatedError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrProcessTerminated.
func (e *ProcessTerminatedError) Is(target error) bool {
	return target == ErrProcessTerminated
}

// IsBridgeError implements BridgeError.
func (e *ProcessTerminatedError) IsBridgeError() bool { return true }

// ProtocolError is the error object carried by a JSON-RPC error response.
type ProtocolError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// IsBridgeError implements BridgeError.
func (e *ProtocolError) IsBridgeError() bool { return true }

// ToolError indicates a tools/call request failed.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Message returns the worker's reported message when the failure came from
// an error response, and the wrapped error text otherwise.
func (e *ToolError) Message() string {
	if perr, ok := errors.AsType[*ProtocolError](e.Err); ok {
		return perr.Message
	}

	if e.Err == nil {
		return ""
	}

	return e.Err.Error()
}

// IsBridgeError implements BridgeError.
func (e *ToolError) IsBridgeError() bool { return true }

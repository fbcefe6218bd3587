package toolbridge

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/toolbridge-go/internal/client"
)

// State is the lifecycle state of a Client.
type State = client.State

// Lifecycle states.
const (
	StateUninitialized = client.StateUninitialized
	StateInitializing  = client.StateInitializing
	StateReady         = client.StateReady
	StateClosed        = client.StateClosed
)

// Status is a point-in-time view of a Client.
type Status = client.Status

// Tool is a tool advertised by a worker.
type Tool = mcp.Tool

// InitializeResult is the worker's answer to the handshake.
type InitializeResult = mcp.InitializeResult

// Client talks to one named worker process.
type Client interface {
	// Name returns the worker name.
	Name() string

	// Initialize spawns the worker and performs the handshake. It is a
	// no-op when the client is already Ready with a live worker, and
	// concurrent callers share a single spawn.
	Initialize(ctx context.Context) error

	// CallTool invokes a tool and returns its raw result. It fails with
	// ErrNotInitialized unless the client is Ready. Error responses are
	// returned as *ToolError.
	CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error)

	// ListTools returns the tools the worker advertises.
	ListTools(ctx context.Context) ([]*Tool, error)

	// Cleanup kills the worker and rejects outstanding calls with
	// ErrClientCleanedUp. It is always safe to call.
	Cleanup() error

	// State returns the lifecycle state.
	State() State

	// Status returns the state together with process details.
	Status() Status

	// ServerInfo returns the handshake result of the current worker, or nil.
	ServerInfo() *InitializeResult
}

// Compile-time verification that the internal client implements Client.
var _ Client = (*client.Client)(nil)

// NewClient creates a client for the named worker. The worker is started
// by Initialize, not here.
func NewClient(name string, spec Spec, opts ...Option) Client {
	return client.New(name, spec, applyOptions(nil, opts))
}

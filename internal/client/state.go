package client

// State is the lifecycle state of a Client.
type State int

const (
	// StateUninitialized is the state of a new client that has never spawned.
	StateUninitialized State = iota
	// StateInitializing means a worker has been spawned and the handshake is running.
	StateInitializing
	// StateReady means the handshake finished and the worker is accepting calls.
	StateReady
	// StateClosed means the worker was cleaned up, exited, or failed to start.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// hasProcess reports whether a client in state s owns a live worker process.
func (s State) hasProcess() bool {
	return s == StateInitializing || s == StateReady
}

// canTransition reports whether moving from s to next is allowed.
func (s State) canTransition(next State) bool {
	switch next {
	case StateClosed:
		return true
	case StateInitializing:
		return s == StateUninitialized || s == StateReady || s == StateClosed
	case StateReady:
		return s == StateInitializing
	default:
		return false
	}
}

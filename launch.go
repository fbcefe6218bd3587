package toolbridge

import "github.com/wagiedev/toolbridge-go/internal/launch"

// Spec describes how to start a worker.
type Spec = launch.Spec

// Runtime selects the interpreter that runs a worker script.
type Runtime = launch.Runtime

// Supported runtimes.
const (
	RuntimePython     = launch.RuntimePython
	RuntimeNode       = launch.RuntimeNode
	RuntimeTSNode     = launch.RuntimeTSNode
	RuntimeExecutable = launch.RuntimeExecutable
)

// ParseRuntime converts a configuration string into a Runtime.
func ParseRuntime(s string) (Runtime, error) {
	return launch.ParseRuntime(s)
}

package launch

import (
	"fmt"
	"strings"
)

// Runtime selects the interpreter used to run a worker script.
type Runtime string

const (
	// RuntimePython runs the script with the Python interpreter.
	RuntimePython Runtime = "python"
	// RuntimeNode runs the script with Node.js.
	RuntimeNode Runtime = "node"
	// RuntimeTSNode runs a TypeScript script through npx ts-node.
	RuntimeTSNode Runtime = "ts-node"
	// RuntimeExecutable runs the script path directly as a native binary.
	RuntimeExecutable Runtime = "executable"
)

// Runtimes lists every supported runtime.
var Runtimes = []Runtime{RuntimePython, RuntimeNode, RuntimeTSNode, RuntimeExecutable}

// ParseRuntime converts a configuration string into a Runtime.
func ParseRuntime(s string) (Runtime, error) {
	r := Runtime(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown runtime %q", s)
	}

	return r, nil
}

// Valid reports whether r is one of the supported runtimes.
func (r Runtime) Valid() bool {
	switch r {
	case RuntimePython, RuntimeNode, RuntimeTSNode, RuntimeExecutable:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so runtimes can be read
// straight from config files.
func (r *Runtime) UnmarshalText(text []byte) error {
	parsed, err := ParseRuntime(string(text))
	if err != nil {
		return err
	}

	*r = parsed

	return nil
}

func (r Runtime) String() string {
	return string(r)
}

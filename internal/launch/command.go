package launch

import (
	"fmt"
	"maps"
	"os"
	"runtime"
	"slices"
	"strings"
)

// transportArgs select the stdio transport on interpreted workers.
var transportArgs = []string{"--transport", "stdio"}

// Spec is the launch descriptor of one worker.
type Spec struct {
	Runtime Runtime
	// Script is the worker entry point. For RuntimeExecutable it is the
	// binary itself.
	Script string
	// Args are appended after the runtime's own arguments.
	Args []string
	// Env is merged over the parent environment.
	Env map[string]string
	// Dir is the working directory. Empty inherits the parent's.
	Dir string
}

// Command is a fully resolved spawn command.
type Command struct {
	// Path is the program to run, before PATH lookup.
	Path string
	// Fallbacks are tried in order when Path cannot be found.
	Fallbacks []string
	Args      []string
	Env       []string
	Dir       string
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Validate checks the launch settings without touching the filesystem.
func (s Spec) Validate() error {
	if !s.Runtime.Valid() {
		return fmt.Errorf("unknown runtime %q", s.Runtime)
	}

	if strings.TrimSpace(s.Script) == "" {
		return fmt.Errorf("%s worker has no script", s.Runtime)
	}

	return nil
}

// Command maps the launch settings to a spawn command for the current platform.
func (s Spec) Command() (Command, error) {
	return s.commandFor(runtime.GOOS)
}

func (s Spec) commandFor(goos string) (Command, error) {
	if err := s.Validate(); err != nil {
		return Command{}, err
	}

	cmd := Command{
		Env: BuildEnvironment(s.Env),
		Dir: s.Dir,
	}

	switch s.Runtime {
	case RuntimePython:
		cmd.Path = "python"
		cmd.Fallbacks = []string{"python3"}
		cmd.Args = interpreted(s.Script, s.Args)
	case RuntimeNode:
		cmd.Path = "node"
		cmd.Args = interpreted(s.Script, s.Args)
	case RuntimeTSNode:
		cmd.Path = "npx"
		if goos == "windows" {
			cmd.Path = "npx.cmd"
		}

		cmd.Args = append([]string{"ts-node"}, interpreted(s.Script, s.Args)...)
	case RuntimeExecutable:
		cmd.Path = s.Script
		cmd.Args = slices.Clone(s.Args)
	}

	return cmd, nil
}

func interpreted(script string, extra []string) []string {
	args := make([]string, 0, 1+len(transportArgs)+len(extra))
	args = append(args, script)
	args = append(args, transportArgs...)

	return append(args, extra...)
}

// BuildEnvironment returns the parent environment with extra applied on
// top. Later entries win when the process reads duplicate keys, so the
// extras are appended in sorted key order.
func BuildEnvironment(extra map[string]string) []string {
	env := os.Environ()

	for _, key := range slices.Sorted(maps.Keys(extra)) {
		env = append(env, key+"="+extra[key])
	}

	return env
}

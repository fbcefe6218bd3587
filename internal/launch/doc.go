// Package launch describes how a worker process is started.
//
// A Spec names a Runtime, a script, and optional extras. Command maps it to
// the concrete argv, environment, and working directory:
//
//	spec := launch.Spec{Runtime: launch.RuntimePython, Script: "server.py"}
//	cmd, err := spec.Command()
//	// cmd.Path == "python", cmd.Args == ["server.py", "--transport", "stdio"]
//
// Resolve locates the program on disk, trying fallbacks such as python3
// when the primary name is not on PATH.
package launch

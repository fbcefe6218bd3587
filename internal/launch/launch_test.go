package launch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpec_Command(t *testing.T) {
	tests := []struct {
		name     string
		spec     Spec
		goos     string
		wantPath string
		wantArgs []string
	}{
		{
			name:     "python",
			spec:     Spec{Runtime: RuntimePython, Script: "server.py"},
			goos:     "linux",
			wantPath: "python",
			wantArgs: []string{"server.py", "--transport", "stdio"},
		},
		{
			name:     "node",
			spec:     Spec{Runtime: RuntimeNode, Script: "dist/index.js"},
			goos:     "darwin",
			wantPath: "node",
			wantArgs: []string{"dist/index.js", "--transport", "stdio"},
		},
		{
			name:     "ts-node",
			spec:     Spec{Runtime: RuntimeTSNode, Script: "src/index.ts"},
			goos:     "linux",
			wantPath: "npx",
			wantArgs: []string{"ts-node", "src/index.ts", "--transport", "stdio"},
		},
		{
			name:     "ts-node on windows",
			spec:     Spec{Runtime: RuntimeTSNode, Script: "src/index.ts"},
			goos:     "windows",
			wantPath: "npx.cmd",
			wantArgs: []string{"ts-node", "src/index.ts", "--transport", "stdio"},
		},
		{
			name:     "extra args follow the transport flag",
			spec:     Spec{Runtime: RuntimePython, Script: "server.py", Args: []string{"--verbose"}},
			goos:     "linux",
			wantPath: "python",
			wantArgs: []string{"server.py", "--transport", "stdio", "--verbose"},
		},
		{
			name:     "executable runs as given",
			spec:     Spec{Runtime: RuntimeExecutable, Script: "/opt/workers/sql", Args: []string{"-db", "x.db"}},
			goos:     "linux",
			wantPath: "/opt/workers/sql",
			wantArgs: []string{"-db", "x.db"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := tt.spec.commandFor(tt.goos)
			require.NoError(t, err)
			require.Equal(t, tt.wantPath, cmd.Path)
			require.Equal(t, tt.wantArgs, cmd.Args)
		})
	}
}

func TestSpec_CommandCoversEveryRuntime(t *testing.T) {
	for _, r := range Runtimes {
		cmd, err := Spec{Runtime: r, Script: "w"}.commandFor("linux")
		require.NoError(t, err, r)
		require.NotEmpty(t, cmd.Path, r)
	}
}

func TestSpec_CommandRejectsInvalid(t *testing.T) {
	_, err := Spec{Runtime: "ruby", Script: "w.rb"}.Command()
	require.ErrorContains(t, err, "unknown runtime")

	_, err = Spec{Runtime: RuntimeNode}.Command()
	require.ErrorContains(t, err, "no script")
}

func TestSpec_CommandEnvAndDir(t *testing.T) {
	t.Setenv("TOOLBRIDGE_PARENT", "inherited")

	cmd, err := Spec{
		Runtime: RuntimeNode,
		Script:  "index.js",
		Env:     map[string]string{"B": "2", "A": "1"},
		Dir:     "/srv/worker",
	}.Command()
	require.NoError(t, err)

	require.Equal(t, "/srv/worker", cmd.Dir)
	require.Contains(t, cmd.Env, "TOOLBRIDGE_PARENT=inherited")
	require.Equal(t, []string{"A=1", "B=2"}, cmd.Env[len(cmd.Env)-2:])
}

func TestParseRuntime(t *testing.T) {
	r, err := ParseRuntime(" TS-Node ")
	require.NoError(t, err)
	require.Equal(t, RuntimeTSNode, r)

	_, err = ParseRuntime("deno")
	require.Error(t, err)

	var decoded Runtime
	require.NoError(t, decoded.UnmarshalText([]byte("python")))
	require.Equal(t, RuntimePython, decoded)
}

func TestCommand_Resolve(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "worker")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	path, err := Command{Path: bin}.Resolve()
	require.NoError(t, err)
	require.Equal(t, bin, path)

	path, err = Command{Path: "./worker", Dir: dir}.Resolve()
	require.NoError(t, err)
	require.Equal(t, bin, path)

	_, err = Command{Path: filepath.Join(dir, "missing")}.Resolve()

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Len(t, nf.Searched, 1)
}

func TestCommand_ResolveFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "python3"), []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", dir)

	path, err := Command{Path: "toolbridge-no-such-python", Fallbacks: []string{"python3"}}.Resolve()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "python3"), path)

	_, err = Command{Path: "toolbridge-no-such-python"}.Resolve()
	require.ErrorContains(t, err, "toolbridge-no-such-python")
}

func TestCommand_String(t *testing.T) {
	require.Equal(t, "npx ts-node a.ts --transport stdio",
		Command{Path: "npx", Args: []string{"ts-node", "a.ts", "--transport", "stdio"}}.String())
}

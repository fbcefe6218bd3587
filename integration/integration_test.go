//go:build integration

package integration

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/toolbridge-go"
)

// buildWorker compiles the sqlite_worker example into a temp dir.
func buildWorker(t *testing.T) string {
	t.Helper()

	gobin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not installed")
	}

	out := filepath.Join(t.TempDir(), "sqlite_worker")
	if runtime.GOOS == "windows" {
		out += ".exe"
	}

	cmd := exec.CommandContext(t.Context(), gobin, "build", "-o", out, "../examples/sqlite_worker")

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build worker: %s", output)

	return out
}

func workerSpec(t *testing.T, args ...string) toolbridge.Spec {
	t.Helper()

	return toolbridge.Spec{
		Runtime: toolbridge.RuntimeExecutable,
		Script:  buildWorker(t),
		Args:    append([]string{"--db", filepath.Join(t.TempDir(), "it.db")}, args...),
	}
}

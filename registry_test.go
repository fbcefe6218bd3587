package toolbridge

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastOptions() []Option {
	return []Option{
		WithSettleDelay(5 * time.Millisecond),
		WithInitializeTimeout(10 * time.Second),
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("search", testSpec(t, "mcp")))
	require.ErrorContains(t, r.Register("search", testSpec(t, "mcp")), "already registered")
	require.ErrorContains(t, r.Register("bad", Spec{Runtime: "perl", Script: "x.pl"}), "unknown runtime")

	require.Equal(t, []string{"search"}, r.Names())
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownWorker)
}

func TestRegistry_GetInitializesLazily(t *testing.T) {
	r := NewRegistry(fastOptions()...)
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, r.Register("search", testSpec(t, "mcp")))

	statuses := r.Statuses()
	require.Len(t, statuses, 1)
	require.Equal(t, StateUninitialized, statuses[0].State)

	c, err := r.Get(context.Background(), "search")
	require.NoError(t, err)
	require.Equal(t, StateReady, c.State())

	raw, err := c.CallTool(context.Background(), "search", map[string]any{"query": "refund policy"})
	require.NoError(t, err)
	require.Equal(t, []any{map[string]any{"id": "doc-1", "query": "refund policy"}}, Rows(raw))

	again, err := r.Get(context.Background(), "search")
	require.NoError(t, err)
	require.Same(t, c, again)
	require.Equal(t, 1, again.Status().Starts)
}

func TestRegistry_GetRestartsDeadWorker(t *testing.T) {
	r := NewRegistry(fastOptions()...)
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, r.Register("search", testSpec(t, "mcp")))

	c, err := r.Get(context.Background(), "search")
	require.NoError(t, err)
	require.NoError(t, c.Cleanup())
	require.Equal(t, StateClosed, c.State())

	c, err = r.Get(context.Background(), "search")
	require.NoError(t, err)
	require.Equal(t, StateReady, c.State())
	require.Equal(t, 2, c.Status().Starts)
}

func TestRegistry_Reconnect(t *testing.T) {
	r := NewRegistry(fastOptions()...)
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, r.Register("search", testSpec(t, "mcp")))

	c, err := r.Get(context.Background(), "search")
	require.NoError(t, err)

	first := c.Status().Session

	c, err = r.Reconnect(context.Background(), "search")
	require.NoError(t, err)
	require.Equal(t, StateReady, c.State())
	require.NotEqual(t, first, c.Status().Session)
}

func TestRegistry_InitializeAll(t *testing.T) {
	r := NewRegistry(fastOptions()...)
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, r.Register("search", testSpec(t, "mcp")))
	require.NoError(t, r.Register("broken", testSpec(t, "crash")))
	require.NoError(t, r.Register("vectors", testSpec(t, "mcp")))

	err := r.InitializeAll(context.Background())
	require.ErrorIs(t, err, ErrProcessTerminated)
	require.ErrorContains(t, err, "broken")

	states := map[string]State{}
	for _, st := range r.Statuses() {
		states[st.Name] = st.State
	}

	require.Equal(t, map[string]State{
		"search":  StateReady,
		"broken":  StateClosed,
		"vectors": StateReady,
	}, states)
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(fastOptions()...)

	require.NoError(t, r.Register("search", testSpec(t, "mcp")))

	c, err := r.Get(context.Background(), "search")
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	require.Equal(t, StateClosed, c.State())

	_, err = r.Get(context.Background(), "search")
	require.ErrorIs(t, err, ErrRegistryClosed)
	require.ErrorIs(t, r.Register("other", testSpec(t, "mcp")), ErrRegistryClosed)
}

func TestLoadRegistry(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "toolbridge.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[defaults]
request_timeout = "12s"
init_timeout = "9s"
settle_delay = "5ms"

[workers.search]
runtime = "executable"
script = `+strconv.Quote(exe)+`
env = { `+testWorkerEnv+` = "mcp" }
`), 0o600))

	t.Setenv("TOOLBRIDGE_INIT_TIMEOUT", "8s")

	r, err := LoadRegistry(path, WithRequestTimeout(3*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	require.Equal(t, []string{"search"}, r.Names())

	effective := applyOptions(r.base, r.opts)
	require.Equal(t, 3*time.Second, effective.RequestTimeout, "options win over file")
	require.Equal(t, 8*time.Second, effective.InitializeTimeout, "env wins over file")
	require.Equal(t, 5*time.Millisecond, effective.SettleDelay, "file wins over defaults")
	require.Equal(t, DefaultProtocolVersion, effective.ProtocolVersion)

	c, err := r.Get(context.Background(), "search")
	require.NoError(t, err)
	require.Equal(t, StateReady, c.State())
}

func TestLoadRegistry_PathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workers.toml")
	require.NoError(t, os.WriteFile(path, []byte("[workers.a]\nruntime = \"node\"\nscript = \"a.js\"\n"), 0o600))

	t.Setenv("TOOLBRIDGE_CONFIG", path)

	r, err := LoadRegistry("")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, r.Names())
}

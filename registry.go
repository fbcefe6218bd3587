package toolbridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/toolbridge-go/internal/client"
	"github.com/wagiedev/toolbridge-go/internal/config"
	"github.com/wagiedev/toolbridge-go/internal/errors"
)

// DefaultConfigFile is read by LoadRegistry when no path is given and
// TOOLBRIDGE_CONFIG is unset.
const DefaultConfigFile = "toolbridge.toml"

// Registry holds named workers. Clients are created and initialized on
// first use and shut down together by Close.
type Registry struct {
	log  *slog.Logger
	base *Options
	opts []Option

	mu      sync.Mutex
	entries map[string]*registryEntry
	order   []string
	closed  bool
}

type registryEntry struct {
	spec   Spec
	opts   []Option
	client *client.Client
}

// NewRegistry creates an empty registry. The options apply to every
// worker registered later.
func NewRegistry(opts ...Option) *Registry {
	return newRegistry(config.Defaults(), opts)
}

func newRegistry(base *Options, opts []Option) *Registry {
	log := applyOptions(base, opts).Logger
	if log == nil {
		log = NopLogger()
	}

	return &Registry{
		log:     log.With("component", "registry"),
		base:    base,
		opts:    opts,
		entries: make(map[string]*registryEntry),
	}
}

// LoadRegistry builds a registry from a TOML worker file.
//
// Settings are layered: opts win over TOOLBRIDGE_* environment variables
// (including .env files), which win over the file's [defaults] table,
// which wins over the built-in defaults. An empty path falls back to
// TOOLBRIDGE_CONFIG and then to DefaultConfigFile.
func LoadRegistry(path string, opts ...Option) (*Registry, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = env.ConfigPath
	}

	if path == "" {
		path = DefaultConfigFile
	}

	file, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}

	base := config.Defaults()
	file.Apply(base)
	env.Apply(base)

	r := newRegistry(base, opts)

	for _, name := range file.Names() {
		if err := r.Register(name, file.Workers[name].Spec()); err != nil {
			return nil, err
		}
	}

	r.log.Debug("Loaded worker registry", "path", path, "workers", len(r.order))

	return r, nil
}

// Register adds a worker. Per-worker options apply after the registry's.
func (r *Registry) Register(name string, spec Spec, opts ...Option) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.ErrRegistryClosed
	}

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("register %s: already registered", name)
	}

	r.entries[name] = &registryEntry{spec: spec, opts: opts}
	r.order = append(r.order, name)

	r.log.Debug("Registered worker", "worker", name, "runtime", spec.Runtime, "script", spec.Script)

	return nil
}

// Names returns the registered worker names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.order...)
}

// lookup returns the client for name, creating it if needed.
func (r *Registry) lookup(name string) (*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errors.ErrRegistryClosed
	}

	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnknownWorker, name)
	}

	if e.client == nil {
		opts := append(append([]Option(nil), r.opts...), e.opts...)
		e.client = client.New(name, e.spec, applyOptions(r.base, opts))
	}

	return e.client, nil
}

// Get returns the named worker's client, starting the worker if it is not
// Ready. A worker that died is restarted here.
func (r *Registry) Get(ctx context.Context, name string) (Client, error) {
	c, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// Reconnect kills the named worker, if running, and starts a fresh one.
func (r *Registry) Reconnect(ctx context.Context, name string) (Client, error) {
	c, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	r.log.Info("Reconnecting worker", "worker", name)

	if err := c.Cleanup(); err != nil {
		r.log.Warn("Cleanup before reconnect failed", "worker", name, "error", err)
	}

	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// InitializeAll starts every registered worker concurrently. A failing
// worker does not stop the others; all failures are joined.
func (r *Registry) InitializeAll(ctx context.Context) error {
	names := r.Names()
	errs := make([]error, len(names))

	var g errgroup.Group

	for i, name := range names {
		g.Go(func() error {
			if _, err := r.Get(ctx, name); err != nil {
				errs[i] = fmt.Errorf("%s: %w", name, err)
			}

			return nil
		})
	}

	_ = g.Wait()

	return stderrors.Join(errs...)
}

// Statuses reports every registered worker in registration order. Workers
// that were never used report StateUninitialized.
func (r *Registry) Statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Status, 0, len(r.order))

	for _, name := range r.order {
		e := r.entries[name]
		if e.client == nil {
			out = append(out, Status{Name: name, State: StateUninitialized})

			continue
		}

		out = append(out, e.client.Status())
	}

	return out
}

// Close cleans up every worker concurrently. The registry cannot be used
// afterwards. It is safe to call more than once.
func (r *Registry) Close() error {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()

		return nil
	}

	r.closed = true

	clients := make([]*client.Client, 0, len(r.entries))

	for _, name := range r.order {
		if c := r.entries[name].client; c != nil {
			clients = append(clients, c)
		}
	}

	r.mu.Unlock()

	r.log.Info("Closing workers", "count", len(clients))

	errs := make([]error, len(clients))

	var g errgroup.Group

	for i, c := range clients {
		g.Go(func() error {
			if err := c.Cleanup(); err != nil {
				errs[i] = fmt.Errorf("%s: %w", c.Name(), err)
			}

			return nil
		})
	}

	_ = g.Wait()

	return stderrors.Join(errs...)
}

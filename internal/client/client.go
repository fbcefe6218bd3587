package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/wagiedev/toolbridge-go/internal/config"
	"github.com/wagiedev/toolbridge-go/internal/errors"
	"github.com/wagiedev/toolbridge-go/internal/jsonrpc"
	"github.com/wagiedev/toolbridge-go/internal/launch"
	"github.com/wagiedev/toolbridge-go/internal/rpc"
	"github.com/wagiedev/toolbridge-go/internal/subprocess"
)

const (
	methodInitialize  = "initialize"
	methodInitialized = "notifications/initialized"
	methodToolsCall   = "tools/call"
	methodToolsList   = "tools/list"

	tracerName = "github.com/wagiedev/toolbridge-go"

	// exitGrace is how long a failed write waits for the exit report that
	// explains it.
	exitGrace = 500 * time.Millisecond
)

// Client supervises one named worker.
type Client struct {
	name    string
	spec    launch.Spec
	opts    *config.Options
	log     *slog.Logger
	tracer  trace.Tracer
	limiter *rate.Limiter

	// initMu serializes Initialize so racing callers spawn once.
	initMu sync.Mutex

	mu         sync.Mutex
	state      State
	sess       *session
	serverInfo *mcp.InitializeResult
	schemas    map[string]*jsonschema.Resolved
	starts     int
}

// session is one process generation.
type session struct {
	id     ulid.ULID
	log    *slog.Logger
	proc   *subprocess.Process
	table  *rpc.Table
	framer *jsonrpc.Framer

	goneOnce sync.Once
	gone     chan struct{}
	goneErr  error
}

// Write implements rpc.Writer.
func (s *session) Write(ctx context.Context, data []byte) error {
	if s.proc == nil {
		return errors.ErrProcessExited
	}

	return s.proc.Write(ctx, data)
}

// terminate records why the session ended. Only the first reason is kept.
func (s *session) terminate(err error) bool {
	first := false

	s.goneOnce.Do(func() {
		s.goneErr = err
		close(s.gone)

		first = true
	})

	return first
}

// New creates a client for the named worker. The worker is not started
// until Initialize is called.
func New(name string, spec launch.Spec, opts *config.Options) *Client {
	if opts == nil {
		opts = config.Defaults()
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if len(opts.Env) > 0 {
		env := maps.Clone(spec.Env)
		if env == nil {
			env = make(map[string]string, len(opts.Env))
		}

		maps.Copy(env, opts.Env)
		spec.Env = env
	}

	if opts.Cwd != "" {
		spec.Dir = opts.Cwd
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	c := &Client{
		name:   name,
		spec:   spec,
		opts:   opts,
		log:    log.With("component", "client", "worker", name),
		tracer: tp.Tracer(tracerName),
		state:  StateUninitialized,
	}

	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1))
	}

	return c
}

// Name returns the worker name.
func (c *Client) Name() string {
	return c.name
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// ServerInfo returns the worker's initialize result, or nil before the
// first successful handshake of the current generation.
func (c *Client) ServerInfo() *mcp.InitializeResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.serverInfo
}

// setState moves to next if the transition is allowed. Caller must hold c.mu.
func (c *Client) setState(next State) bool {
	if !c.state.canTransition(next) {
		c.log.Error("Invalid state transition", "from", c.state, "to", next)

		return false
	}

	if c.state != next {
		c.log.Debug("State changed", "from", c.state, "to", next)
	}

	c.state = next

	return true
}

// ready returns the live session if the client can accept calls.
func (c *Client) ready() (*session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady || c.sess == nil || !c.sess.proc.Alive() {
		return nil, false
	}

	return c.sess, true
}

type initializeParams struct {
	ProtocolVersion string              `json:"protocolVersion"`
	Capabilities    map[string]any      `json:"capabilities"`
	ClientInfo      *mcp.Implementation `json:"clientInfo"`
}

// Initialize starts the worker and performs the handshake. It returns nil
// without spawning if the client is already Ready with a live worker.
//
// The whole sequence is bounded by the initialize timeout. On expiry the
// worker is killed, the client moves to Closed, and the error wraps
// errors.ErrInitializationTimeout.
func (c *Client) Initialize(ctx context.Context) (err error) {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if _, ok := c.ready(); ok {
		return nil
	}

	ctx, span := c.tracer.Start(ctx, "toolbridge.initialize", trace.WithAttributes(
		attribute.String("toolbridge.worker", c.name),
		attribute.String("toolbridge.runtime", c.spec.Runtime.String()),
	))
	defer func() { endSpan(span, err) }()

	c.discard()

	timeout := c.opts.InitializeTimeout
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, errors.ErrInitializationTimeout)
	defer cancel()

	sess, err := c.spawn(ctx)
	if err != nil {
		return err
	}

	span.SetAttributes(attribute.String("toolbridge.session", sess.id.String()))

	if err := c.handshake(ctx, sess); err != nil {
		err = c.explain(sess, err)

		if context.Cause(ctx) == errors.ErrInitializationTimeout || stderrors.Is(err, errors.ErrRequestTimeout) {
			err = fmt.Errorf("%w: worker %q not ready after %s", errors.ErrInitializationTimeout, c.name, timeout)
		}

		sess.log.Error("Initialization failed", "error", err)
		c.abort(sess, err)

		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != sess {
		// The worker went away between the settle delay and now.
		return c.sessionError(sess)
	}

	c.setState(StateReady)
	sess.log.Info("Worker ready")

	return nil
}

// discard kills a leftover process before a fresh spawn.
func (c *Client) discard() {
	c.mu.Lock()
	old := c.sess
	c.sess = nil
	c.serverInfo = nil
	c.schemas = nil

	var proc *subprocess.Process
	if old != nil {
		proc = old.proc
		c.setState(StateClosed)
	}
	c.mu.Unlock()

	if old == nil {
		return
	}

	old.log.Debug("Discarding previous worker")

	if proc != nil {
		if err := proc.Stop(); err != nil {
			old.log.Debug("Failed to stop previous worker", "error", err)
		}
	}

	old.terminate(errors.ErrClientCleanedUp)
	old.table.RejectAll(errors.ErrClientCleanedUp)
}

// spawn starts a new process generation and installs it as the current session.
func (c *Client) spawn(ctx context.Context) (*session, error) {
	id := ulid.Make()

	sess := &session{
		id:   id,
		log:  c.log.With("session", id.String()),
		gone: make(chan struct{}),
	}
	sess.table = rpc.NewTable(sess.log, sess)
	sess.framer = jsonrpc.NewFramer(
		func(msg *jsonrpc.Message) { c.dispatch(sess, msg) },
		func(line string) { sess.log.Debug("Non-protocol output from worker", "line", line) },
	)

	command, err := c.spec.Command()
	if err != nil {
		c.mu.Lock()
		c.setState(StateClosed)
		c.mu.Unlock()

		return nil, &errors.SpawnFailedError{Command: c.spec.Script, Err: err}
	}

	c.mu.Lock()
	c.setState(StateInitializing)
	c.sess = sess
	c.starts++
	c.mu.Unlock()

	proc, err := subprocess.Start(ctx, sess.log, command, subprocess.Handlers{
		Stdout: sess.framer.Feed,
		Stderr: c.opts.Stderr,
		Error: func(err error) {
			c.onTerminated(sess, &errors.ProcessTerminatedError{ExitCode: -1, Err: err})
		},
		Exit: func(status subprocess.ExitStatus) {
			c.onTerminated(sess, &errors.ProcessTerminatedError{
				ExitCode: status.Code,
				Stderr:   status.Stderr,
				Err:      status.Err,
			})
		},
	})
	if err != nil {
		c.abort(sess, err)

		return nil, err
	}

	c.mu.Lock()
	sess.proc = proc
	current := c.sess == sess
	c.mu.Unlock()

	if !current {
		// Cleanup ran while the process was starting and could not stop it.
		err := c.sessionError(sess)
		c.abort(sess, err)

		return nil, err
	}

	sess.log.Info("Spawned worker", "pid", proc.PID(), "command", command.String())

	return sess, nil
}

// handshake runs initialize, notifications/initialized, and the settle delay.
func (c *Client) handshake(ctx context.Context, sess *session) error {
	params := initializeParams{
		ProtocolVersion: c.opts.ProtocolVersion,
		Capabilities:    map[string]any{"tools": map[string]any{}},
		ClientInfo: &mcp.Implementation{
			Name:    c.opts.ClientInfoName(c.name),
			Version: c.opts.ClientVersion,
		},
	}

	raw, err := sess.table.Issue(ctx, methodInitialize, params, c.opts.InitializeTimeout).Wait(ctx)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	var info mcp.InitializeResult
	if err := json.Unmarshal(raw, &info); err != nil {
		sess.log.Warn("Could not decode initialize result", "error", err)
	} else {
		attrs := []any{"protocol_version", info.ProtocolVersion}
		if info.ServerInfo != nil {
			attrs = append(attrs, "server", info.ServerInfo.Name, "server_version", info.ServerInfo.Version)
		}

		sess.log.Info("Worker initialized", attrs...)

		c.mu.Lock()
		c.serverInfo = &info
		c.mu.Unlock()
	}

	if err := sess.table.Notify(ctx, methodInitialized, nil); err != nil {
		return fmt.Errorf("%s: %w", methodInitialized, err)
	}

	if c.opts.SettleDelay <= 0 {
		return nil
	}

	timer := time.NewTimer(c.opts.SettleDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-sess.gone:
		return sess.goneErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// abort tears down a session that failed during startup.
func (c *Client) abort(sess *session, err error) {
	c.mu.Lock()

	if c.sess == sess {
		c.sess = nil
		c.serverInfo = nil
		c.setState(StateClosed)
	}

	proc := sess.proc
	c.mu.Unlock()

	if proc != nil {
		if stopErr := proc.Stop(); stopErr != nil {
			sess.log.Debug("Failed to stop worker", "error", stopErr)
		}
	}

	sess.terminate(err)
	sess.table.RejectAll(err)
}

// onTerminated handles worker exit and pipe failures for a session.
func (c *Client) onTerminated(sess *session, err *errors.ProcessTerminatedError) {
	c.mu.Lock()

	current := c.sess == sess
	if current {
		c.sess = nil
		c.setState(StateClosed)
	}

	c.mu.Unlock()

	if !sess.terminate(err) {
		return
	}

	n := sess.table.RejectAll(err)

	if current {
		sess.log.Warn("Worker terminated", "exit_code", err.ExitCode, "rejected", n, "stderr", err.Stderr)
	}
}

// sessionError returns why sess ended. Caller must know sess is no longer current.
func (c *Client) sessionError(sess *session) error {
	select {
	case <-sess.gone:
		return sess.goneErr
	default:
		return errors.ErrProcessTerminated
	}
}

// explain replaces a write failure with the worker's exit report when the
// worker turns out to have died.
func (c *Client) explain(sess *session, err error) error {
	if !stderrors.Is(err, errors.ErrProcessExited) {
		return err
	}

	timer := time.NewTimer(exitGrace)
	defer timer.Stop()

	select {
	case <-sess.gone:
		if sess.goneErr != nil {
			return sess.goneErr
		}
	case <-timer.C:
	}

	return err
}

// dispatch routes one inbound message from the worker.
func (c *Client) dispatch(sess *session, msg *jsonrpc.Message) {
	switch msg.Kind() {
	case jsonrpc.KindResult, jsonrpc.KindError:
		sess.table.Resolve(msg)
	case jsonrpc.KindRequest:
		sess.log.Debug("Ignoring request from worker", "id", *msg.ID, "method", msg.Method)
	case jsonrpc.KindNotification:
		sess.log.Debug("Ignoring notification from worker", "method", msg.Method)
	}
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// CallTool invokes a tool on the worker and returns the raw result. It
// fails with errors.ErrNotInitialized unless the client is Ready; it never
// spawns. Error responses are returned as *errors.ToolError.
func (c *Client) CallTool(ctx context.Context, tool string, args map[string]any) (result json.RawMessage, err error) {
	sess, ok := c.ready()
	if !ok {
		return nil, errors.ErrNotInitialized
	}

	ctx, span := c.tracer.Start(ctx, "toolbridge.call_tool", trace.WithAttributes(
		attribute.String("toolbridge.worker", c.name),
		attribute.String("toolbridge.tool", tool),
		attribute.String("toolbridge.session", sess.id.String()),
	))
	defer func() { endSpan(span, err) }()

	if args == nil {
		args = map[string]any{}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	if c.opts.ValidateArguments {
		if err := c.validate(tool, args); err != nil {
			return nil, &errors.ToolError{Tool: tool, Err: err}
		}
	}

	start := time.Now()
	call := sess.table.Issue(ctx, methodToolsCall, toolCallParams{Name: tool, Arguments: args}, c.opts.RequestTimeout)
	span.SetAttributes(attribute.Int64("rpc.jsonrpc.request_id", call.ID))

	result, err = call.Wait(ctx)
	if err != nil {
		err = c.explain(sess, err)

		if _, ok := stderrors.AsType[*errors.ProtocolError](err); ok {
			err = &errors.ToolError{Tool: tool, Err: err}
		}

		sess.log.Debug("Tool call failed", "tool", tool, "id", call.ID, "error", err)

		return nil, err
	}

	sess.log.Debug("Tool call finished", "tool", tool, "id", call.ID, "duration", time.Since(start))

	return result, nil
}

// Cleanup kills the worker if it is running, moves to Closed, and rejects
// outstanding requests with errors.ErrClientCleanedUp. It is always safe
// to call.
func (c *Client) Cleanup() error {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.setState(StateClosed)

	var proc *subprocess.Process
	if sess != nil {
		proc = sess.proc
	}
	c.mu.Unlock()

	if sess == nil {
		return nil
	}

	sess.log.Info("Cleaning up worker")

	var stopErr error
	if proc != nil {
		stopErr = proc.Stop()
	}

	sess.terminate(errors.ErrClientCleanedUp)
	sess.table.RejectAll(errors.ErrClientCleanedUp)

	return stopErr
}

// Status is a point-in-time view of a client.
type Status struct {
	Name    string
	State   State
	PID     int
	Session string
	Pending int
	Starts  int
}

// Status reports the client's state and, when it owns a worker, the
// worker's pid, session id, and outstanding request count.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Name:   c.name,
		State:  c.state,
		Starts: c.starts,
	}

	if c.state.hasProcess() && c.sess != nil {
		st.Session = c.sess.id.String()
		st.Pending = c.sess.table.Len()

		if c.sess.proc != nil {
			st.PID = c.sess.proc.PID()
		}
	}

	return st
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}

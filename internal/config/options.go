package config

import (
	"log/slog"
	"maps"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultRequestTimeout bounds every request after the handshake.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultInitializeTimeout bounds the whole handshake.
	DefaultInitializeTimeout = 15 * time.Second
	// DefaultSettleDelay is the pause after the initialized notification
	// before the client is considered ready.
	DefaultSettleDelay = time.Second
	// DefaultProtocolVersion is sent in the initialize request.
	DefaultProtocolVersion = "2024-11-05"
	// DefaultClientVersion is the client version sent in the initialize request.
	DefaultClientVersion = "1.0.0"
)

// Options configures a worker client.
type Options struct {
	// Logger is the slog logger for client, rpc, and process logs.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// RequestTimeout bounds tools/call and tools/list requests.
	RequestTimeout time.Duration

	// InitializeTimeout bounds the handshake from spawn to Ready.
	InitializeTimeout time.Duration

	// SettleDelay is waited after notifications/initialized.
	SettleDelay time.Duration

	// Stderr receives each line the worker writes to stderr.
	Stderr func(string)

	// Env holds extra environment variables for the worker.
	Env map[string]string

	// Cwd overrides the worker's working directory.
	Cwd string

	// ProtocolVersion is sent in the initialize request.
	ProtocolVersion string

	// ClientName overrides the client name sent in the initialize request.
	// Defaults to "<worker>-mcp-client".
	ClientName string

	// ClientVersion is sent in the initialize request.
	ClientVersion string

	// RateLimit caps tool calls per second. Zero disables limiting.
	RateLimit float64

	// RateBurst is the limiter's burst size. Defaults to 1 when RateLimit is set.
	RateBurst int

	// TracerProvider supplies the tracer for client spans.
	// If nil, the global provider is used.
	TracerProvider trace.TracerProvider

	// ValidateArguments checks tool arguments against the schemas reported
	// by tools/list before sending a call.
	ValidateArguments bool
}

// Defaults returns options holding the built-in defaults.
func Defaults() *Options {
	return &Options{
		RequestTimeout:    DefaultRequestTimeout,
		InitializeTimeout: DefaultInitializeTimeout,
		SettleDelay:       DefaultSettleDelay,
		ProtocolVersion:   DefaultProtocolVersion,
		ClientVersion:     DefaultClientVersion,
	}
}

// ClientInfoName returns the client name announced for the named worker.
func (o *Options) ClientInfoName(worker string) string {
	if o.ClientName != "" {
		return o.ClientName
	}

	return strings.ToLower(worker) + "-mcp-client"
}

// Clone returns a copy of o that can be modified independently.
func (o *Options) Clone() *Options {
	c := *o
	c.Env = maps.Clone(o.Env)

	return &c
}

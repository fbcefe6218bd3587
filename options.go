package toolbridge

import (
	"log/slog"
	"maps"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/wagiedev/toolbridge-go/internal/config"
)

// Options configures worker clients.
type Options = config.Options

// Option configures Options using the functional options pattern.
type Option func(*Options)

// Built-in defaults.
const (
	DefaultRequestTimeout    = config.DefaultRequestTimeout
	DefaultInitializeTimeout = config.DefaultInitializeTimeout
	DefaultSettleDelay       = config.DefaultSettleDelay
	DefaultProtocolVersion   = config.DefaultProtocolVersion
)

// applyOptions applies functional options on top of a copy of base.
func applyOptions(base *Options, opts []Option) *Options {
	if base == nil {
		base = config.Defaults()
	}

	options := base.Clone()
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithRequestTimeout bounds each tool request. Default 30s; a value <= 0
// restores the default.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d <= 0 {
			d = DefaultRequestTimeout
		}

		o.RequestTimeout = d
	}
}

// WithInitializeTimeout bounds the whole handshake. Default 15s; a value
// <= 0 restores the default.
func WithInitializeTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d <= 0 {
			d = DefaultInitializeTimeout
		}

		o.InitializeTimeout = d
	}
}

// WithSettleDelay sets the pause after notifications/initialized before
// the client reports Ready. Default 1s; zero disables it.
func WithSettleDelay(d time.Duration) Option {
	return func(o *Options) {
		o.SettleDelay = d
	}
}

// WithStderr sets a callback receiving each line the worker writes to stderr.
func WithStderr(fn func(line string)) Option {
	return func(o *Options) {
		o.Stderr = fn
	}
}

// WithEnv adds environment variables for the worker. Repeated calls merge.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string, len(env))
		}

		maps.Copy(o.Env, env)
	}
}

// WithCwd sets the worker's working directory.
func WithCwd(dir string) Option {
	return func(o *Options) {
		o.Cwd = dir
	}
}

// WithProtocolVersion sets the protocol version sent in the handshake.
func WithProtocolVersion(version string) Option {
	return func(o *Options) {
		o.ProtocolVersion = version
	}
}

// WithClientInfo overrides the client name and version sent in the handshake.
func WithClientInfo(name, version string) Option {
	return func(o *Options) {
		o.ClientName = name
		o.ClientVersion = version
	}
}

// WithRateLimit caps tool calls to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *Options) {
		o.RateLimit = perSecond
		o.RateBurst = burst
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for client
// spans. If not set, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

// WithArgumentValidation validates tool arguments against the schemas
// returned by ListTools before sending a call.
func WithArgumentValidation(enabled bool) Option {
	return func(o *Options) {
		o.ValidateArguments = enabled
	}
}

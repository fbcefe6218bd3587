package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// dotEnvFiles are read in order; variables already set are never overridden.
var dotEnvFiles = []string{".env", ".env.local"}

// Env holds the TOOLBRIDGE_* environment variables.
type Env struct {
	ConfigPath      string        `env:"TOOLBRIDGE_CONFIG"`
	RequestTimeout  time.Duration `env:"TOOLBRIDGE_REQUEST_TIMEOUT"`
	InitTimeout     time.Duration `env:"TOOLBRIDGE_INIT_TIMEOUT"`
	SettleDelay     time.Duration `env:"TOOLBRIDGE_SETTLE_DELAY"`
	LogLevel        string        `env:"TOOLBRIDGE_LOG_LEVEL"        envDefault:"info"`
	ProtocolVersion string        `env:"TOOLBRIDGE_PROTOCOL_VERSION"`
	OTelEndpoint    string        `env:"TOOLBRIDGE_OTEL_ENDPOINT"`
	RateLimit       float64       `env:"TOOLBRIDGE_RATE_LIMIT"`
	RateBurst       int           `env:"TOOLBRIDGE_RATE_BURST"`
}

// LoadEnv reads .env files into the process environment and parses the
// TOOLBRIDGE_* variables.
func LoadEnv() (Env, error) {
	if err := loadDotEnv(); err != nil {
		return Env{}, err
	}

	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}

	return e, nil
}

func loadDotEnv() error {
	for _, name := range dotEnvFiles {
		values, err := godotenv.Read(name)
		if stderrors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}

		for k, v := range values {
			if _, exists := os.LookupEnv(k); exists {
				continue
			}

			if err := os.Setenv(k, v); err != nil {
				return fmt.Errorf("set %s from %s: %w", k, name, err)
			}
		}
	}

	return nil
}

// Apply copies every variable that was set onto o.
func (e Env) Apply(o *Options) {
	if e.RequestTimeout > 0 {
		o.RequestTimeout = e.RequestTimeout
	}

	if e.InitTimeout > 0 {
		o.InitializeTimeout = e.InitTimeout
	}

	if e.SettleDelay > 0 {
		o.SettleDelay = e.SettleDelay
	}

	if e.ProtocolVersion != "" {
		o.ProtocolVersion = e.ProtocolVersion
	}

	if e.RateLimit > 0 {
		o.RateLimit = e.RateLimit
	}

	if e.RateBurst > 0 {
		o.RateBurst = e.RateBurst
	}
}

// Level parses LogLevel, falling back to info.
func (e Env) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(e.LogLevel))); err != nil {
		return slog.LevelInfo
	}

	return level
}

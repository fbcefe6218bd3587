package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/wagiedev/toolbridge-go/internal/launch"
)

// Duration is a time.Duration read from a TOML string such as "30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	*d = Duration(parsed)

	return nil
}

// File is a worker registry file.
//
//	[defaults]
//	request_timeout = "30s"
//
//	[workers.mariadb]
//	runtime = "python"
//	script  = "workers/mariadb/server.py"
//	env     = { DB_HOST = "localhost" }
type File struct {
	Defaults FileDefaults      `toml:"defaults"`
	Workers  map[string]Worker `toml:"workers"`
}

// FileDefaults apply to every worker in the file.
type FileDefaults struct {
	RequestTimeout  Duration `toml:"request_timeout"`
	InitTimeout     Duration `toml:"init_timeout"`
	SettleDelay     Duration `toml:"settle_delay"`
	ProtocolVersion string   `toml:"protocol_version"`
	RateLimit       float64  `toml:"rate_limit"`
	RateBurst       int      `toml:"rate_burst"`
}

// Worker describes one worker entry.
type Worker struct {
	Runtime launch.Runtime    `toml:"runtime"`
	Script  string            `toml:"script"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
	Cwd     string            `toml:"cwd"`
}

// Spec converts the entry into a launch descriptor.
func (w Worker) Spec() launch.Spec {
	return launch.Spec{
		Runtime: w.Runtime,
		Script:  w.Script,
		Args:    w.Args,
		Env:     w.Env,
		Dir:     w.Cwd,
	}
}

// LoadFile decodes and validates a worker registry file.
func LoadFile(path string) (*File, error) {
	var f File

	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decode %s: unknown key %q", path, undecoded[0].String())
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}

	return &f, nil
}

// Validate checks every worker entry.
func (f *File) Validate() error {
	var errs []error

	for _, name := range f.Names() {
		if err := f.Workers[name].Spec().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("worker %q: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// Names returns the worker names in sorted order.
func (f *File) Names() []string {
	return slices.Sorted(maps.Keys(f.Workers))
}

// Apply copies the file defaults that were set onto o.
func (f *File) Apply(o *Options) {
	d := f.Defaults

	if d.RequestTimeout > 0 {
		o.RequestTimeout = time.Duration(d.RequestTimeout)
	}

	if d.InitTimeout > 0 {
		o.InitializeTimeout = time.Duration(d.InitTimeout)
	}

	if d.SettleDelay > 0 {
		o.SettleDelay = time.Duration(d.SettleDelay)
	}

	if d.ProtocolVersion != "" {
		o.ProtocolVersion = d.ProtocolVersion
	}

	if d.RateLimit > 0 {
		o.RateLimit = d.RateLimit
	}

	if d.RateBurst > 0 {
		o.RateBurst = d.RateBurst
	}
}

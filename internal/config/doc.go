// Package config holds client options and loads them from the environment
// and from a TOML worker registry file.
//
// Sources are layered with explicit options winning over environment
// variables, environment over file defaults, and file defaults over the
// built-in defaults:
//
//	opts := config.Defaults()
//	file.Apply(opts)
//	env.Apply(opts)
//	// then functional options
package config

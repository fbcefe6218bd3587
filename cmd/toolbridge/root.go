package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wagiedev/toolbridge-go"
	"github.com/wagiedev/toolbridge-go/internal/config"
	"github.com/wagiedev/toolbridge-go/internal/telemetry"
)

// globalFlags holds flags shared across all commands.
type globalFlags struct {
	ConfigPath string
	LogLevel   string
	JSON       bool
}

// app owns the resources a command run opens.
type app struct {
	flags    globalFlags
	stderr   io.Writer
	log      *slog.Logger
	registry *toolbridge.Registry
	shutdown func(context.Context) error
}

// run executes one command line. Workers started by the command are shut
// down before it returns, including when ctx is cancelled by a signal.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{stderr: stderr}

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	defer a.close()

	return cmd.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "toolbridge",
		Short:         "Supervise and call stdio tool workers",
		Long:          "toolbridge starts the workers listed in a TOML registry and talks to them over JSON-RPC on stdio.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&a.flags.ConfigPath, "config", "", "worker registry file (default: $TOOLBRIDGE_CONFIG or toolbridge.toml)")
	cmd.PersistentFlags().StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug, info, warn, error (default: $TOOLBRIDGE_LOG_LEVEL or info)")
	cmd.PersistentFlags().BoolVar(&a.flags.JSON, "json", false, "print machine-readable JSON")

	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newToolsCmd(a))
	cmd.AddCommand(newCallCmd(a))

	return cmd
}

// open configures logging and tracing and loads the registry.
func (a *app) open(ctx context.Context) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}

	if a.flags.LogLevel != "" {
		env.LogLevel = a.flags.LogLevel
	}

	a.log = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: env.Level()}))

	a.shutdown, err = telemetry.Setup(ctx, "toolbridge", env.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}

	a.registry, err = toolbridge.LoadRegistry(a.flags.ConfigPath,
		toolbridge.WithLogger(a.log),
		toolbridge.WithStderr(func(line string) {
			a.log.Debug("worker stderr", "line", line)
		}),
	)

	return err
}

func (a *app) close() {
	if a.registry != nil {
		if err := a.registry.Close(); err != nil && a.log != nil {
			a.log.Warn("failed to close workers", "error", err)
		}
	}

	if a.shutdown != nil {
		if err := a.shutdown(context.Background()); err != nil && a.log != nil {
			a.log.Warn("failed to flush traces", "error", err)
		}
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// parseArgs decodes the --args flag into a tool argument object.
func parseArgs(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(s), &args); err != nil {
		return nil, fmt.Errorf("--args must be a JSON object: %w", err)
	}

	return args, nil
}

package toolbridge

import (
	"context"
	"fmt"
)

// WithClient manages client lifecycle with automatic cleanup.
//
// This helper creates a client, initializes it, executes the callback,
// and ensures the worker is killed when done. If cleanup fails, a warning
// is logged but does not override the callback's error.
//
// Example usage:
//
//	err := toolbridge.WithClient(ctx, "pinecone", spec, func(c toolbridge.Client) error {
//	    raw, err := c.CallTool(ctx, "describe-index-stats", map[string]any{"name": "chatbot"})
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(toolbridge.Extract(raw))
//	    return nil
//	},
//	    toolbridge.WithLogger(log),
//	)
func WithClient(ctx context.Context, name string, spec Spec, fn func(Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(nil, opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	c := NewClient(name, spec, opts...)

	defer func() {
		if err := c.Cleanup(); err != nil {
			log.Warn("failed to clean up client", "worker", name, "error", err)
		}
	}()

	if err := c.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", name, err)
	}

	return fn(c)
}

package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wagiedev/toolbridge-go/internal/errors"
)

// maxToolPages stops a worker that keeps returning cursors.
const maxToolPages = 100

type listToolsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListTools returns the tools the worker advertises, following pagination
// cursors. Input schemas are cached for argument validation.
func (c *Client) ListTools(ctx context.Context) (tools []*mcp.Tool, err error) {
	sess, ok := c.ready()
	if !ok {
		return nil, errors.ErrNotInitialized
	}

	ctx, span := c.tracer.Start(ctx, "toolbridge.list_tools", trace.WithAttributes(
		attribute.String("toolbridge.worker", c.name),
		attribute.String("toolbridge.session", sess.id.String()),
	))
	defer func() { endSpan(span, err) }()

	var cursor string

	for range maxToolPages {
		raw, err := sess.table.Issue(ctx, methodToolsList, listToolsParams{Cursor: cursor}, c.opts.RequestTimeout).Wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", methodToolsList, err)
		}

		var page mcp.ListToolsResult
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("decode %s result: %w", methodToolsList, err)
		}

		tools = append(tools, page.Tools...)

		if page.NextCursor == "" {
			break
		}

		cursor = page.NextCursor
	}

	schemas := make(map[string]*jsonschema.Resolved, len(tools))

	for _, tool := range tools {
		resolved, err := resolveSchema(tool.InputSchema)
		if err != nil {
			sess.log.Debug("Skipping unusable input schema", "tool", tool.Name, "error", err)

			continue
		}

		schemas[tool.Name] = resolved
	}

	c.mu.Lock()
	if c.sess == sess {
		c.schemas = schemas
	}
	c.mu.Unlock()

	span.SetAttributes(attribute.Int("toolbridge.tool_count", len(tools)))
	sess.log.Debug("Listed tools", "count", len(tools))

	return tools, nil
}

// resolveSchema converts whatever form the schema was decoded into back to
// a jsonschema.Schema and resolves it.
func resolveSchema(schema any) (*jsonschema.Resolved, error) {
	if schema == nil {
		return nil, fmt.Errorf("no schema")
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	return s.Resolve(nil)
}

// validate checks args against the cached schema for tool. Tools without a
// cached schema are not checked.
func (c *Client) validate(tool string, args map[string]any) error {
	c.mu.Lock()
	resolved := c.schemas[tool]
	c.mu.Unlock()

	if resolved == nil {
		return nil
	}

	// Normalize Go values to their JSON forms so integers and structs
	// validate the way the worker will see them.
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}

	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}

	return nil
}

// Package toolbridge runs tool workers as child processes and calls their
// tools over JSON-RPC 2.0 on stdin/stdout.
//
// A worker is any program that speaks the MCP stdio protocol: a Python or
// Node script, a TypeScript entry point run through ts-node, or a native
// executable. The client spawns it, performs the handshake, correlates
// concurrent requests by id, enforces timeouts, and rejects outstanding
// calls when the worker dies.
//
// # Basic Usage
//
//	client := toolbridge.NewClient("mariadb", toolbridge.Spec{
//	    Runtime: toolbridge.RuntimePython,
//	    Script:  "workers/mariadb/server.py",
//	}, toolbridge.WithLogger(slog.Default()))
//	defer client.Cleanup()
//
//	if err := client.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	raw, err := client.CallTool(ctx, "execute_sql", map[string]any{
//	    "sql_query": "SELECT id, name FROM products LIMIT 5",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, row := range toolbridge.Rows(raw) {
//	    fmt.Println(row)
//	}
//
// # Many Workers
//
// A Registry holds named workers, starts them lazily on first use, and
// shuts them all down together:
//
//	reg := toolbridge.NewRegistry(toolbridge.WithLogger(log))
//	reg.Register("mariadb", mariaSpec)
//	reg.Register("pinecone", pineconeSpec)
//	defer reg.Close()
//
//	client, err := reg.Get(ctx, "pinecone")
//
// # Errors
//
// Failures are reported with typed errors that can be inspected with
// errors.Is and errors.As:
//
//	var toolErr *toolbridge.ToolError
//	switch {
//	case errors.Is(err, toolbridge.ErrNotInitialized):
//	    // call Initialize first
//	case errors.Is(err, toolbridge.ErrProcessTerminated):
//	    // the worker died; Initialize again to restart it
//	case errors.As(err, &toolErr):
//	    fmt.Println(toolErr.Message())
//	}
package toolbridge

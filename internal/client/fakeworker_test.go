package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// fakeWorkerEnv selects the fake worker mode when the test binary is
// re-executed as a child process.
const fakeWorkerEnv = "TOOLBRIDGE_FAKE_WORKER"

// fakeWorker is a scripted JSON-RPC worker speaking over stdio.
type fakeWorker struct {
	mode string

	outMu sync.Mutex
	out   *bufio.Writer

	histMu  sync.Mutex
	methods []string
	ids     []int64
	init    json.RawMessage
}

type fakeMessage struct {
	ID     *int64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func runFakeWorker(mode string) int {
	switch mode {
	case "silent":
		// Read and never answer.
		_, _ = io.Copy(io.Discard, os.Stdin)

		return 0
	case "crash":
		fmt.Fprintln(os.Stderr, "error: cannot connect to database")

		return 1
	case "mcpgo":
		return runMCPGoWorker()
	}

	w := &fakeWorker{mode: mode, out: bufio.NewWriter(os.Stdout)}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var msg fakeMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			fmt.Fprintf(os.Stderr, "bad line: %s\n", scanner.Text())

			continue
		}

		w.record(msg)
		w.handle(msg)

		if mode == "deaf" && msg.Method == "notifications/initialized" {
			// Stop reading so the client's writes fill the pipe.
			time.Sleep(time.Minute)

			return 0
		}
	}

	return 0
}

func (w *fakeWorker) record(msg fakeMessage) {
	w.histMu.Lock()
	defer w.histMu.Unlock()

	w.methods = append(w.methods, msg.Method)

	if msg.ID != nil {
		w.ids = append(w.ids, *msg.ID)
	}

	if msg.Method == "initialize" {
		w.init = msg.Params
	}
}

func (w *fakeWorker) writeRaw(s string) {
	w.outMu.Lock()
	defer w.outMu.Unlock()

	_, _ = w.out.WriteString(s)
	_ = w.out.Flush()
}

func (w *fakeWorker) reply(id int64, result any) {
	data, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": id, "result": result})
	w.writeRaw(string(data) + "\n")
}

func (w *fakeWorker) replyError(id int64, code int, message string) {
	data, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   map[string]any{"code": code, "message": message},
	})
	w.writeRaw(string(data) + "\n")
}

func (w *fakeWorker) handle(msg fakeMessage) {
	switch msg.Method {
	case "initialize":
		if w.mode == "init-error" {
			w.replyError(*msg.ID, -32602, "unsupported protocol version")

			return
		}

		// Traffic the client must ignore.
		w.writeRaw(`{"jsonrpc":"2.0","method":"notifications/message","params":{"level":"info"}}` + "\n")
		w.writeRaw(`{"jsonrpc":"2.0","id":99,"method":"roots/list"}` + "\n")

		w.reply(*msg.ID, map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": "fake-worker", "version": "0.0.1"},
		})
	case "notifications/initialized":
		if w.mode == "die-on-initialized" {
			fmt.Fprintln(os.Stderr, "fatal: index missing")
			os.Exit(4)
		}
	case "tools/list":
		w.listTools(msg)
	case "tools/call":
		var params struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}

		_ = json.Unmarshal(msg.Params, &params)

		w.callTool(*msg.ID, params.Name, params.Arguments)
	default:
		if msg.ID != nil {
			w.replyError(*msg.ID, -32601, "Method not found")
		}
	}
}

var echoSchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{"text": map[string]any{"type": "string"}},
	"required":   []string{"text"},
}

func (w *fakeWorker) listTools(msg fakeMessage) {
	var params struct {
		Cursor string `json:"cursor"`
	}

	_ = json.Unmarshal(msg.Params, &params)

	anyObject := map[string]any{"type": "object"}

	if params.Cursor == "" {
		w.reply(*msg.ID, map[string]any{
			"tools": []any{
				map[string]any{"name": "echo", "description": "Echo arguments", "inputSchema": echoSchema},
				map[string]any{"name": "fail", "inputSchema": anyObject},
			},
			"nextCursor": "page-2",
		})

		return
	}

	w.reply(*msg.ID, map[string]any{
		"tools": []any{
			map[string]any{"name": "slow", "inputSchema": anyObject},
			map[string]any{"name": "exit", "inputSchema": anyObject},
			map[string]any{"name": "history", "inputSchema": anyObject},
		},
	})
}

func (w *fakeWorker) callTool(id int64, name string, args map[string]any) {
	switch name {
	case "echo":
		text, _ := json.Marshal(args)
		w.reply(id, map[string]any{"content": []any{map[string]any{"type": "text", "text": string(text)}}})
	case "fail":
		w.replyError(id, -32000, "boom")
	case "slow":
		ms, _ := args["ms"].(float64)

		go func() {
			time.Sleep(time.Duration(ms) * time.Millisecond)
			w.reply(id, map[string]any{"slept": ms})
		}()
	case "jitter":
		go func() {
			time.Sleep(time.Duration(rand.IntN(20)) * time.Millisecond)
			w.reply(id, map[string]any{"structuredContent": map[string]any{"result": args["n"]}})
		}()
	case "split":
		data, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": id, "result": map[string]any{"result": "joined"}})
		half := len(data) / 2

		w.writeRaw("worker log: starting split\n\n   \n")
		w.writeRaw(string(data[:half]))
		time.Sleep(20 * time.Millisecond)
		w.writeRaw(string(data[half:]) + "\n")
	case "exit":
		fmt.Fprintln(os.Stderr, "fatal: exit requested")
		os.Exit(7)
	case "history":
		w.histMu.Lock()
		result := map[string]any{"methods": w.methods, "ids": w.ids, "initialize": w.init}
		w.histMu.Unlock()

		w.reply(id, result)
	default:
		w.replyError(id, -32601, "unknown tool "+name)
	}
}

// runMCPGoWorker serves a real MCP server over stdio.
func runMCPGoWorker() int {
	s := mcpserver.NewMCPServer("mcpgo-worker", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(
		mcpgo.NewTool("echo",
			mcpgo.WithDescription("Echo the given text"),
			mcpgo.WithString("text", mcpgo.Required(), mcpgo.Description("Text to echo")),
		),
		func(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			text, err := req.RequireString("text")
			if err != nil {
				return mcpgo.NewToolResultError(err.Error()), nil
			}

			return mcpgo.NewToolResultText(text), nil
		},
	)

	if err := mcpserver.ServeStdio(s); err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 1
	}

	return 0
}

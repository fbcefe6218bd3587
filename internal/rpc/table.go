package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/toolbridge-go/internal/errors"
	"github.com/wagiedev/toolbridge-go/internal/jsonrpc"
)

// Writer delivers one encoded line to the worker.
type Writer interface {
	Write(ctx context.Context, data []byte) error
}

// Table tracks outstanding requests for one worker process.
type Table struct {
	log *slog.Logger
	w   Writer

	mu      sync.Mutex
	nextID  int64
	pending map[int64]*Call
	closed  error // set by RejectAll; later Issue calls settle with it
}

// NewTable creates a table that writes requests through w.
func NewTable(log *slog.Logger, w Writer) *Table {
	return &Table{
		log:     log.With("component", "rpc"),
		w:       w,
		nextID:  1,
		pending: make(map[int64]*Call, 8),
	}
}

// Call is the completion handle of one request.
type Call struct {
	ID       int64
	Method   string
	Deadline time.Time

	table  *Table
	timer  *time.Timer
	done   chan struct{}
	result json.RawMessage
	err    error
}

// Done returns a channel that is closed once the call has settled.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Result returns the settled outcome. It must only be called after Done is closed.
func (c *Call) Result() (json.RawMessage, error) {
	return c.result, c.err
}

// Wait blocks until the call settles or ctx ends. If ctx ends first the
// request is abandoned: its entry is removed and any later response is
// dropped.
func (c *Call) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		c.table.settle(c, nil, ctx.Err())

		// Another settlement may have won the race.
		<-c.done

		return c.result, c.err
	}
}

// Issue allocates the next id, registers the request, and writes it to the
// worker. The returned call is already settled if the request could not be
// encoded or written, or if the table has been rejected.
func (t *Table) Issue(ctx context.Context, method string, params any, timeout time.Duration) *Call {
	t.mu.Lock()

	id := t.nextID
	t.nextID++

	call := &Call{
		ID:       id,
		Method:   method,
		Deadline: time.Now().Add(timeout),
		table:    t,
		done:     make(chan struct{}),
	}

	if t.closed != nil {
		closedErr := t.closed
		t.mu.Unlock()

		call.err = closedErr
		close(call.done)

		return call
	}

	t.pending[id] = call
	call.timer = time.AfterFunc(timeout, func() {
		if t.settle(call, nil, fmt.Errorf("%w: %s after %s", errors.ErrRequestTimeout, method, timeout)) {
			t.log.Warn("Request timed out", "id", id, "method", method, "timeout", timeout)
		}
	})

	t.mu.Unlock()

	msg, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		t.settle(call, nil, err)

		return call
	}

	data, err := msg.Encode()
	if err != nil {
		t.settle(call, nil, err)

		return call
	}

	t.log.Debug("Sending request", "id", id, "method", method)

	if err := t.w.Write(ctx, data); err != nil {
		t.log.Error("Failed to send request", "id", id, "method", method, "error", err)
		t.settle(call, nil, fmt.Errorf("send request: %w", err))
	}

	return call
}

// Notify writes a notification. Nothing is registered and no completion is signalled.
func (t *Table) Notify(ctx context.Context, method string, params any) error {
	msg, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return err
	}

	data, err := msg.Encode()
	if err != nil {
		return err
	}

	t.log.Debug("Sending notification", "method", method)

	if err := t.w.Write(ctx, data); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	return nil
}

// Resolve settles the request matching a response message. It reports
// whether a pending request was found. Responses for unknown, timed-out, or
// already settled ids are dropped.
func (t *Table) Resolve(msg *jsonrpc.Message) bool {
	if !msg.IsResponse() {
		return false
	}

	t.mu.Lock()
	call, ok := t.pending[*msg.ID]
	t.mu.Unlock()

	if !ok {
		t.log.Debug("Dropping response with no pending request", "id", *msg.ID)

		return false
	}

	if msg.Error != nil {
		return t.settle(call, nil, msg.Error)
	}

	return t.settle(call, msg.Result, nil)
}

// RejectAll settles every pending request with err and returns how many
// were rejected. Requests issued afterwards settle immediately with err.
func (t *Table) RejectAll(err error) int {
	t.mu.Lock()

	if t.closed == nil {
		t.closed = err
	}

	calls := make([]*Call, 0, len(t.pending))
	for _, call := range t.pending {
		calls = append(calls, call)
	}

	t.mu.Unlock()

	n := 0

	for _, call := range calls {
		if t.settle(call, nil, err) {
			n++
		}
	}

	if n > 0 {
		t.log.Debug("Rejected pending requests", "count", n, "reason", err)
	}

	return n
}

// Len returns the number of outstanding requests.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.pending)
}

// settle claims the call by removing it from the pending map. Only the
// claimant completes the call; every other attempt returns false.
func (t *Table) settle(call *Call, result json.RawMessage, err error) bool {
	t.mu.Lock()

	if t.pending[call.ID] != call {
		t.mu.Unlock()

		return false
	}

	delete(t.pending, call.ID)
	t.mu.Unlock()

	if call.timer != nil {
		call.timer.Stop()
	}

	call.result = result
	call.err = err
	close(call.done)

	return true
}

package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/toolbridge-go/internal/errors"
	"github.com/wagiedev/toolbridge-go/internal/launch"
)

const (
	// readChunkSize is the stdout read size. Chunks need not align with lines.
	readChunkSize = 32 * 1024
	// maxStderrLineSize bounds a single stderr line.
	maxStderrLineSize = 1024 * 1024 // 1MB
	// maxStderrBufferSize caps the stderr kept for exit reports. The Stderr
	// handler keeps receiving lines after the cap is reached.
	maxStderrBufferSize = 1024 * 1024 // 1MB
	// writeAbandonWait bounds how long Write waits for a blocked write to
	// unwind after its context ends.
	writeAbandonWait = time.Second
)

// ExitStatus describes how the worker exited.
type ExitStatus struct {
	// Code is the exit code, or -1 when the process was killed by a signal.
	Code int
	// Stderr is the captured stderr, capped at 1MB.
	Stderr string
	// Err is the error reported by the wait, if any.
	Err error
	// Stopped is true when the exit followed a call to Stop.
	Stopped bool
}

// Handlers receive asynchronous process events. Any of them may be nil.
// They are called from supervisor goroutines and must not block for long.
type Handlers struct {
	// Stdout receives raw stdout chunks in arrival order.
	Stdout func(chunk []byte)
	// Stderr receives each stderr line.
	Stderr func(line string)
	// Error receives unexpected read failures on the stdout pipe.
	Error func(err error)
	// Exit is called exactly once after both pipes drain and the process is reaped.
	Exit func(status ExitStatus)
}

// Process is a running worker.
type Process struct {
	log *slog.Logger
	cmd *exec.Cmd

	writeMu sync.Mutex // serializes stdin writes

	mu          sync.Mutex // protects stdin and the flags below
	stdin       io.WriteCloser
	stdinClosed bool
	stopping    bool
	exited      bool

	stderrMu  sync.Mutex
	stderrBuf strings.Builder

	done   chan struct{}
	status ExitStatus
}

// Start spawns the worker described by command.
//
// The process is not tied to ctx; ctx only aborts the spawn itself. The
// process lives until it exits or Stop is called. Returns
// *errors.SpawnFailedError when the program cannot be found or started.
func Start(ctx context.Context, log *slog.Logger, command launch.Command, h Handlers) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log = log.With("component", "process")

	path, err := command.Resolve()
	if err != nil {
		log.Error("Worker program not found", "command", command.String(), "error", err)

		return nil, &errors.SpawnFailedError{Command: command.String(), Err: err}
	}

	//nolint:gosec // G204: launching configured worker commands is the purpose of this package
	cmd := exec.Command(path, command.Args...)
	cmd.Env = command.Env
	cmd.Dir = command.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &errors.SpawnFailedError{Command: command.String(), Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &errors.SpawnFailedError{Command: command.String(), Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &errors.SpawnFailedError{Command: command.String(), Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		log.Error("Failed to start worker", "command", command.String(), "error", err)

		return nil, &errors.SpawnFailedError{Command: command.String(), Err: fmt.Errorf("start process: %w", err)}
	}

	p := &Process{
		log:   log.With("pid", cmd.Process.Pid),
		cmd:   cmd,
		stdin: stdin,
		done:  make(chan struct{}),
	}

	p.log.Info("Worker started", "command", command.String())

	go p.supervise(stdout, stderr, h)

	return p, nil
}

// supervise drains both pipes, reaps the process, and reports the exit.
// Pipes must be fully read before Wait, see exec.Cmd.StdoutPipe.
func (p *Process) supervise(stdout, stderr io.Reader, h Handlers) {
	var g errgroup.Group

	g.Go(func() error {
		return pump(stdout, func(chunk []byte) {
			if h.Stdout != nil {
				h.Stdout(chunk)
			}
		})
	})

	g.Go(func() error {
		p.scanStderr(stderr, h.Stderr)

		return nil
	})

	if err := g.Wait(); err != nil {
		p.log.Error("Worker stdout read failed", "error", err)

		if h.Error != nil {
			h.Error(err)
		}
	}

	waitErr := p.cmd.Wait()

	p.mu.Lock()
	p.exited = true
	stopped := p.stopping
	p.mu.Unlock()

	status := ExitStatus{
		Code:    p.cmd.ProcessState.ExitCode(),
		Stderr:  p.Stderr(),
		Stopped: stopped,
	}

	if _, ok := stderrors.AsType[*exec.ExitError](waitErr); !ok {
		status.Err = waitErr
	}

	p.status = status
	close(p.done)

	switch {
	case stopped:
		p.log.Debug("Worker stopped", "exit_code", status.Code)
	case status.Code != 0:
		p.log.Warn("Worker exited", "exit_code", status.Code, "stderr", status.Stderr)
	default:
		p.log.Info("Worker exited", "exit_code", status.Code)
	}

	if h.Exit != nil {
		h.Exit(status)
	}
}

// pump copies r to fn in chunks until EOF. Closed-pipe errors count as EOF.
func pump(r io.Reader, fn func([]byte)) error {
	buf := make([]byte, readChunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			fn(chunk)
		}

		if err != nil {
			if err == io.EOF || stderrors.Is(err, fs.ErrClosed) || stderrors.Is(err, os.ErrClosed) {
				return nil
			}

			return fmt.Errorf("read stdout: %w", err)
		}
	}
}

func (p *Process) scanStderr(r io.Reader, callback func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStderrLineSize)

	for scanner.Scan() {
		line := scanner.Text()

		p.stderrMu.Lock()

		if p.stderrBuf.Len() < maxStderrBufferSize {
			if p.stderrBuf.Len() > 0 {
				p.stderrBuf.WriteString("\n")
			}

			p.stderrBuf.WriteString(line)
		}

		p.stderrMu.Unlock()

		p.log.Debug("Worker stderr", "line", line)

		if callback != nil {
			callback(line)
		}
	}

	if err := scanner.Err(); err != nil {
		p.log.Debug("Stderr scanner error", "error", err)

		// Keep draining so the worker never blocks on a full stderr pipe.
		_, _ = io.Copy(io.Discard, r)
	}
}

// Write sends data to the worker's stdin. It is safe for concurrent use;
// each call's bytes are written contiguously. Writes after exit fail with
// errors.ErrProcessExited.
//
// If ctx ends during a blocked write, stdin is closed to unblock it and
// every later write fails.
func (p *Process) Write(ctx context.Context, data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	closed := p.exited || p.stopping || p.stdinClosed
	p.mu.Unlock()

	if closed {
		return errors.ErrProcessExited
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)

	go func() {
		_, err := p.stdin.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			p.log.Debug("Failed to write to worker stdin", "error", err)

			return fmt.Errorf("%w: %w", errors.ErrProcessExited, err)
		}

		return nil

	case <-ctx.Done():
		// A partial frame is already on the pipe, so the stream cannot be
		// resumed. End the process and let the exit handler report it.
		p.log.Debug("Context cancelled during write, stopping worker")

		if err := p.Stop(); err != nil {
			p.log.Debug("Failed to stop worker", "error", err)
		}

		select {
		case <-done:
		case <-time.After(writeAbandonWait):
			p.log.Warn("Write goroutine did not exit after stdin close")
		}

		return ctx.Err()
	}
}

func (p *Process) closeStdin() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.stdinClosed {
		_ = p.stdin.Close()
		p.stdinClosed = true
	}
}

// Stop kills the worker if it is still running. It is idempotent and safe
// to call after the process has exited.
func (p *Process) Stop() error {
	p.mu.Lock()

	if p.exited || p.stopping {
		p.mu.Unlock()

		return nil
	}

	p.stopping = true
	p.mu.Unlock()

	// Closing stdin also unblocks a writer stuck on a full pipe.
	p.closeStdin()

	p.log.Debug("Killing worker")

	if err := p.cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill worker (pid %d): %w", p.cmd.Process.Pid, err)
	}

	return nil
}

// Alive reports whether the process is running and its stdin still open.
func (p *Process) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return !p.exited && !p.stopping && !p.stdinClosed
}

// Done is closed once the process has been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Status returns the exit status. It must only be called after Done is closed.
func (p *Process) Status() ExitStatus {
	return p.status
}

// PID returns the operating system process id.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Stderr returns the stderr captured so far.
func (p *Process) Stderr() string {
	p.stderrMu.Lock()
	defer p.stderrMu.Unlock()

	return strings.TrimSpace(p.stderrBuf.String())
}

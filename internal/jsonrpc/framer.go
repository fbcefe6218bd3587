package jsonrpc

import (
	"bytes"
)

// Framer splits a stream of stdout chunks into complete messages.
//
// The trailing buffer holds at most one incomplete line. Complete lines are
// handed to the dispatch function in the order their newline arrived. A line
// that does not parse goes to the diagnostic function instead and is
// otherwise discarded; workers are free to print non-protocol text.
//
// A Framer is not safe for concurrent use. The supervisor feeds it from a
// single stdout goroutine.
type Framer struct {
	buf        []byte
	dispatch   func(*Message)
	diagnostic func(line string)
}

// NewFramer creates a framer. Either callback may be nil.
func NewFramer(dispatch func(*Message), diagnostic func(line string)) *Framer {
	return &Framer{dispatch: dispatch, diagnostic: diagnostic}
}

// Feed appends chunk to the trailing buffer and dispatches every complete line.
func (f *Framer) Feed(chunk []byte) {
	f.buf = append(f.buf, chunk...)

	for {
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			break
		}

		line := bytes.TrimSpace(f.buf[:idx])
		f.buf = f.buf[idx+1:]

		if len(line) == 0 {
			continue
		}

		f.handleLine(line)
	}

	// Release the consumed prefix once the buffer is drained.
	if len(f.buf) == 0 {
		f.buf = nil
	}
}

// Buffered returns the incomplete trailing segment.
func (f *Framer) Buffered() string {
	return string(f.buf)
}

// Reset discards the trailing buffer.
func (f *Framer) Reset() {
	f.buf = nil
}

func (f *Framer) handleLine(line []byte) {
	msg, err := Parse(line)
	if err != nil {
		if f.diagnostic != nil {
			f.diagnostic(string(line))
		}

		return
	}

	if f.dispatch != nil {
		f.dispatch(msg)
	}
}

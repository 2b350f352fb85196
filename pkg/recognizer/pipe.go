package recognizer

import (
	"iter"
	"sync"
)

// Pipe is an in-memory Engine. Audio fed in is buffered for the
// consumer side; recognized lines are injected with Emit. It is used
// by tests and by in-process recognizer integrations.
type Pipe struct {
	in    chan []byte
	lines chan string

	mu     sync.Mutex
	closed bool
}

// NewPipe creates a Pipe whose input buffer holds up to queue frames.
func NewPipe(queue int) *Pipe {
	if queue <= 0 {
		queue = 256
	}
	return &Pipe{
		in:    make(chan []byte, queue),
		lines: make(chan string, 32),
	}
}

// Feed implements Engine. The frame is copied; a full buffer drops.
func (p *Pipe) Feed(frame []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	select {
	case p.in <- cp:
		return true
	default:
		return false
	}
}

// Frames returns an iterator over fed audio frames (the engine side
// of the pipe).
func (p *Pipe) Frames() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for frame := range p.in {
			if !yield(frame, nil) {
				return
			}
		}
	}
}

// Emit injects one recognized line (the engine side of the pipe).
// Emit after Close is a no-op.
func (p *Pipe) Emit(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.lines <- line
}

// Lines implements Engine.
func (p *Pipe) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for line := range p.lines {
			if !yield(line, nil) {
				return
			}
		}
	}
}

// Close implements Engine.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.in)
	close(p.lines)
	return nil
}

// Compile-time interface check.
var _ Engine = (*Pipe)(nil)

package recognizer

import (
	"bufio"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// SubprocessOptions configures a subprocess-backed Engine.
type SubprocessOptions struct {
	// Command is the executable to spawn. Required.
	Command string

	// Args are the command arguments.
	Args []string

	// QueueFrames bounds the audio frames buffered toward the child's
	// stdin. When the buffer is full, Feed drops. Defaults to 256.
	QueueFrames int

	// Restart re-spawns the child if it exits prematurely.
	Restart bool

	// RestartBackoff is the delay before a restart. Defaults to 1s.
	RestartBackoff time.Duration

	// Logger receives lifecycle and failure events.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// Subprocess runs the recognition engine as a child process, feeding
// raw PCM to its stdin and scanning recognized lines from its stdout.
//
// The child is spawned once at construction and expected to run for
// the coordinator's lifetime; with Restart enabled a premature exit
// re-spawns it after a backoff instead of ending the line stream.
type Subprocess struct {
	opts  SubprocessOptions
	in    chan []byte
	lines chan string

	mu     sync.Mutex
	cmd    *exec.Cmd
	closed bool

	closeCh chan struct{}
	done    chan struct{}
}

// NewSubprocess spawns the engine process and starts its supervisor.
func NewSubprocess(opts SubprocessOptions) (*Subprocess, error) {
	if opts.Command == "" {
		return nil, errors.New("recognizer: SubprocessOptions.Command is required")
	}
	if opts.QueueFrames <= 0 {
		opts.QueueFrames = 256
	}
	if opts.RestartBackoff <= 0 {
		opts.RestartBackoff = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Subprocess{
		opts:    opts,
		in:      make(chan []byte, opts.QueueFrames),
		lines:   make(chan string, 32),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}

	// Fail fast on a broken command; later exits are handled by the
	// supervisor's restart policy.
	if _, err := exec.LookPath(opts.Command); err != nil {
		return nil, fmt.Errorf("recognizer: %w", err)
	}

	go s.supervise()
	return s, nil
}

// Feed implements Engine. The frame is copied before queueing.
func (s *Subprocess) Feed(p []byte) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case s.in <- cp:
		return true
	default:
		return false
	}
}

// Lines implements Engine.
func (s *Subprocess) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for line := range s.lines {
			if !yield(line, nil) {
				return
			}
		}
	}
}

// Close implements Engine. It kills the child process and waits for
// the supervisor to finish; the line stream ends.
func (s *Subprocess) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closeCh)
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.mu.Unlock()

	<-s.done
	return nil
}

// supervise runs the engine process, restarting per policy, until the
// engine is closed or the policy gives up.
func (s *Subprocess) supervise() {
	defer close(s.done)
	defer close(s.lines)

	for {
		err := s.runOnce()

		select {
		case <-s.closeCh:
			return
		default:
		}

		if err != nil {
			s.opts.Logger.Error("recognizer: engine exited", "command", s.opts.Command, "error", err)
		} else {
			s.opts.Logger.Warn("recognizer: engine exited", "command", s.opts.Command)
		}

		if !s.opts.Restart {
			return
		}

		s.opts.Logger.Info("recognizer: restarting engine",
			"command", s.opts.Command, "backoff", s.opts.RestartBackoff)
		select {
		case <-time.After(s.opts.RestartBackoff):
		case <-s.closeCh:
			return
		}
	}
}

// runOnce spawns the child and pumps it until exit.
func (s *Subprocess) runOnce() error {
	cmd := exec.Command(s.opts.Command, s.opts.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("recognizer: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("recognizer: stdout pipe: %w", err)
	}
	cmd.Stderr = &logWriter{logger: s.opts.Logger}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("recognizer: start %s: %w", s.opts.Command, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cmd.Process.Kill()
		cmd.Wait()
		return nil
	}
	s.cmd = cmd
	s.mu.Unlock()

	// Writer pump: drain queued frames into the child's stdin until the
	// child exits or the engine closes.
	writerStop := make(chan struct{})
	go func() {
		defer stdin.Close()
		for {
			select {
			case frame := <-s.in:
				if _, err := stdin.Write(frame); err != nil {
					return
				}
			case <-writerStop:
				return
			case <-s.closeCh:
				return
			}
		}
	}()

	// Reader: one recognized line per stdout line.
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case s.lines <- line:
		case <-s.closeCh:
		}
	}
	close(writerStop)

	return cmd.Wait()
}

// logWriter forwards child stderr output to the logger.
type logWriter struct {
	logger *slog.Logger
}

func (w *logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			w.logger.Debug("recognizer: engine stderr", "line", line)
		}
	}
	return len(p), nil
}

// Compile-time interface check.
var _ Engine = (*Subprocess)(nil)

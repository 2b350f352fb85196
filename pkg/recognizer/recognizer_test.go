package recognizer

import (
	"os/exec"
	"testing"
	"time"
)

func TestPipe_FeedAndFrames(t *testing.T) {
	p := NewPipe(4)
	defer p.Close()

	if !p.Feed([]byte{1, 2, 3}) {
		t.Fatal("Feed = false with room in buffer")
	}

	// Frame is copied: mutating the caller's buffer must not affect it.
	buf := []byte{9, 9}
	p.Feed(buf)
	buf[0] = 0

	var frames [][]byte
	go func() {
		time.Sleep(10 * time.Millisecond)
		p.Close()
	}()
	for frame, err := range p.Frames() {
		if err != nil {
			t.Fatalf("Frames error: %v", err)
		}
		frames = append(frames, frame)
	}

	if len(frames) != 2 {
		t.Fatalf("got %d frames; want 2", len(frames))
	}
	if frames[1][0] != 9 {
		t.Error("frame aliases caller buffer; want copy")
	}
}

func TestPipe_DropsWhenFull(t *testing.T) {
	p := NewPipe(1)
	defer p.Close()

	if !p.Feed([]byte{1}) {
		t.Fatal("first Feed = false")
	}
	if p.Feed([]byte{2}) {
		t.Error("Feed = true on full buffer; want drop")
	}
}

func TestPipe_LinesEndOnClose(t *testing.T) {
	p := NewPipe(0)
	p.Emit("hello world")
	p.Emit("fire in the hold")
	p.Close()

	var lines []string
	for line, err := range p.Lines() {
		if err != nil {
			t.Fatalf("Lines error: %v", err)
		}
		lines = append(lines, line)
	}
	if len(lines) != 2 || lines[0] != "hello world" || lines[1] != "fire in the hold" {
		t.Errorf("lines = %v; want both in order", lines)
	}

	if p.Feed([]byte{1}) {
		t.Error("Feed after Close = true; want false")
	}
}

func TestSubprocess_EchoLines(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	s, err := NewSubprocess(SubprocessOptions{Command: "cat"})
	if err != nil {
		t.Fatalf("NewSubprocess error: %v", err)
	}

	// cat echoes stdin to stdout, so fed text comes back as lines.
	if !s.Feed([]byte("recognized text\n")) {
		t.Fatal("Feed = false")
	}

	got := make(chan string, 1)
	go func() {
		for line, err := range s.Lines() {
			if err == nil {
				got <- line
				return
			}
		}
	}()

	select {
	case line := <-got:
		if line != "recognized text" {
			t.Errorf("line = %q; want %q", line, "recognized text")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for recognized line")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestSubprocess_MissingCommand(t *testing.T) {
	if _, err := NewSubprocess(SubprocessOptions{Command: "definitely-not-a-real-binary"}); err == nil {
		t.Error("NewSubprocess = nil error for missing command")
	}
	if _, err := NewSubprocess(SubprocessOptions{}); err == nil {
		t.Error("NewSubprocess = nil error for empty command")
	}
}

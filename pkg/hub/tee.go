package hub

import (
	"log/slog"

	"github.com/guardpost/guardpost/pkg/recognizer"
	"github.com/guardpost/guardpost/pkg/session"
)

// Tee duplicates inbound audio frames to the active session's audio
// sink and to the recognition engine's input. Each frame is handled
// independently and byte-exact; there is no buffering across calls.
//
// Broadcast to other connections is the hub's job, not the Tee's.
type Tee struct {
	sessions *session.Manager
	engine   recognizer.Engine
	logger   *slog.Logger
}

// NewTee creates a Tee. engine may be nil when no recognition engine
// is configured.
func NewTee(sessions *session.Manager, engine recognizer.Engine, logger *slog.Logger) *Tee {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tee{sessions: sessions, engine: engine, logger: logger}
}

// Feed handles one inbound audio frame. A failed sink write is logged
// and skipped; audio dropped toward the recognizer is tolerated loss.
func (t *Tee) Feed(frame []byte) {
	if err := t.sessions.WriteAudio(frame); err != nil {
		t.logger.Error("hub: audio sink write failed", "error", err)
	}
	if t.engine != nil {
		t.engine.Feed(frame)
	}
}

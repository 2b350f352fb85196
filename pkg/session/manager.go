// Package session owns the recording session lifecycle and its two
// per-session artifacts: the WAV audio file and the telemetry CSV.
//
// At most one session is active at a time. Audio and telemetry that
// arrive while no session is active are dropped by policy, not
// buffered and not an error.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/guardpost/guardpost/pkg/alert"
	"github.com/guardpost/guardpost/pkg/audio/pcm"
	"github.com/guardpost/guardpost/pkg/audio/wav"
	"github.com/guardpost/guardpost/pkg/index"
	"github.com/guardpost/guardpost/pkg/jsontime"
	"github.com/guardpost/guardpost/pkg/storage"
	"github.com/guardpost/guardpost/pkg/telemetry"
)

// IDFormat is the time layout for session ids. Local-second
// granularity; lexicographic order equals chronological order.
const IDFormat = "2006-01-02_15-04-05"

// startNotifyCount is how many times the "session started" alert is
// sent. The triplet is deliberate redundancy against notification
// loss on the external channel.
const startNotifyCount = 3

// Options configures a Manager.
type Options struct {
	// AudioDir is the root for WAV artifacts (panic_<id>.wav). Required.
	AudioDir string

	// DataDir is the root for telemetry artifacts (sensor_<id>.csv).
	// Required.
	DataDir string

	// Format is the PCM format of inbound audio.
	// Defaults to pcm.L16Mono16K.
	Format pcm.Format

	// Notify receives "session started" alerts. Optional.
	Notify alert.Sink

	// Index records session metadata. Optional.
	Index *index.Index

	// Archive mirrors finished artifacts to an object store. Optional.
	Archive storage.FileStore

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now overrides the time source (for tests).
	Now func() time.Time
}

// Manager is the single choke point for session state.
// All methods are safe for concurrent use.
type Manager struct {
	opts Options

	mu     sync.Mutex
	active *active
}

// active holds the open artifacts of the current session.
type active struct {
	id        string
	startedAt time.Time

	audioFile *os.File
	wav       *wav.Writer

	telemetryFile *os.File
	tlog          *telemetry.Log
}

// NewManager creates a Manager, creating the artifact roots if needed.
func NewManager(opts Options) (*Manager, error) {
	if opts.AudioDir == "" || opts.DataDir == "" {
		return nil, fmt.Errorf("session: AudioDir and DataDir are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	for _, dir := range []string{opts.AudioDir, opts.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("session: create %s: %w", dir, err)
		}
	}
	return &Manager{opts: opts}, nil
}

// Start opens a new session and returns its id.
//
// Start while a session is already active performs an implicit
// stop-then-start: the prior session's artifacts are finalized cleanly
// before the new session opens.
func (m *Manager) Start(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		m.opts.Logger.Warn("session: start while active, finalizing previous",
			"previous", m.active.id)
		if err := m.stopLocked(ctx); err != nil {
			m.opts.Logger.Error("session: finalize previous session", "error", err)
		}
	}

	now := m.opts.Now()
	id := now.Format(IDFormat)

	audioPath := filepath.Join(m.opts.AudioDir, AudioFileName(id))
	audioFile, err := os.Create(audioPath)
	if err != nil {
		return "", fmt.Errorf("session: open audio sink: %w", err)
	}
	wavWriter, err := wav.NewWriter(audioFile, m.opts.Format)
	if err != nil {
		audioFile.Close()
		os.Remove(audioPath)
		return "", err
	}

	telemetryPath := filepath.Join(m.opts.DataDir, TelemetryFileName(id))
	telemetryFile, err := os.Create(telemetryPath)
	if err != nil {
		audioFile.Close()
		os.Remove(audioPath)
		return "", fmt.Errorf("session: open telemetry sink: %w", err)
	}
	tlog, err := telemetry.NewLog(telemetryFile)
	if err != nil {
		audioFile.Close()
		telemetryFile.Close()
		os.Remove(audioPath)
		os.Remove(telemetryPath)
		return "", err
	}

	m.active = &active{
		id:            id,
		startedAt:     now,
		audioFile:     audioFile,
		wav:           wavWriter,
		telemetryFile: telemetryFile,
		tlog:          tlog,
	}
	m.opts.Logger.Info("session: started", "id", id)

	if m.opts.Index != nil {
		rec := &index.Record{
			ID:            id,
			StartedAt:     jsontime.Milli(now),
			AudioFile:     AudioFileName(id),
			TelemetryFile: TelemetryFileName(id),
		}
		if err := m.opts.Index.Put(ctx, rec); err != nil {
			m.opts.Logger.Error("session: index start record", "error", err)
		}
	}

	if m.opts.Notify != nil {
		text := fmt.Sprintf("Emergency audio stream started: %s", id)
		for i := 0; i < startNotifyCount; i++ {
			m.opts.Notify.Dispatch(text)
		}
	}

	return id, nil
}

// Stop finalizes and closes the active session's artifacts.
// Stop with no active session is a no-op, not an error.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	s := m.active
	if s == nil {
		return nil
	}
	m.active = nil

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(s.wav.Finalize())
	record(s.audioFile.Close())
	record(s.telemetryFile.Close())

	m.opts.Logger.Info("session: stopped",
		"id", s.id,
		"audio_bytes", s.wav.DataBytes(),
		"duration", s.wav.Duration(),
		"telemetry_rows", s.tlog.Rows())

	if m.opts.Index != nil {
		rec := &index.Record{
			ID:            s.id,
			StartedAt:     jsontime.Milli(s.startedAt),
			StoppedAt:     jsontime.Milli(m.opts.Now()),
			AudioBytes:    s.wav.DataBytes(),
			TelemetryRows: s.tlog.Rows(),
			AudioFile:     AudioFileName(s.id),
			TelemetryFile: TelemetryFileName(s.id),
		}
		if err := m.opts.Index.Put(ctx, rec); err != nil {
			m.opts.Logger.Error("session: index stop record", "error", err)
		}
	}

	if m.opts.Archive != nil {
		// Archive off the hot path; delivery is best-effort.
		go m.archive(s.id)
	}

	return firstErr
}

// archive mirrors the finished artifacts to the configured FileStore.
func (m *Manager) archive(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pairs := []struct{ local, remote string }{
		{filepath.Join(m.opts.AudioDir, AudioFileName(id)), "audio/" + AudioFileName(id)},
		{filepath.Join(m.opts.DataDir, TelemetryFileName(id)), "data/" + TelemetryFileName(id)},
	}
	for _, p := range pairs {
		if err := m.copyToArchive(ctx, p.local, p.remote); err != nil {
			m.opts.Logger.Error("session: archive artifact",
				"session", id, "file", p.remote, "error", err)
		}
	}
}

func (m *Manager) copyToArchive(ctx context.Context, local, remote string) error {
	src, err := os.Open(local)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := m.opts.Archive.Write(ctx, remote)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// Active reports whether a session is currently recording.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// ActiveID returns the id of the active session, or "".
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ""
	}
	return m.active.id
}

// WriteAudio appends one PCM frame to the active session's audio sink.
// With no active session the frame is dropped silently.
func (m *Manager) WriteAudio(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	if _, err := m.active.wav.Write(p); err != nil {
		return fmt.Errorf("session: %s: %w", m.active.id, err)
	}
	return nil
}

// AppendTelemetry appends one sensor record to the active session's
// telemetry log. With no active session the record is dropped silently.
func (m *Manager) AppendTelemetry(rec telemetry.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	if err := m.active.tlog.Append(rec); err != nil {
		return fmt.Errorf("session: %s: %w", m.active.id, err)
	}
	return nil
}

// Close finalizes any active session.
func (m *Manager) Close() error {
	return m.Stop(context.Background())
}

// AudioFileName returns the audio artifact name for a session id.
func AudioFileName(id string) string {
	return "panic_" + id + ".wav"
}

// TelemetryFileName returns the telemetry artifact name for a session id.
func TelemetryFileName(id string) string {
	return "sensor_" + id + ".csv"
}

package session

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/guardpost/guardpost/pkg/index"
	"github.com/guardpost/guardpost/pkg/kv"
	"github.com/guardpost/guardpost/pkg/storage"
	"github.com/guardpost/guardpost/pkg/telemetry"
)

// fakeSink records dispatched notification texts.
type fakeSink struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeSink) Dispatch(text string) bool {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return true
}

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	root := t.TempDir()
	opts.AudioDir = filepath.Join(root, "audio")
	opts.DataDir = filepath.Join(root, "data")
	m, err := NewManager(opts)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return m
}

func TestManager_StartStopArtifacts(t *testing.T) {
	clock := time.Date(2025, 3, 1, 10, 20, 30, 0, time.Local)
	sink := &fakeSink{}
	m := newTestManager(t, Options{
		Notify: sink,
		Now:    func() time.Time { return clock },
	})
	ctx := context.Background()

	id, err := m.Start(ctx)
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if id != "2025-03-01_10-20-30" {
		t.Errorf("id = %q; want 2025-03-01_10-20-30", id)
	}
	if !m.Active() || m.ActiveID() != id {
		t.Error("manager not active after Start")
	}

	// Exactly 3 start notifications.
	if len(sink.texts) != 3 {
		t.Errorf("start notifications = %d; want 3", len(sink.texts))
	}
	for _, text := range sink.texts {
		if !strings.Contains(text, id) {
			t.Errorf("notification %q does not carry session id", text)
		}
	}

	chunk := bytes.Repeat([]byte{0xAB, 0xCD}, 160) // 320 bytes
	for i := 0; i < 10; i++ {
		if err := m.WriteAudio(chunk); err != nil {
			t.Fatalf("WriteAudio error: %v", err)
		}
	}

	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if m.Active() {
		t.Error("manager still active after Stop")
	}

	// One WAV whose body is the 10 chunks in order, sizes patched.
	wavPath := filepath.Join(m.opts.AudioDir, "panic_"+id+".wav")
	data, err := os.ReadFile(wavPath)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if len(data) != 44+3200 {
		t.Fatalf("wav size = %d; want %d", len(data), 44+3200)
	}
	if !bytes.Equal(data[44:], bytes.Repeat(chunk, 10)) {
		t.Error("wav body != concatenated chunks")
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != 3200 {
		t.Errorf("Subchunk2Size = %d; want 3200", got)
	}

	// One CSV containing only the header row.
	csvPath := filepath.Join(m.opts.DataDir, "sensor_"+id+".csv")
	csv, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if string(csv) != telemetry.Header+"\n" {
		t.Errorf("csv = %q; want header row only", csv)
	}
}

func TestManager_DropWhileIdle(t *testing.T) {
	m := newTestManager(t, Options{})

	if err := m.WriteAudio([]byte{1, 2}); err != nil {
		t.Errorf("WriteAudio while idle: %v; want silent drop", err)
	}
	if err := m.AppendTelemetry(telemetry.Record{Temp: 20}); err != nil {
		t.Errorf("AppendTelemetry while idle: %v; want silent drop", err)
	}

	// No artifacts created.
	for _, dir := range []string{m.opts.AudioDir, m.opts.DataDir} {
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Errorf("%s not empty: %v", dir, entries)
		}
	}
}

func TestManager_StopIsNoOpWhenIdle(t *testing.T) {
	m := newTestManager(t, Options{})
	if err := m.Stop(context.Background()); err != nil {
		t.Errorf("Stop while idle = %v; want nil", err)
	}
}

func TestManager_StartWhileActiveFinalizesPrevious(t *testing.T) {
	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local)
	m := newTestManager(t, Options{Now: func() time.Time { return clock }})
	ctx := context.Background()

	first, err := m.Start(ctx)
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	m.WriteAudio(make([]byte, 320))

	clock = clock.Add(5 * time.Second)
	second, err := m.Start(ctx)
	if err != nil {
		t.Fatalf("second Start error: %v", err)
	}
	if second == first {
		t.Fatal("second session id equals first")
	}
	if m.ActiveID() != second {
		t.Errorf("ActiveID = %q; want %q", m.ActiveID(), second)
	}

	// The first session's WAV was finalized: sizes patched.
	data, err := os.ReadFile(filepath.Join(m.opts.AudioDir, "panic_"+first+".wav"))
	if err != nil {
		t.Fatalf("read first wav: %v", err)
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != 320 {
		t.Errorf("first session Subchunk2Size = %d; want 320", got)
	}

	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
}

func TestManager_TelemetryRows(t *testing.T) {
	m := newTestManager(t, Options{})
	ctx := context.Background()

	id, _ := m.Start(ctx)
	rec := telemetry.Record{Temp: 22.5, Humidity: 40, MicPeak: 0.8}
	if err := m.AppendTelemetry(rec); err != nil {
		t.Fatalf("AppendTelemetry error: %v", err)
	}
	m.Stop(ctx)

	csv, err := os.ReadFile(filepath.Join(m.opts.DataDir, "sensor_"+id+".csv"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(csv), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d; want 2", len(lines))
	}
	if !strings.HasSuffix(lines[1], ",22.5,40,0.8") {
		t.Errorf("row = %q; want values 22.5,40,0.8", lines[1])
	}
}

func TestManager_IndexRecords(t *testing.T) {
	ix := index.New(kv.NewMemory())
	m := newTestManager(t, Options{Index: ix})
	ctx := context.Background()

	id, _ := m.Start(ctx)

	rec, err := ix.Get(ctx, id)
	if err != nil {
		t.Fatalf("index Get after start: %v", err)
	}
	if !rec.StoppedAt.IsZero() {
		t.Error("StoppedAt set while session active")
	}

	m.WriteAudio(make([]byte, 320))
	m.AppendTelemetry(telemetry.Record{})
	m.Stop(ctx)

	rec, err = ix.Get(ctx, id)
	if err != nil {
		t.Fatalf("index Get after stop: %v", err)
	}
	if rec.StoppedAt.IsZero() {
		t.Error("StoppedAt zero after stop")
	}
	if rec.AudioBytes != 320 || rec.TelemetryRows != 1 {
		t.Errorf("record = %+v; want 320 audio bytes, 1 row", rec)
	}
}

func TestManager_ArchiveOnStop(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	m := newTestManager(t, Options{Archive: store})
	ctx := context.Background()

	id, _ := m.Start(ctx)
	m.WriteAudio(make([]byte, 320))
	m.Stop(ctx)

	// Archiving runs in the background.
	deadline := time.Now().Add(5 * time.Second)
	for {
		ok, _ := store.Exists(ctx, "audio/panic_"+id+".wav")
		ok2, _ := store.Exists(ctx, "data/sensor_"+id+".csv")
		if ok && ok2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("artifacts not archived in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

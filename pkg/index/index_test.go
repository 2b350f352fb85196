package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guardpost/guardpost/pkg/jsontime"
	"github.com/guardpost/guardpost/pkg/kv"
)

func TestIndex_PutGet(t *testing.T) {
	ix := New(kv.NewMemory())
	defer ix.Close()
	ctx := context.Background()

	started := time.UnixMilli(1700000000000)
	rec := &Record{
		ID:            "2025-01-02_03-04-05",
		StartedAt:     jsontime.Milli(started),
		AudioBytes:    3200,
		TelemetryRows: 4,
		AudioFile:     "panic_2025-01-02_03-04-05.wav",
		TelemetryFile: "sensor_2025-01-02_03-04-05.csv",
	}
	if err := ix.Put(ctx, rec); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, err := ix.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ID != rec.ID || got.AudioBytes != 3200 || got.TelemetryRows != 4 {
		t.Errorf("Get = %+v; want %+v", got, rec)
	}
	if !got.StartedAt.Time().Equal(started) {
		t.Errorf("StartedAt = %v; want %v", got.StartedAt.Time(), started)
	}
	if !got.StoppedAt.IsZero() {
		t.Errorf("StoppedAt = %v; want zero for active session", got.StoppedAt)
	}

	// Overwrite on stop.
	rec.StoppedAt = jsontime.Milli(started.Add(time.Minute))
	if err := ix.Put(ctx, rec); err != nil {
		t.Fatalf("Put update error: %v", err)
	}
	got, _ = ix.Get(ctx, rec.ID)
	if got.StoppedAt.IsZero() {
		t.Error("StoppedAt still zero after update")
	}
}

func TestIndex_GetMissing(t *testing.T) {
	ix := New(kv.NewMemory())
	defer ix.Close()

	if _, err := ix.Get(context.Background(), "nope"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Get missing: err = %v; want kv.ErrNotFound", err)
	}
}

func TestIndex_ListChronological(t *testing.T) {
	ix := New(kv.NewMemory())
	defer ix.Close()
	ctx := context.Background()

	ids := []string{
		"2025-01-03_00-00-00",
		"2025-01-01_00-00-00",
		"2025-01-02_00-00-00",
	}
	for _, id := range ids {
		if err := ix.Put(ctx, &Record{ID: id, StartedAt: jsontime.NowEpochMilli()}); err != nil {
			t.Fatalf("Put %s error: %v", id, err)
		}
	}

	recs, err := ix.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("List returned %d records; want 3", len(recs))
	}
	for i, want := range []string{"2025-01-01_00-00-00", "2025-01-02_00-00-00", "2025-01-03_00-00-00"} {
		if recs[i].ID != want {
			t.Errorf("recs[%d].ID = %s; want %s", i, recs[i].ID, want)
		}
	}
}

func TestIndex_PutRejectsEmptyID(t *testing.T) {
	ix := New(kv.NewMemory())
	defer ix.Close()

	if err := ix.Put(context.Background(), &Record{}); err == nil {
		t.Error("Put with empty id = nil; want error")
	}
}

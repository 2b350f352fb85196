// Package index maintains a persistent record of recording sessions so
// dashboards can enumerate past sessions with metadata instead of
// scraping artifact directories.
package index

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/guardpost/guardpost/pkg/jsontime"
	"github.com/guardpost/guardpost/pkg/kv"
)

// Record describes one recording session.
type Record struct {
	// ID is the session timestamp id (YYYY-MM-DD_HH-MM-SS).
	ID string `msgpack:"id" json:"id"`

	// StartedAt is when the session was opened.
	StartedAt jsontime.Milli `msgpack:"started_at" json:"started_at"`

	// StoppedAt is when the session was finalized; zero while active.
	StoppedAt jsontime.Milli `msgpack:"stopped_at" json:"stopped_at,omitempty"`

	// AudioBytes is the PCM byte count written to the audio artifact.
	AudioBytes int64 `msgpack:"audio_bytes" json:"audio_bytes"`

	// TelemetryRows is the number of sensor rows logged.
	TelemetryRows int `msgpack:"telemetry_rows" json:"telemetry_rows"`

	// AudioFile and TelemetryFile are artifact paths relative to their
	// configured roots.
	AudioFile     string `msgpack:"audio_file" json:"audio_file"`
	TelemetryFile string `msgpack:"telemetry_file" json:"telemetry_file"`
}

// keyPrefix namespaces session records in the store.
var keyPrefix = kv.Key{"session"}

// Index stores session records in a kv.Store, msgpack-encoded.
type Index struct {
	store kv.Store
}

// New creates an Index over the given store.
func New(store kv.Store) *Index {
	return &Index{store: store}
}

// Put stores or overwrites the record for its session id.
func (ix *Index) Put(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("index: record has no session id")
	}
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("index: encode %s: %w", rec.ID, err)
	}
	key := append(kv.Key{}, keyPrefix...)
	key = append(key, rec.ID)
	if err := ix.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("index: store %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record for a session id.
// Returns kv.ErrNotFound if the session is not indexed.
func (ix *Index) Get(ctx context.Context, id string) (*Record, error) {
	key := append(kv.Key{}, keyPrefix...)
	key = append(key, id)
	data, err := ix.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("index: decode %s: %w", id, err)
	}
	return &rec, nil
}

// List returns all session records ordered by session id. Because ids
// are zero-padded local timestamps, this is chronological order.
func (ix *Index) List(ctx context.Context) ([]*Record, error) {
	var recs []*Record
	for entry, err := range ix.store.List(ctx, keyPrefix) {
		if err != nil {
			return nil, fmt.Errorf("index: list: %w", err)
		}
		var rec Record
		if err := msgpack.Unmarshal(entry.Value, &rec); err != nil {
			return nil, fmt.Errorf("index: decode %s: %w", entry.Key, err)
		}
		recs = append(recs, &rec)
	}
	return recs, nil
}

// Close closes the underlying store.
func (ix *Index) Close() error {
	return ix.store.Close()
}

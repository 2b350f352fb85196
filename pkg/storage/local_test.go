package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestLocal_WriteReadDelete(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal error: %v", err)
	}
	ctx := context.Background()

	w, err := store.Write(ctx, "audio/panic_2025-01-01_00-00-00.wav")
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if _, err := w.Write([]byte("payload")); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close error: %v", err)
	}

	ok, err := store.Exists(ctx, "audio/panic_2025-01-01_00-00-00.wav")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true, nil", ok, err)
	}

	r, err := store.Read(ctx, "audio/panic_2025-01-01_00-00-00.wav")
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	data, _ := io.ReadAll(r)
	r.Close()
	if string(data) != "payload" {
		t.Errorf("Read = %q; want payload", data)
	}

	if err := store.Delete(ctx, "audio/panic_2025-01-01_00-00-00.wav"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := store.Delete(ctx, "audio/panic_2025-01-01_00-00-00.wav"); err != nil {
		t.Errorf("second Delete error: %v", err)
	}

	if _, err := store.Read(ctx, "audio/panic_2025-01-01_00-00-00.wav"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Read deleted file: err = %v; want fs.ErrNotExist", err)
	}
}

func TestLocal_List(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal error: %v", err)
	}
	ctx := context.Background()

	for _, name := range []string{"audio/b.wav", "audio/a.wav", "data/x.csv"} {
		w, err := store.Write(ctx, name)
		if err != nil {
			t.Fatalf("Write %s error: %v", name, err)
		}
		w.Close()
	}

	names, err := store.List(ctx, "audio")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(names) != 2 || names[0] != "a.wav" || names[1] != "b.wav" {
		t.Errorf("List = %v; want [a.wav b.wav]", names)
	}

	// Missing directory is an empty list, not an error.
	names, err = store.List(ctx, "missing")
	if err != nil {
		t.Fatalf("List missing dir error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("List missing dir = %v; want empty", names)
	}

	if store.Root() != dir && !filepath.IsAbs(store.Root()) {
		t.Errorf("Root() = %q; want absolute path", store.Root())
	}
}

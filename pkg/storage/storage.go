// Package storage defines the FileStore interface used for session
// artifacts. The coordinator records audio and telemetry to local disk
// and can mirror finished artifacts to an S3-compatible object store;
// the listing endpoints enumerate artifacts through the same interface.
package storage

import (
	"context"
	"io"
)

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading.
	// If the file does not exist, an error wrapping os.ErrNotExist is
	// returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing, truncating any existing
	// content. Parent directories are created automatically. The caller
	// must close the returned WriteCloser to flush data.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file. Deleting a missing file is not an
	// error (idempotent).
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the names (not full paths) of regular files directly
	// under the named directory, in lexicographic order.
	List(ctx context.Context, dir string) ([]string, error)
}

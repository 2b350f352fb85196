// Package recognizer defines the boundary to the speech-recognition
// engine: raw PCM bytes in, recognized text lines out.
//
// The coordinator treats the engine as an external collaborator. The
// Subprocess implementation wraps a line-oriented child process (e.g.
// a Vosk-based transcriber); Pipe is an in-memory implementation for
// tests and in-process engines.
package recognizer

import "iter"

// Engine converts a raw audio byte stream into recognized text lines.
type Engine interface {
	// Feed offers one audio frame to the engine without blocking.
	// It returns false when the frame was dropped because the engine
	// input is not currently writable. Dropped audio is tolerated
	// loss, not a fault.
	Feed(p []byte) bool

	// Lines returns an iterator over recognized text lines in
	// engine-emission order. The iterator ends when the engine is
	// closed and will not restart.
	Lines() iter.Seq2[string, error]

	// Close shuts the engine down and releases its resources.
	Close() error
}

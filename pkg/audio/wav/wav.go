// Package wav writes minimal RIFF/WAVE containers for raw PCM streams.
//
// The writer emits the canonical 44-byte header up front with zero
// placeholders for the two size fields, appends PCM data as it arrives,
// and patches the sizes on Finalize once the stream length is known.
package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/guardpost/guardpost/pkg/audio/pcm"
)

// HeaderSize is the size in bytes of the canonical PCM WAVE header.
const HeaderSize = 44

// Writer appends PCM data to an underlying seekable sink, maintaining
// a RIFF/WAVE header. It is not safe for concurrent use.
type Writer struct {
	w         io.WriteSeeker
	format    pcm.Format
	dataBytes int64
	finalized bool
}

// NewWriter writes the WAVE header for the given format to w and
// returns a Writer positioned to append PCM data.
func NewWriter(w io.WriteSeeker, format pcm.Format) (*Writer, error) {
	if _, err := w.Write(header(format)); err != nil {
		return nil, fmt.Errorf("wav: write header: %w", err)
	}
	return &Writer{w: w, format: format}, nil
}

// header builds the 44-byte canonical header with zero size placeholders.
func header(format pcm.Format) []byte {
	h := make([]byte, HeaderSize)
	le := binary.LittleEndian

	copy(h[0:4], "RIFF")
	le.PutUint32(h[4:8], 0) // ChunkSize, patched by Finalize
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	le.PutUint32(h[16:20], 16) // Subchunk1Size
	le.PutUint16(h[20:22], 1)  // AudioFormat: PCM
	le.PutUint16(h[22:24], uint16(format.Channels()))
	le.PutUint32(h[24:28], uint32(format.SampleRate()))
	le.PutUint32(h[28:32], uint32(format.BytesRate()))
	le.PutUint16(h[32:34], uint16(format.BlockAlign()))
	le.PutUint16(h[34:36], uint16(format.Depth()))
	copy(h[36:40], "data")
	le.PutUint32(h[40:44], 0) // Subchunk2Size, patched by Finalize

	return h
}

// Write appends PCM bytes to the data chunk.
func (w *Writer) Write(p []byte) (int, error) {
	if w.finalized {
		return 0, fmt.Errorf("wav: write after finalize")
	}
	n, err := w.w.Write(p)
	w.dataBytes += int64(n)
	if err != nil {
		return n, fmt.Errorf("wav: write data: %w", err)
	}
	return n, nil
}

// DataBytes returns the number of PCM bytes written so far.
func (w *Writer) DataBytes() int64 {
	return w.dataBytes
}

// Duration returns the audio duration of the data written so far.
func (w *Writer) Duration() time.Duration {
	return w.format.Duration(w.dataBytes)
}

// Finalize seeks back and patches ChunkSize and Subchunk2Size so the
// container is self-describing. Finalize is idempotent; the Writer
// rejects further writes once finalized.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}

	var sizes [4]byte
	le := binary.LittleEndian

	le.PutUint32(sizes[:], uint32(36+w.dataBytes))
	if _, err := w.w.Seek(4, io.SeekStart); err != nil {
		return fmt.Errorf("wav: seek chunk size: %w", err)
	}
	if _, err := w.w.Write(sizes[:]); err != nil {
		return fmt.Errorf("wav: patch chunk size: %w", err)
	}

	le.PutUint32(sizes[:], uint32(w.dataBytes))
	if _, err := w.w.Seek(40, io.SeekStart); err != nil {
		return fmt.Errorf("wav: seek data size: %w", err)
	}
	if _, err := w.w.Write(sizes[:]); err != nil {
		return fmt.Errorf("wav: patch data size: %w", err)
	}

	if _, err := w.w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("wav: seek end: %w", err)
	}
	w.finalized = true
	return nil
}

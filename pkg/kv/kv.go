// Package kv provides a small key-value store interface with
// hierarchical path-based keys. Keys are string slices (e.g.
// ["session", "2025-01-02_03-04-05"]) encoded with a ':' separator.
//
// The package includes a BadgerDB-backed implementation for production
// use and an in-memory implementation for testing.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Separator joins key segments in the encoded representation.
// Segments must not contain it.
const Separator = ':'

// Key is a hierarchical path represented as a slice of string segments.
type Key []string

// String returns the key as a human-readable string.
func (k Key) String() string {
	return strings.Join(k, string(Separator))
}

// encode returns the stored byte representation of the key.
func (k Key) encode() []byte {
	return []byte(k.String())
}

// decodeKey splits an encoded key back into segments.
func decodeKey(b []byte) Key {
	return Key(strings.Split(string(b), string(Separator)))
}

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is the interface for a key-value store with path-based keys.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair. Overwrites any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key Key) error

	// List iterates over all entries whose key starts with the given
	// prefix, in lexicographic order of the encoded key.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// Close releases any resources held by the store.
	Close() error
}

// Package kv implements the durable key-value stores that client state slices
// are mirrored into.
//
// Key components:
//   - MemoryStore: process-local map, used in tests
//   - SQLiteStore: single-file store, the client default
//   - RedisStore: shared store for clients running next to a Redis instance
package kv

import (
	"context"
	"errors"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNotFound is returned when the requested key is absent.
	ErrNotFound = errors.New("kv: key not found")

	// ErrKeyEmpty is returned when an empty key is provided.
	ErrKeyEmpty = errors.New("kv: key cannot be empty")

	// ErrConnection is returned when the backend cannot be reached.
	ErrConnection = errors.New("kv: connection failed")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("kv: store closed")
)

// ══════════════════════════════════════════════════════════════════════════════
// INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Store persists opaque values by key. Writes are last-writer-wins per key and
// there is no cross-key transaction.
type Store interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	SQLitePath string
	Redis      RedisConfig
}

// Open builds the store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendSQLite:
		s, err := NewSQLiteStore(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendRedis:
		s, err := NewRedisStore(ctx, opts.Redis)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.New("kv: unknown backend " + opts.Backend)
	}
}

func validateKey(key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return nil
}

// Package backend builds the storage backend selected by configuration.
package backend

import (
	"context"

	"finbot/internal/storage"
)

// Backend is a Store that can report its own health.
type Backend interface {
	storage.Store
	Ping(ctx context.Context) error
}

// BackendResult contains the backend instance and its cleanup function.
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

type CleanupFunc func() error

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string

	// SeedFile is an optional YAML account list imported at startup.
	// Accounts already present are left untouched.
	SeedFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

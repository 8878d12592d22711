// Package backend builds the ledger backend selected by configuration.
package backend

import (
	"context"

	"flatshare/internal/ledger"
	"flatshare/internal/storage"
)

// Backend is everything the services need from a store.
type Backend interface {
	ledger.ExpenseStore
	ledger.ShoppingStore
	ledger.Pinger
}

// ChangeWatcher reports writes made by other processes sharing the store.
// *storage.Listener implements it.
type ChangeWatcher interface {
	Run(ctx context.Context, onChange func(storage.Change)) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
	// Watcher is nil for backends that cannot observe foreign writes.
	Watcher ChangeWatcher
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresDSN string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

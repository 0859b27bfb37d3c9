// Package backend assembles the data gateway, receipt store and event
// publisher selected by configuration.
package backend

import (
	"context"
	"net/http"

	"racevault/internal/gateway"
	"racevault/internal/services"
)

type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SupabaseBackend BackendType = "supabase"
)

func (t BackendType) String() string { return string(t) }

func (t BackendType) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, PostgresBackend, SupabaseBackend:
		return true
	}
	return false
}

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Backend bundles everything the tracker needs from the outside world.
type Backend struct {
	Gateway   gateway.Gateway
	Objects   gateway.ObjectStore
	Publisher services.EventPublisher

	// Files serves locally stored receipts; nil when receipts live with a
	// hosted provider.
	Files http.Handler
}

type BackendResult struct {
	Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

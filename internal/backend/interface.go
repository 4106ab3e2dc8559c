package backend

import (
	"context"

	"dorm/internal/services"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// ReadinessCheck reports whether a backing dependency is usable.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// BackendResult holds the services built on top of a backend and the
// function that releases it.
type BackendResult struct {
	Roster  *services.RosterService
	Reports *services.ReportService
	Checks  []ReadinessCheck
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

package store

import (
	"fmt"

	"github.com/eliteGoblin/sleepshield/internal/domain"
)

// Supported backends.
const (
	BackendDiskv  = "diskv"
	BackendSQLite = "sqlite"
)

// New creates a StateStore for the configured backend.
// diskv gets a directory path; sqlite gets a database file path.
func New(backend, path string) (domain.StateStore, error) {
	switch backend {
	case BackendDiskv, "":
		return NewDiskvStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}

// Package storage selects the persistence backend for transactions, the
// instrument cache and imported file records.
package storage

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/storage/sqlite"
	"github.com/bobmcallan/folio/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendSQLite    = "sqlite"
	BackendSurrealDB = "surrealdb"
)

// Sentinel errors re-exported for callers that only import storage.
var (
	ErrNotFound      = interfaces.ErrNotFound
	ErrDuplicateFile = interfaces.ErrDuplicateFile
)

// NewManager creates a storage manager based on the configuration.
// Supported backends: "sqlite" (default), "surrealdb".
func NewManager(logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	backend := strings.ToLower(strings.TrimSpace(config.Storage.Backend))
	if backend == "" {
		backend = BackendSQLite // Default to embedded backend
	}

	switch backend {
	case BackendSQLite:
		return sqlite.NewManager(logger, config.Storage.SQLite.Path)

	case BackendSurrealDB:
		return surrealdb.NewManager(logger, config)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: sqlite, surrealdb)", backend)
	}
}

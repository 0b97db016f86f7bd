package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
)

func TestNewManager_DefaultsToSQLite(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = ""
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "folio.db")

	m, err := NewManager(common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	defer m.Close()

	assert.NotNil(t, m.TransactionStore())
	assert.NotNil(t, m.InstrumentStore())
	assert.NotNil(t, m.FileStore())
}

func TestNewManager_UnknownBackend(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = "badger"

	_, err := NewManager(common.NewSilentLogger(), cfg)
	assert.ErrorContains(t, err, "unknown storage backend")
}

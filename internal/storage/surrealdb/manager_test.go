package surrealdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/common"
	tcommon "github.com/bobmcallan/folio/tests/common"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	sc := tcommon.StartSurrealDB(t)

	cfg := common.NewDefaultConfig()
	cfg.Environment = "test"
	cfg.Storage.Backend = "surrealdb"
	cfg.Storage.SurrealDB = common.SurrealDBConfig{
		Address:   sc.Address(),
		Namespace: testNamespace,
		Database:  testDatabaseName(t),
		Username:  "root",
		Password:  "root",
	}
	return cfg
}

func TestNewManager(t *testing.T) {
	cfg := testConfig(t)

	mgr, err := NewManager(common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	defer mgr.Close()

	assert.NotNil(t, mgr.TransactionStore())
	assert.NotNil(t, mgr.InstrumentStore())
	assert.NotNil(t, mgr.FileStore())
}

func TestNewManager_BadCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.SurrealDB.Password = "wrong"

	_, err := NewManager(common.NewSilentLogger(), cfg)
	assert.Error(t, err)
}

func TestTickerToID(t *testing.T) {
	assert.Equal(t, "RELIANCE_NS", tickerToID("RELIANCE.NS"))
	assert.Equal(t, "MF_120503", tickerToID("MF_120503"))
}

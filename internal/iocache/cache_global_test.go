package iocache

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/huangsam/robustscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearCache(t *testing.T) {
	t.Run("sqlite removes file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "cache.db")
		db, err := sql.Open("sqlite", dbPath)
		require.NoError(t, err)
		_, err = db.Exec("CREATE TABLE t (x INTEGER)")
		require.NoError(t, err)
		require.NoError(t, db.Close())

		require.NoError(t, ClearCache(schema.SQLiteBackend, dbPath, ""))
		_, err = os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("sqlite missing file is fine", func(t *testing.T) {
		assert.NoError(t, ClearCache(schema.SQLiteBackend, filepath.Join(t.TempDir(), "nope.db"), ""))
	})

	t.Run("sqlite requires path", func(t *testing.T) {
		assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	})

	t.Run("none is a no-op", func(t *testing.T) {
		assert.NoError(t, ClearCache(schema.NoneBackend, "", ""))
		assert.NoError(t, ClearAnalysis(schema.NoneBackend, "", ""))
	})

	t.Run("unknown backend", func(t *testing.T) {
		assert.Error(t, ClearAnalysis(schema.DatabaseBackend("oracle"), "", ""))
	})
}

func TestCacheStoreManagerConcurrency(t *testing.T) {
	store, err := NewCacheStore("mgr_table", schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	mgr := &CacheStoreManager{aggregate: store}
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Same(t, store, mgr.GetAggregateStore())
			assert.Nil(t, mgr.GetAnalysisStore())
		}()
	}
	wg.Wait()
}

func TestInitCaching_NoneBackends(t *testing.T) {
	require.NoError(t, InitCaching(schema.NoneBackend, "", schema.NoneBackend, ""))
	defer CloseCaching()

	require.NotNil(t, Manager.GetAggregateStore())
	require.NotNil(t, Manager.GetAnalysisStore())

	// Later calls are no-ops once initialized.
	assert.NoError(t, InitCaching(schema.SQLiteBackend, "/nonexistent/dir/x.db", "", ""))
	status, err := Manager.GetAggregateStore().GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
}

package iocache

import (
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/robustscore/internal/contract"
	"github.com/huangsam/robustscore/schema"
)

// aggregateTable holds cached per-bucket aggregates.
const aggregateTable = "aggregate_cache"

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// InitCaching opens the aggregate cache and the run history.
// An empty backend leaves the corresponding store nil.
func InitCaching(cacheBackend schema.DatabaseBackend, cacheConnStr string, analysisBackend schema.DatabaseBackend, analysisConnStr string) error {
	var initErr error
	initOnce.Do(func() {
		var (
			aggregate contract.CacheStore
			analysis  contract.AnalysisStore
			err       error
		)
		if cacheBackend != "" {
			aggregate, err = NewCacheStore(aggregateTable, cacheBackend, cacheConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize aggregate cache: %w", err)
				return
			}
		}
		if analysisBackend != "" {
			analysis, err = NewAnalysisStore(analysisBackend, analysisConnStr)
			if err != nil {
				if aggregate != nil {
					_ = aggregate.Close()
				}
				initErr = fmt.Errorf("failed to initialize analysis store: %w", err)
				return
			}
		}

		Manager.Lock()
		Manager.aggregate = aggregate
		Manager.analysis = analysis
		Manager.Unlock()
	})
	return initErr
}

// CloseCaching closes every open store. Safe to call more than once.
func CloseCaching() {
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.aggregate != nil {
			_ = Manager.aggregate.Close()
		}
		if Manager.analysis != nil {
			_ = Manager.analysis.Close()
		}
	})
}

// ClearCache removes every cached aggregate. SQLite deletes the file,
// other SQL backends drop the table.
func ClearCache(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearStore(backend, dbFilePath, connStr, aggregateTable)
}

// ClearAnalysis removes all run history.
func ClearAnalysis(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearStore(backend, dbFilePath, connStr, scoresTable, runsTable)
}

func clearStore(backend schema.DatabaseBackend, dbFilePath, connStr string, tables ...string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil
	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return dropTables(backend, connStr, tables...)
	case schema.NoneBackend:
		return nil
	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}

func dropTables(backend schema.DatabaseBackend, connStr string, tables ...string) error {
	db, err := openDB(backend, connStr, "")
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	for _, table := range tables {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + quoteTableName(table, backend)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}

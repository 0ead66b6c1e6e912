package iocache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/huangsam/robustscore/internal/contract"
	"github.com/huangsam/robustscore/schema"
)

// CacheStoreImpl is a key/value blob store over one SQL table.
type CacheStoreImpl struct {
	db        *sql.DB
	tableName string
	backend   schema.DatabaseBackend
}

var _ contract.CacheStore = &CacheStoreImpl{} // Compile-time check

// NewCacheStore opens a cache table on the backend, creating it when absent.
// The none backend yields a store that never hits and discards writes.
func NewCacheStore(tableName string, backend schema.DatabaseBackend, connStr string) (contract.CacheStore, error) {
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}
	if backend == schema.NoneBackend {
		return &CacheStoreImpl{tableName: tableName, backend: backend}, nil
	}

	db, err := openDB(backend, connStr, contract.GetDBFilePath())
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(cacheTableDDL(tableName, backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	return &CacheStoreImpl{db: db, tableName: tableName, backend: backend}, nil
}

// cacheTableDDL returns the CREATE TABLE statement for the backend.
func cacheTableDDL(tableName string, backend schema.DatabaseBackend) string {
	keyType, blobType, intType := "TEXT", "BLOB", "INTEGER"
	switch backend {
	case schema.MySQLBackend:
		keyType, intType = "VARCHAR(255)", "INT"
	case schema.PostgreSQLBackend:
		blobType = "BYTEA"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	cache_key %s PRIMARY KEY,
	cache_value %s NOT NULL,
	cache_version %s NOT NULL,
	cache_timestamp BIGINT NOT NULL
)`, quoteTableName(tableName, backend), keyType, blobType, intType)
}

// upsertQuery returns the insert-or-update statement for the backend.
func upsertQuery(tableName string, backend schema.DatabaseBackend) string {
	table := quoteTableName(tableName, backend)
	cols := "cache_key, cache_value, cache_version, cache_timestamp"
	values := placeholders(backend, 4)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) AS new
ON DUPLICATE KEY UPDATE cache_value = new.cache_value, cache_version = new.cache_version, cache_timestamp = new.cache_timestamp`, table, cols, values)
	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)
ON CONFLICT (cache_key) DO UPDATE SET cache_value = EXCLUDED.cache_value, cache_version = EXCLUDED.cache_version, cache_timestamp = EXCLUDED.cache_timestamp`, table, cols, values)
	default:
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (%s) VALUES (%s)`, table, cols, values)
	}
}

// Get returns the stored value, its version and its timestamp.
// A missing key yields sql.ErrNoRows.
func (cs *CacheStoreImpl) Get(key string) ([]byte, int, int64, error) {
	if cs.db == nil {
		return nil, 0, 0, sql.ErrNoRows
	}

	query := fmt.Sprintf(`SELECT cache_value, cache_version, cache_timestamp FROM %s WHERE cache_key = %s`,
		quoteTableName(cs.tableName, cs.backend), placeholder(cs.backend, 1))

	var (
		value   []byte
		version int
		ts      int64
	)
	if err := cs.db.QueryRow(query, key).Scan(&value, &version, &ts); err != nil {
		return nil, 0, 0, err
	}
	return value, version, ts, nil
}

// Set inserts or replaces a value.
func (cs *CacheStoreImpl) Set(key string, value []byte, version int, timestamp int64) error {
	if cs.db == nil {
		return nil
	}
	_, err := cs.db.Exec(upsertQuery(cs.tableName, cs.backend), key, value, version, timestamp)
	return err
}

// Close releases the connection.
func (cs *CacheStoreImpl) Close() error {
	if cs.db != nil {
		return cs.db.Close()
	}
	return nil
}

// GetStatus reports entry counts, timestamps and the on-disk size.
func (cs *CacheStoreImpl) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(cs.backend),
		Connected: cs.db != nil,
	}
	if cs.db == nil {
		return status, nil
	}

	query := fmt.Sprintf("SELECT COUNT(*), COALESCE(MIN(cache_timestamp), 0), COALESCE(MAX(cache_timestamp), 0) FROM %s",
		quoteTableName(cs.tableName, cs.backend))
	var oldest, last int64
	if err := cs.db.QueryRow(query).Scan(&status.TotalEntries, &oldest, &last); err != nil {
		return status, fmt.Errorf("failed to query cache status: %w", err)
	}
	if status.TotalEntries > 0 {
		status.OldestEntryTime = time.Unix(oldest, 0)
		status.LastEntryTime = time.Unix(last, 0)
	}
	status.TableSizeBytes = tableSizeBytes(cs.db, cs.backend, cs.tableName)
	return status, nil
}

// tableSizeBytes estimates the storage used by a table. Failures yield 0.
func tableSizeBytes(db *sql.DB, backend schema.DatabaseBackend, tableName string) int64 {
	var (
		query string
		args  []any
	)
	switch backend {
	case schema.SQLiteBackend:
		query = "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()"
	case schema.MySQLBackend:
		query = "SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
		args = []any{tableName}
	case schema.PostgreSQLBackend:
		query = "SELECT pg_total_relation_size($1)"
		args = []any{tableName}
	default:
		return 0
	}
	var size sql.NullInt64
	if err := db.QueryRow(query, args...).Scan(&size); err != nil {
		return 0
	}
	return size.Int64
}

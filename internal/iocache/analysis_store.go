package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/robustscore/internal/contract"
	"github.com/huangsam/robustscore/schema"
)

// Table names for run history.
const (
	runsTable   = "robustscore_runs"
	scoresTable = "robustscore_scores"
)

// AnalysisStoreImpl records scoring runs and their output values.
type AnalysisStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.AnalysisStore = &AnalysisStoreImpl{} // Compile-time check

// NewAnalysisStore opens the run history on the backend, creating its tables
// when absent. The none backend yields a store that records nothing.
func NewAnalysisStore(backend schema.DatabaseBackend, connStr string) (contract.AnalysisStore, error) {
	if backend == schema.NoneBackend {
		return &AnalysisStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, contract.GetAnalysisDBFilePath())
	if err != nil {
		return nil, err
	}
	for _, ddl := range []string{runsTableDDL(backend), scoresTableDDL(backend)} {
		if _, err := db.Exec(ddl); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create analysis tables: %w", err)
		}
	}
	return &AnalysisStoreImpl{db: db, backend: backend}, nil
}

func runsTableDDL(backend schema.DatabaseBackend) string {
	table := quoteTableName(runsTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
	start_time DATETIME(6) NOT NULL,
	end_time DATETIME(6) NULL,
	run_duration_ms INT NULL,
	input_path VARCHAR(1024) NOT NULL,
	total_groups INT NOT NULL DEFAULT 0,
	total_transforms INT NOT NULL DEFAULT 0,
	config_params TEXT NULL
)`, table)
	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id BIGSERIAL PRIMARY KEY,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ,
	run_duration_ms INTEGER,
	input_path TEXT NOT NULL,
	total_groups INTEGER NOT NULL DEFAULT 0,
	total_transforms INTEGER NOT NULL DEFAULT 0,
	config_params TEXT
)`, table)
	default:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id INTEGER PRIMARY KEY AUTOINCREMENT,
	start_time TEXT NOT NULL,
	end_time TEXT,
	run_duration_ms INTEGER,
	input_path TEXT NOT NULL,
	total_groups INTEGER NOT NULL DEFAULT 0,
	total_transforms INTEGER NOT NULL DEFAULT 0,
	config_params TEXT
)`, table)
	}
}

func scoresTableDDL(backend schema.DatabaseBackend) string {
	table := quoteTableName(scoresTable, backend)
	pk := "PRIMARY KEY (run_id, level, group_key, transform_name, section, metric_name)"
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id BIGINT NOT NULL,
	level VARCHAR(16) NOT NULL,
	group_key VARCHAR(255) NOT NULL,
	transform_name VARCHAR(128) NOT NULL,
	section VARCHAR(16) NOT NULL,
	metric_name VARCHAR(64) NOT NULL,
	mean_value DOUBLE NOT NULL,
	std_value DOUBLE NOT NULL,
	%s
)`, table, pk)
	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id BIGINT NOT NULL,
	level TEXT NOT NULL,
	group_key TEXT NOT NULL,
	transform_name TEXT NOT NULL,
	section TEXT NOT NULL,
	metric_name TEXT NOT NULL,
	mean_value DOUBLE PRECISION NOT NULL,
	std_value DOUBLE PRECISION NOT NULL,
	%s
)`, table, pk)
	default:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id INTEGER NOT NULL,
	level TEXT NOT NULL,
	group_key TEXT NOT NULL,
	transform_name TEXT NOT NULL,
	section TEXT NOT NULL,
	metric_name TEXT NOT NULL,
	mean_value REAL NOT NULL,
	std_value REAL NOT NULL,
	%s
)`, table, pk)
	}
}

// BeginAnalysis inserts a run row and returns its ID.
func (as *AnalysisStoreImpl) BeginAnalysis(startTime time.Time, inputPath string, configParams map[string]any) (int64, error) {
	if as.db == nil {
		return 0, nil
	}

	var params sql.NullString
	if len(configParams) > 0 {
		raw, err := json.Marshal(configParams)
		if err != nil {
			return 0, fmt.Errorf("failed to encode config params: %w", err)
		}
		params = sql.NullString{String: string(raw), Valid: true}
	}

	query := fmt.Sprintf("INSERT INTO %s (start_time, input_path, config_params) VALUES (%s)",
		quoteTableName(runsTable, as.backend), placeholders(as.backend, 3))
	args := []any{formatTime(startTime, as.backend), inputPath, params}

	if as.backend == schema.PostgreSQLBackend {
		var id int64
		if err := as.db.QueryRow(query+" RETURNING run_id", args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to begin run: %w", err)
		}
		return id, nil
	}

	res, err := as.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to begin run: %w", err)
	}
	return res.LastInsertId()
}

// EndAnalysis stamps the run with its end time, duration and totals.
func (as *AnalysisStoreImpl) EndAnalysis(runID int64, endTime time.Time, totalGroups, totalTransforms int) error {
	if as.db == nil {
		return nil
	}

	table := quoteTableName(runsTable, as.backend)
	var start timeValue
	query := fmt.Sprintf("SELECT start_time FROM %s WHERE run_id = %s", table, placeholder(as.backend, 1))
	if err := as.db.QueryRow(query, runID).Scan(&start); err != nil {
		return fmt.Errorf("failed to look up run %d: %w", runID, err)
	}
	duration := int32(endTime.Sub(start.Time).Milliseconds())

	update := fmt.Sprintf("UPDATE %s SET end_time = %s, run_duration_ms = %s, total_groups = %s, total_transforms = %s WHERE run_id = %s",
		table,
		placeholder(as.backend, 1), placeholder(as.backend, 2), placeholder(as.backend, 3),
		placeholder(as.backend, 4), placeholder(as.backend, 5))
	if _, err := as.db.Exec(update, formatTime(endTime, as.backend), duration, totalGroups, totalTransforms, runID); err != nil {
		return fmt.Errorf("failed to end run %d: %w", runID, err)
	}
	return nil
}

// RecordScores stores every record in one transaction.
func (as *AnalysisStoreImpl) RecordScores(runID int64, records []schema.ScoreValueRecord) error {
	if as.db == nil || len(records) == 0 {
		return nil
	}

	tx, err := as.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO %s (run_id, level, group_key, transform_name, section, metric_name, mean_value, std_value) VALUES (%s)",
		quoteTableName(scoresTable, as.backend), placeholders(as.backend, 8)))
	if err != nil {
		return fmt.Errorf("failed to prepare score insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.Exec(runID, string(r.Level), r.GroupKey, r.Transform, r.Section, r.Metric, r.Mean, r.Std); err != nil {
			return fmt.Errorf("failed to record %s/%s/%s for run %d: %w", r.GroupKey, r.Section, r.Metric, runID, err)
		}
	}
	return tx.Commit()
}

// GetAllRuns returns every run ordered by ID.
func (as *AnalysisStoreImpl) GetAllRuns() ([]schema.AnalysisRunRecord, error) {
	if as.db == nil {
		return nil, nil
	}

	rows, err := as.db.Query(fmt.Sprintf(
		"SELECT run_id, start_time, end_time, run_duration_ms, input_path, total_groups, total_transforms, config_params FROM %s ORDER BY run_id",
		quoteTableName(runsTable, as.backend)))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.AnalysisRunRecord
	for rows.Next() {
		var (
			rec        schema.AnalysisRunRecord
			start, end timeValue
			duration   sql.NullInt32
			params     sql.NullString
		)
		if err := rows.Scan(&rec.RunID, &start, &end, &duration, &rec.InputPath, &rec.TotalGroups, &rec.TotalTransforms, &params); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.StartTime = start.Time
		rec.EndTime = end.ptr()
		if duration.Valid {
			d := duration.Int32
			rec.RunDurationMs = &d
		}
		if params.Valid {
			p := params.String
			rec.ConfigParams = &p
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetAllScores returns every stored score value ordered by run and key.
func (as *AnalysisStoreImpl) GetAllScores() ([]schema.ScoreValueRecord, error) {
	if as.db == nil {
		return nil, nil
	}

	rows, err := as.db.Query(fmt.Sprintf(
		"SELECT run_id, level, group_key, transform_name, section, metric_name, mean_value, std_value FROM %s ORDER BY run_id, level, group_key, transform_name, section, metric_name",
		quoteTableName(scoresTable, as.backend)))
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.ScoreValueRecord
	for rows.Next() {
		var (
			rec   schema.ScoreValueRecord
			level string
		)
		if err := rows.Scan(&rec.RunID, &level, &rec.GroupKey, &rec.Transform, &rec.Section, &rec.Metric, &rec.Mean, &rec.Std); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		rec.Level = schema.ReportLevel(level)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetStatus summarizes the recorded history.
func (as *AnalysisStoreImpl) GetStatus() (schema.AnalysisStatus, error) {
	status := schema.AnalysisStatus{
		Backend:    string(as.backend),
		Connected:  as.db != nil,
		TableSizes: map[string]int64{},
	}
	if as.db == nil {
		return status, nil
	}

	var (
		lastID         sql.NullInt64
		oldest, latest timeValue
	)
	query := fmt.Sprintf("SELECT COUNT(*), MAX(run_id), MIN(start_time), MAX(start_time) FROM %s", quoteTableName(runsTable, as.backend))
	if err := as.db.QueryRow(query).Scan(&status.TotalRuns, &lastID, &oldest, &latest); err != nil {
		return status, fmt.Errorf("failed to query run status: %w", err)
	}
	status.LastRunID = lastID.Int64
	status.OldestRunTime = oldest.Time
	status.LastRunTime = latest.Time

	query = fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(scoresTable, as.backend))
	if err := as.db.QueryRow(query).Scan(&status.TotalScoreRows); err != nil {
		return status, fmt.Errorf("failed to query score status: %w", err)
	}

	status.TableSizes[runsTable] = int64(status.TotalRuns)
	status.TableSizes[scoresTable] = int64(status.TotalScoreRows)
	return status, nil
}

// Close releases the connection.
func (as *AnalysisStoreImpl) Close() error {
	if as.db != nil {
		return as.db.Close()
	}
	return nil
}

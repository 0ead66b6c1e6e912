// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/robustscore/schema"
)

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetAggregateStore() CacheStore
	GetAnalysisStore() AnalysisStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// AnalysisStore defines the interface for tracking scoring runs and storing their results.
type AnalysisStore interface {
	// BeginAnalysis creates a new run and returns its unique ID
	BeginAnalysis(startTime time.Time, inputPath string, configParams map[string]any) (int64, error)

	// EndAnalysis updates the run with completion data
	EndAnalysis(runID int64, endTime time.Time, totalGroups, totalTransforms int) error

	// RecordScores stores every output value of a run in long format
	RecordScores(runID int64, records []schema.ScoreValueRecord) error

	// GetAllRuns returns every recorded run, oldest first
	GetAllRuns() ([]schema.AnalysisRunRecord, error)

	// GetAllScores returns every recorded score value, ordered by run
	GetAllScores() ([]schema.ScoreValueRecord, error)

	// GetStatus returns status information about the analysis store
	GetStatus() (schema.AnalysisStatus, error)

	// Close closes the underlying connection
	Close() error
}

// Package iocache persists aggregate caches and run history in SQL databases.
package iocache

import (
	"sync"

	"github.com/huangsam/robustscore/internal/contract"
)

// CacheStoreManager holds the process-wide stores.
type CacheStoreManager struct {
	sync.RWMutex
	aggregate contract.CacheStore
	analysis  contract.AnalysisStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetAggregateStore returns the aggregate cache, or nil when caching is off.
func (mgr *CacheStoreManager) GetAggregateStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.aggregate
}

// GetAnalysisStore returns the run history, or nil when tracking is off.
func (mgr *CacheStoreManager) GetAnalysisStore() contract.AnalysisStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.analysis
}

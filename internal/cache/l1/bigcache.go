package l1

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"go-route-guard/internal/config"
	"go-route-guard/internal/interfaces"
	"go-route-guard/internal/metrics"
	"go-route-guard/internal/models"
	"go-route-guard/internal/scheduler"
)

// Ensure BigCache implements interfaces.LocalStore
var _ interfaces.LocalStore = (*BigCache)(nil)

// BigCache implements the local store using BigCache.
// Expiry is judged against the injected clock and the active cache version,
// BigCache's own life window only bounds memory.
type BigCache struct {
	cache            *bigcache.BigCache
	clock            clock.Clock
	version          string
	logger           *zap.Logger
	metricsScheduler *scheduler.Scheduler
}

// NewBigCache creates a new BigCache instance
func NewBigCache(bigcacheCfg *config.BigCacheConfig, version string, clk clock.Clock, logger *zap.Logger) (*BigCache, error) {
	cfg := bigcache.DefaultConfig(bigcacheCfg.LifeWindow)
	cfg.HardMaxCacheSize = bigcacheCfg.Size // Size in MB
	cfg.MaxEntrySize = bigcacheCfg.MaxEntrySize
	cfg.Verbose = false

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	bc := &BigCache{
		cache:   cache,
		clock:   clk,
		version: version,
		logger:  logger,
	}

	bc.startMetricsCollection()

	return bc, nil
}

// Get retrieves a live entry; expired or version-stale entries are deleted and reported as misses
func (bc *BigCache) Get(key string) (*models.CacheEntry, bool) {
	entry, ok := bc.Peek(key)
	if !ok {
		metrics.RecordCacheMiss(namespaceOf(key), "absent")
		return nil, false
	}

	if entry.Version != bc.version {
		_ = bc.cache.Delete(key)
		metrics.RecordCacheMiss(namespaceOf(key), "version")
		return nil, false
	}

	if entry.IsExpired(bc.clock.Now(), bc.version) {
		_ = bc.cache.Delete(key)
		metrics.RecordCacheMiss(namespaceOf(key), "expired")
		return nil, false
	}

	metrics.RecordCacheHit(namespaceOf(key))
	return entry, true
}

// Peek retrieves an entry regardless of freshness
func (bc *BigCache) Peek(key string) (*models.CacheEntry, bool) {
	data, err := bc.cache.Get(key)
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			bc.logger.Warn("Failed to read L1 cache entry", zap.String("key", key), zap.Error(err))
			metrics.RecordCacheError("l1", "read")
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		bc.logger.Warn("Failed to unmarshal L1 cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l1", "decode")
		_ = bc.cache.Delete(key) // Remove corrupted entry
		return nil, false
	}

	return &entry, true
}

// Set stores an entry as is
func (bc *BigCache) Set(key string, entry *models.CacheEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		bc.logger.Error("Failed to marshal cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l1", "encode")
		return
	}

	if err := bc.cache.Set(key, data); err != nil {
		bc.logger.Error("Failed to set cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l1", "write")
	}
}

// Delete removes entry from cache
func (bc *BigCache) Delete(key string) {
	_ = bc.cache.Delete(key)
}

// Clear drops every entry
func (bc *BigCache) Clear() {
	if err := bc.cache.Reset(); err != nil {
		bc.logger.Error("Failed to reset L1 cache", zap.Error(err))
		metrics.RecordCacheError("l1", "reset")
	}
}

// Sweep removes every expired or version-stale entry and returns how many were removed
func (bc *BigCache) Sweep() int {
	now := bc.clock.Now()
	var stale []string

	iterator := bc.cache.Iterator()
	for iterator.SetNext() {
		info, err := iterator.Value()
		if err != nil {
			continue
		}

		var entry models.CacheEntry
		if err := json.Unmarshal(info.Value(), &entry); err != nil || entry.IsExpired(now, bc.version) {
			stale = append(stale, info.Key())
		}
	}

	for _, key := range stale {
		_ = bc.cache.Delete(key)
	}
	return len(stale)
}

// Len returns the number of stored entries, live or not
func (bc *BigCache) Len() int {
	return bc.cache.Len()
}

// Close closes the cache
func (bc *BigCache) Close() error {
	bc.stopMetricsCollection()
	return bc.cache.Close()
}

// startMetricsCollection starts periodic metrics collection
func (bc *BigCache) startMetricsCollection() {
	bc.metricsScheduler = scheduler.New(30*time.Second, bc.updateMetrics)
	bc.metricsScheduler.Start()

	bc.updateMetrics()

	bc.logger.Debug("Started L1 cache metrics collection")
}

// stopMetricsCollection stops periodic metrics collection
func (bc *BigCache) stopMetricsCollection() {
	if bc.metricsScheduler != nil {
		bc.metricsScheduler.Stop()
		bc.logger.Debug("Stopped L1 cache metrics collection")
	}
}

func (bc *BigCache) updateMetrics() {
	metrics.UpdateCacheEntries(bc.cache.Len())
}

// namespaceOf returns the key prefix before the first colon, used as a metrics label
func namespaceOf(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return "default"
}

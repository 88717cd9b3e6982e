package interfaces

import (
	"context"
	"time"

	"go-route-guard/internal/models"
)

//go:generate mockgen -package=mock -source=cache.go -destination=mock/cache.go

// LocalStore is the per-instance cache that holds versioned, TTL-bound entries
type LocalStore interface {
	Get(key string) (*models.CacheEntry, bool)  // returns entry and found flag, expired entries are removed
	Peek(key string) (*models.CacheEntry, bool) // returns entry regardless of freshness
	Set(key string, entry *models.CacheEntry)
	Delete(key string)
	Clear()
	Sweep() int // removes expired entries, returns how many
	Len() int
}

// SharedCache is a local cache whose writes are propagated to every other instance.
// Propagation is best-effort and never blocks the caller on peers.
type SharedCache interface {
	Get(key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	// OnChange registers a listener for applied changes and returns its unsubscribe func
	OnChange(listener func(models.ChangeEvent)) func()
}

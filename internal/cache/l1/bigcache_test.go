package l1

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-route-guard/internal/config"
	"go-route-guard/internal/models"
)

func newTestCache(t *testing.T, version string, clk clock.Clock) *BigCache {
	t.Helper()
	cfg := &config.BigCacheConfig{Size: 0, LifeWindow: time.Hour, MaxEntrySize: 1024}
	cache, err := NewBigCache(cfg, version, clk, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestNewBigCache(t *testing.T) {
	logger := zap.NewNop()
	cfg := &config.BigCacheConfig{LifeWindow: time.Hour, MaxEntrySize: 1024}

	cache, err := NewBigCache(cfg, "v1", clock.NewMock(), logger)

	require.NoError(t, err)
	assert.NotNil(t, cache.cache)
	assert.Equal(t, logger, cache.logger)
	assert.Equal(t, "v1", cache.version)
	assert.NoError(t, cache.Close())
}

func TestBigCache_Set_And_Get(t *testing.T) {
	mockClock := clock.NewMock()
	cache := newTestCache(t, "v1", mockClock)

	entry := models.NewCacheEntry([]byte(`{"kind":"active"}`), time.Minute, "v1", mockClock.Now(), models.Stamp{Seq: 1, Origin: "a"})
	cache.Set("license:u1", entry)

	got, found := cache.Get("license:u1")

	require.True(t, found)
	assert.JSONEq(t, `{"kind":"active"}`, string(got.Data))
	assert.Equal(t, models.Stamp{Seq: 1, Origin: "a"}, got.Stamp)
}

func TestBigCache_Get_NotFound(t *testing.T) {
	cache := newTestCache(t, "v1", clock.NewMock())

	result, found := cache.Get("non-existent-key")

	assert.False(t, found)
	assert.Nil(t, result)
}

func TestBigCache_Get_ExpiredByTTL(t *testing.T) {
	mockClock := clock.NewMock()
	cache := newTestCache(t, "v1", mockClock)

	cache.Set("license:u1", models.NewCacheEntry([]byte(`1`), time.Minute, "v1", mockClock.Now(), models.Stamp{Seq: 1}))

	mockClock.Add(time.Minute)
	_, found := cache.Get("license:u1")
	assert.True(t, found, "entry is fresh up to its TTL")

	mockClock.Add(time.Millisecond)
	_, found = cache.Get("license:u1")
	assert.False(t, found)

	// The expired entry was removed as a side effect
	_, found = cache.Peek("license:u1")
	assert.False(t, found)
}

func TestBigCache_Get_VersionMismatch(t *testing.T) {
	mockClock := clock.NewMock()
	cache := newTestCache(t, "v2", mockClock)

	cache.Set("license:u1", models.NewCacheEntry([]byte(`1`), time.Hour, "v1", mockClock.Now(), models.Stamp{Seq: 1}))

	_, found := cache.Get("license:u1")
	assert.False(t, found)
	assert.Equal(t, 0, cache.Len())
}

func TestBigCache_Get_CorruptedEntry(t *testing.T) {
	cache := newTestCache(t, "v1", clock.NewMock())

	require.NoError(t, cache.cache.Set("broken", []byte("not-json")))

	_, found := cache.Get("broken")
	assert.False(t, found)
	assert.Equal(t, 0, cache.Len())
}

func TestBigCache_Delete(t *testing.T) {
	mockClock := clock.NewMock()
	cache := newTestCache(t, "v1", mockClock)

	cache.Set("k", models.NewCacheEntry([]byte(`1`), time.Hour, "v1", mockClock.Now(), models.Stamp{Seq: 1}))
	cache.Delete("k")
	cache.Delete("k") // deleting an absent key is a no-op

	_, found := cache.Get("k")
	assert.False(t, found)
}

func TestBigCache_Clear(t *testing.T) {
	mockClock := clock.NewMock()
	cache := newTestCache(t, "v1", mockClock)

	for _, key := range []string{"a", "b", "c"} {
		cache.Set(key, models.NewCacheEntry([]byte(`1`), time.Hour, "v1", mockClock.Now(), models.Stamp{Seq: 1}))
	}
	assert.Equal(t, 3, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}

func TestBigCache_Sweep(t *testing.T) {
	mockClock := clock.NewMock()
	cache := newTestCache(t, "v1", mockClock)

	now := mockClock.Now()
	cache.Set("short", models.NewCacheEntry([]byte(`1`), time.Second, "v1", now, models.Stamp{Seq: 1}))
	cache.Set("long", models.NewCacheEntry([]byte(`2`), time.Hour, "v1", now, models.Stamp{Seq: 2}))
	cache.Set("old-version", models.NewCacheEntry([]byte(`3`), time.Hour, "v0", now, models.Stamp{Seq: 3}))

	mockClock.Add(2 * time.Second)

	removed := cache.Sweep()

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, cache.Len())
	_, found := cache.Peek("long")
	assert.True(t, found)
}

func TestNamespaceOf(t *testing.T) {
	assert.Equal(t, "license", namespaceOf("license:abc"))
	assert.Equal(t, "default", namespaceOf("plain"))
	assert.Equal(t, "", namespaceOf(":x"))
}

package models

import (
	"encoding/json"
	"time"
)

// Stamp is a logical clock value attached to every cache write.
// Higher Seq wins; equal Seq breaks ties by Origin.
type Stamp struct {
	Seq    uint64 `json:"seq"`
	Origin string `json:"origin"`
}

// After reports whether s orders strictly after other.
func (s Stamp) After(other Stamp) bool {
	if s.Seq != other.Seq {
		return s.Seq > other.Seq
	}
	return s.Origin > other.Origin
}

// IsZero reports whether the stamp was never set.
func (s Stamp) IsZero() bool {
	return s.Seq == 0 && s.Origin == ""
}

// CacheEntry represents a single value held by the local store
type CacheEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // epoch ms
	TTL       int64           `json:"ttl"`       // ms
	Version   string          `json:"version"`
	Stamp     Stamp           `json:"stamp"`
}

// NewCacheEntry builds an entry written at now
func NewCacheEntry(data []byte, ttl time.Duration, version string, now time.Time, stamp Stamp) *CacheEntry {
	return &CacheEntry{
		Data:      data,
		Timestamp: now.UnixMilli(),
		TTL:       ttl.Milliseconds(),
		Version:   version,
		Stamp:     stamp,
	}
}

// IsExpired checks whether the entry must be treated as absent.
// An entry written under another cache version is always expired.
func (e *CacheEntry) IsExpired(now time.Time, currentVersion string) bool {
	if e.Version != currentVersion {
		return true
	}
	return now.UnixMilli()-e.Timestamp > e.TTL
}

// ExpiresAt returns the wall-clock instant after which the entry is stale
func (e *CacheEntry) ExpiresAt() time.Time {
	return time.UnixMilli(e.Timestamp + e.TTL)
}

package interfaces

import "context"

//go:generate mockgen -package=mock -source=marker_store.go -destination=mock/marker_store.go

// VersionMarkerStore persists the cache format version across restarts
type VersionMarkerStore interface {
	// Load returns the stored marker and whether one exists
	Load(ctx context.Context) (string, bool, error)
	Store(ctx context.Context, version string) error
}

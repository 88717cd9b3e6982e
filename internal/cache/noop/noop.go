package noop

import (
	"context"

	"go-route-guard/internal/interfaces"
	"go-route-guard/internal/models"
)

var (
	_ interfaces.Transport          = (*NoOpTransport)(nil)
	_ interfaces.VersionMarkerStore = (*NoOpMarkerStore)(nil)
)

// NoOpTransport is used when broadcast is disabled; the instance behaves as a single replica
type NoOpTransport struct{}

// NewNoOpTransport creates a new no-operation transport
func NewNoOpTransport() interfaces.Transport {
	return &NoOpTransport{}
}

// Publish drops the message
func (n *NoOpTransport) Publish(ctx context.Context, msg *models.Message) error {
	return nil
}

// Subscribe never delivers anything
func (n *NoOpTransport) Subscribe(ctx context.Context, handler interfaces.MessageHandler) error {
	return nil
}

// Close does nothing
func (n *NoOpTransport) Close() error {
	return nil
}

// NoOpMarkerStore never persists the version marker, so no startup clear happens
type NoOpMarkerStore struct{}

// NewNoOpMarkerStore creates a new no-operation marker store
func NewNoOpMarkerStore() interfaces.VersionMarkerStore {
	return &NoOpMarkerStore{}
}

// Load always reports no marker
func (n *NoOpMarkerStore) Load(ctx context.Context) (string, bool, error) {
	return "", false, nil
}

// Store does nothing
func (n *NoOpMarkerStore) Store(ctx context.Context, version string) error {
	return nil
}

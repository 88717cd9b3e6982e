package interfaces

import (
	"context"

	"go-route-guard/internal/models"
)

//go:generate mockgen -package=mock -source=transport.go -destination=mock/transport.go

// MessageHandler receives broadcast messages
type MessageHandler func(msg *models.Message)

// Transport propagates cache messages between guard instances.
// Delivery is best-effort: no acknowledgement, no ordering across keys.
type Transport interface {
	Publish(ctx context.Context, msg *models.Message) error
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

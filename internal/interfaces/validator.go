package interfaces

import (
	"context"

	"go-route-guard/internal/models"
)

//go:generate mockgen -package=mock -source=validator.go -destination=mock/validator.go

// LicenseValidator calls the remote procedure that authoritatively validates a license
type LicenseValidator interface {
	Validate(ctx context.Context, userID string) (*models.ValidationResult, error)
}

// LicenseResolver turns a user into a LicenseState, consulting the shared cache first
type LicenseResolver interface {
	Resolve(ctx context.Context, userID string) models.LicenseState
	Invalidate(ctx context.Context, userID string)
	CacheKey(userID string) string
}

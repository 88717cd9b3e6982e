package interfaces

import (
	"context"

	"go-route-guard/internal/models"
)

//go:generate mockgen -package=mock -source=access_evaluator.go -destination=mock/access_evaluator.go

// AccessEvaluator decides whether a navigation may proceed. It never fails.
type AccessEvaluator interface {
	Evaluate(ctx context.Context, path string, session models.Session) models.AccessDecision
}

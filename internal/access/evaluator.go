package access

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"go-route-guard/internal/interfaces"
	"go-route-guard/internal/metrics"
	"go-route-guard/internal/models"
)

// Ensure Evaluator implements the AccessEvaluator interface
var _ interfaces.AccessEvaluator = (*Evaluator)(nil)

// Evaluator decides whether a session may enter a path
type Evaluator struct {
	routes   interfaces.RouteClassifier
	licenses interfaces.LicenseResolver
	logger   *zap.Logger
}

// NewEvaluator creates an evaluator over the given route tables and license resolver
func NewEvaluator(routes interfaces.RouteClassifier, licenses interfaces.LicenseResolver, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		routes:   routes,
		licenses: licenses,
		logger:   logger,
	}
}

// Evaluate applies the checks in order, first match wins:
// public, authentication, email confirmation, license, unclassified policy.
// It never panics; failures resolve to a denial.
func (e *Evaluator) Evaluate(ctx context.Context, path string, session models.Session) (decision models.AccessDecision) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Access evaluation panicked", zap.String("path", path), zap.Any("panic", r))
			state := models.ErrorState(fmt.Errorf("access evaluation panicked: %v", r))
			decision = models.Deny(e.routes.RedirectFor(models.RedirectNoLicense), models.ReasonLicenseError)
			decision.License = &state
		}
		metrics.RecordDecision(decision.CanAccess, string(decision.Reason))
		e.logger.Debug("Access decision",
			zap.String("path", path),
			zap.String("user_id", session.UserID),
			zap.Bool("can_access", decision.CanAccess),
			zap.String("reason", string(decision.Reason)),
			zap.String("redirect_to", decision.RedirectTo))
	}()

	route := e.routes.Classify(path)

	if route.IsPublic {
		return models.Allow(models.ReasonPublic)
	}

	// Every non-public path, classified or not, requires a session
	if !session.Authenticated || session.UserID == "" {
		return models.Deny(e.routes.RedirectFor(models.RedirectSignIn), models.ReasonUnauthenticated)
	}

	if route.RequiresEmailConfirmation && !session.EmailConfirmed {
		return models.Deny(e.routes.RedirectFor(models.RedirectVerifyEmail), models.ReasonEmailNotConfirmed)
	}

	if route.RequiresLicense {
		return e.evaluateLicense(ctx, session.UserID)
	}

	if !route.Classified {
		if e.routes.UnclassifiedPolicy() == models.UnclassifiedAllow {
			return models.Allow(models.ReasonUnclassified)
		}
		return models.Deny(e.routes.RedirectFor(models.RedirectUnclassified), models.ReasonUnclassifiedDenied)
	}

	return models.Allow(models.ReasonAllowed)
}

func (e *Evaluator) evaluateLicense(ctx context.Context, userID string) models.AccessDecision {
	state := e.licenses.Resolve(ctx, userID)

	var decision models.AccessDecision
	switch state.Kind {
	case models.LicenseActive:
		decision = models.Allow(models.ReasonLicenseActive)
	case models.LicenseInactive:
		decision = models.Deny(e.routes.RedirectFor(models.RedirectRenew), models.ReasonLicenseInactive)
	case models.LicenseExpired:
		decision = models.Deny(e.routes.RedirectFor(models.RedirectRenew), models.ReasonLicenseExpired)
	case models.LicenseNotFound:
		decision = models.Deny(e.routes.RedirectFor(models.RedirectNoLicense), models.ReasonLicenseNotFound)
	default:
		decision = models.Deny(e.routes.RedirectFor(models.RedirectNoLicense), models.ReasonLicenseError)
	}

	decision.License = &state
	return decision
}

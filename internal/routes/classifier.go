package routes

import (
	"fmt"

	"go.uber.org/zap"

	"go-route-guard/internal/interfaces"
	"go-route-guard/internal/models"
)

// Ensure Classifier implements the RouteClassifier interface
var _ interfaces.RouteClassifier = (*Classifier)(nil)

// Classifier maps paths onto their requirement flags. It is immutable after construction.
type Classifier struct {
	public            *table
	auth              *table
	license           *table
	emailConfirmation *table
	redirects         Redirects
	policy            models.UnclassifiedPolicy
	logger            *zap.Logger
}

// NewClassifier builds a classifier from validated route tables
func NewClassifier(config *RoutesConfig, logger *zap.Logger) (*Classifier, error) {
	if config == nil {
		return nil, fmt.Errorf("routes config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Classifier{
		redirects: config.Redirects,
		policy:    config.UnclassifiedPolicy,
		logger:    logger,
	}
	if c.policy == "" {
		c.policy = models.UnclassifiedDeny
	}

	var err error
	if c.public, err = newTable(config.Public); err != nil {
		return nil, fmt.Errorf("public: %w", err)
	}
	if c.auth, err = newTable(config.AuthRequired); err != nil {
		return nil, fmt.Errorf("auth_required: %w", err)
	}
	if c.license, err = newTable(config.LicenseRequired); err != nil {
		return nil, fmt.Errorf("license_required: %w", err)
	}
	if c.emailConfirmation, err = newTable(config.EmailConfirmationRequired); err != nil {
		return nil, fmt.Errorf("email_confirmation_required: %w", err)
	}

	return c, nil
}

// Classify returns the requirement flags of path.
// A public path never requires anything; license or email confirmation imply auth.
func (c *Classifier) Classify(path string) models.RouteClassification {
	normalized := NormalizePath(path)
	result := models.RouteClassification{Path: normalized}

	if pattern, ok := c.public.match(normalized); ok {
		c.logger.Debug("Route classified as public", zap.String("path", normalized), zap.String("pattern", pattern))
		result.IsPublic = true
		result.Classified = true
		return result
	}

	_, result.RequiresAuth = c.auth.match(normalized)
	_, result.RequiresLicense = c.license.match(normalized)
	_, result.RequiresEmailConfirmation = c.emailConfirmation.match(normalized)

	if result.RequiresLicense || result.RequiresEmailConfirmation {
		result.RequiresAuth = true
	}
	result.Classified = result.RequiresAuth

	return result
}

// RedirectFor returns the configured path for a denial target
func (c *Classifier) RedirectFor(target models.RedirectTarget) string {
	return c.redirects.Target(target)
}

// UnclassifiedPolicy returns what to do with paths missing from every table
func (c *Classifier) UnclassifiedPolicy() models.UnclassifiedPolicy {
	return c.policy
}

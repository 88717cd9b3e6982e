package routes

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"go-route-guard/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("route_pattern", func(fl validator.FieldLevel) bool {
		_, err := parsePattern(fl.Field().String())
		return err == nil
	})
	return v
}

// LoadRoutesConfig loads the route tables from a YAML file and returns a classifier
func LoadRoutesConfig(routesPath string, logger *zap.Logger) (*Classifier, error) {
	logger.Info("Loading route tables", zap.String("path", routesPath))

	file, err := os.Open(routesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open routes file: %w", err)
	}
	defer func() { _ = file.Close() }()

	classifier, err := ParseRoutesConfig(file, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Route tables loaded successfully", zap.String("unclassified_policy", string(classifier.policy)))
	return classifier, nil
}

// ParseRoutesConfig decodes and validates route tables from r
func ParseRoutesConfig(r io.Reader, logger *zap.Logger) (*Classifier, error) {
	var config RoutesConfig
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("routes file is empty")
		}
		return nil, fmt.Errorf("failed to decode YAML routes: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("routes validation failed: %w", err)
	}

	classifier, err := NewClassifier(&config, logger)
	if err != nil {
		return nil, err
	}

	if err := checkRedirectLoops(classifier); err != nil {
		return nil, fmt.Errorf("routes validation failed: %w", err)
	}
	return classifier, nil
}

// ParseRoutesYAML is a convenience wrapper around ParseRoutesConfig
func ParseRoutesYAML(data []byte, logger *zap.Logger) (*Classifier, error) {
	return ParseRoutesConfig(bytes.NewReader(data), logger)
}

// validateConfig checks the structure and that no pattern is both public and protected
func validateConfig(config *RoutesConfig) error {
	if err := validate.Struct(config); err != nil {
		return err
	}

	public := make(map[string]struct{}, len(config.Public))
	for _, p := range config.Public {
		public[p] = struct{}{}
	}

	protected := map[string][]string{
		"auth_required":               config.AuthRequired,
		"license_required":            config.LicenseRequired,
		"email_confirmation_required": config.EmailConfirmationRequired,
	}
	var conflicts []string
	for name, patterns := range protected {
		for _, p := range patterns {
			if _, ok := public[p]; ok {
				conflicts = append(conflicts, fmt.Sprintf("%s (%s)", p, name))
			}
		}
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("%w: %s", models.ErrRouteConflict, strings.Join(conflicts, ", "))
	}
	return nil
}

// checkRedirectLoops rejects redirect targets that would deny the very caller sent there
func checkRedirectLoops(c *Classifier) error {
	signIn := c.Classify(c.redirects.SignIn)
	if signIn.RequiresAuth {
		return fmt.Errorf("sign_in redirect %s must not require authentication", c.redirects.SignIn)
	}

	verify := c.Classify(c.redirects.VerifyEmail)
	if verify.RequiresEmailConfirmation || verify.RequiresLicense {
		return fmt.Errorf("verify_email redirect %s must not require email confirmation or a license", c.redirects.VerifyEmail)
	}

	for name, target := range map[string]string{"renew": c.redirects.Renew, "no_license": c.redirects.NoLicense} {
		if c.Classify(target).RequiresLicense {
			return fmt.Errorf("%s redirect %s must not require a license", name, target)
		}
	}

	if c.policy == models.UnclassifiedDeny && !c.Classify(c.redirects.Unclassified).Classified {
		return fmt.Errorf("unclassified redirect %s must itself be classified when unclassified_policy is deny", c.redirects.Unclassified)
	}
	return nil
}

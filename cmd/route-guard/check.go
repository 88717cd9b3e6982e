package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-route-guard/internal/access"
	"go-route-guard/internal/models"
	"go-route-guard/internal/routes"
	"go-route-guard/internal/session"
)

// staticResolver answers every license lookup with the same state
type staticResolver struct {
	state models.LicenseState
}

func (s staticResolver) Resolve(ctx context.Context, userID string) models.LicenseState {
	return s.state
}

func (s staticResolver) Invalidate(ctx context.Context, userID string) {}

func (s staticResolver) CacheKey(userID string) string {
	return ""
}

type checkResult struct {
	Path           string                     `json:"path"`
	Classification models.RouteClassification `json:"classification"`
	Decision       models.AccessDecision      `json:"decision"`
}

func newCheckCmd() *cobra.Command {
	var (
		routesPath     string
		userID         string
		emailConfirmed bool
		licenseKind    string
	)

	cmd := &cobra.Command{
		Use:   "check PATH...",
		Short: "Evaluate paths against the route tables without contacting any service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := parseLicenseKind(licenseKind)
			if err != nil {
				return err
			}

			logger := zap.NewNop()
			classifier, err := routes.LoadRoutesConfig(routesPath, logger)
			if err != nil {
				return err
			}
			evaluator := access.NewEvaluator(classifier, staticResolver{state: state}, logger)

			sess := models.Session{}
			if userID != "" {
				sess = models.Session{UserID: userID, Authenticated: true, EmailConfirmed: emailConfirmed}
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			for _, path := range args {
				if err := encoder.Encode(checkResult{
					Path:           path,
					Classification: classifier.Classify(path),
					Decision:       evaluator.Evaluate(cmd.Context(), path, sess),
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&routesPath, "routes", envOrDefault("ROUTE_GUARD_ROUTES_FILE", "/app/routes.yaml"), "route tables file")
	cmd.Flags().StringVar(&userID, "user", "", "evaluate as this authenticated user (anonymous when empty)")
	cmd.Flags().BoolVar(&emailConfirmed, "email-confirmed", false, "the user's email is confirmed")
	cmd.Flags().StringVar(&licenseKind, "license", string(models.LicenseActive), "license state: active, inactive, expired, not_found or error")
	return cmd
}

func parseLicenseKind(kind string) (models.LicenseState, error) {
	switch models.LicenseKind(kind) {
	case models.LicenseActive, models.LicenseInactive, models.LicenseExpired, models.LicenseNotFound:
		return models.LicenseState{Kind: models.LicenseKind(kind)}, nil
	case models.LicenseError:
		return models.ErrorState(nil), nil
	default:
		return models.LicenseState{}, fmt.Errorf("unknown license state %q", kind)
	}
}

func newTokenCmd() *cobra.Command {
	var (
		userID         string
		email          string
		audience       string
		emailConfirmed bool
		ttl            time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development access token with SESSION_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := GetSessionSecret(zap.NewNop())
			if secret == "" {
				return fmt.Errorf("SESSION_JWT_SECRET is not set")
			}
			token, expiresAt, err := session.Issue(secret, userID, email, audience, emailConfirmed, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "subject of the token")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&audience, "audience", "authenticated", "audience claim")
	cmd.Flags().BoolVar(&emailConfirmed, "email-confirmed", false, "set email_confirmed_at")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

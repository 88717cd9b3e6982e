package routes

import (
	"go-route-guard/internal/models"
)

// RoutesConfig represents the route tables file
type RoutesConfig struct {
	Public                    []string `yaml:"public" validate:"dive,route_pattern"`
	AuthRequired              []string `yaml:"auth_required" validate:"dive,route_pattern"`
	LicenseRequired           []string `yaml:"license_required" validate:"dive,route_pattern"`
	EmailConfirmationRequired []string `yaml:"email_confirmation_required" validate:"dive,route_pattern"`

	Redirects          Redirects                 `yaml:"redirects"`
	UnclassifiedPolicy models.UnclassifiedPolicy `yaml:"unclassified_policy"`
}

// Redirects maps each denial to the path the caller is sent to
type Redirects struct {
	SignIn       string `yaml:"sign_in" validate:"required,startswith=/"`
	VerifyEmail  string `yaml:"verify_email" validate:"required,startswith=/"`
	Renew        string `yaml:"renew" validate:"required,startswith=/"`
	NoLicense    string `yaml:"no_license" validate:"required,startswith=/"`
	Unclassified string `yaml:"unclassified" validate:"required,startswith=/"`
}

// Target returns the redirect path for target
func (r Redirects) Target(target models.RedirectTarget) string {
	switch target {
	case models.RedirectSignIn:
		return r.SignIn
	case models.RedirectVerifyEmail:
		return r.VerifyEmail
	case models.RedirectRenew:
		return r.Renew
	case models.RedirectNoLicense:
		return r.NoLicense
	case models.RedirectUnclassified:
		return r.Unclassified
	default:
		return r.SignIn
	}
}

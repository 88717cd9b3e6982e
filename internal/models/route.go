package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RouteClassification holds the requirement flags of a path
type RouteClassification struct {
	Path                      string `json:"path"`
	IsPublic                  bool   `json:"is_public"`
	RequiresAuth              bool   `json:"requires_auth"`
	RequiresLicense           bool   `json:"requires_license"`
	RequiresEmailConfirmation bool   `json:"requires_email_confirmation"`
	Classified                bool   `json:"classified"`
}

// RedirectTarget names a denial destination in the route tables
type RedirectTarget string

const (
	RedirectSignIn       RedirectTarget = "sign_in"
	RedirectVerifyEmail  RedirectTarget = "verify_email"
	RedirectRenew        RedirectTarget = "renew"
	RedirectNoLicense    RedirectTarget = "no_license"
	RedirectUnclassified RedirectTarget = "unclassified"
)

// UnclassifiedPolicy decides what happens to paths missing from every table
type UnclassifiedPolicy string

const (
	UnclassifiedAllow UnclassifiedPolicy = "allow"
	UnclassifiedDeny  UnclassifiedPolicy = "deny"
)

// UnmarshalYAML implements custom YAML unmarshaling for UnclassifiedPolicy
func (p *UnclassifiedPolicy) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	switch str {
	case "allow", "deny":
		*p = UnclassifiedPolicy(str)
		return nil
	default:
		return fmt.Errorf("invalid unclassified policy '%s': must be one of 'allow', 'deny'", str)
	}
}

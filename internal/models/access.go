package models

// Session is the caller context the evaluator decides on
type Session struct {
	UserID         string `json:"user_id,omitempty"`
	Email          string `json:"email,omitempty"`
	Authenticated  bool   `json:"authenticated"`
	EmailConfirmed bool   `json:"email_confirmed"`
}

// Reason explains an access decision
type Reason string

const (
	ReasonPublic             Reason = "public"
	ReasonUnauthenticated    Reason = "unauthenticated"
	ReasonEmailNotConfirmed  Reason = "email_not_confirmed"
	ReasonLicenseActive      Reason = "license_active"
	ReasonLicenseInactive    Reason = "license_inactive"
	ReasonLicenseExpired     Reason = "license_expired"
	ReasonLicenseNotFound    Reason = "license_not_found"
	ReasonLicenseError       Reason = "license_error"
	ReasonUnclassifiedDenied Reason = "unclassified_denied"
	ReasonUnclassified       Reason = "unclassified"
	ReasonAllowed            Reason = "allowed"
)

// AccessDecision is the outcome of evaluating a navigation
type AccessDecision struct {
	CanAccess  bool          `json:"can_access"`
	RedirectTo string        `json:"redirect_to,omitempty"`
	Reason     Reason        `json:"reason,omitempty"`
	License    *LicenseState `json:"license,omitempty"`
}

// Allow builds a granting decision
func Allow(reason Reason) AccessDecision {
	return AccessDecision{CanAccess: true, Reason: reason}
}

// Deny builds a refusing decision with its redirect target
func Deny(redirectTo string, reason Reason) AccessDecision {
	return AccessDecision{CanAccess: false, RedirectTo: redirectTo, Reason: reason}
}

package models

import (
	"fmt"
	"time"
)

// ValidationResult is the raw response of the remote license validator
type ValidationResult struct {
	HasLicense         bool       `json:"has_license"`
	IsValid            bool       `json:"is_valid"`
	RequiresActivation bool       `json:"requires_activation"`
	RequiresRenewal    bool       `json:"requires_renewal"`
	ExpiresAt          *time.Time `json:"expires_at"`
	LicenseCode        string     `json:"license_code"`
	Message            string     `json:"message"`
	DaysRemaining      *int       `json:"days_remaining,omitempty"`
}

// LicenseKind is the discriminator of LicenseState
type LicenseKind string

const (
	LicenseActive   LicenseKind = "active"
	LicenseInactive LicenseKind = "inactive"
	LicenseExpired  LicenseKind = "expired"
	LicenseNotFound LicenseKind = "not_found"
	LicenseError    LicenseKind = "error"
)

// LicenseState is the derived license status of a user
type LicenseState struct {
	Kind        LicenseKind `json:"kind"`
	Detail      string      `json:"detail,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
	LicenseCode string      `json:"license_code,omitempty"`
}

// DeriveLicenseState maps a validator response onto a LicenseState.
//
// Precedence: no license, then renewal, then validity/activation.
func DeriveLicenseState(result *ValidationResult) LicenseState {
	if result == nil {
		return ErrorState(fmt.Errorf("%w: empty response", ErrValidatorFailure))
	}

	state := LicenseState{
		Detail:      result.Message,
		ExpiresAt:   result.ExpiresAt,
		LicenseCode: result.LicenseCode,
	}

	switch {
	case !result.HasLicense:
		state.Kind = LicenseNotFound
	case result.RequiresRenewal:
		state.Kind = LicenseExpired
	case !result.IsValid || result.RequiresActivation:
		state.Kind = LicenseInactive
	default:
		state.Kind = LicenseActive
	}
	return state
}

// ErrorState builds the state used when the validator could not be reached
func ErrorState(err error) LicenseState {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return LicenseState{Kind: LicenseError, Detail: detail}
}

// IsActive reports whether protected routes may be entered
func (s LicenseState) IsActive() bool {
	return s.Kind == LicenseActive
}

// Cacheable reports whether the state may be stored in the shared cache.
// Error states are never cached so the next navigation retries the validator.
func (s LicenseState) Cacheable() bool {
	switch s.Kind {
	case LicenseActive, LicenseInactive, LicenseExpired, LicenseNotFound:
		return true
	default:
		return false
	}
}

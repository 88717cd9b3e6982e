package httpserver

import (
	"net/http"

	"go-route-guard/internal/models"
)

// SessionParser extracts the caller session from a request
type SessionParser interface {
	FromRequest(r *http.Request) models.Session
}

// AccessCheckRequest asks whether the caller may open Path
type AccessCheckRequest struct {
	Path string `json:"path"`
}

// AccessCheckResponse carries the decision for an access check
type AccessCheckResponse struct {
	Success  bool                  `json:"success"`
	Path     string                `json:"path"`
	Decision models.AccessDecision `json:"decision"`
}

// NavigationRequest drives the per-session history; an empty SessionID starts a new session
type NavigationRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Path      string `json:"path"`
}

// NavigationResponse reports where the session ended up
type NavigationResponse struct {
	Success   bool                  `json:"success"`
	SessionID string                `json:"session_id"`
	Current   string                `json:"current"`
	Decision  models.AccessDecision `json:"decision"`
	History   []string              `json:"history"`
	Index     int                   `json:"index"`
}

// ReleaseRequest ends a navigation session
type ReleaseRequest struct {
	SessionID string `json:"session_id"`
}

// InvalidateRequest drops the cached license of a user on every instance
type InvalidateRequest struct {
	UserID string `json:"user_id"`
}

// AdminResponse acknowledges an administrative operation
type AdminResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key,omitempty"`
}

package models

import "errors"

var (
	// ErrSuperseded is returned when a navigation was overtaken by a newer one
	ErrSuperseded = errors.New("navigation superseded by a newer attempt")

	ErrInvalidPattern   = errors.New("invalid route pattern")
	ErrRouteConflict    = errors.New("route classified as both public and protected")
	ErrEmptyKey         = errors.New("cache key cannot be empty")
	ErrUnknownMessage   = errors.New("unknown broadcast message type")
	ErrTransportClosed  = errors.New("broadcast transport closed")
	ErrValidatorFailure = errors.New("license validator call failed")
)

package interfaces

import (
	"go-route-guard/internal/models"
)

//go:generate mockgen -package=mock -source=route_classifier.go -destination=mock/route_classifier.go

// RouteClassifier classifies paths against the static route tables
type RouteClassifier interface {
	// Classify returns the requirement flags of a path
	Classify(path string) models.RouteClassification
	// RedirectFor returns the configured destination for a denial
	RedirectFor(target models.RedirectTarget) string
	// UnclassifiedPolicy tells what to do with paths missing from every table
	UnclassifiedPolicy() models.UnclassifiedPolicy
}

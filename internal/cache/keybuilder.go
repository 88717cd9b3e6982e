package cache

import (
	"errors"
	"fmt"
	"strings"
)

// LicenseNamespace prefixes every cached license state
const LicenseNamespace = "license"

// KeyBuilder creates namespaced shared-cache keys of the form namespace:id
type KeyBuilder struct {
	namespace string
}

// NewKeyBuilder creates a KeyBuilder for the given namespace
func NewKeyBuilder(namespace string) *KeyBuilder {
	return &KeyBuilder{namespace: namespace}
}

// Build creates the cache key for id
func (kb *KeyBuilder) Build(id string) (string, error) {
	if kb.namespace == "" {
		return "", errors.New("namespace cannot be empty")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("id cannot be empty")
	}

	return fmt.Sprintf("%s:%s", kb.namespace, id), nil
}

// Parse splits key into its id if it belongs to this builder's namespace
func (kb *KeyBuilder) Parse(key string) (string, bool) {
	id, found := strings.CutPrefix(key, kb.namespace+":")
	if !found || id == "" {
		return "", false
	}
	return id, true
}

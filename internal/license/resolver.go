package license

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"go-route-guard/internal/cache"
	"go-route-guard/internal/interfaces"
	"go-route-guard/internal/metrics"
	"go-route-guard/internal/models"
)

// Ensure Resolver implements interfaces.LicenseResolver
var _ interfaces.LicenseResolver = (*Resolver)(nil)

// Resolver answers "what is this user's license state" from the shared cache,
// falling back to the remote validator on a miss
type Resolver struct {
	cache         interfaces.SharedCache
	validator     interfaces.LicenseValidator
	validatorName string
	keys          *cache.KeyBuilder
	ttl           time.Duration
	group         singleflight.Group
	logger        *zap.Logger

	// flightsMu also serializes the stale check with the cache write in fetch
	flightsMu sync.Mutex
	flights   map[string]*flight
}

// flight tracks one validator call; an invalidation or clear seen while it runs marks it stale
type flight struct {
	stale bool
}

// NewResolver creates a resolver caching states for ttl
func NewResolver(sharedCache interfaces.SharedCache, validator interfaces.LicenseValidator, validatorName string, ttl time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		cache:         sharedCache,
		validator:     validator,
		validatorName: validatorName,
		keys:          cache.NewKeyBuilder(cache.LicenseNamespace),
		ttl:           ttl,
		logger:        logger,
		flights:       make(map[string]*flight),
	}
}

// Watch marks in-flight validations stale when their key is invalidated or the
// cache is cleared on any instance
func (r *Resolver) Watch() (unsubscribe func()) {
	return r.cache.OnChange(r.handleChange)
}

// CacheKey returns the shared-cache key holding userID's state
func (r *Resolver) CacheKey(userID string) string {
	key, err := r.keys.Build(userID)
	if err != nil {
		return ""
	}
	return key
}

// Resolve never fails: validator errors, timeouts and panics all become an error state
func (r *Resolver) Resolve(ctx context.Context, userID string) (state models.LicenseState) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("License resolution panicked", zap.String("user_id", userID), zap.Any("panic", rec))
			state = models.ErrorState(fmt.Errorf("license resolution panicked: %v", rec))
		}
	}()

	key, err := r.keys.Build(userID)
	if err != nil {
		return models.ErrorState(err)
	}

	if cached, ok := r.lookup(key); ok {
		metrics.RecordLicenseState(string(cached.Kind), "cache")
		return cached
	}

	// The flight outlives any single caller; validators bound it with their own timeout
	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		f := r.beginFlight(key)
		return r.fetch(flightCtx, key, userID, f), nil
	})

	select {
	case res := <-ch:
		state = res.Val.(models.LicenseState)
		if res.Shared {
			r.logger.Debug("Shared in-flight license validation", zap.String("user_id", userID))
		}
	case <-ctx.Done():
		state = models.ErrorState(ctx.Err())
	}

	metrics.RecordLicenseState(string(state.Kind), "validator")
	return state
}

// Invalidate drops userID's cached state on every instance
func (r *Resolver) Invalidate(ctx context.Context, userID string) {
	key, err := r.keys.Build(userID)
	if err != nil {
		return
	}
	r.abandon(key)
	if err := r.cache.Invalidate(ctx, key); err != nil {
		r.logger.Warn("Failed to invalidate license state", zap.String("key", key), zap.Error(err))
	}
}

func (r *Resolver) handleChange(event models.ChangeEvent) {
	switch event.Type {
	case models.MessageInvalidate:
		r.abandon(event.Key)
	case models.MessageClear:
		r.flightsMu.Lock()
		for key, f := range r.flights {
			f.stale = true
			r.group.Forget(key)
		}
		r.flightsMu.Unlock()
	}
}

// abandon marks key's running flight stale and detaches it, so later callers start a fresh validation
func (r *Resolver) abandon(key string) {
	r.flightsMu.Lock()
	defer r.flightsMu.Unlock()
	if f, ok := r.flights[key]; ok {
		f.stale = true
		r.group.Forget(key)
	}
}

func (r *Resolver) beginFlight(key string) *flight {
	r.flightsMu.Lock()
	defer r.flightsMu.Unlock()
	f := &flight{}
	r.flights[key] = f
	return f
}

// endFlight must be called with flightsMu held
func (r *Resolver) endFlight(key string, f *flight) {
	if r.flights[key] == f {
		delete(r.flights, key)
	}
}

func (r *Resolver) lookup(key string) (models.LicenseState, bool) {
	data, found := r.cache.Get(key)
	if !found {
		return models.LicenseState{}, false
	}

	var state models.LicenseState
	if err := json.Unmarshal(data, &state); err != nil {
		r.logger.Warn("Discarding undecodable cached license state", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("license", "decode")
		return models.LicenseState{}, false
	}
	return state, true
}

// fetch runs inside singleflight; a panic here would escape DoChan, so it is recovered locally
func (r *Resolver) fetch(ctx context.Context, key, userID string, f *flight) (state models.LicenseState) {
	defer func() {
		r.flightsMu.Lock()
		r.endFlight(key, f)
		r.flightsMu.Unlock()
	}()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("License validator panicked", zap.String("user_id", userID), zap.Any("panic", rec))
			metrics.RecordValidatorError(r.validatorName)
			state = models.ErrorState(fmt.Errorf("%w: %v", models.ErrValidatorFailure, rec))
		}
	}()

	done := metrics.TimeValidatorCall(r.validatorName)
	result, err := r.validator.Validate(ctx, userID)
	done()

	if err != nil {
		r.logger.Warn("License validation failed", zap.String("user_id", userID), zap.Error(err))
		metrics.RecordValidatorError(r.validatorName)
		return models.ErrorState(err)
	}

	state = models.DeriveLicenseState(result)
	if !state.Cacheable() {
		return state
	}

	data, err := json.Marshal(state)
	if err != nil {
		r.logger.Error("Failed to encode license state", zap.String("key", key), zap.Error(err))
		return state
	}

	r.flightsMu.Lock()
	defer r.flightsMu.Unlock()
	if f.stale {
		r.logger.Debug("Not caching license state invalidated during validation", zap.String("key", key))
		metrics.RecordCacheError("license", "superseded")
		return state
	}
	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		r.logger.Warn("Failed to cache license state", zap.String("key", key), zap.Error(err))
	}
	return state
}

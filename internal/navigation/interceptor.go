package navigation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"go-route-guard/internal/interfaces"
	"go-route-guard/internal/metrics"
	"go-route-guard/internal/models"
)

// Result is the outcome of a navigation that was committed to history
type Result struct {
	Decision models.AccessDecision `json:"decision"`
	Current  string                `json:"current"`
}

// Interceptor guards every navigation of one session.
// Each attempt takes a generation number; an evaluation that finishes after a
// newer attempt started is discarded with models.ErrSuperseded.
type Interceptor struct {
	evaluator interfaces.AccessEvaluator
	history   interfaces.History
	logger    *zap.Logger

	generation atomic.Uint64

	// commitMu makes the generation check and the history write atomic
	commitMu sync.Mutex

	sessionMu sync.RWMutex
	session   models.Session

	redirectMu sync.RWMutex
	onRedirect func(Result)
}

// NewInterceptor creates an interceptor for session over history
func NewInterceptor(evaluator interfaces.AccessEvaluator, history interfaces.History, session models.Session, logger *zap.Logger) *Interceptor {
	return &Interceptor{
		evaluator: evaluator,
		history:   history,
		session:   session,
		logger:    logger,
	}
}

// SetSession replaces the session used for subsequent evaluations
func (i *Interceptor) SetSession(session models.Session) {
	i.sessionMu.Lock()
	defer i.sessionMu.Unlock()
	i.session = session
}

func (i *Interceptor) Session() models.Session {
	i.sessionMu.RLock()
	defer i.sessionMu.RUnlock()
	return i.session
}

// OnRedirect registers a callback fired when a re-evaluation moves the session away from its current path
func (i *Interceptor) OnRedirect(fn func(Result)) {
	i.redirectMu.Lock()
	defer i.redirectMu.Unlock()
	i.onRedirect = fn
}

// Navigate handles a link or programmatic navigation: allowed paths are pushed,
// denied ones replace the current entry with the redirect so Back does not return to them
func (i *Interceptor) Navigate(ctx context.Context, path string) (Result, error) {
	return i.run(ctx, "navigate", path, func(decision models.AccessDecision) {
		if decision.CanAccess {
			i.history.Push(path)
			return
		}
		i.history.Replace(decision.RedirectTo)
	})
}

// PopState handles back/forward: the history already points at path, so only a denial writes
func (i *Interceptor) PopState(ctx context.Context, path string) (Result, error) {
	return i.run(ctx, "popstate", path, func(decision models.AccessDecision) {
		if !decision.CanAccess {
			i.history.Replace(decision.RedirectTo)
		}
	})
}

// Reevaluate re-checks the current entry, e.g. after the session's license changed
func (i *Interceptor) Reevaluate(ctx context.Context) (Result, error) {
	current := i.history.Current()
	result, err := i.run(ctx, "reevaluate", current, func(decision models.AccessDecision) {
		if !decision.CanAccess {
			i.history.Replace(decision.RedirectTo)
		}
	})
	if err == nil && !result.Decision.CanAccess {
		i.redirectMu.RLock()
		fn := i.onRedirect
		i.redirectMu.RUnlock()
		if fn != nil {
			fn(result)
		}
	}
	return result, err
}

func (i *Interceptor) run(ctx context.Context, kind, path string, commit func(models.AccessDecision)) (Result, error) {
	gen := i.generation.Add(1)
	decision := i.evaluator.Evaluate(ctx, path, i.Session())

	i.commitMu.Lock()
	defer i.commitMu.Unlock()

	if i.generation.Load() != gen {
		i.logger.Debug("Discarding superseded navigation",
			zap.String("kind", kind),
			zap.String("path", path),
			zap.Uint64("generation", gen))
		metrics.RecordNavigation(kind, "superseded")
		return Result{Decision: decision}, models.ErrSuperseded
	}

	commit(decision)

	outcome := "allowed"
	if !decision.CanAccess {
		outcome = "redirected"
	}
	metrics.RecordNavigation(kind, outcome)

	return Result{Decision: decision, Current: i.history.Current()}, nil
}

// Watch re-evaluates the current entry whenever the session's license entry changes
// on any instance, or the whole cache is cleared. keyOf maps a user id to its cache key.
// Local updates are skipped: they come from this instance's own resolutions.
func (i *Interceptor) Watch(ctx context.Context, cache interfaces.SharedCache, keyOf func(userID string) string) (unsubscribe func()) {
	return cache.OnChange(func(event models.ChangeEvent) {
		if event.Type == models.MessageUpdate && !event.Remote {
			return
		}
		if event.Type != models.MessageClear {
			userID := i.Session().UserID
			if userID == "" || event.Key != keyOf(userID) {
				return
			}
		}

		go func() {
			if _, err := i.Reevaluate(ctx); err != nil && !errors.Is(err, models.ErrSuperseded) {
				i.logger.Warn("Re-evaluation failed", zap.Error(err))
			}
		}()
	})
}

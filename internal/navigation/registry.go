package navigation

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-route-guard/internal/interfaces"
	"go-route-guard/internal/models"
	"go-route-guard/internal/scheduler"
)

type registryEntry struct {
	interceptor *Interceptor
	history     *MemoryHistory
	unwatch     func()
	lastSeen    time.Time
}

// Registry keeps one interceptor per navigation session and evicts idle ones
type Registry struct {
	evaluator interfaces.AccessEvaluator
	cache     interfaces.SharedCache
	keyOf     func(userID string) string
	idleTTL   time.Duration
	clock     clock.Clock
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*registryEntry
	// onRedirect is attached to every interceptor the registry creates
	onRedirect func(sessionID string, result Result)

	ctx     context.Context
	cancel  context.CancelFunc
	evictor *scheduler.Scheduler
}

// NewRegistry creates a registry; cache may be nil to disable change watching
func NewRegistry(evaluator interfaces.AccessEvaluator, cache interfaces.SharedCache, keyOf func(string) string, idleTTL time.Duration, clk clock.Clock, logger *zap.Logger) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		evaluator: evaluator,
		cache:     cache,
		keyOf:     keyOf,
		idleTTL:   idleTTL,
		clock:     clk,
		logger:    logger,
		sessions:  make(map[string]*registryEntry),
		ctx:       ctx,
		cancel:    cancel,
	}
	r.evictor = scheduler.NewWithClock(idleTTL, func() { r.EvictIdle() }, clk)
	return r
}

// Start begins periodic eviction of idle sessions
func (r *Registry) Start() {
	r.evictor.Start()
}

// Stop halts eviction and detaches every interceptor from the cache
func (r *Registry) Stop() {
	r.evictor.Stop()
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, entry := range r.sessions {
		entry.unwatch()
		delete(r.sessions, id)
	}
}

// OnRedirect registers a callback for re-evaluations that moved a session away from its page
func (r *Registry) OnRedirect(fn func(sessionID string, result Result)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRedirect = fn
}

// Acquire returns the interceptor for sessionID, creating it when unknown.
// An empty sessionID allocates a new one. A session owned by another user is never
// handed out: the caller gets a fresh session id instead. An anonymous session is
// claimed by the first signed-in user that presents it. The session is refreshed on every call.
func (r *Registry) Acquire(sessionID string, session models.Session) (string, *Interceptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	entry, ok := r.sessions[sessionID]
	if ok && !ownedBy(entry, session.UserID) {
		r.logger.Warn("Navigation session belongs to another user, allocating a new one",
			zap.String("session_id", sessionID))
		sessionID = uuid.NewString()
		ok = false
	}

	if !ok {
		entry = r.newEntry(sessionID, session)
		r.sessions[sessionID] = entry
		r.logger.Debug("Created navigation session", zap.String("session_id", sessionID))
	} else {
		entry.interceptor.SetSession(session)
	}

	entry.lastSeen = r.clock.Now()
	return sessionID, entry.interceptor
}

// newEntry must be called with r.mu held
func (r *Registry) newEntry(sessionID string, session models.Session) *registryEntry {
	history := NewMemoryHistory("/")
	interceptor := NewInterceptor(r.evaluator, history, session, r.logger.With(zap.String("session_id", sessionID)))
	unwatch := func() {}
	if r.cache != nil {
		unwatch = interceptor.Watch(r.ctx, r.cache, r.keyOf)
	}

	interceptor.OnRedirect(func(result Result) {
		r.mu.Lock()
		fn := r.onRedirect
		r.mu.Unlock()
		if fn != nil {
			fn(sessionID, result)
		}
	})

	return &registryEntry{interceptor: interceptor, history: history, unwatch: unwatch}
}

func ownedBy(entry *registryEntry, userID string) bool {
	owner := entry.interceptor.Session().UserID
	return owner == "" || owner == userID
}

// Owns reports whether sessionID exists and may be used by userID
func (r *Registry) Owns(sessionID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sessionID]
	return ok && ownedBy(entry, userID)
}

// History returns the history of sessionID
func (r *Registry) History(sessionID string) (*MemoryHistory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return entry.history, true
}

// Release drops sessionID when userID may use it and stops watching the cache for it
func (r *Registry) Release(sessionID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sessionID]
	if !ok || !ownedBy(entry, userID) {
		return false
	}
	entry.unwatch()
	delete(r.sessions, sessionID)
	return true
}

// EvictIdle drops sessions not seen for the idle TTL and returns how many
func (r *Registry) EvictIdle() int {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, entry := range r.sessions {
		if now.Sub(entry.lastSeen) < r.idleTTL {
			continue
		}
		entry.unwatch()
		delete(r.sessions, id)
		evicted++
	}
	if evicted > 0 {
		r.logger.Debug("Evicted idle navigation sessions", zap.Int("count", evicted))
	}
	return evicted
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

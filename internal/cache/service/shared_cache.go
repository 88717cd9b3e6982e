package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"go-route-guard/internal/broadcast"
	"go-route-guard/internal/interfaces"
	"go-route-guard/internal/metrics"
	"go-route-guard/internal/models"
	"go-route-guard/internal/scheduler"
)

// Ensure SharedCache implements interfaces.SharedCache
var _ interfaces.SharedCache = (*SharedCache)(nil)

// Options configures a SharedCache
type Options struct {
	// Origin identifies this instance on the broadcast channel
	Origin        string
	Version       string
	SweepInterval time.Duration
	// MaxMessageAge drops remote messages older than this; 0 disables the check
	MaxMessageAge time.Duration
	Clock         clock.Clock
}

type keyStamp struct {
	stamp models.Stamp
	at    time.Time
}

// SharedCache keeps a local store in sync with other instances through a transport.
// Every write carries a Lamport stamp; a remote message is applied only when its
// stamp orders after everything this instance already holds for the key.
type SharedCache struct {
	store     interfaces.LocalStore
	transport interfaces.Transport
	markers   interfaces.VersionMarkerStore
	lamport   *broadcast.LamportClock
	clock     clock.Clock
	opts      Options
	logger    *zap.Logger

	mu         sync.Mutex
	stamps     map[string]keyStamp
	clearStamp models.Stamp

	listenersMu  sync.RWMutex
	listeners    map[uint64]func(models.ChangeEvent)
	nextListener uint64

	lifecycleMu sync.Mutex
	sweeper     *scheduler.Scheduler
	cancel      context.CancelFunc
	started     bool
}

// NewSharedCache creates a cache; call Start to join the broadcast channel
func NewSharedCache(store interfaces.LocalStore, transport interfaces.Transport, markers interfaces.VersionMarkerStore, opts Options, logger *zap.Logger) (*SharedCache, error) {
	if opts.Origin == "" {
		return nil, fmt.Errorf("shared cache origin cannot be empty")
	}
	if opts.Version == "" {
		return nil, fmt.Errorf("shared cache version cannot be empty")
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	c := &SharedCache{
		store:     store,
		transport: transport,
		markers:   markers,
		lamport:   broadcast.NewLamportClock(),
		clock:     opts.Clock,
		opts:      opts,
		logger:    logger.With(zap.String("origin", opts.Origin)),
		stamps:    make(map[string]keyStamp),
		listeners: make(map[uint64]func(models.ChangeEvent)),
	}
	c.sweeper = scheduler.NewWithClock(opts.SweepInterval, func() { c.Sweep() }, opts.Clock)
	return c, nil
}

// Start checks the version marker, subscribes to peers and starts the periodic sweep.
// A failing transport is logged and the cache keeps working as a single instance.
func (c *SharedCache) Start(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.started {
		return fmt.Errorf("shared cache already started")
	}

	c.checkVersion(ctx)

	subCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	if err := c.transport.Subscribe(subCtx, c.handleMessage); err != nil {
		c.logger.Warn("Broadcast subscription failed, running without peers", zap.Error(err))
		metrics.RecordCacheError("broadcast", "subscribe")
	}

	c.sweeper.Start()
	c.started = true

	c.logger.Info("Shared cache started",
		zap.String("version", c.opts.Version),
		zap.Duration("sweep_interval", c.opts.SweepInterval),
		zap.Duration("max_message_age", c.opts.MaxMessageAge))
	return nil
}

// Close stops the sweep, leaves the broadcast channel and empties the local store
func (c *SharedCache) Close() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.sweeper.Stop()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	err := c.transport.Close()

	c.mu.Lock()
	c.store.Clear()
	c.stamps = make(map[string]keyStamp)
	c.mu.Unlock()

	c.listenersMu.Lock()
	c.listeners = make(map[uint64]func(models.ChangeEvent))
	c.listenersMu.Unlock()

	c.started = false
	return err
}

func (c *SharedCache) checkVersion(ctx context.Context) {
	stored, found, err := c.markers.Load(ctx)
	if err != nil {
		c.logger.Warn("Failed to load cache version marker", zap.Error(err))
		metrics.RecordCacheError("marker", "load")
		return
	}

	if found && stored == c.opts.Version {
		return
	}

	if found {
		c.logger.Info("Cache version changed, clearing local store",
			zap.String("stored", stored),
			zap.String("current", c.opts.Version))
		c.mu.Lock()
		c.store.Clear()
		c.stamps = make(map[string]keyStamp)
		c.mu.Unlock()
	}

	if err := c.markers.Store(ctx, c.opts.Version); err != nil {
		c.logger.Warn("Failed to store cache version marker", zap.Error(err))
		metrics.RecordCacheError("marker", "store")
	}
}

// Get returns the data for key if present, fresh and written under the active version
func (c *SharedCache) Get(key string) ([]byte, bool) {
	entry, found := c.store.Get(key)
	if !found {
		return nil, false
	}
	return entry.Data, true
}

// Set stores data locally and broadcasts it to peers without waiting for them
func (c *SharedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if key == "" {
		return models.ErrEmptyKey
	}

	now := c.clock.Now()
	c.mu.Lock()
	stamp := c.nextStamp()
	c.store.Set(key, models.NewCacheEntry(data, ttl, c.opts.Version, now, stamp))
	c.stamps[key] = keyStamp{stamp: stamp, at: now}
	c.mu.Unlock()

	metrics.RecordCacheWrite(string(models.MessageUpdate), false)
	c.notify(models.ChangeEvent{Type: models.MessageUpdate, Key: key})
	c.publish(ctx, &models.Message{
		Type:      models.MessageUpdate,
		Key:       key,
		Data:      &models.MessageData{Data: data, TTL: ttl.Milliseconds()},
		Version:   c.opts.Version,
		Timestamp: now.UnixMilli(),
		Seq:       stamp.Seq,
		Origin:    stamp.Origin,
	})
	return nil
}

// Invalidate removes key locally and on peers. Invalidating an absent key is not an error.
func (c *SharedCache) Invalidate(ctx context.Context, key string) error {
	if key == "" {
		return models.ErrEmptyKey
	}

	now := c.clock.Now()
	c.mu.Lock()
	stamp := c.nextStamp()
	c.store.Delete(key)
	c.stamps[key] = keyStamp{stamp: stamp, at: now}
	c.mu.Unlock()

	metrics.RecordCacheWrite(string(models.MessageInvalidate), false)
	c.notify(models.ChangeEvent{Type: models.MessageInvalidate, Key: key})
	c.publish(ctx, &models.Message{
		Type:      models.MessageInvalidate,
		Key:       key,
		Timestamp: now.UnixMilli(),
		Seq:       stamp.Seq,
		Origin:    stamp.Origin,
	})
	return nil
}

// Clear empties the local store and every peer's store
func (c *SharedCache) Clear(ctx context.Context) error {
	now := c.clock.Now()
	c.mu.Lock()
	stamp := c.nextStamp()
	c.store.Clear()
	c.stamps = make(map[string]keyStamp)
	c.clearStamp = stamp
	c.mu.Unlock()

	metrics.RecordCacheWrite(string(models.MessageClear), false)
	c.notify(models.ChangeEvent{Type: models.MessageClear})
	c.publish(ctx, &models.Message{
		Type:      models.MessageClear,
		Timestamp: now.UnixMilli(),
		Seq:       stamp.Seq,
		Origin:    stamp.Origin,
	})
	return nil
}

// OnChange registers listener for every applied change, local or remote.
// Listeners run synchronously on the goroutine that applied the change.
func (c *SharedCache) OnChange(listener func(models.ChangeEvent)) func() {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = listener
	c.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			delete(c.listeners, id)
			c.listenersMu.Unlock()
		})
	}
}

// Sweep removes expired entries and forgets stamps of keys gone for a full sweep interval
func (c *SharedCache) Sweep() int {
	removed := c.store.Sweep()
	metrics.RecordSwept(removed)

	now := c.clock.Now()
	c.mu.Lock()
	for key, ks := range c.stamps {
		if now.Sub(ks.at) < c.opts.SweepInterval {
			continue
		}
		if _, present := c.store.Peek(key); !present {
			delete(c.stamps, key)
		}
	}
	c.mu.Unlock()

	metrics.UpdateCacheEntries(c.store.Len())
	if removed > 0 {
		c.logger.Debug("Swept expired cache entries", zap.Int("removed", removed))
	}
	return removed
}

// Origin returns the instance identifier used on the broadcast channel
func (c *SharedCache) Origin() string {
	return c.opts.Origin
}

// Len returns the number of entries in the local store
func (c *SharedCache) Len() int {
	return c.store.Len()
}

// nextStamp must be called with c.mu held
func (c *SharedCache) nextStamp() models.Stamp {
	return models.Stamp{Seq: c.lamport.Tick(), Origin: c.opts.Origin}
}

func (c *SharedCache) publish(ctx context.Context, msg *models.Message) {
	if err := c.transport.Publish(ctx, msg); err != nil {
		c.logger.Warn("Failed to broadcast cache change",
			zap.String("type", string(msg.Type)),
			zap.String("key", msg.Key),
			zap.Error(err))
		metrics.RecordBroadcast("out", string(msg.Type), "error")
		return
	}
	metrics.RecordBroadcast("out", string(msg.Type), "sent")
}

func (c *SharedCache) handleMessage(msg *models.Message) {
	if msg.Origin == c.opts.Origin {
		metrics.RecordBroadcast("in", string(msg.Type), "own")
		return
	}

	now := c.clock.Now()
	if c.opts.MaxMessageAge > 0 && msg.Timestamp > 0 &&
		now.Sub(time.UnixMilli(msg.Timestamp)) > c.opts.MaxMessageAge {
		c.logger.Debug("Dropping aged broadcast message",
			zap.String("type", string(msg.Type)),
			zap.String("key", msg.Key),
			zap.Int64("timestamp", msg.Timestamp))
		metrics.RecordBroadcast("in", string(msg.Type), "aged")
		return
	}

	c.lamport.Observe(msg.Seq)

	if msg.Type == models.MessageUpdate && msg.Version != c.opts.Version {
		c.logger.Debug("Dropping update written under another cache version",
			zap.String("key", msg.Key),
			zap.String("version", msg.Version),
			zap.String("current", c.opts.Version))
		metrics.RecordBroadcast("in", string(msg.Type), "version")
		return
	}

	applied := c.apply(msg, now)
	if !applied {
		metrics.RecordBroadcast("in", string(msg.Type), "stale")
		return
	}

	metrics.RecordBroadcast("in", string(msg.Type), "applied")
	metrics.RecordCacheWrite(string(msg.Type), true)
	c.notify(models.ChangeEvent{Type: msg.Type, Key: msg.Key, Remote: true})
}

func (c *SharedCache) apply(msg *models.Message, now time.Time) bool {
	stamp := msg.Stamp()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !stamp.After(c.clearStamp) {
		return false
	}

	switch msg.Type {
	case models.MessageUpdate, models.MessageInvalidate:
		if prev, ok := c.stamps[msg.Key]; ok && !stamp.After(prev.stamp) {
			return false
		}
		if msg.Type == models.MessageUpdate {
			written := now
			if msg.Timestamp > 0 && msg.Timestamp < now.UnixMilli() {
				written = time.UnixMilli(msg.Timestamp)
			}
			ttl := time.Duration(msg.Data.TTL) * time.Millisecond
			c.store.Set(msg.Key, models.NewCacheEntry(msg.Data.Data, ttl, c.opts.Version, written, stamp))
		} else {
			c.store.Delete(msg.Key)
		}
		c.stamps[msg.Key] = keyStamp{stamp: stamp, at: now}

	case models.MessageClear:
		// Writes this instance ordered after the clear survive it
		survivors := 0
		for key, ks := range c.stamps {
			if ks.stamp.After(stamp) {
				survivors++
				continue
			}
			c.store.Delete(key)
			delete(c.stamps, key)
		}
		if survivors == 0 {
			c.store.Clear()
		}
		c.clearStamp = stamp

	default:
		return false
	}
	return true
}

func (c *SharedCache) notify(event models.ChangeEvent) {
	c.listenersMu.RLock()
	listeners := make([]func(models.ChangeEvent), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.listenersMu.RUnlock()

	for _, listener := range listeners {
		c.safeCall(listener, event)
	}
}

func (c *SharedCache) safeCall(listener func(models.ChangeEvent), event models.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Cache change listener panicked",
				zap.String("type", string(event.Type)),
				zap.String("key", event.Key),
				zap.Any("panic", r))
		}
	}()
	listener(event)
}

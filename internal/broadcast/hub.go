package broadcast

import (
	"context"
	"sync"

	"go-route-guard/internal/interfaces"
	"go-route-guard/internal/models"
)

var _ interfaces.Transport = (*MemoryTransport)(nil)

type envelope struct {
	from    *MemoryTransport
	payload []byte
}

// Hub connects in-process transports, for single-binary multi-replica setups and tests.
// Messages are delivered synchronously to every member except the sender.
type Hub struct {
	mu      sync.Mutex
	members map[*MemoryTransport]struct{}
	paused  bool
	queue   []envelope
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{members: make(map[*MemoryTransport]struct{})}
}

// Join attaches a new transport to the hub
func (h *Hub) Join() *MemoryTransport {
	t := &MemoryTransport{hub: h}
	h.mu.Lock()
	h.members[t] = struct{}{}
	h.mu.Unlock()
	return t
}

// Pause queues published messages instead of delivering them
func (h *Hub) Pause() {
	h.mu.Lock()
	h.paused = true
	h.mu.Unlock()
}

// Flush resumes delivery and delivers queued messages in publish order.
// It returns the number of messages flushed.
func (h *Hub) Flush() int {
	h.mu.Lock()
	queued := h.queue
	h.queue = nil
	h.paused = false
	h.mu.Unlock()

	for _, env := range queued {
		h.deliver(env)
	}
	return len(queued)
}

// Drop resumes delivery and discards queued messages, simulating loss
func (h *Hub) Drop() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.queue)
	h.queue = nil
	h.paused = false
	return n
}

func (h *Hub) publish(env envelope) {
	h.mu.Lock()
	if h.paused {
		h.queue = append(h.queue, env)
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	h.deliver(env)
}

func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	targets := make([]*MemoryTransport, 0, len(h.members))
	for member := range h.members {
		if member != env.from {
			targets = append(targets, member)
		}
	}
	h.mu.Unlock()

	for _, target := range targets {
		target.receive(env.payload)
	}
}

func (h *Hub) leave(t *MemoryTransport) {
	h.mu.Lock()
	delete(h.members, t)
	h.mu.Unlock()
}

// MemoryTransport is a hub member
type MemoryTransport struct {
	hub     *Hub
	mu      sync.RWMutex
	handler interfaces.MessageHandler
	closed  bool
}

func (t *MemoryTransport) Publish(_ context.Context, msg *models.Message) error {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return models.ErrTransportClosed
	}

	payload, err := Encode(msg)
	if err != nil {
		return err
	}
	t.hub.publish(envelope{from: t, payload: payload})
	return nil
}

// Subscribe installs the handler; it is removed when ctx is done
func (t *MemoryTransport) Subscribe(ctx context.Context, handler interfaces.MessageHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return models.ErrTransportClosed
	}
	t.handler = handler

	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			t.mu.Lock()
			t.handler = nil
			t.mu.Unlock()
		}()
	}
	return nil
}

func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.handler = nil
	t.mu.Unlock()
	t.hub.leave(t)
	return nil
}

func (t *MemoryTransport) receive(payload []byte) {
	t.mu.RLock()
	handler := t.handler
	t.mu.RUnlock()
	if handler == nil {
		return
	}

	msg, err := Decode(payload)
	if err != nil {
		return
	}
	handler(msg)
}

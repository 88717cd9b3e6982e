package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-route-guard/internal/models"
)

type recorder struct {
	mu   sync.Mutex
	msgs []*models.Message
}

func (r *recorder) handle(msg *models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func clearMsg(origin string, seq uint64) *models.Message {
	return &models.Message{Type: models.MessageClear, Origin: origin, Seq: seq}
}

func TestHub_DeliversToOthersOnly(t *testing.T) {
	hub := NewHub()
	a, b, c := hub.Join(), hub.Join(), hub.Join()
	var ra, rb, rc recorder

	ctx := context.Background()
	require.NoError(t, a.Subscribe(ctx, ra.handle))
	require.NoError(t, b.Subscribe(ctx, rb.handle))
	require.NoError(t, c.Subscribe(ctx, rc.handle))

	require.NoError(t, a.Publish(ctx, clearMsg("a", 1)))

	assert.Equal(t, 0, ra.count())
	assert.Equal(t, 1, rb.count())
	assert.Equal(t, 1, rc.count())
	assert.Equal(t, "a", rb.msgs[0].Origin)
}

func TestHub_PauseFlushDrop(t *testing.T) {
	hub := NewHub()
	a, b := hub.Join(), hub.Join()
	var rb recorder
	ctx := context.Background()
	require.NoError(t, b.Subscribe(ctx, rb.handle))

	hub.Pause()
	require.NoError(t, a.Publish(ctx, clearMsg("a", 1)))
	require.NoError(t, a.Publish(ctx, clearMsg("a", 2)))
	assert.Equal(t, 0, rb.count())

	assert.Equal(t, 2, hub.Flush())
	require.Equal(t, 2, rb.count())
	assert.Equal(t, uint64(1), rb.msgs[0].Seq)
	assert.Equal(t, uint64(2), rb.msgs[1].Seq)

	hub.Pause()
	require.NoError(t, a.Publish(ctx, clearMsg("a", 3)))
	assert.Equal(t, 1, hub.Drop())
	assert.Equal(t, 2, rb.count())

	// Delivery resumes after Drop
	require.NoError(t, a.Publish(ctx, clearMsg("a", 4)))
	assert.Equal(t, 3, rb.count())
}

func TestMemoryTransport_Close(t *testing.T) {
	hub := NewHub()
	a, b := hub.Join(), hub.Join()
	var rb recorder
	ctx := context.Background()
	require.NoError(t, b.Subscribe(ctx, rb.handle))

	require.NoError(t, b.Close())
	require.NoError(t, a.Publish(ctx, clearMsg("a", 1)))
	assert.Equal(t, 0, rb.count())

	assert.ErrorIs(t, b.Publish(ctx, clearMsg("b", 1)), models.ErrTransportClosed)
	assert.ErrorIs(t, b.Subscribe(ctx, rb.handle), models.ErrTransportClosed)
}

func TestMemoryTransport_SubscribeContextCancel(t *testing.T) {
	hub := NewHub()
	a, b := hub.Join(), hub.Join()
	var rb recorder

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Subscribe(ctx, rb.handle))
	cancel()

	assert.Eventually(t, func() bool {
		b.mu.RLock()
		defer b.mu.RUnlock()
		return b.handler == nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, a.Publish(context.Background(), clearMsg("a", 1)))
	assert.Equal(t, 0, rb.count())
}

func TestMemoryTransport_PublishInvalid(t *testing.T) {
	hub := NewHub()
	a := hub.Join()

	err := a.Publish(context.Background(), &models.Message{Type: models.MessageInvalidate, Origin: "a"})
	assert.ErrorIs(t, err, models.ErrEmptyKey)
}

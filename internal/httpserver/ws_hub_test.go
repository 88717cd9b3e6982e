package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testUserHeader = "X-Test-User"

func newRunningHub(t *testing.T) (*Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()
	hub := NewHub(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Connect(w, r, Subscriber{
			UserID:    r.Header.Get(testUserHeader),
			SessionID: r.URL.Query().Get("session_id"),
		})
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(cancel)
	return hub, ts, cancel
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub, ts, _ := newRunningHub(t)

	a := dial(t, ts.URL, "s1")
	defer a.Close()
	b := dial(t, ts.URL, "")
	defer b.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(WSMessage{Type: MessageReevaluate, Data: ReevaluateData{}})

	assert.Equal(t, MessageReevaluate, readMessage(t, a).Type)
	assert.Equal(t, MessageReevaluate, readMessage(t, b).Type)
}

func TestHub_SendToTargetsSession(t *testing.T) {
	hub, ts, _ := newRunningHub(t)

	target := dial(t, ts.URL, "s1")
	defer target.Close()
	other := dial(t, ts.URL, "s2")
	defer other.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.SendTo("s1", WSMessage{Type: MessageRedirect, Data: map[string]string{"current": "/sign-in"}})
	hub.SendTo("", WSMessage{Type: MessageRedirect})

	msg := readMessage(t, target)
	assert.Equal(t, MessageRedirect, msg.Type)
	assert.Equal(t, map[string]interface{}{"current": "/sign-in"}, msg.Data)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestHub_PingIsAnswered(t *testing.T) {
	hub, ts, _ := newRunningHub(t)

	conn := dial(t, ts.URL, "")
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessagePing}))
	assert.Equal(t, MessagePong, readMessage(t, conn).Type)
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	hub, ts, _ := newRunningHub(t)

	conn := dial(t, ts.URL, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub, ts, cancel := newRunningHub(t)

	conn := dial(t, ts.URL, "")
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_SendToUserTargetsUser(t *testing.T) {
	hub, ts, _ := newRunningHub(t)

	owner := dialWith(t, ts.URL, "", http.Header{testUserHeader: []string{"u1"}})
	defer owner.Close()
	stranger := dialWith(t, ts.URL, "", http.Header{testUserHeader: []string{"u2"}})
	defer stranger.Close()
	anonymous := dial(t, ts.URL, "")
	defer anonymous.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 3 }, time.Second, 10*time.Millisecond)

	hub.SendToUser("u1", WSMessage{Type: MessageReevaluate, Data: ReevaluateData{Key: "license:u1"}})
	hub.SendToUser("", WSMessage{Type: MessageReevaluate})

	msg := readMessage(t, owner)
	assert.Equal(t, map[string]interface{}{"key": "license:u1"}, msg.Data)

	for _, conn := range []*websocket.Conn{stranger, anonymous} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
		_, _, err := conn.ReadMessage()
		assert.Error(t, err)
	}
}

package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"go-route-guard/internal/access"
	"go-route-guard/internal/config"
	"go-route-guard/internal/interfaces/mock"
	"go-route-guard/internal/models"
	"go-route-guard/internal/navigation"
	"go-route-guard/internal/routes"
	"go-route-guard/internal/session"
	"go-route-guard/internal/utils"
)

const (
	testSecret     = "server-test-secret"
	testAdminToken = "admin-token"
)

const testRoutes = `
public: [/, /sign-in, /pricing]
auth_required: [/verify-email, /renew, /no-license]
license_required: [/dashboard]
email_confirmation_required: [/dashboard]
redirects:
  sign_in: /sign-in
  verify_email: /verify-email
  renew: /renew
  no_license: /no-license
  unclassified: /
unclassified_policy: deny
`

type fixture struct {
	server   *Server
	licenses *mock.MockLicenseResolver
	cache    *mock.MockSharedCache
	listener func(models.ChangeEvent)
	registry *navigation.Registry
}

func newFixture(t *testing.T, upstream http.Handler) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := zaptest.NewLogger(t)

	classifier, err := routes.ParseRoutesYAML([]byte(testRoutes), logger)
	require.NoError(t, err)

	f := &fixture{
		licenses: mock.NewMockLicenseResolver(ctrl),
		cache:    mock.NewMockSharedCache(ctrl),
	}
	f.cache.EXPECT().OnChange(gomock.Any()).DoAndReturn(func(listener func(models.ChangeEvent)) func() {
		f.listener = listener
		return func() {}
	})

	evaluator := access.NewEvaluator(classifier, f.licenses, logger)
	f.registry = navigation.NewRegistry(evaluator, nil, func(id string) string { return "license:" + id }, time.Hour, clock.NewMock(), logger)

	parser, err := session.NewParser(testSecret, "authenticated", logger)
	require.NoError(t, err)

	cfg := config.Default().Server
	f.server = NewServer(&cfg, Deps{
		Evaluator:  evaluator,
		Licenses:   f.licenses,
		Cache:      f.cache,
		Registry:   f.registry,
		Sessions:   parser,
		AdminToken: testAdminToken,
		Upstream:   upstream,
	}, logger)
	return f
}

func token(t *testing.T, confirmed bool) string {
	t.Helper()
	return tokenFor(t, "u1", confirmed)
}

func tokenFor(t *testing.T, userID string, confirmed bool) string {
	t.Helper()
	signed, _, err := session.Issue(testSecret, userID, userID+"@example.com", "authenticated", confirmed, time.Hour)
	require.NoError(t, err)
	return signed
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestAccessCheck(t *testing.T) {
	f := newFixture(t, nil)
	f.licenses.EXPECT().Resolve(gomock.Any(), "u1").Return(models.LicenseState{Kind: models.LicenseActive})

	tests := []struct {
		name       string
		path       string
		bearer     string
		wantAccess bool
		wantTarget string
		wantReason models.Reason
	}{
		{name: "public anonymous", path: "/pricing", wantAccess: true, wantReason: models.ReasonPublic},
		{name: "protected anonymous", path: "/dashboard", wantTarget: "/sign-in", wantReason: models.ReasonUnauthenticated},
		{name: "invalid token is anonymous", path: "/dashboard", bearer: "garbage", wantTarget: "/sign-in", wantReason: models.ReasonUnauthenticated},
		{name: "unconfirmed email", path: "/dashboard", bearer: token(t, false), wantTarget: "/verify-email", wantReason: models.ReasonEmailNotConfirmed},
		{name: "active license", path: "/dashboard", bearer: token(t, true), wantAccess: true, wantReason: models.ReasonLicenseActive},
		{name: "unclassified", path: "/admin", bearer: token(t, true), wantTarget: "/", wantReason: models.ReasonUnclassifiedDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/access/check", tt.bearer, AccessCheckRequest{Path: tt.path})

			require.Equal(t, http.StatusOK, w.Code)
			resp := decode[AccessCheckResponse](t, w)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.path, resp.Path)
			assert.Equal(t, tt.wantAccess, resp.Decision.CanAccess)
			assert.Equal(t, tt.wantTarget, resp.Decision.RedirectTo)
			assert.Equal(t, tt.wantReason, resp.Decision.Reason)
		})
	}
}

func TestAccessCheck_BadRequest(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/access/check", "", AccessCheckRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "path")

	req := httptest.NewRequest(http.MethodPost, "/access/check", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNavigation_NavigateAndPopState(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/navigation/navigate", "", NavigationRequest{Path: "/pricing"})
	require.Equal(t, http.StatusOK, w.Code)
	first := decode[NavigationResponse](t, w)
	require.NotEmpty(t, first.SessionID)
	assert.Equal(t, "/pricing", first.Current)
	assert.Equal(t, []string{"/", "/pricing"}, first.History)
	assert.Equal(t, 1, first.Index)

	w = f.do(t, http.MethodPost, "/navigation/navigate", "", NavigationRequest{SessionID: first.SessionID, Path: "/dashboard"})
	require.Equal(t, http.StatusOK, w.Code)
	denied := decode[NavigationResponse](t, w)
	assert.Equal(t, first.SessionID, denied.SessionID)
	assert.False(t, denied.Decision.CanAccess)
	assert.Equal(t, "/sign-in", denied.Current)
	assert.Equal(t, []string{"/", "/sign-in"}, denied.History)

	w = f.do(t, http.MethodPost, "/navigation/popstate", "", NavigationRequest{SessionID: first.SessionID, Path: "/dashboard"})
	require.Equal(t, http.StatusOK, w.Code)
	popped := decode[NavigationResponse](t, w)
	assert.Equal(t, "/sign-in", popped.Current)
	assert.Equal(t, 1, f.registry.Len())

	w = f.do(t, http.MethodPost, "/navigation/release", "", ReleaseRequest{SessionID: first.SessionID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, f.registry.Len())
}

func TestNavigation_BadRequest(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/navigation/navigate", "", NavigationRequest{}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/navigation/release", "", ReleaseRequest{}).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, "/navigation/navigate", "", nil).Code)
}

func TestLicenseInvalidate(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/license/invalidate", "", InvalidateRequest{UserID: "u1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/license/invalidate", "wrong", InvalidateRequest{UserID: "u1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	f.licenses.EXPECT().CacheKey("").Return("")
	w = f.do(t, http.MethodPost, "/license/invalidate", testAdminToken, InvalidateRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.licenses.EXPECT().CacheKey("u1").Return("license:u1")
	f.licenses.EXPECT().Invalidate(gomock.Any(), "u1")
	w = f.do(t, http.MethodPost, "/license/invalidate", testAdminToken, InvalidateRequest{UserID: "u1"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[AdminResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "license:u1", resp.Key)
}

func TestCacheClear(t *testing.T) {
	f := newFixture(t, nil)

	f.cache.EXPECT().Clear(gomock.Any()).Return(nil)
	w := f.do(t, http.MethodPost, "/cache/clear", testAdminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	f.cache.EXPECT().Clear(gomock.Any()).Return(errors.New("publish failed"))
	w = f.do(t, http.MethodPost, "/cache/clear", testAdminToken, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[utils.ErrorResponse](t, w)
	assert.Equal(t, "Cache clear failed", resp.Error)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]interface{}](t, w)
	assert.Equal(t, "healthy", health["status"])
	assert.EqualValues(t, 0, health["sessions"])

	w = f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuard_UpstreamIsProtected(t *testing.T) {
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "app:"+r.URL.Path)
	})
	f := newFixture(t, upstream)
	f.licenses.EXPECT().Resolve(gomock.Any(), "u1").Return(models.LicenseState{Kind: models.LicenseExpired})

	w := f.do(t, http.MethodGet, "/pricing", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "app:/pricing", w.Body.String())

	w = f.do(t, http.MethodGet, "/dashboard", "", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/sign-in", w.Header().Get("Location"))
	assert.Equal(t, string(models.ReasonUnauthenticated), w.Header().Get(ReasonHeader))

	w = f.do(t, http.MethodGet, "/dashboard", token(t, true), nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/renew", w.Header().Get("Location"))
}

func TestGuard_WithoutUpstreamUnknownPathsAre404(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/dashboard", "", nil).Code)
}

func TestCacheChangesArePushedToTheirUser(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.server.Hub().Run(ctx)

	owner := dialWith(t, ts.URL, "", bearerHeader(token(t, true)))
	defer owner.Close()
	anonymous := dial(t, ts.URL, "")
	defer anonymous.Close()
	require.Eventually(t, func() bool { return f.server.Hub().ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	require.NotNil(t, f.listener)
	f.listener(models.ChangeEvent{Type: models.MessageInvalidate, Key: "license:u1", Remote: true})
	f.listener(models.ChangeEvent{Type: models.MessageUpdate, Key: "unrelated", Remote: true})

	msg := readMessage(t, owner)
	assert.Equal(t, MessageReevaluate, msg.Type)
	assert.Equal(t, map[string]interface{}{"key": "license:u1"}, msg.Data)

	// A clear concerns everyone, and is the first thing the anonymous client sees
	f.listener(models.ChangeEvent{Type: models.MessageClear, Remote: true})
	msg = readMessage(t, anonymous)
	assert.Equal(t, MessageReevaluate, msg.Type)
	assert.Equal(t, map[string]interface{}{"key": ""}, msg.Data)
	assert.Equal(t, MessageReevaluate, readMessage(t, owner).Type)
}

func TestWebSocketSessionSubscriptionRequiresOwnership(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.server.Hub().Run(ctx)

	sessionID, _ := f.registry.Acquire("", models.Session{UserID: "u1", Authenticated: true, EmailConfirmed: true})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session_id=" + sessionID

	for name, header := range map[string]http.Header{
		"anonymous":  nil,
		"other user": bearerHeader(tokenFor(t, "u2", true)),
	} {
		conn, resp, err := websocket.DefaultDialer.Dial(url, header)
		if conn != nil {
			_ = conn.Close()
		}
		require.Error(t, err, name)
		require.NotNil(t, resp, name)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, name)
	}

	conn := dialWith(t, ts.URL, sessionID, bearerHeader(token(t, true)))
	defer conn.Close()
	require.Eventually(t, func() bool { return f.server.Hub().ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestAdminEndpointsDisabledWithoutToken(t *testing.T) {
	f := newFixture(t, nil)
	f.server.deps.AdminToken = ""

	for _, path := range []string{"/cache/clear", "/license/invalidate"} {
		w := f.do(t, http.MethodPost, path, "", InvalidateRequest{UserID: "u1"})
		assert.Equal(t, http.StatusForbidden, w.Code, path)
		w = f.do(t, http.MethodPost, path, "anything", InvalidateRequest{UserID: "u1"})
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
}

func TestNavigation_SessionOfAnotherUserIsNotShared(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/navigation/navigate", tokenFor(t, "u2", true), NavigationRequest{Path: "/pricing"})
	require.Equal(t, http.StatusOK, w.Code)
	owned := decode[NavigationResponse](t, w)

	w = f.do(t, http.MethodPost, "/navigation/navigate", tokenFor(t, "u3", true), NavigationRequest{SessionID: owned.SessionID, Path: "/"})
	require.Equal(t, http.StatusOK, w.Code)
	other := decode[NavigationResponse](t, w)
	assert.NotEqual(t, owned.SessionID, other.SessionID)
	assert.Equal(t, []string{"/", "/"}, other.History)

	w = f.do(t, http.MethodPost, "/navigation/release", tokenFor(t, "u3", true), ReleaseRequest{SessionID: owned.SessionID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 2, f.registry.Len())

	w = f.do(t, http.MethodPost, "/navigation/release", tokenFor(t, "u2", true), ReleaseRequest{SessionID: owned.SessionID})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewUpstreamProxy(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewUpstreamProxy("not a url", logger)
	assert.Error(t, err)
	_, err = NewUpstreamProxy("/relative", logger)
	assert.Error(t, err)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "backend:"+r.URL.Path)
	}))
	proxy, err := NewUpstreamProxy(backend.URL, logger)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	proxy.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "backend:/dashboard", w.Body.String())

	backend.Close()
	w = httptest.NewRecorder()
	proxy.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func dial(t *testing.T, serverURL, sessionID string) *websocket.Conn {
	t.Helper()
	return dialWith(t, serverURL, sessionID, nil)
}

func dialWith(t *testing.T, serverURL, sessionID string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	if sessionID != "" {
		url += "?session_id=" + sessionID
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	return conn
}

func bearerHeader(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestServer_StartStopOnUnixSocket(t *testing.T) {
	f := newFixture(t, nil)
	socket := filepath.Join(t.TempDir(), "guard.sock")
	f.server.cfg.SocketPath = socket

	errCh := make(chan error, 1)
	go func() { errCh <- f.server.Start() }()

	client := &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(ctx, "unix", socket)
		},
	}}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://guard/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, f.server.Stop(context.Background()))
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestServer_StopBeforeStart(t *testing.T) {
	f := newFixture(t, nil)
	f.server.cfg.Addr = "127.0.0.1:0"

	require.NoError(t, f.server.Stop(context.Background()))
	assert.NoError(t, f.server.Start())
}

package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-route-guard/internal/cache"
	"go-route-guard/internal/config"
	"go-route-guard/internal/interfaces"
	"go-route-guard/internal/models"
	"go-route-guard/internal/navigation"
	"go-route-guard/internal/utils"
)

// Deps are the components the HTTP surface serves
type Deps struct {
	Evaluator interfaces.AccessEvaluator
	Licenses  interfaces.LicenseResolver
	Cache     interfaces.SharedCache
	Registry  *navigation.Registry
	Sessions  SessionParser
	// AdminToken protects the invalidate and clear endpoints; empty disables them
	AdminToken string
	// Upstream, when set, serves every other path behind Guard
	Upstream http.Handler
}

var licenseKeys = cache.NewKeyBuilder(cache.LicenseNamespace)

// Server represents the route guard HTTP server
type Server struct {
	cfg    *config.ServerConfig
	deps   Deps
	hub    *Hub
	logger *zap.Logger

	mu          sync.Mutex
	server      *http.Server
	hubCancel   context.CancelFunc
	unsubscribe func()
	stopped     bool
}

// NewServer creates the HTTP server and connects cache changes and
// navigation redirects to the WebSocket hub
func NewServer(cfg *config.ServerConfig, deps Deps, logger *zap.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		deps:        deps,
		hub:         NewHub(logger.Named("ws")),
		logger:      logger,
		unsubscribe: func() {},
	}

	if deps.Cache != nil {
		s.unsubscribe = deps.Cache.OnChange(s.pushChange)
	}
	if deps.Registry != nil {
		deps.Registry.OnRedirect(func(sessionID string, result navigation.Result) {
			s.hub.SendTo(sessionID, WSMessage{Type: MessageRedirect, Data: result})
		})
	}
	return s
}

// pushChange asks the affected clients to re-check their route: a clear reaches
// everyone, a license change only the clients signed in as that user
func (s *Server) pushChange(event models.ChangeEvent) {
	if event.Type == models.MessageClear {
		s.hub.Broadcast(WSMessage{Type: MessageReevaluate, Data: ReevaluateData{}})
		return
	}
	userID, ok := licenseKeys.Parse(event.Key)
	if !ok {
		return
	}
	s.hub.SendToUser(userID, WSMessage{Type: MessageReevaluate, Data: ReevaluateData{Key: event.Key}})
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start serves on the configured Unix socket or TCP address until Stop is called
func (s *Server) Start() error {
	listener, err := s.listen()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		_ = listener.Close()
		return nil
	}
	hubCtx, cancel := context.WithCancel(context.Background())
	go s.hub.Run(hubCtx)
	s.hubCancel = cancel
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("Starting route guard HTTP server", zap.String("addr", listener.Addr().String()))
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) listen() (net.Listener, error) {
	if s.cfg.SocketPath == "" {
		return net.Listen("tcp", s.cfg.Addr)
	}

	if err := os.RemoveAll(s.cfg.SocketPath); err != nil {
		s.logger.Warn("Failed to remove existing socket file", zap.String("path", s.cfg.SocketPath), zap.Error(err))
	}
	listener, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(s.cfg.SocketPath, 0660); err != nil {
		s.logger.Warn("Failed to set socket permissions", zap.String("path", s.cfg.SocketPath), zap.Error(err))
	}
	return listener, nil
}

// Stop stops the HTTP server and disconnects WebSocket clients
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping route guard HTTP server")
	s.unsubscribe()

	s.mu.Lock()
	s.stopped = true
	srv, cancel := s.server, s.hubCancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/access/check", s.handleAccessCheck).Methods("POST")

	router.HandleFunc("/navigation/navigate", s.handleNavigate).Methods("POST")
	router.HandleFunc("/navigation/popstate", s.handlePopState).Methods("POST")
	router.HandleFunc("/navigation/release", s.handleRelease).Methods("POST")

	router.Handle("/license/invalidate", s.requireAdmin(http.HandlerFunc(s.handleInvalidate))).Methods("POST")
	router.Handle("/cache/clear", s.requireAdmin(http.HandlerFunc(s.handleClear))).Methods("POST")

	router.HandleFunc("/ws", s.handleWebSocket).Methods("GET")
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	if s.deps.Upstream != nil {
		router.PathPrefix("/").Handler(s.Guard(s.deps.Upstream))
	}

	return router
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sessions := 0
	if s.deps.Registry != nil {
		sessions = s.deps.Registry.Len()
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "healthy",
		"time":              time.Now().UTC(),
		"sessions":          sessions,
		"websocket_clients": s.hub.ClientCount(),
	}, s.logger)
}

package httpserver

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"go-route-guard/internal/models"
	"go-route-guard/internal/navigation"
	"go-route-guard/internal/utils"
)

type navigateFunc func(i *navigation.Interceptor, ctx context.Context, path string) (navigation.Result, error)

// handleAccessCheck evaluates a path for the caller's session
func (s *Server) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	var req AccessCheckRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request", s.logger)
		return
	}
	if req.Path == "" {
		utils.WriteError(w, http.StatusBadRequest, "Missing required field: path", s.logger)
		return
	}

	session := s.deps.Sessions.FromRequest(r)
	decision := s.deps.Evaluator.Evaluate(r.Context(), req.Path, session)

	utils.WriteJSON(w, http.StatusOK, &AccessCheckResponse{
		Success:  true,
		Path:     req.Path,
		Decision: decision,
	}, s.logger)
}

// handleNavigate pushes a new path onto the session history
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	s.handleNavigation(w, r, (*navigation.Interceptor).Navigate)
}

// handlePopState evaluates a path reached through back/forward
func (s *Server) handlePopState(w http.ResponseWriter, r *http.Request) {
	s.handleNavigation(w, r, (*navigation.Interceptor).PopState)
}

func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request, navigate navigateFunc) {
	var req NavigationRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request", s.logger)
		return
	}
	if req.Path == "" {
		utils.WriteError(w, http.StatusBadRequest, "Missing required field: path", s.logger)
		return
	}

	session := s.deps.Sessions.FromRequest(r)
	sessionID, interceptor := s.deps.Registry.Acquire(req.SessionID, session)

	result, err := navigate(interceptor, r.Context(), req.Path)
	if errors.Is(err, models.ErrSuperseded) {
		utils.WriteError(w, http.StatusConflict, err.Error(), s.logger)
		return
	}
	if err != nil {
		s.logger.Error("Navigation failed", zap.String("session_id", sessionID), zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Navigation failed", s.logger)
		return
	}

	resp := &NavigationResponse{
		Success:   true,
		SessionID: sessionID,
		Current:   result.Current,
		Decision:  result.Decision,
	}
	if history, ok := s.deps.Registry.History(sessionID); ok {
		resp.History, resp.Index = history.Entries()
	}
	utils.WriteJSON(w, http.StatusOK, resp, s.logger)
}

// handleRelease ends a navigation session
func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	var req ReleaseRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request", s.logger)
		return
	}
	if req.SessionID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Missing required field: session_id", s.logger)
		return
	}

	if !s.deps.Registry.Release(req.SessionID, s.deps.Sessions.FromRequest(r).UserID) {
		utils.WriteError(w, http.StatusNotFound, "Unknown session", s.logger)
		return
	}
	utils.WriteJSON(w, http.StatusOK, &AdminResponse{Success: true}, s.logger)
}

// handleInvalidate drops a user's cached license on every instance
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request", s.logger)
		return
	}
	key := s.deps.Licenses.CacheKey(req.UserID)
	if key == "" {
		utils.WriteError(w, http.StatusBadRequest, "Missing required field: user_id", s.logger)
		return
	}

	s.deps.Licenses.Invalidate(r.Context(), req.UserID)
	s.logger.Info("License invalidated", zap.String("key", key))
	utils.WriteJSON(w, http.StatusOK, &AdminResponse{Success: true, Key: key}, s.logger)
}

// handleClear empties the shared cache on every instance
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Cache.Clear(r.Context()); err != nil {
		s.logger.Error("Cache clear failed", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Cache clear failed", s.logger)
		return
	}
	s.logger.Info("Shared cache cleared")
	utils.WriteJSON(w, http.StatusOK, &AdminResponse{Success: true}, s.logger)
}

// handleWebSocket subscribes the caller to pushes for its own user and, with the
// session_id query parameter, to redirects of a navigation session it owns
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess := s.deps.Sessions.FromRequest(r)
	sessionID := r.URL.Query().Get("session_id")
	if sessionID != "" && (s.deps.Registry == nil || !s.deps.Registry.Owns(sessionID, sess.UserID)) {
		utils.WriteError(w, http.StatusForbidden, "Unknown session", s.logger)
		return
	}
	s.hub.Connect(w, r, Subscriber{UserID: sess.UserID, SessionID: sessionID})
}

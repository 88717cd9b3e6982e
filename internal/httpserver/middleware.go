package httpserver

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"

	"go-route-guard/internal/session"
	"go-route-guard/internal/utils"
)

// ReasonHeader names the decision reason on guard redirects
const ReasonHeader = "X-Route-Guard-Reason"

// Guard evaluates the request path for the caller's session and redirects
// with 303 See Other when access is denied
func (s *Server) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.deps.Sessions.FromRequest(r)
		decision := s.deps.Evaluator.Evaluate(r.Context(), r.URL.Path, sess)
		if !decision.CanAccess {
			w.Header().Set(ReasonHeader, string(decision.Reason))
			http.Redirect(w, r, decision.RedirectTo, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin admits only the configured admin bearer token; without one the endpoint is disabled
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.AdminToken == "" {
			utils.WriteError(w, http.StatusForbidden, "Administrative endpoints are disabled", s.logger)
			return
		}
		token := session.BearerToken(r)
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.deps.AdminToken)) != 1 {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewUpstreamProxy reverse proxies to rawURL, answering 502 when the upstream fails
func NewUpstreamProxy(rawURL string, logger *zap.Logger) (http.Handler, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q: scheme and host are required", rawURL)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("Upstream request failed", zap.String("path", r.URL.Path), zap.Error(err))
		utils.WriteError(w, http.StatusBadGateway, "Upstream unavailable", logger)
	}
	return proxy, nil
}

package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"go-route-guard/internal/models"
)

// CookieName is checked when no Authorization header is present
const CookieName = "sb-access-token"

// Claims is the subset of an auth-provider access token the guard relies on
type Claims struct {
	Email            string       `json:"email,omitempty"`
	EmailConfirmedAt string       `json:"email_confirmed_at,omitempty"`
	EmailVerified    *bool        `json:"email_verified,omitempty"`
	UserMetadata     UserMetadata `json:"user_metadata,omitempty"`
	Role             string       `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserMetadata carries provider-specific profile flags
type UserMetadata struct {
	EmailVerified *bool `json:"email_verified,omitempty"`
}

// EmailConfirmed reports whether any of the supported claims marks the email as confirmed
func (c *Claims) EmailConfirmed() bool {
	if c.EmailConfirmedAt != "" {
		return true
	}
	if c.EmailVerified != nil {
		return *c.EmailVerified
	}
	if c.UserMetadata.EmailVerified != nil {
		return *c.UserMetadata.EmailVerified
	}
	return false
}

// Parser turns HS256 access tokens into sessions
type Parser struct {
	secret   []byte
	audience string
	logger   *zap.Logger
}

func NewParser(secret, audience string, logger *zap.Logger) (*Parser, error) {
	if secret == "" {
		return nil, errors.New("session JWT secret cannot be empty")
	}
	return &Parser{secret: []byte(secret), audience: audience, logger: logger}, nil
}

// Parse validates token and returns the authenticated session it describes
func (p *Parser) Parse(token string) (models.Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if p.audience != "" {
		opts = append(opts, jwt.WithAudience(p.audience))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...); err != nil {
		return models.Session{}, fmt.Errorf("invalid access token: %w", err)
	}

	if claims.Subject == "" {
		return models.Session{}, errors.New("invalid access token: missing subject")
	}

	return models.Session{
		UserID:         claims.Subject,
		Email:          claims.Email,
		Authenticated:  true,
		EmailConfirmed: claims.EmailConfirmed(),
	}, nil
}

// FromRequest extracts the session from the bearer header or the access-token cookie.
// A missing or invalid token yields an unauthenticated session.
func (p *Parser) FromRequest(r *http.Request) models.Session {
	token := BearerToken(r)
	if token == "" {
		if cookie, err := r.Cookie(CookieName); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return models.Session{}
	}

	session, err := p.Parse(token)
	if err != nil {
		p.logger.Debug("Rejected access token", zap.String("path", r.URL.Path), zap.Error(err))
		return models.Session{}
	}
	return session
}

// BearerToken returns the token of an "Authorization: Bearer" header, or ""
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Issue signs an access token for userID, for local development and tests
func Issue(secret, userID, email, audience string, emailConfirmed bool, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	if emailConfirmed {
		claims.EmailConfirmedAt = now.UTC().Format(time.RFC3339)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	return signed, exp, err
}

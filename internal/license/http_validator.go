package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"go-route-guard/internal/interfaces"
	"go-route-guard/internal/models"
)

// Ensure HTTPValidator implements interfaces.LicenseValidator
var _ interfaces.LicenseValidator = (*HTTPValidator)(nil)

const (
	serviceTokenLifetime = time.Hour
	maxErrorBodyBytes    = 512
)

// HTTPValidatorOptions configures the PostgREST-style validator
type HTTPValidatorOptions struct {
	BaseURL      string
	FunctionName string
	APIKey       string
	// JWTSecret, when set, is used to mint a service_role bearer token; otherwise APIKey is sent as the bearer
	JWTSecret string
	Timeout   time.Duration
}

// HTTPValidator calls the license function through a REST RPC endpoint
type HTTPValidator struct {
	opts     HTTPValidatorOptions
	endpoint string
	client   *http.Client
	logger   *zap.Logger

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

// NewHTTPValidator creates a validator posting to {BaseURL}/rest/v1/rpc/{FunctionName}
func NewHTTPValidator(opts HTTPValidatorOptions, client *http.Client, logger *zap.Logger) (*HTTPValidator, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("license validator base URL is required")
	}
	if opts.FunctionName == "" {
		return nil, fmt.Errorf("license validator function name is required")
	}
	if client == nil {
		client = &http.Client{}
	}

	return &HTTPValidator{
		opts:     opts,
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/rest/v1/rpc/" + opts.FunctionName,
		client:   client,
		logger:   logger,
		now:      time.Now,
	}, nil
}

type rpcRequest struct {
	UserID string `json:"p_user_id"`
}

func (v *HTTPValidator) Validate(ctx context.Context, userID string) (*models.ValidationResult, error) {
	if v.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.opts.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(rpcRequest{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode validator request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create validator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if v.opts.APIKey != "" {
		req.Header.Set("apikey", v.opts.APIKey)
	}

	bearer, err := v.bearerToken()
	if err != nil {
		return nil, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidatorFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", models.ErrValidatorFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := payload
		if len(snippet) > maxErrorBodyBytes {
			snippet = snippet[:maxErrorBodyBytes]
		}
		v.logger.Warn("License validator returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(snippet)))
		return nil, fmt.Errorf("%w: status %d", models.ErrValidatorFailure, resp.StatusCode)
	}

	return decodeValidationResult(payload)
}

// decodeValidationResult accepts either a bare object or a single-row array
func decodeValidationResult(payload []byte) (*models.ValidationResult, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: empty response", models.ErrValidatorFailure)
	}

	if trimmed[0] == '[' {
		var rows []models.ValidationResult
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("%w: invalid response: %v", models.ErrValidatorFailure, err)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: empty response", models.ErrValidatorFailure)
		}
		return &rows[0], nil
	}

	var result models.ValidationResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", models.ErrValidatorFailure, err)
	}
	return &result, nil
}

func (v *HTTPValidator) bearerToken() (string, error) {
	if v.opts.JWTSecret == "" {
		return v.opts.APIKey, nil
	}

	v.tokenMu.Lock()
	defer v.tokenMu.Unlock()

	now := v.now()
	if v.token != "" && now.Add(time.Minute).Before(v.tokenExpiry) {
		return v.token, nil
	}

	expiry := now.Add(serviceTokenLifetime)
	claims := jwt.MapClaims{
		"role": "service_role",
		"iss":  "route-guard",
		"iat":  now.Unix(),
		"exp":  expiry.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(v.opts.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}

	v.token = signed
	v.tokenExpiry = expiry
	return signed, nil
}

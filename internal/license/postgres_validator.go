package license

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"go-route-guard/internal/config"
	"go-route-guard/internal/interfaces"
	"go-route-guard/internal/models"
)

// Ensure PostgresValidator implements interfaces.LicenseValidator
var _ interfaces.LicenseValidator = (*PostgresValidator)(nil)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresValidator calls the license function directly on the database
type PostgresValidator struct {
	db      rowQuerier
	pool    *pgxpool.Pool
	query   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewPostgresValidator opens a connection pool; tracer may be nil
func NewPostgresValidator(ctx context.Context, dsn string, cfg *config.LicenseConfig, tracer pgx.QueryTracer, logger *zap.Logger) (*PostgresValidator, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Postgres.MaxConns
	}
	if tracer != nil {
		poolCfg.ConnConfig.Tracer = tracer
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Connected to license database",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns))

	v := newPostgresValidator(pool, cfg.FunctionName, cfg.Timeout, logger)
	v.pool = pool
	return v, nil
}

func newPostgresValidator(db rowQuerier, functionName string, timeout time.Duration, logger *zap.Logger) *PostgresValidator {
	return &PostgresValidator{
		db:      db,
		query:   buildValidationQuery(functionName),
		timeout: timeout,
		logger:  logger,
	}
}

func buildValidationQuery(functionName string) string {
	return fmt.Sprintf(
		"SELECT has_license, is_valid, requires_activation, requires_renewal, expires_at, license_code, message, days_remaining FROM %s($1)",
		pgx.Identifier{functionName}.Sanitize(),
	)
}

func (v *PostgresValidator) Validate(ctx context.Context, userID string) (*models.ValidationResult, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	var (
		result        models.ValidationResult
		licenseCode   *string
		message       *string
		daysRemaining *int32
	)

	err := v.db.QueryRow(ctx, v.query, userID).Scan(
		&result.HasLicense,
		&result.IsValid,
		&result.RequiresActivation,
		&result.RequiresRenewal,
		&result.ExpiresAt,
		&licenseCode,
		&message,
		&daysRemaining,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no rows", models.ErrValidatorFailure)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidatorFailure, err)
	}

	if licenseCode != nil {
		result.LicenseCode = *licenseCode
	}
	if message != nil {
		result.Message = *message
	}
	if daysRemaining != nil {
		days := int(*daysRemaining)
		result.DaysRemaining = &days
	}
	return &result, nil
}

// Close releases the connection pool
func (v *PostgresValidator) Close() {
	if v.pool != nil {
		v.pool.Close()
	}
}

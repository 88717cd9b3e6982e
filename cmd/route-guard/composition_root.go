package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"go-route-guard/internal/access"
	"go-route-guard/internal/broadcast"
	"go-route-guard/internal/cache/l1"
	"go-route-guard/internal/cache/l2"
	"go-route-guard/internal/cache/noop"
	"go-route-guard/internal/cache/service"
	"go-route-guard/internal/config"
	"go-route-guard/internal/httpserver"
	"go-route-guard/internal/interfaces"
	"go-route-guard/internal/license"
	"go-route-guard/internal/navigation"
	"go-route-guard/internal/routes"
	"go-route-guard/internal/session"
)

const shutdownTimeout = 30 * time.Second

// CompositionRoot holds all application dependencies and wires them in order:
// logger, configuration, route tables, shared cache, license resolution,
// access evaluation, HTTP server.
type CompositionRoot struct {
	Config *config.Config
	Logger *zap.Logger
	Routes *routes.Classifier

	// Cache components
	LocalStore *l1.BigCache
	KeyDB      interfaces.KeyDbClient
	Markers    interfaces.VersionMarkerStore
	Transport  interfaces.Transport
	Cache      *service.SharedCache

	// Services
	Validator  interfaces.LicenseValidator
	Resolver   *license.Resolver
	Evaluator  *access.Evaluator
	Registry   *navigation.Registry
	HTTPServer *httpserver.Server

	closeValidator func()
}

// NewCompositionRoot loads .env, configuration and route tables and builds every component
func NewCompositionRoot(ctx context.Context) (*CompositionRoot, error) {
	_ = godotenv.Load()

	root := &CompositionRoot{closeValidator: func() {}}

	if err := root.initLogger(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"load configuration", root.loadConfig},
		{"load route tables", root.loadRoutes},
		{"initialize cache components", root.initCacheComponents},
		{"initialize license resolution", root.initLicense},
		{"initialize HTTP server", root.initHTTPServer},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			_ = root.Cleanup()
			return nil, fmt.Errorf("failed to %s: %w", step.name, err)
		}
	}

	return root, nil
}

// initLogger builds a production logger honoring LOG_LEVEL
func (r *CompositionRoot) initLogger() error {
	cfg := zap.NewProductionConfig()
	if levelName := os.Getenv("LOG_LEVEL"); levelName != "" {
		level, err := zapcore.ParseLevel(levelName)
		if err != nil {
			return fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	r.Logger = logger
	return nil
}

// loadConfig loads the application configuration
func (r *CompositionRoot) loadConfig(context.Context) error {
	cfg, err := config.LoadConfig(envOrDefault("ROUTE_GUARD_CONFIG_FILE", "/app/guard_config.yaml"), r.Logger)
	if err != nil {
		return err
	}
	r.Config = cfg
	return nil
}

// loadRoutes loads and validates the route tables
func (r *CompositionRoot) loadRoutes(context.Context) error {
	classifier, err := routes.LoadRoutesConfig(envOrDefault("ROUTE_GUARD_ROUTES_FILE", "/app/routes.yaml"), r.Logger)
	if err != nil {
		return err
	}
	r.Routes = classifier
	return nil
}

// initCacheComponents builds the local store, the KeyDB-backed marker store and
// transport, and the shared cache on top of them
func (r *CompositionRoot) initCacheComponents(context.Context) error {
	localStore, err := l1.NewBigCache(&r.Config.BigCache, r.Config.Cache.Version, clock.New(), r.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize local store: %w", err)
	}
	r.LocalStore = localStore
	r.Logger.Info("BigCache local store initialized", zap.Int("size_mb", r.Config.BigCache.Size))

	if r.Config.KeyDB.Enabled {
		keydbURL := GetKeyDBURL(r.Logger)
		client, err := l2.NewRedisKeyDbClient(&r.Config.KeyDB, keydbURL, r.Logger)
		if err != nil {
			r.Logger.Warn("Failed to connect to KeyDB, running as a single instance", zap.Error(err))
		} else {
			r.KeyDB = client
		}
	}

	r.Markers = r.newMarkerStore()

	if r.Config.Broadcast.Enabled && r.KeyDB != nil {
		r.Transport = broadcast.NewRedisTransport(r.KeyDB, r.Config.Broadcast.Channel, r.Logger)
		r.Logger.Info("Broadcast enabled", zap.String("channel", r.Config.Broadcast.Channel))
	} else {
		r.Transport = noop.NewNoOpTransport()
		r.Logger.Info("Broadcast disabled")
	}

	r.Cache, err = service.NewSharedCache(r.LocalStore, r.Transport, r.Markers, service.Options{
		Origin:        uuid.NewString(),
		Version:       r.Config.Cache.Version,
		SweepInterval: r.Config.Cache.SweepInterval,
		MaxMessageAge: r.Config.Broadcast.MaxMessageAge,
		Clock:         clock.New(),
	}, r.Logger)
	return err
}

func (r *CompositionRoot) newMarkerStore() interfaces.VersionMarkerStore {
	switch r.Config.Cache.MarkerStore {
	case "keydb":
		if r.KeyDB != nil {
			return l2.NewKeyDBMarkerStore(r.KeyDB, r.Config.KeyDB.MarkerKey, r.Logger)
		}
		r.Logger.Warn("KeyDB unavailable, storing the cache version marker on disk",
			zap.String("path", r.Config.Cache.MarkerFile))
		return l2.NewFileMarkerStore(r.Config.Cache.MarkerFile, r.Logger)
	case "file":
		return l2.NewFileMarkerStore(r.Config.Cache.MarkerFile, r.Logger)
	default:
		return noop.NewNoOpMarkerStore()
	}
}

// initLicense builds the configured validator, the resolver and the access evaluator
func (r *CompositionRoot) initLicense(ctx context.Context) error {
	licenseCfg := &r.Config.License

	switch licenseCfg.Validator {
	case "postgres":
		dsn := GetDatabaseURL(r.Logger)
		if dsn == "" {
			return errors.New("DATABASE_URL is required for the postgres validator")
		}
		tracer, err := newQueryTracer(licenseCfg.Postgres.LogLevel, r.Logger.Named("pgx"))
		if err != nil {
			return err
		}
		validator, err := license.NewPostgresValidator(ctx, dsn, licenseCfg, tracer, r.Logger)
		if err != nil {
			return err
		}
		r.Validator = validator
		r.closeValidator = validator.Close
	default:
		validator, err := license.NewHTTPValidator(license.HTTPValidatorOptions{
			BaseURL:      licenseCfg.HTTP.BaseURL,
			FunctionName: licenseCfg.FunctionName,
			APIKey:       GetValidatorAPIKey(r.Logger),
			JWTSecret:    GetValidatorJWTSecret(r.Logger),
			Timeout:      licenseCfg.Timeout,
		}, &http.Client{Timeout: licenseCfg.Timeout}, r.Logger)
		if err != nil {
			return err
		}
		r.Validator = validator
	}

	r.Resolver = license.NewResolver(r.Cache, r.Validator, licenseCfg.Validator, licenseCfg.CacheTTL, r.Logger)
	r.Resolver.Watch()
	r.Evaluator = access.NewEvaluator(r.Routes, r.Resolver, r.Logger)
	r.Logger.Info("License resolution initialized",
		zap.String("validator", licenseCfg.Validator),
		zap.Duration("cache_ttl", licenseCfg.CacheTTL))
	return nil
}

// initHTTPServer builds the navigation registry and the HTTP server
func (r *CompositionRoot) initHTTPServer(context.Context) error {
	secret := GetSessionSecret(r.Logger)
	parser, err := session.NewParser(secret, r.Config.Session.Audience, r.Logger)
	if err != nil {
		return fmt.Errorf("SESSION_JWT_SECRET: %w", err)
	}

	var upstream http.Handler
	if r.Config.Server.Upstream != "" {
		upstream, err = httpserver.NewUpstreamProxy(r.Config.Server.Upstream, r.Logger)
		if err != nil {
			return err
		}
		r.Logger.Info("Guarding upstream", zap.String("upstream", r.Config.Server.Upstream))
	}

	adminToken := GetAdminToken(r.Logger)
	if adminToken == "" {
		r.Logger.Warn("ROUTE_GUARD_ADMIN_TOKEN is not set, administrative endpoints are disabled")
	}

	r.Registry = navigation.NewRegistry(r.Evaluator, r.Cache, r.Resolver.CacheKey, r.Config.Server.SessionIdleTTL, clock.New(), r.Logger)
	r.HTTPServer = httpserver.NewServer(&r.Config.Server, httpserver.Deps{
		Evaluator:  r.Evaluator,
		Licenses:   r.Resolver,
		Cache:      r.Cache,
		Registry:   r.Registry,
		Sessions:   parser,
		AdminToken: adminToken,
		Upstream:   upstream,
	}, r.Logger)
	return nil
}

// Run starts the shared cache and serves until ctx is cancelled
func (r *CompositionRoot) Run(ctx context.Context) error {
	if err := r.Cache.Start(ctx); err != nil {
		return err
	}
	r.Registry.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.HTTPServer.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		r.Logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return r.HTTPServer.Stop(shutdownCtx)
	})

	err := g.Wait()
	r.Logger.Info("Server exited")
	return err
}

// Cleanup releases every resource; the first error is returned
func (r *CompositionRoot) Cleanup() error {
	var errs []error

	if r.Registry != nil {
		r.Registry.Stop()
	}
	if r.Cache != nil {
		if err := r.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close shared cache: %w", err))
		}
	}
	if r.LocalStore != nil {
		if err := r.LocalStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close local store: %w", err))
		}
	}
	if r.KeyDB != nil {
		if err := r.KeyDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close KeyDB client: %w", err))
		}
	}
	r.closeValidator()

	if r.Logger != nil {
		_ = r.Logger.Sync()
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

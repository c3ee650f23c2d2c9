package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	app "github.com/R3E-Network/video_portal/internal/app"
	"github.com/R3E-Network/video_portal/internal/app/httpapi"
	"github.com/R3E-Network/video_portal/internal/app/storage"
	"github.com/R3E-Network/video_portal/internal/app/storage/memory"
	"github.com/R3E-Network/video_portal/internal/app/storage/postgres"
	supastore "github.com/R3E-Network/video_portal/internal/app/storage/supabase"
	"github.com/R3E-Network/video_portal/internal/config"
	"github.com/R3E-Network/video_portal/internal/logging"
	"github.com/R3E-Network/video_portal/internal/middleware"
	"github.com/R3E-Network/video_portal/internal/platform/migrations"
	"github.com/R3E-Network/video_portal/pkg/logger"
	"github.com/R3E-Network/video_portal/supabase/client"
)

// Version is stamped at build time.
var Version = "dev"

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	httpServer *http.Server
	db         *sql.DB
}

// NewApplication constructs a new application instance from the environment.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig wires an application from an already loaded configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	supa, err := newSupabaseClient(cfg.Supabase, log)
	if err != nil {
		return nil, fmt.Errorf("configure supabase: %w", err)
	}
	auth := supa.Auth()

	stores, db, err := buildStores(ctx, cfg, supa, log)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}
	closeDB := func() {
		if db != nil {
			db.Close()
		}
	}

	plans, err := config.LoadPlans(cfg.PlansFile)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("load plans: %w", err)
	}

	application, err := app.New(ctx, app.Options{
		Config: cfg,
		Stores: stores,
		Auth:   auth,
		Plans:  plans,
	}, log)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("build application: %w", err)
	}

	httpLog := logging.Wrap(log, "httpapi")
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, httpLog)
	if err := application.Attach(limiter); err != nil {
		closeDB()
		return nil, fmt.Errorf("attach rate limiter: %w", err)
	}
	if cfg.Supabase.JWTSecret == "" {
		log.Warn("SUPABASE_JWT_SECRET not set, tokens are verified against the auth server")
	}
	authMW := middleware.NewAuthMiddleware(cfg.Supabase.JWTSecret, auth, httpLog, []string{"/health", "/metrics"})

	handler := httpapi.NewHandler(application, httpapi.Options{
		Auth:        authMW,
		RateLimiter: limiter,
		Origins:     cfg.Origins(),
		Logger:      httpLog,
		Version:     Version,
	})

	return &Application{
		cfg: cfg,
		log: log,
		app: application,
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.Server.WriteTimeout,
		},
		db: db,
	}, nil
}

// Handler exposes the root HTTP handler.
func (a *Application) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the background services and the HTTP server, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown drains the HTTP server, then stops services and closes the database.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("services: %w", err))
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return errors.Join(errs...)
}

func newSupabaseClient(cfg config.SupabaseConfig, log *logger.Logger) (*client.Client, error) {
	key := cfg.ServiceKey
	if key == "" {
		key = cfg.AnonKey
	}
	breaker := client.DefaultCircuitBreakerConfig()
	breaker.OnStateChange = func(from, to client.CircuitState) {
		log.WithField("from", from.String()).WithField("to", to.String()).Warn("supabase circuit breaker state changed")
	}
	return client.NewEnhanced(client.EnhancedConfig{
		Config:               client.Config{URL: cfg.URL, APIKey: key},
		RetryConfig:          client.DefaultRetryConfig(),
		CircuitBreakerConfig: breaker,
		EnableResilience:     cfg.Resilience,
	})
}

// buildStores selects the persistence backend. Only the postgres backend
// returns a database handle the caller must close.
func buildStores(ctx context.Context, cfg *config.Config, supa *client.Client, log *logger.Logger) (storage.Stores, *sql.DB, error) {
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New().Stores(), nil, nil
	case config.StorageSupabase:
		return supastore.New(supa).Stores(), nil, nil
	case config.StoragePostgres:
		openCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		db, err := postgres.Open(openCtx, cfg.Storage.DatabaseURL)
		if err != nil {
			return storage.Stores{}, nil, fmt.Errorf("open database: %w", err)
		}
		if cfg.Storage.Migrate {
			if err := migrations.Up(db); err != nil {
				db.Close()
				return storage.Stores{}, nil, err
			}
			log.Info("database migrations applied")
		}
		return postgres.New(db).Stores(), db, nil
	default:
		return storage.Stores{}, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

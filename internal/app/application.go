package app

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/R3E-Network/video_portal/internal/app/domain/subscription"
	"github.com/R3E-Network/video_portal/internal/app/services/analytics"
	"github.com/R3E-Network/video_portal/internal/app/services/catalog"
	"github.com/R3E-Network/video_portal/internal/app/services/engagement"
	"github.com/R3E-Network/video_portal/internal/app/services/entitlement"
	"github.com/R3E-Network/video_portal/internal/app/services/session"
	"github.com/R3E-Network/video_portal/internal/app/services/shorts"
	"github.com/R3E-Network/video_portal/internal/app/services/upload"
	"github.com/R3E-Network/video_portal/internal/app/storage"
	"github.com/R3E-Network/video_portal/internal/app/storage/memory"
	"github.com/R3E-Network/video_portal/internal/app/system"
	"github.com/R3E-Network/video_portal/internal/config"
	"github.com/R3E-Network/video_portal/pkg/logger"
)

// Options carries the external dependencies of the application. Nil stores
// default to the in-memory implementation.
type Options struct {
	Config *config.Config
	Stores storage.Stores
	Auth   session.Authenticator
	Plans  []subscription.Plan

	// CatalogHTTPClient overrides the client used for the video API.
	CatalogHTTPClient *http.Client
	// Rand seeds analytics and upload simulation; nil uses the clock.
	Rand *rand.Rand
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger
	cfg     *config.Config

	Catalog     *catalog.Client
	Cache       *catalog.Cache
	Session     *session.Service
	Entitlement *entitlement.Service
	Engagement  *engagement.Service
	Analytics   *analytics.Generator
	Shorts      *shorts.Feed
	Uploads     *upload.Service
}

// New builds a fully initialised application.
func New(ctx context.Context, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Auth == nil {
		return nil, fmt.Errorf("auth provider is required")
	}

	stores := opts.Stores
	mem := memory.New()
	if stores.Profiles == nil {
		stores.Profiles = mem
	}
	if stores.Subscriptions == nil {
		stores.Subscriptions = mem
	}
	if stores.History == nil {
		stores.History = mem
	}
	if stores.Likes == nil {
		stores.Likes = mem
	}

	manager := system.NewManager()

	cache := catalog.NewCache(ctx, catalog.CacheConfig{
		RedisURL:        cfg.Cache.RedisURL,
		TTL:             cfg.Cache.TTL,
		MaxEntries:      cfg.Cache.MaxEntries,
		CleanupInterval: cfg.Cache.CleanupInterval,
	}, log.WithComponent("catalog-cache"))

	httpClient := opts.CatalogHTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Catalog.Timeout}
	}
	catalogClient, err := catalog.New(catalog.Config{
		BaseURL:        cfg.Catalog.BaseURL,
		APIKey:         cfg.Catalog.APIKey,
		FallbackAPIKey: cfg.Catalog.FallbackAPIKey,
		HTTPClient:     httpClient,
		Cache:          cache,
		Logger:         log.WithComponent("catalog"),
	})
	if err != nil {
		return nil, fmt.Errorf("configure catalog: %w", err)
	}

	sessionService := session.New(opts.Auth, stores.Profiles, log.WithComponent("session"))
	entitlementService := entitlement.New(opts.Plans, stores.Subscriptions, log.WithComponent("entitlement"))
	engagementService := engagement.New(stores.History, stores.Likes, log.WithComponent("engagement"))
	uploadService := upload.New(opts.Rand, cfg.Upload.Retention, log.WithComponent("upload"))

	services := []system.Service{
		cache,
		upload.NewSimulator(uploadService, cfg.Upload.Tick, log.WithComponent("upload-simulator")),
	}
	if regions := cfg.Regions(); len(regions) > 0 && cfg.Catalog.TrendingSchedule != "" {
		services = append(services, catalog.NewWarmer(catalogClient, regions, cfg.Catalog.TrendingSchedule, log.WithComponent("catalog-warmer")))
	} else {
		log.Warn("trending warm-up disabled")
	}

	for _, svc := range services {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:     manager,
		log:         log,
		cfg:         cfg,
		Catalog:     catalogClient,
		Cache:       cache,
		Session:     sessionService,
		Entitlement: entitlementService,
		Engagement:  engagementService,
		Analytics:   analytics.NewGenerator(opts.Rand),
		Shorts:      shorts.NewFeed(catalogClient, log.WithComponent("shorts")),
		Uploads:     uploadService,
	}, nil
}

// Config returns the configuration the application was built with.
func (a *Application) Config() *config.Config {
	return a.cfg
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Services lists the lifecycle-managed services in start order.
func (a *Application) Services() []string {
	return a.manager.Services()
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

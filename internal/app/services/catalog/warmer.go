package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/video_portal/internal/app/metrics"
	"github.com/R3E-Network/video_portal/internal/app/system"
	"github.com/R3E-Network/video_portal/pkg/logger"
)

var _ system.Service = (*Warmer)(nil)

// TrendingRefresher is the part of Client the warmer drives.
type TrendingRefresher interface {
	RefreshTrending(ctx context.Context, regionCode string) error
}

// Warmer refreshes the cached trending page of each region on a cron
// schedule so the home page rarely waits on the upstream API.
type Warmer struct {
	source   TrendingRefresher
	regions  []string
	schedule string
	log      *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// NewWarmer creates a warmer. schedule uses cron syntax including
// descriptors such as "@every 10m".
func NewWarmer(source TrendingRefresher, regions []string, schedule string, log *logger.Logger) *Warmer {
	if log == nil {
		log = logger.NewDefault("catalog-warmer")
	}
	if len(regions) == 0 {
		regions = []string{DefaultRegion}
	}
	if schedule == "" {
		schedule = "@every 10m"
	}
	return &Warmer{source: source, regions: regions, schedule: schedule, log: log}
}

func (w *Warmer) Name() string { return "catalog-warmer" }

// Start schedules the job and runs one warm-up immediately in the background.
func (w *Warmer) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(w.schedule, func() { w.RunOnce(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule trending warm-up %q: %w", w.schedule, err)
	}
	c.Start()
	go w.RunOnce(runCtx)

	w.cron = c
	w.cancel = cancel
	w.running = true
	w.log.WithField("schedule", w.schedule).WithField("regions", w.regions).Info("trending warmer started")
	return nil
}

// Stop cancels in-flight refreshes and waits for running jobs.
func (w *Warmer) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	c, cancel := w.cron, w.cancel
	w.running = false
	w.cron, w.cancel = nil, nil
	w.mu.Unlock()

	cancel()
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	w.log.Info("trending warmer stopped")
	return nil
}

// RunOnce refreshes every region, logging failures.
func (w *Warmer) RunOnce(ctx context.Context) {
	for _, region := range w.regions {
		if ctx.Err() != nil {
			return
		}
		refreshCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := w.source.RefreshTrending(refreshCtx, region)
		cancel()
		metrics.RecordWarmup(region, err == nil)
		if err != nil {
			w.log.WithError(err).WithField("region", region).Warn("trending warm-up failed")
		}
	}
}

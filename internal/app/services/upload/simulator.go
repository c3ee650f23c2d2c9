package upload

import (
	"context"
	"sync"
	"time"

	"github.com/R3E-Network/video_portal/internal/app/system"
	"github.com/R3E-Network/video_portal/pkg/logger"
)

var _ system.Service = (*Simulator)(nil)

// DefaultTick is the progress step interval.
const DefaultTick = 500 * time.Millisecond

// Simulator drives Service.Advance on a ticker.
type Simulator struct {
	service  *Service
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewSimulator creates a lifecycle-managed upload simulator.
func NewSimulator(service *Service, interval time.Duration, log *logger.Logger) *Simulator {
	if interval <= 0 {
		interval = DefaultTick
	}
	if log == nil {
		log = logger.NewDefault("upload-simulator")
	}
	return &Simulator{service: service, log: log, interval: interval}
}

func (s *Simulator) Name() string { return "upload-simulator" }

func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.service.Advance()
			}
		}
	}()

	s.log.WithField("interval", s.interval.String()).Info("upload simulator started")
	return nil
}

func (s *Simulator) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.log.Info("upload simulator stopped")
	return nil
}

// Package system starts and stops the portal's background components in order.
package system

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Service is a component with background work. Start must not block; Stop
// must be safe to call once after a successful Start.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NoopService satisfies Service for components without background work.
type NoopService struct {
	ServiceName string
}

func (n NoopService) Name() string                { return n.ServiceName }
func (n NoopService) Start(context.Context) error { return nil }
func (n NoopService) Stop(context.Context) error  { return nil }

// Manager starts services in registration order and stops them in reverse.
type Manager struct {
	mu       sync.Mutex
	services []Service
	names    map[string]bool
	started  []Service
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{names: make(map[string]bool)}
}

// Register adds a service. Names must be unique and registration closes once
// the manager has started.
func (m *Manager) Register(svc Service) error {
	if svc == nil {
		return fmt.Errorf("service is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.started) > 0 {
		return fmt.Errorf("manager already started")
	}
	if m.names[svc.Name()] {
		return fmt.Errorf("service %q already registered", svc.Name())
	}
	m.names[svc.Name()] = true
	m.services = append(m.services, svc)
	return nil
}

// Start starts every service. On failure the services already started are
// stopped again.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.started) > 0 {
		return nil
	}
	for _, svc := range m.services {
		if err := svc.Start(ctx); err != nil {
			startErr := fmt.Errorf("start %s: %w", svc.Name(), err)
			return errors.Join(startErr, m.stopLocked(ctx))
		}
		m.started = append(m.started, svc)
	}
	return nil
}

// Stop stops started services in reverse order, collecting every error.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		svc := m.started[i]
		if err := svc.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", svc.Name(), err))
		}
	}
	m.started = nil
	return errors.Join(errs...)
}

// Services lists registered service names in start order.
func (m *Manager) Services() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.services))
	for _, svc := range m.services {
		out = append(out, svc.Name())
	}
	return out
}

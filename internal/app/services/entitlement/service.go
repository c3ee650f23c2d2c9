// Package entitlement maps users to subscription plans and answers feature
// access questions against the active plan.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/video_portal/internal/app/domain/subscription"
	"github.com/R3E-Network/video_portal/internal/app/storage"
	"github.com/R3E-Network/video_portal/internal/config"
	"github.com/R3E-Network/video_portal/pkg/logger"
)

// BillingPeriod is added to the creation time of a new subscription.
const BillingPeriod = 30 * 24 * time.Hour

// ErrInvalidPlan is returned when a subscribe request names an unknown plan.
var ErrInvalidPlan = errors.New("Invalid plan selected")

// Service holds the plan catalog and the per-user subscription rows.
type Service struct {
	plans []subscription.Plan
	byID  map[string]subscription.Plan
	store storage.SubscriptionStore
	log   *logger.Logger
	now   func() time.Time
}

// New creates an entitlement service. An empty plans list falls back to the
// built-in catalog.
func New(plans []subscription.Plan, store storage.SubscriptionStore, log *logger.Logger) *Service {
	if len(plans) == 0 {
		plans = config.DefaultPlans()
	}
	if log == nil {
		log = logger.NewDefault("entitlement")
	}
	byID := make(map[string]subscription.Plan, len(plans))
	for _, p := range plans {
		byID[p.ID] = p
	}
	return &Service{
		plans: plans,
		byID:  byID,
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Plans returns the plan catalog in display order.
func (s *Service) Plans() []subscription.Plan {
	out := make([]subscription.Plan, len(s.plans))
	copy(out, s.plans)
	return out
}

// Plan looks up a plan by id.
func (s *Service) Plan(id string) (subscription.Plan, bool) {
	p, ok := s.byID[strings.TrimSpace(id)]
	return p, ok
}

// Subscription returns the user's subscription row or nil when the user has
// never subscribed.
func (s *Service) Subscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	return &sub, nil
}

// Subscribe moves the user onto planID, creating the row on first use.
func (s *Service) Subscribe(ctx context.Context, userID, planID string) (*subscription.Subscription, error) {
	plan, ok := s.Plan(planID)
	if !ok {
		return nil, ErrInvalidPlan
	}

	existing, err := s.Subscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if existing != nil {
		updated, err := s.store.UpdateSubscription(ctx, subscription.Subscription{
			UserID:    userID,
			PlanID:    plan.ID,
			Amount:    plan.Price,
			Status:    subscription.StatusActive,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, fmt.Errorf("update subscription: %w", err)
		}
		s.log.WithField("user_id", userID).WithField("plan", plan.ID).Info("subscription changed")
		return &updated, nil
	}

	periodEnd := now.Add(BillingPeriod)
	created, err := s.store.CreateSubscription(ctx, subscription.Subscription{
		UserID:           userID,
		PlanID:           plan.ID,
		Amount:           plan.Price,
		Status:           subscription.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
		CurrentPeriodEnd: &periodEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	s.log.WithField("user_id", userID).WithField("plan", plan.ID).Info("subscription created")
	return &created, nil
}

// Cancel marks the user's subscription canceled.
func (s *Service) Cancel(ctx context.Context, userID string) (*subscription.Subscription, error) {
	existing, err := s.Subscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, storage.ErrNotFound
	}
	existing.Status = subscription.StatusCanceled
	existing.UpdatedAt = s.now()
	updated, err := s.store.UpdateSubscription(ctx, *existing)
	if err != nil {
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}
	return &updated, nil
}

// PlanName is the label shown for sub.
func (s *Service) PlanName(sub *subscription.Subscription) string {
	if !sub.Active() {
		return "Basic (Free)"
	}
	if p, ok := s.byID[sub.PlanID]; ok {
		return p.Name
	}
	return "Unknown Plan"
}

// CanAccessFeature reports whether sub unlocks feature. Users without an
// active subscription get the basic plan's features.
func (s *Service) CanAccessFeature(sub *subscription.Subscription, feature string) bool {
	if !sub.Active() {
		basic, ok := s.byID[config.PlanBasic]
		return ok && basic.HasFeature(feature)
	}
	p, ok := s.byID[sub.PlanID]
	if !ok {
		return false
	}
	return p.HasFeature(feature)
}

// Tier is the effective plan id of sub.
func (s *Service) Tier(sub *subscription.Subscription) string {
	if !sub.Active() {
		return config.PlanBasic
	}
	return sub.PlanID
}

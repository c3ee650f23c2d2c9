package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/video_portal/internal/app/domain/engagement"
	"github.com/R3E-Network/video_portal/internal/app/domain/profile"
	"github.com/R3E-Network/video_portal/internal/app/domain/subscription"
	"github.com/R3E-Network/video_portal/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu            sync.RWMutex
	profiles      map[string]profile.Profile
	subscriptions map[string]subscription.Subscription // by user id
	history       map[string]map[string]engagement.HistoryEntry
	likes         map[string]map[string]engagement.Like
	now           func() time.Time
}

var _ storage.ProfileStore = (*Store)(nil)
var _ storage.SubscriptionStore = (*Store)(nil)
var _ storage.HistoryStore = (*Store)(nil)
var _ storage.LikeStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		profiles:      make(map[string]profile.Profile),
		subscriptions: make(map[string]subscription.Subscription),
		history:       make(map[string]map[string]engagement.HistoryEntry),
		likes:         make(map[string]map[string]engagement.Like),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Stores returns s behind every storage interface.
func (s *Store) Stores() storage.Stores {
	return storage.Stores{Profiles: s, Subscriptions: s, History: s, Likes: s}
}

// ProfileStore implementation -------------------------------------------------

func (s *Store) CreateProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		return profile.Profile{}, fmt.Errorf("profile id is required")
	}
	if _, exists := s.profiles[p.ID]; exists {
		return profile.Profile{}, fmt.Errorf("profile %s already exists", p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.profiles[p.ID] = p
	return p, nil
}

func (s *Store) GetProfile(_ context.Context, id string) (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return profile.Profile{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpdateProfile(_ context.Context, id string, update profile.Update) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return profile.Profile{}, storage.ErrNotFound
	}
	p = update.Apply(p)
	now := s.now()
	p.UpdatedAt = &now
	s.profiles[id] = p
	return p, nil
}

// SubscriptionStore implementation --------------------------------------------

func (s *Store) GetSubscription(_ context.Context, userID string) (subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[userID]
	if !ok {
		return subscription.Subscription{}, storage.ErrNotFound
	}
	return cloneSubscription(sub), nil
}

func (s *Store) CreateSubscription(_ context.Context, sub subscription.Subscription) (subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.UserID]; exists {
		return subscription.Subscription{}, fmt.Errorf("subscription for %s already exists", sub.UserID)
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	s.subscriptions[sub.UserID] = cloneSubscription(sub)
	return sub, nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub subscription.Subscription) (subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.subscriptions[sub.UserID]
	if !ok {
		return subscription.Subscription{}, storage.ErrNotFound
	}
	existing.PlanID = sub.PlanID
	existing.Amount = sub.Amount
	existing.Status = sub.Status
	existing.UpdatedAt = sub.UpdatedAt
	s.subscriptions[sub.UserID] = existing
	return cloneSubscription(existing), nil
}

func cloneSubscription(sub subscription.Subscription) subscription.Subscription {
	if sub.CurrentPeriodEnd != nil {
		end := *sub.CurrentPeriodEnd
		sub.CurrentPeriodEnd = &end
	}
	return sub
}

// HistoryStore implementation -------------------------------------------------

func (s *Store) UpsertHistory(_ context.Context, entry engagement.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.history[entry.UserID]
	if !ok {
		rows = make(map[string]engagement.HistoryEntry)
		s.history[entry.UserID] = rows
	}
	rows[entry.VideoID] = entry
	return nil
}

func (s *Store) ListHistory(_ context.Context, userID string) ([]engagement.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]engagement.HistoryEntry, 0, len(s.history[userID]))
	for _, e := range s.history[userID] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ViewedAt.After(out[j].ViewedAt) })
	return out, nil
}

func (s *Store) ClearHistory(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.history, userID)
	return nil
}

// LikeStore implementation ----------------------------------------------------

func (s *Store) UpsertLike(_ context.Context, like engagement.Like) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.likes[like.UserID]
	if !ok {
		rows = make(map[string]engagement.Like)
		s.likes[like.UserID] = rows
	}
	rows[like.VideoID] = like
	return nil
}

func (s *Store) DeleteLike(_ context.Context, userID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.likes[userID], videoID)
	return nil
}

func (s *Store) GetLike(_ context.Context, userID, videoID string) (engagement.Like, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	like, ok := s.likes[userID][videoID]
	if !ok {
		return engagement.Like{}, storage.ErrNotFound
	}
	return like, nil
}

func (s *Store) ListLikes(_ context.Context, userID string) ([]engagement.Like, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]engagement.Like, 0, len(s.likes[userID]))
	for _, l := range s.likes[userID] {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LikedAt.After(out[j].LikedAt) })
	return out, nil
}

// Package supabase stores portal rows in the Supabase project's tables via
// PostgREST. Calls made with a caller's access token in the context run as
// that user, so row level security policies apply.
package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/video_portal/internal/app/domain/engagement"
	"github.com/R3E-Network/video_portal/internal/app/domain/profile"
	"github.com/R3E-Network/video_portal/internal/app/domain/subscription"
	"github.com/R3E-Network/video_portal/internal/app/storage"
	"github.com/R3E-Network/video_portal/internal/logging"
	"github.com/R3E-Network/video_portal/supabase/client"
)

const (
	tableProfiles      = "profiles"
	tableSubscriptions = "subscriptions"
	tableHistory       = "video_history"
	tableLikes         = "video_likes"
	userVideoConflict  = "user_id,video_id"
)

// Store implements the storage interfaces over PostgREST.
type Store struct {
	client *client.Client
	now    func() time.Time
}

var _ storage.ProfileStore = (*Store)(nil)
var _ storage.SubscriptionStore = (*Store)(nil)
var _ storage.HistoryStore = (*Store)(nil)
var _ storage.LikeStore = (*Store)(nil)

// New wraps a Supabase client.
func New(c *client.Client) *Store {
	return &Store{client: c, now: func() time.Time { return time.Now().UTC() }}
}

// Stores returns s behind every storage interface.
func (s *Store) Stores() storage.Stores {
	return storage.Stores{Profiles: s, Subscriptions: s, History: s, Likes: s}
}

func (s *Store) from(ctx context.Context, table string) *client.QueryBuilder {
	c := s.client
	if token := logging.GetAccessToken(ctx); token != "" {
		c = c.WithToken(token)
	}
	return c.From(table)
}

func decodeOne(resp *client.Response, err error, dst any) error {
	if err != nil {
		return err
	}
	if err := resp.Decode(dst); err != nil {
		if client.IsNoRows(err) {
			return storage.ErrNotFound
		}
		return err
	}
	return nil
}

func decodeFirst[T any](resp *client.Response, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	var rows []T
	if err := resp.Decode(&rows); err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, storage.ErrNotFound
	}
	return rows[0], nil
}

func checkOnly(resp *client.Response, err error) error {
	if err != nil {
		return err
	}
	return resp.Error()
}

// --- ProfileStore -----------------------------------------------------------

func (s *Store) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	resp, err := s.from(ctx, tableProfiles).ExecuteInsert(ctx, p)
	if err := checkOnly(resp, err); err != nil {
		return profile.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	return p, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	var p profile.Profile
	resp, err := s.from(ctx, tableProfiles).Select("*").Eq("id", id).Single().Execute(ctx)
	if err := decodeOne(resp, err, &p); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, update profile.Update) (profile.Profile, error) {
	patch := update.Metadata()
	patch["updated_at"] = s.now()

	resp, err := s.from(ctx, tableProfiles).Eq("id", id).ExecuteUpdate(ctx, patch)
	if _, err := decodeFirst[profile.Profile](resp, err); err != nil {
		return profile.Profile{}, err
	}
	return s.GetProfile(ctx, id)
}

// --- SubscriptionStore ------------------------------------------------------

func (s *Store) GetSubscription(ctx context.Context, userID string) (subscription.Subscription, error) {
	var sub subscription.Subscription
	resp, err := s.from(ctx, tableSubscriptions).Select("*").Eq("user_id", userID).Single().Execute(ctx)
	if err := decodeOne(resp, err, &sub); err != nil {
		return subscription.Subscription{}, err
	}
	return sub, nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub subscription.Subscription) (subscription.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	resp, err := s.from(ctx, tableSubscriptions).ExecuteInsert(ctx, sub)
	return decodeFirst[subscription.Subscription](resp, err)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub subscription.Subscription) (subscription.Subscription, error) {
	patch := map[string]any{
		"plan_id":    sub.PlanID,
		"amount":     sub.Amount,
		"status":     sub.Status,
		"updated_at": sub.UpdatedAt,
	}
	resp, err := s.from(ctx, tableSubscriptions).Eq("user_id", sub.UserID).ExecuteUpdate(ctx, patch)
	return decodeFirst[subscription.Subscription](resp, err)
}

// --- HistoryStore -----------------------------------------------------------

func (s *Store) UpsertHistory(ctx context.Context, entry engagement.HistoryEntry) error {
	resp, err := s.from(ctx, tableHistory).Upsert(userVideoConflict).ExecuteInsert(ctx, entry)
	return checkOnly(resp, err)
}

func (s *Store) ListHistory(ctx context.Context, userID string) ([]engagement.HistoryEntry, error) {
	out := []engagement.HistoryEntry{}
	resp, err := s.from(ctx, tableHistory).Select("*").Eq("user_id", userID).Order("viewed_at", false).Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ClearHistory(ctx context.Context, userID string) error {
	resp, err := s.from(ctx, tableHistory).Eq("user_id", userID).ExecuteDelete(ctx)
	return checkOnly(resp, err)
}

// --- LikeStore --------------------------------------------------------------

func (s *Store) UpsertLike(ctx context.Context, like engagement.Like) error {
	resp, err := s.from(ctx, tableLikes).Upsert(userVideoConflict).ExecuteInsert(ctx, like)
	return checkOnly(resp, err)
}

func (s *Store) DeleteLike(ctx context.Context, userID, videoID string) error {
	resp, err := s.from(ctx, tableLikes).Eq("user_id", userID).Eq("video_id", videoID).ExecuteDelete(ctx)
	return checkOnly(resp, err)
}

func (s *Store) GetLike(ctx context.Context, userID, videoID string) (engagement.Like, error) {
	var like engagement.Like
	resp, err := s.from(ctx, tableLikes).Select("*").Eq("user_id", userID).Eq("video_id", videoID).Single().Execute(ctx)
	if err := decodeOne(resp, err, &like); err != nil {
		return engagement.Like{}, err
	}
	return like, nil
}

func (s *Store) ListLikes(ctx context.Context, userID string) ([]engagement.Like, error) {
	out := []engagement.Like{}
	resp, err := s.from(ctx, tableLikes).Select("*").Eq("user_id", userID).Order("liked_at", false).Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

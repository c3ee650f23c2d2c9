package storage

import (
	"context"
	"errors"

	"github.com/R3E-Network/video_portal/internal/app/domain/engagement"
	"github.com/R3E-Network/video_portal/internal/app/domain/profile"
	"github.com/R3E-Network/video_portal/internal/app/domain/subscription"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("storage: not found")

// ProfileStore persists the profiles table.
type ProfileStore interface {
	CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error)
	GetProfile(ctx context.Context, id string) (profile.Profile, error)
	UpdateProfile(ctx context.Context, id string, update profile.Update) (profile.Profile, error)
}

// SubscriptionStore persists the single subscriptions row of each user.
type SubscriptionStore interface {
	// GetSubscription returns ErrNotFound when the user has never subscribed.
	GetSubscription(ctx context.Context, userID string) (subscription.Subscription, error)
	CreateSubscription(ctx context.Context, sub subscription.Subscription) (subscription.Subscription, error)
	// UpdateSubscription rewrites plan, amount, status and updated_at of the
	// row owned by sub.UserID.
	UpdateSubscription(ctx context.Context, sub subscription.Subscription) (subscription.Subscription, error)
}

// HistoryStore persists video_history, unique per (user_id, video_id).
type HistoryStore interface {
	UpsertHistory(ctx context.Context, entry engagement.HistoryEntry) error
	ListHistory(ctx context.Context, userID string) ([]engagement.HistoryEntry, error)
	ClearHistory(ctx context.Context, userID string) error
}

// LikeStore persists video_likes, unique per (user_id, video_id).
type LikeStore interface {
	UpsertLike(ctx context.Context, like engagement.Like) error
	DeleteLike(ctx context.Context, userID, videoID string) error
	GetLike(ctx context.Context, userID, videoID string) (engagement.Like, error)
	ListLikes(ctx context.Context, userID string) ([]engagement.Like, error)
}

// Stores bundles every store the services need.
type Stores struct {
	Profiles      ProfileStore
	Subscriptions SubscriptionStore
	History       HistoryStore
	Likes         LikeStore
}

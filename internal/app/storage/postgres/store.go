package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/video_portal/internal/app/domain/engagement"
	"github.com/R3E-Network/video_portal/internal/app/domain/profile"
	"github.com/R3E-Network/video_portal/internal/app/domain/subscription"
	"github.com/R3E-Network/video_portal/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ storage.ProfileStore = (*Store)(nil)
var _ storage.SubscriptionStore = (*Store)(nil)
var _ storage.HistoryStore = (*Store)(nil)
var _ storage.LikeStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{
		db:  sqlx.NewDb(db, "postgres"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Open connects to dsn with lib/pq.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db.DB, nil
}

// Stores returns s behind every storage interface.
func (s *Store) Stores() storage.Stores {
	return storage.Stores{Profiles: s, Subscriptions: s, History: s, Likes: s}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

// --- ProfileStore -----------------------------------------------------------

const profileColumns = `id, username, COALESCE(avatar_url, '') AS avatar_url, COALESCE(bio, '') AS bio, created_at, updated_at`

func (s *Store) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO profiles (id, username, avatar_url, bio, created_at)
		VALUES (:id, :username, :avatar_url, :bio, :created_at)
	`, p)
	if err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	var p profile.Profile
	err := s.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	if err != nil {
		return profile.Profile{}, notFound(err)
	}
	return p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, update profile.Update) (profile.Profile, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET username = COALESCE($2, username),
		    avatar_url = COALESCE($3, avatar_url),
		    bio = COALESCE($4, bio),
		    updated_at = $5
		WHERE id = $1
	`, id, update.Username, update.AvatarURL, update.Bio, s.now())
	if err != nil {
		return profile.Profile{}, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return profile.Profile{}, storage.ErrNotFound
	}
	return s.GetProfile(ctx, id)
}

// --- SubscriptionStore ------------------------------------------------------

const subscriptionColumns = `id, user_id, plan_id, amount, status, created_at, updated_at, current_period_end`

func (s *Store) GetSubscription(ctx context.Context, userID string) (subscription.Subscription, error) {
	var sub subscription.Subscription
	err := s.db.GetContext(ctx, &sub, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID)
	if err != nil {
		return subscription.Subscription{}, notFound(err)
	}
	return sub, nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub subscription.Subscription) (subscription.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, plan_id, amount, status, created_at, updated_at, current_period_end)
		VALUES (:id, :user_id, :plan_id, :amount, :status, :created_at, :updated_at, :current_period_end)
	`, sub)
	if err != nil {
		return subscription.Subscription{}, err
	}
	return sub, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub subscription.Subscription) (subscription.Subscription, error) {
	var out subscription.Subscription
	err := s.db.GetContext(ctx, &out, `
		UPDATE subscriptions
		SET plan_id = $2, amount = $3, status = $4, updated_at = $5
		WHERE user_id = $1
		RETURNING `+subscriptionColumns,
		sub.UserID, sub.PlanID, sub.Amount, sub.Status, sub.UpdatedAt)
	if err != nil {
		return subscription.Subscription{}, notFound(err)
	}
	return out, nil
}

// --- HistoryStore -----------------------------------------------------------

func (s *Store) UpsertHistory(ctx context.Context, entry engagement.HistoryEntry) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO video_history (user_id, video_id, title, thumbnail, channel_id, channel_title, viewed_at)
		VALUES (:user_id, :video_id, :title, :thumbnail, :channel_id, :channel_title, :viewed_at)
		ON CONFLICT (user_id, video_id) DO UPDATE
		SET title = EXCLUDED.title,
		    thumbnail = EXCLUDED.thumbnail,
		    channel_id = EXCLUDED.channel_id,
		    channel_title = EXCLUDED.channel_title,
		    viewed_at = EXCLUDED.viewed_at
	`, entry)
	return err
}

func (s *Store) ListHistory(ctx context.Context, userID string) ([]engagement.HistoryEntry, error) {
	out := []engagement.HistoryEntry{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT user_id, video_id, title, thumbnail, channel_id, channel_title, viewed_at
		FROM video_history
		WHERE user_id = $1
		ORDER BY viewed_at DESC
	`, userID)
	return out, err
}

func (s *Store) ClearHistory(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM video_history WHERE user_id = $1`, userID)
	return err
}

// --- LikeStore --------------------------------------------------------------

func (s *Store) UpsertLike(ctx context.Context, like engagement.Like) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO video_likes (user_id, video_id, title, thumbnail, channel_id, channel_title, liked_at)
		VALUES (:user_id, :video_id, :title, :thumbnail, :channel_id, :channel_title, :liked_at)
		ON CONFLICT (user_id, video_id) DO UPDATE
		SET title = EXCLUDED.title,
		    thumbnail = EXCLUDED.thumbnail,
		    channel_id = EXCLUDED.channel_id,
		    channel_title = EXCLUDED.channel_title,
		    liked_at = EXCLUDED.liked_at
	`, like)
	return err
}

func (s *Store) DeleteLike(ctx context.Context, userID, videoID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM video_likes WHERE user_id = $1 AND video_id = $2`, userID, videoID)
	return err
}

func (s *Store) GetLike(ctx context.Context, userID, videoID string) (engagement.Like, error) {
	var like engagement.Like
	err := s.db.GetContext(ctx, &like, `
		SELECT user_id, video_id, title, thumbnail, channel_id, channel_title, liked_at
		FROM video_likes
		WHERE user_id = $1 AND video_id = $2
	`, userID, videoID)
	if err != nil {
		return engagement.Like{}, notFound(err)
	}
	return like, nil
}

func (s *Store) ListLikes(ctx context.Context, userID string) ([]engagement.Like, error) {
	out := []engagement.Like{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT user_id, video_id, title, thumbnail, channel_id, channel_title, liked_at
		FROM video_likes
		WHERE user_id = $1
		ORDER BY liked_at DESC
	`, userID)
	return out, err
}

// Package engagement records watch history and likes per (user, video).
package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/video_portal/internal/app/domain/engagement"
	"github.com/R3E-Network/video_portal/internal/app/services/catalog"
	"github.com/R3E-Network/video_portal/internal/app/storage"
	"github.com/R3E-Network/video_portal/pkg/logger"
)

// ErrNotSignedIn is returned by mutations made without a user.
var ErrNotSignedIn = errors.New("User not logged in")

// Service wraps the history and like stores.
type Service struct {
	history storage.HistoryStore
	likes   storage.LikeStore
	log     *logger.Logger
	now     func() time.Time
}

// New creates an engagement service.
func New(history storage.HistoryStore, likes storage.LikeStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("engagement")
	}
	return &Service{history: history, likes: likes, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Ref snapshots the fields of v stored alongside history and like rows.
func Ref(v catalog.Video) engagement.VideoRef {
	return engagement.VideoRef{
		VideoID:      v.ID,
		Title:        v.Title,
		Thumbnail:    v.Thumbnails.Medium,
		ChannelID:    v.ChannelID,
		ChannelTitle: v.ChannelTitle,
	}
}

// RecordView upserts a history row. Failures are logged and dropped so a
// broken history table never blocks playback.
func (s *Service) RecordView(ctx context.Context, userID string, v catalog.Video) {
	if userID == "" || v.ID == "" {
		return
	}
	err := s.history.UpsertHistory(ctx, engagement.HistoryEntry{UserID: userID, VideoRef: Ref(v), ViewedAt: s.now()})
	if err != nil {
		s.log.WithError(err).WithField("video_id", v.ID).Warn("record view failed")
	}
}

// History lists the user's views, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]engagement.HistoryEntry, error) {
	if userID == "" {
		return []engagement.HistoryEntry{}, nil
	}
	entries, err := s.history.ListHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if entries == nil {
		entries = []engagement.HistoryEntry{}
	}
	return entries, nil
}

// ClearHistory deletes every history row of the user.
func (s *Service) ClearHistory(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNotSignedIn
	}
	if err := s.history.ClearHistory(ctx, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Like upserts a like row.
func (s *Service) Like(ctx context.Context, userID string, v catalog.Video) error {
	if userID == "" {
		return ErrNotSignedIn
	}
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("video id is required")
	}
	if err := s.likes.UpsertLike(ctx, engagement.Like{UserID: userID, VideoRef: Ref(v), LikedAt: s.now()}); err != nil {
		return fmt.Errorf("like video: %w", err)
	}
	return nil
}

// Unlike removes the (user, video) like.
func (s *Service) Unlike(ctx context.Context, userID, videoID string) error {
	if userID == "" {
		return ErrNotSignedIn
	}
	if err := s.likes.DeleteLike(ctx, userID, videoID); err != nil {
		return fmt.Errorf("unlike video: %w", err)
	}
	return nil
}

// IsLiked reports whether the user liked videoID. Lookup errors read as false.
func (s *Service) IsLiked(ctx context.Context, userID, videoID string) bool {
	if userID == "" || videoID == "" {
		return false
	}
	_, err := s.likes.GetLike(ctx, userID, videoID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.WithError(err).Debug("like lookup failed")
	}
	return err == nil
}

// Liked lists the user's likes, newest first.
func (s *Service) Liked(ctx context.Context, userID string) ([]engagement.Like, error) {
	if userID == "" {
		return []engagement.Like{}, nil
	}
	likes, err := s.likes.ListLikes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	if likes == nil {
		likes = []engagement.Like{}
	}
	return likes, nil
}

package engagement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/video_portal/internal/app/domain/engagement"
	"github.com/R3E-Network/video_portal/internal/app/services/catalog"
	"github.com/R3E-Network/video_portal/internal/app/storage/memory"
	"github.com/R3E-Network/video_portal/pkg/logger"
)

func video(id string) catalog.Video {
	return catalog.Video{
		ID:           id,
		Title:        "Video " + id,
		ChannelID:    "ch1",
		ChannelTitle: "Channel",
		Thumbnails:   catalog.Thumbnails{Default: "d.jpg", Medium: "m.jpg", High: "h.jpg"},
	}
}

func newService() *Service {
	store := memory.New()
	svc := New(store, store, logger.NewDiscard())
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return svc
}

func TestHistoryOrderAndUpsert(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	svc.RecordView(ctx, "u1", video("a"))
	svc.RecordView(ctx, "u1", video("b"))
	svc.RecordView(ctx, "u1", video("a"))
	svc.RecordView(ctx, "", video("c"))

	entries, err := svc.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].VideoID)
	assert.Equal(t, "m.jpg", entries[0].Thumbnail)
	assert.Equal(t, "b", entries[1].VideoID)

	require.NoError(t, svc.ClearHistory(ctx, "u1"))
	entries, err = svc.History(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSignedOutCallers(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	entries, err := svc.History(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	likes, err := svc.Liked(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, likes)

	assert.ErrorIs(t, svc.Like(ctx, "", video("a")), ErrNotSignedIn)
	assert.ErrorIs(t, svc.Unlike(ctx, "", "a"), ErrNotSignedIn)
	assert.EqualError(t, svc.ClearHistory(ctx, ""), "User not logged in")
	assert.False(t, svc.IsLiked(ctx, "", "a"))
}

func TestLikeUnlike(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	require.NoError(t, svc.Like(ctx, "u1", video("a")))
	require.NoError(t, svc.Like(ctx, "u1", video("b")))
	require.NoError(t, svc.Like(ctx, "u1", video("a")))
	assert.True(t, svc.IsLiked(ctx, "u1", "a"))

	likes, err := svc.Liked(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, likes, 2)
	assert.Equal(t, "a", likes[0].VideoID)

	require.NoError(t, svc.Unlike(ctx, "u1", "a"))
	assert.False(t, svc.IsLiked(ctx, "u1", "a"))
}

type failingLikes struct{}

func (failingLikes) UpsertLike(context.Context, engagement.Like) error { return errors.New("down") }
func (failingLikes) DeleteLike(context.Context, string, string) error  { return errors.New("down") }
func (failingLikes) GetLike(context.Context, string, string) (engagement.Like, error) {
	return engagement.Like{}, errors.New("down")
}
func (failingLikes) ListLikes(context.Context, string) ([]engagement.Like, error) {
	return nil, errors.New("down")
}

func TestIsLikedTreatsErrorsAsFalse(t *testing.T) {
	svc := New(memory.New(), failingLikes{}, logger.NewDiscard())
	assert.False(t, svc.IsLiked(context.Background(), "u1", "a"))
	assert.Error(t, svc.Like(context.Background(), "u1", video("a")))
}

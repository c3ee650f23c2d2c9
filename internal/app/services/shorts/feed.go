package shorts

import (
	"context"
	"fmt"

	"github.com/R3E-Network/video_portal/internal/app/services/catalog"
	"github.com/R3E-Network/video_portal/pkg/logger"
)

// maxExtendPages bounds how many continuation pages one request may pull.
const maxExtendPages = 5

// Source lists short videos. *catalog.Client satisfies it.
type Source interface {
	Shorts(ctx context.Context, maxResults int, pageToken string) (catalog.Page, error)
}

// FeedPage is the loaded shorts list with the caller's position in it.
type FeedPage struct {
	Items         []catalog.Video `json:"items"`
	Index         int             `json:"index"`
	HasNext       bool            `json:"hasNext"`
	HasPrev       bool            `json:"hasPrev"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
}

// Feed loads shorts for a position.
type Feed struct {
	source Source
	log    *logger.Logger
}

// NewFeed creates a feed over source.
func NewFeed(source Source, log *logger.Logger) *Feed {
	if log == nil {
		log = logger.NewDefault("shorts")
	}
	return &Feed{source: source, log: log}
}

// Load fetches the list starting at pageToken and positions the caller at
// index. When index sits on the last loaded item and the listing continues,
// the next page is appended so the client can keep swiping.
func (f *Feed) Load(ctx context.Context, index int, pageToken string, maxResults int) (FeedPage, error) {
	if index < 0 {
		index = 0
	}
	pager := catalog.NewPager(func(ctx context.Context, token string) (catalog.Page, error) {
		return f.source.Shorts(ctx, maxResults, token)
	}, pageToken)

	items := []catalog.Video{}
	for pages := 0; !pager.Done() && pages < maxExtendPages; pages++ {
		if len(items) > 0 && index < len(items)-1 {
			break
		}
		page, err := pager.Next(ctx)
		if err != nil {
			if len(items) > 0 {
				f.log.WithError(err).
					WithField("index", index).
					WithField("loaded", len(items)).
					Warn("extend shorts feed failed")
				break
			}
			return FeedPage{}, fmt.Errorf("load shorts: %w", err)
		}
		items = append(items, page.Items...)
	}

	nav := Navigator{Index: index, Total: len(items)}
	if nav.Index > nav.Total-1 {
		nav.Index = max(nav.Total-1, 0)
	}
	out := FeedPage{
		Items:   items,
		Index:   nav.Index,
		HasNext: nav.HasNext() || !pager.Done(),
		HasPrev: nav.HasPrev(),
	}
	if !pager.Done() {
		out.NextPageToken = pager.Token()
	}
	return out, nil
}

package catalog

import "time"

// Thumbnails holds the three thumbnail sizes the UI uses.
type Thumbnails struct {
	Default string `json:"default"`
	Medium  string `json:"medium"`
	High    string `json:"high"`
}

// Video is a catalog video with its display strings filled in.
type Video struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ChannelID    string     `json:"channelId"`
	ChannelTitle string     `json:"channelTitle"`
	PublishedAt  time.Time  `json:"publishedAt"`
	Thumbnails   Thumbnails `json:"thumbnails"`
	ViewCount    string     `json:"viewCount,omitempty"`
	LikeCount    string     `json:"likeCount,omitempty"`
	CommentCount string     `json:"commentCount,omitempty"`
	Duration     string     `json:"duration,omitempty"`

	Views        string `json:"views"`
	DurationText string `json:"durationText,omitempty"`
	PublishedAgo string `json:"publishedAgo"`
}

// Channel is a catalog channel.
type Channel struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	CustomURL       string     `json:"customUrl,omitempty"`
	Thumbnails      Thumbnails `json:"thumbnails"`
	SubscriberCount string     `json:"subscriberCount"`
	VideoCount      string     `json:"videoCount"`
	ViewCount       string     `json:"viewCount"`
	Subscribers     string     `json:"subscribers"`
}

// Page is one page of a listing.
type Page struct {
	Items         []Video `json:"items"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
	PrevPageToken string  `json:"prevPageToken,omitempty"`
	TotalResults  int     `json:"totalResults"`
}

// Raw Data API v3 shapes. Search results carry the id as an object, list
// endpoints as a plain string, so both are decoded through rawID.

type listResponse struct {
	NextPageToken string    `json:"nextPageToken"`
	PrevPageToken string    `json:"prevPageToken"`
	PageInfo      pageInfo  `json:"pageInfo"`
	Items         []rawItem `json:"items"`
}

type pageInfo struct {
	TotalResults int `json:"totalResults"`
}

type rawItem struct {
	ID             rawID          `json:"id"`
	Snippet        rawSnippet     `json:"snippet"`
	Statistics     rawStatistics  `json:"statistics"`
	ContentDetails rawContentInfo `json:"contentDetails"`
}

type rawSnippet struct {
	Title        string                  `json:"title"`
	Description  string                  `json:"description"`
	ChannelID    string                  `json:"channelId"`
	ChannelTitle string                  `json:"channelTitle"`
	CustomURL    string                  `json:"customUrl"`
	PublishedAt  time.Time               `json:"publishedAt"`
	Thumbnails   map[string]rawThumbnail `json:"thumbnails"`
}

type rawThumbnail struct {
	URL string `json:"url"`
}

type rawStatistics struct {
	ViewCount       string `json:"viewCount"`
	LikeCount       string `json:"likeCount"`
	CommentCount    string `json:"commentCount"`
	SubscriberCount string `json:"subscriberCount"`
	VideoCount      string `json:"videoCount"`
}

type rawContentInfo struct {
	Duration string `json:"duration"`
}

func (s rawSnippet) thumbnails() Thumbnails {
	return Thumbnails{
		Default: s.Thumbnails["default"].URL,
		Medium:  s.Thumbnails["medium"].URL,
		High:    s.Thumbnails["high"].URL,
	}
}

func (it rawItem) video(now time.Time) Video {
	v := Video{
		ID:           it.ID.Value,
		Title:        it.Snippet.Title,
		Description:  it.Snippet.Description,
		ChannelID:    it.Snippet.ChannelID,
		ChannelTitle: it.Snippet.ChannelTitle,
		PublishedAt:  it.Snippet.PublishedAt,
		Thumbnails:   it.Snippet.thumbnails(),
		ViewCount:    it.Statistics.ViewCount,
		LikeCount:    it.Statistics.LikeCount,
		CommentCount: it.Statistics.CommentCount,
		Duration:     it.ContentDetails.Duration,
	}
	v.Views = FormatViewCount(v.ViewCount)
	if v.Duration != "" {
		v.DurationText = FormatDuration(v.Duration)
	}
	if !v.PublishedAt.IsZero() {
		v.PublishedAgo = TimeAgo(v.PublishedAt, now)
	}
	return v
}

func (it rawItem) channel() Channel {
	return Channel{
		ID:              it.ID.Value,
		Title:           it.Snippet.Title,
		Description:     it.Snippet.Description,
		CustomURL:       it.Snippet.CustomURL,
		Thumbnails:      it.Snippet.thumbnails(),
		SubscriberCount: it.Statistics.SubscriberCount,
		VideoCount:      it.Statistics.VideoCount,
		ViewCount:       it.Statistics.ViewCount,
		Subscribers:     FormatViewCount(it.Statistics.SubscriberCount),
	}
}

func (r listResponse) page(now time.Time) Page {
	p := Page{
		Items:         make([]Video, 0, len(r.Items)),
		NextPageToken: r.NextPageToken,
		PrevPageToken: r.PrevPageToken,
		TotalResults:  r.PageInfo.TotalResults,
	}
	for _, it := range r.Items {
		if it.ID.Value == "" {
			continue
		}
		p.Items = append(p.Items, it.video(now))
	}
	return p
}

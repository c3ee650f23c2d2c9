package engagement

import "time"

// VideoRef is the denormalised video snapshot stored with history and likes so
// list pages render without calling the catalog.
type VideoRef struct {
	VideoID      string `json:"video_id" db:"video_id"`
	Title        string `json:"title" db:"title"`
	Thumbnail    string `json:"thumbnail" db:"thumbnail"`
	ChannelID    string `json:"channel_id" db:"channel_id"`
	ChannelTitle string `json:"channel_title" db:"channel_title"`
}

// HistoryEntry is one row of video_history, unique per (user_id, video_id).
type HistoryEntry struct {
	UserID string `json:"user_id" db:"user_id"`
	VideoRef
	ViewedAt time.Time `json:"viewed_at" db:"viewed_at"`
}

// Like is one row of video_likes, unique per (user_id, video_id).
type Like struct {
	UserID string `json:"user_id" db:"user_id"`
	VideoRef
	LikedAt time.Time `json:"liked_at" db:"liked_at"`
}

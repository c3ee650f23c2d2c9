package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/video_portal/internal/app/services/catalog"
	svcerrors "github.com/R3E-Network/video_portal/internal/errors"
	"github.com/R3E-Network/video_portal/internal/httputil"
)

// listVideos serves the home grid: "All" (or no category) lists trending
// videos, any other category or query runs a keyword search.
func (h *handler) listVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	maxResults, err := intParam(r, "maxResults", catalog.DefaultMaxResults)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	query := strings.TrimSpace(q.Get("q"))
	category := strings.TrimSpace(q.Get("category"))
	if query == "" && !strings.EqualFold(category, "All") {
		query = category
	}

	var page catalog.Page
	if query == "" {
		page, err = h.app.Catalog.Trending(r.Context(), q.Get("region"), maxResults, q.Get("pageToken"))
	} else {
		page, err = h.app.Catalog.Search(r.Context(), query, maxResults, q.Get("pageToken"))
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) trending(w http.ResponseWriter, r *http.Request) {
	maxResults, err := intParam(r, "maxResults", catalog.DefaultMaxResults)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.app.Catalog.Trending(r.Context(), r.URL.Query().Get("region"), maxResults, r.URL.Query().Get("pageToken"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeError(w, r, svcerrors.BadRequest("search query is required"))
		return
	}
	maxResults, err := intParam(r, "maxResults", catalog.DefaultMaxResults)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.app.Catalog.Search(r.Context(), query, maxResults, r.URL.Query().Get("pageToken"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"query": query, "results": page})
}

// video returns the detail page payload and records the view for signed-in
// callers.
func (h *handler) video(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	v, err := h.app.Catalog.Video(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	liked := false
	if uid := userID(r); uid != "" {
		h.app.Engagement.RecordView(r.Context(), uid, v)
		liked = h.app.Engagement.IsLiked(r.Context(), uid, v.ID)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"video": v, "liked": liked})
}

func (h *handler) like(w http.ResponseWriter, r *http.Request) {
	v, err := h.app.Catalog.Video(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Engagement.Like(r.Context(), userID(r), v); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"video_id": v.ID, "liked": true})
}

func (h *handler) unlike(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.app.Engagement.Unlike(r.Context(), userID(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"video_id": id, "liked": false})
}

func (h *handler) shorts(w http.ResponseWriter, r *http.Request) {
	index, err := intParam(r, "index", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	maxResults, err := intParam(r, "maxResults", catalog.DefaultMaxResults)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.app.Shorts.Load(r.Context(), index, r.URL.Query().Get("pageToken"), maxResults)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) channel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ch, err := h.app.Catalog.Channel(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	videos, err := h.app.Catalog.ChannelVideos(r.Context(), id, catalog.DefaultMaxResults, "")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"channel": ch, "videos": videos})
}

func (h *handler) channelVideos(w http.ResponseWriter, r *http.Request) {
	maxResults, err := intParam(r, "maxResults", catalog.DefaultMaxResults)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.app.Catalog.ChannelVideos(r.Context(), mux.Vars(r)["id"], maxResults, r.URL.Query().Get("pageToken"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/R3E-Network/video_portal/internal/app/services/upload"
	"github.com/R3E-Network/video_portal/internal/httputil"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// progressFrame is one websocket message of the upload stream.
type progressFrame struct {
	ID       string `json:"id"`
	Progress int    `json:"progress"`
	State    string `json:"state"`
	Message  string `json:"message,omitempty"`
}

func (h *handler) startUpload(w http.ResponseWriter, r *http.Request) {
	var meta upload.Meta
	if !decodeBody(w, r, &meta) {
		return
	}
	job, err := h.app.Uploads.Start(r.Context(), userID(r), meta)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, job)
}

func (h *handler) listUploads(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"uploads": h.app.Uploads.List(r.Context(), userID(r))})
}

func (h *handler) getUpload(w http.ResponseWriter, r *http.Request) {
	job, err := h.app.Uploads.Get(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}

func (h *handler) cancelUpload(w http.ResponseWriter, r *http.Request) {
	job, err := h.app.Uploads.Cancel(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}

// watchUpload streams progress frames until the job ends or the client goes
// away.
func (h *handler) watchUpload(w http.ResponseWriter, r *http.Request) {
	updates, stop, err := h.app.Uploads.Watch(userID(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer stop()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithContext(r.Context()).WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// The read pump only handles pongs and notices the client closing.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case job, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "upload finished"))
				return
			}
			frame := progressFrame{ID: job.ID, Progress: job.Progress, State: job.State, Message: job.Message}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}

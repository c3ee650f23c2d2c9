package httpapi

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/R3E-Network/video_portal/internal/httputil"
)

type memoryStats struct {
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// health reports liveness plus host memory. A failed memory probe is logged
// and leaves the field out.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":         "ok",
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"services":       h.app.Services(),
		"cache_entries":  h.app.Cache.Len(),
	}
	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err != nil {
		h.log.WithContext(r.Context()).WithError(err).Debug("memory probe failed")
	} else {
		body["memory"] = memoryStats{TotalBytes: vm.Total, UsedBytes: vm.Used, UsedPercent: vm.UsedPercent}
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

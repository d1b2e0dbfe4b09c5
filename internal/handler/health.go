package handler

import (
	"net/http"
	"time"
)

type HealthHandler struct {
	loaded  *LoadedSet
	started time.Time
}

func NewHealthHandler(loaded *LoadedSet) *HealthHandler {
	return &HealthHandler{loaded: loaded, started: time.Now()}
}

// GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"timestamp":      time.Now().UnixMilli(),
		"uptimeSeconds":  int64(time.Since(h.started).Seconds()),
		"loadedSessions": h.loaded.Len(),
	})
}

package handlers

import (
	"net/http"
	"time"

	"earthtour/internal/animation"
	"earthtour/internal/httpkit"
	"earthtour/internal/job"
)

// Info describes the service and its endpoints, serving as a liveness probe
// on the root path.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"name":    "earthtour",
		"version": "0.1.0",
		"status":  "running",
		"message": "Earth flight path animation renderer",
		"endpoints": map[string]string{
			"POST /generate-animation": "Submit locations and receive a job id",
			"GET /job/{jobId}":         "Poll job status",
			"GET /videos/{file}":       "Stream a rendered video",
			"GET /health":              "Health and queue statistics",
		},
		"qualities": []string{
			string(animation.Quality720p),
			string(animation.Quality1080p),
			string(animation.Quality1440p),
			string(animation.Quality4K),
		},
	})
}

// Health reports readiness plus per-status job counts.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.registry.Stats()
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"jobs": map[string]int{
			"queued":     stats[job.StatusQueued],
			"processing": stats[job.StatusProcessing],
			"completed":  stats[job.StatusCompleted],
			"failed":     stats[job.StatusFailed],
		},
	})
}

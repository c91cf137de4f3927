package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"earthtour/internal/httpkit"
	"earthtour/internal/pkg/middleware"
)

// GetJob returns the current snapshot of a job. Completed jobs expose the
// video path and animation duration, failed jobs the error detail.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	j, err := h.registry.Get(jobID)
	if err != nil {
		middleware.HandleError(w, r, h.log.FromContext(r.Context()), err)
		return
	}

	resp := map[string]any{
		"id":      j.ID,
		"status":  string(j.Status),
		"created": j.Created,
		"request": j.Request,
	}
	if j.Result != nil {
		resp["video_path"] = j.Result.VideoPath
		resp["duration"] = j.Result.Duration
	}
	if j.Error != "" {
		resp["error"] = j.Error
	}

	httpkit.WriteJSON(w, http.StatusOK, resp)
}

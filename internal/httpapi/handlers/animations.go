package handlers

import (
	"net/http"

	"earthtour/internal/animation"
	"earthtour/internal/httpkit"
	"earthtour/internal/pkg/middleware"
)

// PostAnimation validates the request synchronously, creates a job and admits
// it into the render queue. The response carries the job id for polling.
func (h *Handler) PostAnimation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	var req animation.AnimationRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	resolved, err := h.validator.Validate(ctx, req)
	if err != nil {
		middleware.HandleError(w, r, log, err)
		return
	}

	j := h.registry.Create(*resolved)

	if err := h.scheduler.Submit(j.ID); err != nil {
		// Nothing will ever process the job; drop the record so the
		// client does not poll a permanently queued id.
		h.registry.Delete(j.ID)
		middleware.HandleError(w, r, log, err)
		return
	}

	log.Info("animation job accepted",
		"job_id", j.ID,
		"locations", len(resolved.Locations),
		"quality", string(resolved.Quality),
	)

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"job_id":  j.ID,
		"status":  string(j.Status),
		"message": "Animation request has been queued for processing",
	})
}

package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"earthtour/internal/httpkit"
	"earthtour/internal/pkg/errors"
	"earthtour/internal/pkg/middleware"
)

// StreamVideo streams a completed job's artifact from the storage provider.
// Only file names recorded by a completed job are served; anything else is a
// 404, so the storage namespace is never browsable through this endpoint.
func (h *Handler) StreamVideo(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "videoFileName")
	log := h.log.FromContext(r.Context())

	if strings.ContainsAny(fileName, "/\\") || strings.Contains(fileName, "..") {
		httpkit.WriteErr(w, http.StatusBadRequest, "BAD_REQUEST", "invalid video file name", nil)
		return
	}

	objectKey, ok := h.registry.ArtifactKey(fileName)
	if !ok {
		middleware.HandleError(w, r, log, errors.NotFound("video", fileName))
		return
	}

	rc, contentType, size, err := h.sp.GetObject(r.Context(), objectKey)
	if err != nil {
		log.Error("failed to open artifact",
			"object_key", objectKey,
			"error", err.Error(),
		)
		middleware.HandleError(w, r, log, errors.Wrap(err, "httpapi.video", "opening artifact"))
		return
	}
	defer rc.Close()

	if contentType == "" {
		contentType = "video/mp4"
	}
	w.Header().Set("Content-Type", contentType)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.Header().Set("Content-Disposition", `inline; filename="`+fileName+`"`)

	if _, err := io.Copy(w, rc); err != nil {
		// Headers are already out; all we can do is log.
		log.Warn("artifact stream interrupted",
			"file", fileName,
			"error", err.Error(),
		)
	}
}

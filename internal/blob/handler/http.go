package handler

import (
	"errors"
	"net/http"

	"archipelago/backend/internal/blob"
	"archipelago/backend/internal/server/httpjson"
)

// allowedBuckets restricts file serving to the image buckets the API writes.
var allowedBuckets = map[string]bool{
	"user-avatars":   true,
	"user-banners":   true,
	"island-logos":   true,
	"island-banners": true,
}

// Handler serves stored files back to clients.
type Handler struct {
	blobs blob.Store
}

func NewHandler(blobs blob.Store) *Handler {
	return &Handler{blobs: blobs}
}

// Register mounts the file route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/files/{bucket}/{path...}", h.get)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	if !allowedBuckets[bucket] {
		httpjson.WriteError(w, http.StatusNotFound, "file not found")
		return
	}
	obj, err := h.blobs.Get(r.Context(), bucket, r.PathValue("path"))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			httpjson.WriteError(w, http.StatusNotFound, "file not found")
			return
		}
		httpjson.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Data)
}

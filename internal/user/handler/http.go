package handler

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"archipelago/backend/internal/audit"
	"archipelago/backend/internal/blob"
	"archipelago/backend/internal/server/httpjson"
	"archipelago/backend/internal/server/middleware"
	"archipelago/backend/internal/user/domain"
	userrepo "archipelago/backend/internal/user/repository"
)

const maxImageBytes = 4 << 20

const (
	avatarBucket = "user-avatars"
	bannerBucket = "user-banners"
)

// Handler exposes the user profile endpoints.
type Handler struct {
	users  userrepo.Repository
	blobs  blob.Store
	audits audit.AuditLogger
}

// NewHandler returns a user HTTP handler.
func NewHandler(users userrepo.Repository, blobs blob.Store, audits audit.AuditLogger) *Handler {
	return &Handler{users: users, blobs: blobs, audits: audits}
}

// Register mounts the user routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/users/me", h.me)
	mux.HandleFunc("PATCH /api/users/me", h.updateProfile)
	mux.HandleFunc("GET /api/users/{id}", h.get)
	mux.HandleFunc("PUT /api/users/me/avatar", h.putAvatar)
	mux.HandleFunc("PUT /api/users/me/banner", h.putBanner)
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Tag         string `json:"tag"`
	BannerColor string `json:"banner_color"`
}

type userResponse struct {
	ID             string   `json:"id"`
	Username       string   `json:"username"`
	Email          string   `json:"email,omitempty"`
	DisplayName    string   `json:"display_name"`
	Tag            string   `json:"tag"`
	Status         string   `json:"status"`
	AvatarFilename string   `json:"avatar_filename,omitempty"`
	BannerFilename string   `json:"banner_filename,omitempty"`
	BannerColor    string   `json:"banner_color,omitempty"`
	CreatedAt      string   `json:"created_at"`
	Roles          []string `json:"roles,omitempty"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if u == nil {
		httpjson.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	resp := toUserResponse(u, true)
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		resp.Roles = claims.Roles
	}
	httpjson.WriteJSON(w, http.StatusOK, resp)
}

// get returns another user's public profile. Email is omitted.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if u == nil {
		httpjson.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, toUserResponse(u, false))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req updateProfileRequest
	if err := httpjson.DecodeJSON(w, r, &req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DisplayName == "" || req.Tag == "" {
		httpjson.WriteError(w, http.StatusBadRequest, "display_name and tag are required")
		return
	}
	u, err := h.users.UpdateProfile(r.Context(), userID, req.DisplayName, req.Tag, req.BannerColor)
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if u == nil {
		httpjson.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	h.audits.LogEvent(r.Context(), "", userID, "user.update_profile", "user:"+userID, "")
	httpjson.WriteJSON(w, http.StatusOK, toUserResponse(u, true))
}

func (h *Handler) putAvatar(w http.ResponseWriter, r *http.Request) {
	h.putImage(w, r, avatarBucket, h.users.SetAvatar, func(u *domain.User) string { return u.AvatarFilename }, "user.set_avatar")
}

func (h *Handler) putBanner(w http.ResponseWriter, r *http.Request) {
	h.putImage(w, r, bannerBucket, h.users.SetBanner, func(u *domain.User) string { return u.BannerFilename }, "user.set_banner")
}

func (h *Handler) putImage(w http.ResponseWriter, r *http.Request, bucket string, record func(ctx context.Context, id, filename string) error, previous func(*domain.User) string, action string) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil || u == nil {
		httpjson.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		httpjson.WriteError(w, http.StatusBadRequest, "content type must be image/*")
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "image too large or unreadable")
		return
	}
	if len(data) == 0 {
		httpjson.WriteError(w, http.StatusBadRequest, "image body is required")
		return
	}
	name, err := h.blobs.Put(r.Context(), bucket, userID, data, contentType)
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	if err := record(r.Context(), userID, name); err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, "failed to record image")
		return
	}
	if old := previous(u); old != "" && old != name {
		// Best effort; an orphaned file is harmless.
		if err := h.blobs.Delete(r.Context(), bucket, userID+"/"+old); err != nil {
			log.Printf("blob: delete replaced %s/%s: %v", bucket, old, err)
		}
	}
	h.audits.LogEvent(r.Context(), "", userID, action, "user:"+userID, name)
	httpjson.WriteJSON(w, http.StatusOK, map[string]string{"filename": name})
}

func toUserResponse(u *domain.User, includeEmail bool) userResponse {
	resp := userResponse{
		ID:             u.ID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		Tag:            u.Tag,
		Status:         string(u.Status),
		AvatarFilename: u.AvatarFilename,
		BannerFilename: u.BannerFilename,
		BannerColor:    u.BannerColor,
		CreatedAt:      u.CreatedAt.UTC().Format(time.RFC3339),
	}
	if includeEmail {
		resp.Email = u.Email
	}
	return resp
}

package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"archipelago/backend/internal/audit"
	"archipelago/backend/internal/blob"
	"archipelago/backend/internal/island/domain"
	islandrepo "archipelago/backend/internal/island/repository"
	"archipelago/backend/internal/island/service"
	membershipdomain "archipelago/backend/internal/membership/domain"
	"archipelago/backend/internal/platform/rbac"
	"archipelago/backend/internal/server/httpjson"
	"archipelago/backend/internal/server/middleware"
)

// maxImageBytes caps logo and banner uploads at 4 MiB.
const maxImageBytes = 4 << 20

// logoBucket and bannerBucket name the blob store buckets for island images.
const (
	logoBucket   = "island-logos"
	bannerBucket = "island-banners"
)

// Handler exposes the island endpoints.
type Handler struct {
	islands     *service.Service
	repo        islandrepo.Repository
	memberships rbac.MembershipGetter
	blobs       blob.Store
	audits      audit.AuditLogger
}

// NewHandler returns an island HTTP handler.
func NewHandler(islands *service.Service, repo islandrepo.Repository, memberships rbac.MembershipGetter, blobs blob.Store, audits audit.AuditLogger) *Handler {
	return &Handler{islands: islands, repo: repo, memberships: memberships, blobs: blobs, audits: audits}
}

// Register mounts the island routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/islands", h.create)
	mux.HandleFunc("GET /api/islands/mine", h.listMine)
	mux.HandleFunc("GET /api/islands/{id}", h.get)
	mux.HandleFunc("PATCH /api/islands/{id}", h.edit)
	mux.HandleFunc("GET /api/islands/{id}/members", h.members)
	mux.HandleFunc("DELETE /api/islands/{id}/members/{userID}", h.removeMember)
	mux.HandleFunc("POST /api/islands/{id}/leave", h.leave)
	mux.HandleFunc("PUT /api/islands/{id}/logo", h.putLogo)
	mux.HandleFunc("PUT /api/islands/{id}/banner", h.putBanner)
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type editRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	BannerColor string `json:"banner_color"`
	Version     int64  `json:"version"`
}

type islandResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Status         string `json:"status"`
	AuthorID       string `json:"author_id"`
	OwnerID        string `json:"owner_id"`
	LogoFilename   string `json:"logo_filename,omitempty"`
	BannerFilename string `json:"banner_filename,omitempty"`
	BannerColor    string `json:"banner_color,omitempty"`
	Version        int64  `json:"version"`
	CreatedAt      string `json:"created_at"`
}

type memberResponse struct {
	UserID   string `json:"user_id"`
	IslandID string `json:"island_id"`
	JoinedAt string `json:"joined_at"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req createRequest
	if err := httpjson.DecodeJSON(w, r, &req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	island, err := h.islands.Create(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		h.writeIslandError(w, err)
		return
	}
	h.audits.LogEvent(r.Context(), island.ID, userID, "island.create", "island:"+island.ID, "")
	httpjson.WriteJSON(w, http.StatusCreated, toIslandResponse(island))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	island, err := h.islands.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeIslandError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, toIslandResponse(island))
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	islands, err := h.islands.ListMine(r.Context(), userID)
	if err != nil {
		h.writeIslandError(w, err)
		return
	}
	out := make([]islandResponse, 0, len(islands))
	for _, island := range islands {
		out = append(out, toIslandResponse(island))
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"islands": out})
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req editRequest
	if err := httpjson.DecodeJSON(w, r, &req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	islandID := r.PathValue("id")
	island, err := h.islands.Edit(r.Context(), islandID, userID, service.EditParams{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		BannerColor: req.BannerColor,
		Version:     req.Version,
	})
	if err != nil {
		h.writeIslandError(w, err)
		return
	}
	h.audits.LogEvent(r.Context(), islandID, userID, "island.edit", "island:"+islandID, "")
	httpjson.WriteJSON(w, http.StatusOK, toIslandResponse(island))
}

func (h *Handler) members(w http.ResponseWriter, r *http.Request) {
	islandID := r.PathValue("id")
	if _, err := rbac.RequireIslandMember(r.Context(), h.memberships, islandID); err != nil {
		switch {
		case errors.Is(err, rbac.ErrUnauthenticated):
			httpjson.WriteError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, rbac.ErrForbidden):
			httpjson.WriteError(w, http.StatusForbidden, err.Error())
		default:
			httpjson.WriteError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	members, err := h.islands.Members(r.Context(), islandID)
	if err != nil {
		h.writeIslandError(w, err)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"members": out})
}

func (h *Handler) leave(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	islandID := r.PathValue("id")
	if err := h.islands.Leave(r.Context(), islandID, userID); err != nil {
		h.writeIslandError(w, err)
		return
	}
	h.audits.LogEvent(r.Context(), islandID, userID, "island.leave", "island:"+islandID, "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	islandID := r.PathValue("id")
	target := r.PathValue("userID")
	if err := h.islands.RemoveMember(r.Context(), islandID, userID, target); err != nil {
		h.writeIslandError(w, err)
		return
	}
	h.audits.LogEvent(r.Context(), islandID, userID, "island.remove_member", "user:"+target, "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) putLogo(w http.ResponseWriter, r *http.Request) {
	h.putImage(w, r, logoBucket, h.repo.SetLogo, func(i *domain.Island) string { return i.LogoFilename }, "island.set_logo")
}

func (h *Handler) putBanner(w http.ResponseWriter, r *http.Request) {
	h.putImage(w, r, bannerBucket, h.repo.SetBanner, func(i *domain.Island) string { return i.BannerFilename }, "island.set_banner")
}

func (h *Handler) putImage(w http.ResponseWriter, r *http.Request, bucket string, record func(ctx context.Context, id, filename string) error, previous func(*domain.Island) string, action string) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	islandID := r.PathValue("id")
	island, err := h.islands.Get(r.Context(), islandID)
	if err != nil {
		h.writeIslandError(w, err)
		return
	}
	if island.OwnerID != userID {
		httpjson.WriteError(w, http.StatusForbidden, "island owner required")
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
	name, err := h.blobs.Put(r.Context(), bucket, islandID, data, contentType)
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	if err := record(r.Context(), islandID, name); err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, "failed to record image")
		return
	}
	if old := previous(island); old != "" && old != name {
		// Best effort; an orphaned file is harmless.
		if err := h.blobs.Delete(r.Context(), bucket, islandID+"/"+old); err != nil {
			log.Printf("blob: delete replaced %s/%s: %v", bucket, old, err)
		}
	}
	h.audits.LogEvent(r.Context(), islandID, userID, action, "island:"+islandID, name)
	httpjson.WriteJSON(w, http.StatusOK, map[string]string{"filename": name})
}

func (h *Handler) writeIslandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNameRequired):
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		httpjson.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner), errors.Is(err, service.ErrNotMember), errors.Is(err, service.ErrOwnerMustRemain):
		httpjson.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, islandrepo.ErrVersionConflict):
		httpjson.WriteError(w, http.StatusConflict, err.Error())
	default:
		httpjson.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func toIslandResponse(i *domain.Island) islandResponse {
	return islandResponse{
		ID:             i.ID,
		Name:           i.Name,
		Description:    i.Description,
		Status:         i.Status,
		AuthorID:       i.AuthorID,
		OwnerID:        i.OwnerID,
		LogoFilename:   i.LogoFilename,
		BannerFilename: i.BannerFilename,
		BannerColor:    i.BannerColor,
		Version:        i.Version,
		CreatedAt:      i.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toMemberResponse(m *membershipdomain.Membership) memberResponse {
	return memberResponse{
		UserID:   m.UserID,
		IslandID: m.IslandID,
		JoinedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

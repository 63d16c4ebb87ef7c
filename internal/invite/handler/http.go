package handler

import (
	"errors"
	"net/http"
	"time"

	"archipelago/backend/internal/audit"
	"archipelago/backend/internal/invite/domain"
	"archipelago/backend/internal/invite/service"
	"archipelago/backend/internal/server/httpjson"
	"archipelago/backend/internal/server/middleware"
)

// Handler exposes the invite endpoints.
type Handler struct {
	invites *service.Service
	audits  audit.AuditLogger
}

// NewHandler returns an invite HTTP handler.
func NewHandler(invites *service.Service, audits audit.AuditLogger) *Handler {
	return &Handler{invites: invites, audits: audits}
}

// Register mounts the invite routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/islands/{id}/invites", h.create)
	mux.HandleFunc("GET /api/islands/{id}/invites", h.list)
	mux.HandleFunc("DELETE /api/islands/{id}/invites/{content}", h.delete)
	mux.HandleFunc("POST /api/invites/{content}/redeem", h.redeem)
}

type createRequest struct {
	Days      *int   `json:"days"`
	Hours     *int   `json:"hours"`
	Minutes   *int   `json:"minutes"`
	MaxUsages *int32 `json:"max_usages"`
}

type inviteResponse struct {
	Content       string  `json:"content"`
	IslandID      string  `json:"island_id"`
	AuthorID      string  `json:"author_id"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to,omitempty"`
	UsagesMax     *int32  `json:"usages_max,omitempty"`
	UsagesCount   int32   `json:"usages_count"`
	UsagesLeft    *int32  `json:"usages_left,omitempty"`
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
	if req.MaxUsages != nil && *req.MaxUsages < 1 {
		httpjson.WriteError(w, http.StatusBadRequest, "max_usages must be at least 1")
		return
	}
	islandID := r.PathValue("id")
	link, err := h.invites.Create(r.Context(), islandID, userID, service.CreateParams{
		Days:      req.Days,
		Hours:     req.Hours,
		Minutes:   req.Minutes,
		MaxUsages: req.MaxUsages,
	})
	if err != nil {
		h.writeInviteError(w, err)
		return
	}
	h.audits.LogEvent(r.Context(), islandID, userID, "invite.create", "invite:"+link.Content, "")
	httpjson.WriteJSON(w, http.StatusCreated, toInviteResponse(link))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	links, err := h.invites.ListActive(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		h.writeInviteError(w, err)
		return
	}
	out := make([]inviteResponse, 0, len(links))
	for _, link := range links {
		out = append(out, toInviteResponse(link))
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"invites": out})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	islandID := r.PathValue("id")
	content := r.PathValue("content")
	if err := h.invites.Delete(r.Context(), islandID, content, userID); err != nil {
		h.writeInviteError(w, err)
		return
	}
	h.audits.LogEvent(r.Context(), islandID, userID, "invite.delete", "invite:"+content, "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpjson.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	content := r.PathValue("content")
	m, err := h.invites.Redeem(r.Context(), content, userID)
	if err != nil {
		h.writeInviteError(w, err)
		return
	}
	h.audits.LogEvent(r.Context(), m.IslandID, userID, "invite.redeem", "invite:"+content, "")
	httpjson.WriteJSON(w, http.StatusOK, map[string]string{
		"island_id": m.IslandID,
		"user_id":   m.UserID,
		"joined_at": m.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) writeInviteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, service.ErrIslandNotFound):
		httpjson.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		httpjson.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrExpired), errors.Is(err, domain.ErrExhausted):
		httpjson.WriteError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrAlreadyMember):
		httpjson.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httpjson.WriteError(w, http.StatusConflict, err.Error())
	default:
		httpjson.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func toInviteResponse(l *domain.InviteLink) inviteResponse {
	resp := inviteResponse{
		Content:       l.Content,
		IslandID:      l.IslandID,
		AuthorID:      l.AuthorID,
		EffectiveFrom: l.EffectiveFrom.UTC().Format(time.RFC3339),
		UsagesMax:     l.UsagesMax,
		UsagesCount:   l.UsagesCount,
		UsagesLeft:    l.UsagesLeft(),
	}
	if l.EffectiveTo != nil {
		to := l.EffectiveTo.UTC().Format(time.RFC3339)
		resp.EffectiveTo = &to
	}
	return resp
}

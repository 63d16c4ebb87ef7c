package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	auditrepo "archipelago/backend/internal/audit/repository"
	"archipelago/backend/internal/platform/rbac"
	"archipelago/backend/internal/server/httpjson"
)

// Handler exposes the audit log listing for island owners.
type Handler struct {
	audits  auditrepo.Repository
	islands rbac.IslandGetter
}

func NewHandler(audits auditrepo.Repository, islands rbac.IslandGetter) *Handler {
	return &Handler{audits: audits, islands: islands}
}

// Register mounts the audit routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/islands/{id}/audit", h.list)
}

type entryResponse struct {
	ID        string `json:"id"`
	IslandID  string `json:"island_id"`
	UserID    string `json:"user_id"`
	Action    string `json:"action"`
	Resource  string `json:"resource"`
	IP        string `json:"ip"`
	Metadata  string `json:"metadata,omitempty"`
	CreatedAt string `json:"created_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	islandID := r.PathValue("id")
	if _, err := rbac.RequireIslandOwner(r.Context(), h.islands, islandID); err != nil {
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

	limit := parseInt32(r.URL.Query().Get("limit"), 50, 1, 500)
	offset := parseInt32(r.URL.Query().Get("offset"), 0, 0, 1<<30)
	entries, err := h.audits.ListByIsland(r.Context(), islandID, limit, offset)
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:        e.ID,
			IslandID:  e.IslandID,
			UserID:    e.UserID,
			Action:    e.Action,
			Resource:  e.Resource,
			IP:        e.IP,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func parseInt32(raw string, def, min, max int32) int32 {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || int32(v) < min || int32(v) > max {
		return def
	}
	return int32(v)
}

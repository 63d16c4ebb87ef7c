package handler

import (
	"errors"
	"net/http"
	"time"

	"archipelago/backend/internal/audit"
	"archipelago/backend/internal/auth/service"
	"archipelago/backend/internal/server/httpjson"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	auth   *service.AuthService
	audits audit.AuditLogger
}

// NewHandler returns an auth HTTP handler backed by the given service.
func NewHandler(auth *service.AuthService, audits audit.AuditLogger) *Handler {
	return &Handler{auth: auth, audits: audits}
}

// Register mounts the auth routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/sign-up", h.signUp)
	mux.HandleFunc("POST /api/auth/sign-in", h.signIn)
	mux.HandleFunc("POST /api/auth/refresh", h.refresh)
}

type signUpRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type signInRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type refreshRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
	UserID       string `json:"user_id"`
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := httpjson.DecodeJSON(w, r, &req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	pair, err := h.auth.Register(r.Context(), req.Username, req.Email, req.DisplayName, req.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	h.audits.LogEvent(r.Context(), "", pair.UserID, "auth.sign_up", "user:"+pair.UserID, "")
	httpjson.WriteJSON(w, http.StatusCreated, toTokenPairResponse(pair))
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := httpjson.DecodeJSON(w, r, &req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	pair, err := h.auth.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.audits.LogEvent(r.Context(), "", "", "auth.sign_in_failure", "login:"+req.Login, "")
		}
		h.writeAuthError(w, err)
		return
	}
	h.audits.LogEvent(r.Context(), "", pair.UserID, "auth.sign_in", "user:"+pair.UserID, "")
	httpjson.WriteJSON(w, http.StatusOK, toTokenPairResponse(pair))
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpjson.DecodeJSON(w, r, &req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	pair, err := h.auth.Refresh(r.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	h.audits.LogEvent(r.Context(), "", pair.UserID, "auth.refresh", "user:"+pair.UserID, "")
	httpjson.WriteJSON(w, http.StatusOK, toTokenPairResponse(pair))
}

func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		httpjson.WriteError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrEmailTaken):
		httpjson.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		httpjson.WriteError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrInvalidToken):
		httpjson.WriteError(w, http.StatusUnauthorized, "invalid token")
	default:
		httpjson.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func toTokenPairResponse(pair *service.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.UTC().Format(time.RFC3339),
		UserID:       pair.UserID,
	}
}

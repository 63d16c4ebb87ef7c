package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"archipelago/backend/internal/audit"
	"archipelago/backend/internal/auth/service"
	"archipelago/backend/internal/security"
	userdomain "archipelago/backend/internal/user/domain"
)

// fakeUserRepo is an in-memory credential store for handler tests.
type fakeUserRepo struct {
	byUsername map[string]*userdomain.User
	byEmail    map[string]*userdomain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byUsername: make(map[string]*userdomain.User),
		byEmail:    make(map[string]*userdomain.User),
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	f.byUsername[u.Username] = u
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*userdomain.User, error) {
	return f.byUsername[username], nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUserRepo) GetByLogin(ctx context.Context, login string) (*userdomain.User, error) {
	if u := f.byUsername[login]; u != nil {
		return u, nil
	}
	return f.byEmail[login], nil
}

func (f *fakeUserRepo) RolesOf(ctx context.Context, userID string) ([]string, error) {
	return []string{"user"}, nil
}

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	svc := service.NewAuthService(newFakeUserRepo(), security.NewHasher(4), security.NewTestTokenProvider())
	h := NewHandler(svc, audit.NewLogger(nil, nil))
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSignUp_Created(t *testing.T) {
	mux := newTestMux(t)

	rec := postJSON(t, mux, "/api/auth/sign-up", map[string]string{
		"username":     "kupo",
		"email":        "kupo@example.com",
		"display_name": "Kupo",
		"password":     "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp tokenPairResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.UserID == "" {
		t.Errorf("incomplete token pair: %+v", resp)
	}
}

func TestSignUp_ValidationError(t *testing.T) {
	mux := newTestMux(t)

	rec := postJSON(t, mux, "/api/auth/sign-up", map[string]string{
		"username": "kupo",
		"email":    "not-an-email",
		"password": "password123",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSignUp_DuplicateIsConflict(t *testing.T) {
	mux := newTestMux(t)
	body := map[string]string{
		"username": "kupo", "email": "kupo@example.com",
		"display_name": "Kupo", "password": "password123",
	}

	if rec := postJSON(t, mux, "/api/auth/sign-up", body); rec.Code != http.StatusCreated {
		t.Fatalf("first sign-up: %d", rec.Code)
	}
	if rec := postJSON(t, mux, "/api/auth/sign-up", body); rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestSignUp_RejectsUnknownFields(t *testing.T) {
	mux := newTestMux(t)

	rec := postJSON(t, mux, "/api/auth/sign-up", map[string]string{
		"username": "kupo", "email": "kupo@example.com",
		"password": "password123", "is_admin": "true",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown field", rec.Code)
	}
}

func TestSignIn_OKAndUnauthorized(t *testing.T) {
	mux := newTestMux(t)
	if rec := postJSON(t, mux, "/api/auth/sign-up", map[string]string{
		"username": "kupo", "email": "kupo@example.com",
		"display_name": "Kupo", "password": "password123",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("sign-up: %d", rec.Code)
	}

	if rec := postJSON(t, mux, "/api/auth/sign-in", map[string]string{
		"login": "kupo", "password": "password123",
	}); rec.Code != http.StatusOK {
		t.Errorf("good login: status = %d, want 200", rec.Code)
	}
	if rec := postJSON(t, mux, "/api/auth/sign-in", map[string]string{
		"login": "kupo", "password": "wrong",
	}); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login: status = %d, want 401", rec.Code)
	}
}

func TestRefresh_RoundTrip(t *testing.T) {
	mux := newTestMux(t)
	rec := postJSON(t, mux, "/api/auth/sign-up", map[string]string{
		"username": "kupo", "email": "kupo@example.com",
		"display_name": "Kupo", "password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sign-up: %d", rec.Code)
	}
	var pair tokenPairResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = postJSON(t, mux, "/api/auth/refresh", map[string]string{
		"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var renewed tokenPairResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &renewed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if renewed.UserID != pair.UserID {
		t.Errorf("user id changed across refresh")
	}

	rec = postJSON(t, mux, "/api/auth/refresh", map[string]string{
		"access_token": "garbage", "refresh_token": pair.RefreshToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d, want 401", rec.Code)
	}
}

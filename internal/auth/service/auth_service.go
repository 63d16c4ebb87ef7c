package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"archipelago/backend/internal/security"
	userdomain "archipelago/backend/internal/user/domain"
	userrepo "archipelago/backend/internal/user/repository"
)

// Sentinel errors for the auth service; handlers map them to HTTP statuses.
var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrInvalidToken       = errors.New("invalid or unrefreshable token")
)

// ValidationError marks malformed input; surfaced as a caller-visible rejection.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// TokenPair is the outcome of Register, Login, and Refresh: a signed access
// token plus an opaque refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
}

// UserRepo is the minimal credential-store surface needed by the auth service.
type UserRepo interface {
	Create(ctx context.Context, u *userdomain.User) error
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetByLogin(ctx context.Context, login string) (*userdomain.User, error)
	RolesOf(ctx context.Context, userID string) ([]string, error)
}

// AuthService implements register, login, and stateless refresh.
type AuthService struct {
	users  UserRepo
	hasher *security.Hasher
	tokens *security.TokenProvider
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(users UserRepo, hasher *security.Hasher, tokens *security.TokenProvider) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens}
}

// Register creates a user with the given credentials and returns a token pair.
// The tag starts equal to the display name; both are mutable later, the
// username is not.
func (s *AuthService) Register(ctx context.Context, username, email, displayName, password string) (*TokenPair, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	displayName = strings.TrimSpace(displayName)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = username
	}

	if existing, err := s.users.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}
	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailTaken
	}

	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		Tag:          displayName,
		PasswordHash: hashed,
		Status:       userdomain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A duplicate here lost a race with a concurrent registration; the
		// pre-checks above passed, so resolve which column collided.
		if errors.Is(err, userrepo.ErrDuplicate) {
			if u, lookupErr := s.users.GetByUsername(ctx, username); lookupErr == nil && u != nil {
				return nil, ErrUsernameTaken
			}
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return s.issuePair(ctx, user)
}

// Login authenticates with username-or-email plus password and returns a token pair.
func (s *AuthService) Login(ctx context.Context, login, password string) (*TokenPair, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issuePair(ctx, user)
}

// Refresh recovers the caller's identity from an expired (but correctly
// signed) access token and issues a fresh pair. No session state is consulted:
// the signature plus the nickname claim are the whole proof. The refresh token
// must accompany the call so a still-valid access token cannot double as the
// refresh credential, but it is opaque and carries no identity itself.
func (s *AuthService) Refresh(ctx context.Context, expiredAccess, refreshToken string) (*TokenPair, error) {
	if expiredAccess == "" || refreshToken == "" {
		return nil, ErrInvalidToken
	}
	claims, err := s.tokens.ParseExpired(expiredAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Nickname == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetByUsername(ctx, claims.Nickname)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		return nil, ErrInvalidToken
	}
	return s.issuePair(ctx, user)
}

func (s *AuthService) issuePair(ctx context.Context, user *userdomain.User) (*TokenPair, error) {
	roles, err := s.users.RolesOf(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	access, _, expiresAt, err := s.tokens.IssueAccess(user.ID, user.Email, user.Username, roles)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh()
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		UserID:       user.ID,
	}, nil
}

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,32}$`)

func validateUsername(username string) error {
	if username == "" {
		return &ValidationError{Field: "username", Reason: "is required"}
	}
	if !usernameRe.MatchString(username) {
		return &ValidationError{Field: "username", Reason: "must be 3-32 characters of letters, digits, '.', '_' or '-'"}
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Reason: "is required"}
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return &ValidationError{Field: "email", Reason: "invalid format"}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}
	return nil
}

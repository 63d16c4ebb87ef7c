package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, mis-signed, or
	// carries the wrong issuer, audience, or algorithm.
	ErrInvalidToken = errors.New("invalid token")
)

// AccessClaims holds JWT claims for the access token. The claim set is enough
// to reconstruct the caller's identity without a database hit.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email    string   `json:"email"`
	Nickname string   `json:"nickname"`
	Roles    []string `json:"roles"`
}

// TokenProvider issues and validates HS256 access tokens and mints opaque
// refresh tokens. Exactly one secret and one algorithm per deployment; the
// provider is immutable after construction.
type TokenProvider struct {
	secret       []byte
	issuer       string
	audience     string
	accessTTL    time.Duration
	refreshGrace time.Duration
}

// NewTokenProvider returns a TokenProvider signing with the given symmetric secret.
// issuer and audience are set on claims and validated on every parse.
// refreshGrace bounds refresh eligibility after expiry; 0 means unbounded.
func NewTokenProvider(secret []byte, issuer, audience string, accessTTL, refreshGrace time.Duration) *TokenProvider {
	return &TokenProvider{
		secret:       secret,
		issuer:       issuer,
		audience:     audience,
		accessTTL:    accessTTL,
		refreshGrace: refreshGrace,
	}
}

// IssueAccess issues a short-lived access JWT for the given user.
// Returns the token string, its jti, and expiration time.
func (p *TokenProvider) IssueAccess(userID, email, nickname string, roles []string) (token string, jti string, expiresAt time.Time, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:    email,
		Nickname: nickname,
		Roles:    roles,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(p.secret)
	return token, jti, expiresAt, err
}

// IssueRefresh returns 64 bytes of cryptographically secure randomness,
// base64-encoded. The token is opaque: never parsed, never persisted, and
// bound to no identity.
func (p *TokenProvider) IssueRefresh() (string, error) {
	b := make([]byte, 64)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// ParseAccess parses and fully validates the access token (signature, exp, iss, aud).
// Returns the claims or ErrInvalidToken.
func (p *TokenProvider) ParseAccess(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, p.keyFunc)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if err := p.checkIssuerAudience(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseExpired parses the access token, validating signature, algorithm,
// issuer, and audience but deliberately skipping expiry, so an otherwise
// valid token that has lapsed still yields its claims. This is what lets a
// refresh call reconstruct the caller without server-side session state.
// When the provider has a refresh grace window, tokens expired longer than
// the window are rejected.
func (p *TokenProvider) ParseExpired(tokenString string) (*AccessClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(tokenString, &AccessClaims{}, p.keyFunc)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if err := p.checkIssuerAudience(claims); err != nil {
		return nil, err
	}
	if p.refreshGrace > 0 && claims.ExpiresAt != nil {
		if time.Now().UTC().After(claims.ExpiresAt.Time.Add(p.refreshGrace)) {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// keyFunc accepts HS256 only. Rejects "none", asymmetric methods, and any
// other HMAC variant so a swapped alg header never verifies.
func (p *TokenProvider) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, ErrInvalidToken
	}
	return p.secret, nil
}

func (p *TokenProvider) checkIssuerAudience(claims *AccessClaims) error {
	if claims.Issuer != p.issuer {
		return ErrInvalidToken
	}
	for _, a := range claims.Audience {
		if a == p.audience {
			return nil
		}
	}
	return ErrInvalidToken
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package domain

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// Sentinel errors shared by the invite ledger; handlers map them to HTTP statuses.
var (
	ErrNotFound      = errors.New("invite not found")
	ErrExpired       = errors.New("invite is expired")
	ErrExhausted     = errors.New("invite usage cap reached")
	ErrAlreadyMember = errors.New("user is already a member of the island")
	ErrConflict      = errors.New("concurrent redemption conflict; retry")
)

// InviteLink is a bearer capability: whoever holds Content may join the island,
// bounded by an optional expiry time and an optional usage cap. Content is the
// primary key, generated once and never reused.
type InviteLink struct {
	Content       string
	IslandID      string
	AuthorID      string
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	UsagesMax     *int32
	UsagesCount   int32
}

// TimeExpired reports whether the link's time bound has passed at the given instant.
func (l *InviteLink) TimeExpired(now time.Time) bool {
	return l.EffectiveTo != nil && now.After(*l.EffectiveTo)
}

// Exhausted reports whether the usage count has reached the cap.
func (l *InviteLink) Exhausted() bool {
	return l.UsagesMax != nil && l.UsagesCount >= *l.UsagesMax
}

// ExpiredAt reports whether the link is expired at the given instant: the time
// bound has passed, or the usage count has reached the cap. Expiry is derived,
// never stored; callers evaluate it inside the same transaction as any mutation.
func (l *InviteLink) ExpiredAt(now time.Time) bool {
	return l.TimeExpired(now) || l.Exhausted()
}

// UsagesLeft returns the remaining redemptions, or nil when the link is uncapped.
func (l *InviteLink) UsagesLeft() *int32 {
	if l.UsagesMax == nil {
		return nil
	}
	left := *l.UsagesMax - l.UsagesCount
	if left < 0 {
		left = 0
	}
	return &left
}

// NewContentKey returns a fresh URL-safe ticket key: 16 bytes of
// cryptographically secure randomness, base64url-encoded without padding.
// Uniqueness is enforced only by the store's primary-key constraint.
func NewContentKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

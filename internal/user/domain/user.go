package domain

import (
	"errors"
	"time"
)

// User is the core user entity. Username is immutable and unique; email is
// unique but mutable; display name and tag are free-form.
type User struct {
	ID             string
	Username       string
	Email          string
	DisplayName    string
	Tag            string
	PasswordHash   string
	Status         UserStatus
	AvatarFilename string
	BannerFilename string
	BannerColor    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Tag == "" {
		return errors.New("tag is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

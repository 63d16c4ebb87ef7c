package domain

import (
	"errors"
	"time"
)

// Island is a community that users join. The owner is the only writer of its
// metadata; Version backs compare-and-swap edits.
type Island struct {
	ID             string
	Name           string
	Description    string
	Status         string
	AuthorID       string
	OwnerID        string
	LogoFilename   string
	BannerFilename string
	BannerColor    string
	Version        int64
	CreatedAt      time.Time
}

// Validate validates the island for persistence. Returns an error describing the first validation failure.
func (i *Island) Validate() error {
	if i.Name == "" {
		return errors.New("name is required")
	}
	if i.OwnerID == "" {
		return errors.New("owner is required")
	}
	if i.AuthorID == "" {
		i.AuthorID = i.OwnerID
	}
	return nil
}

package domain

import "time"

// Membership is the fact that a user belongs to an island.
// At most one membership exists per (user, island) pair.
type Membership struct {
	UserID    string
	IslandID  string
	CreatedAt time.Time
}

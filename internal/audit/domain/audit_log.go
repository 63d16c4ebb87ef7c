package domain

import "time"

// AuditLog is one recorded security-relevant event. IslandID carries the
// sentinel value for events with no island context, such as sign-in.
type AuditLog struct {
	ID        string
	IslandID  string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

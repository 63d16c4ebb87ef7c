package audit

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"archipelago/backend/internal/audit/domain"
	auditrepo "archipelago/backend/internal/audit/repository"
)

// SentinelIslandID is the island_id used for audit events that belong to no island
// (e.g. sign-up, sign-in failures).
const SentinelIslandID = "_system"

// IPExtractor returns the client IP for the current request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, islandID, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, islandID, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if islandID == "" {
		islandID = SentinelIslandID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		IslandID:  islandID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}

type remoteAddrKey struct{}

// WithRemoteAddr stores the request's remote address in the context for RequestIP.
func WithRemoteAddr(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, remoteAddrKey{}, r.RemoteAddr)
}

// RequestIP extracts the client IP stored by WithRemoteAddr, stripping any port.
func RequestIP(ctx context.Context) string {
	addr, _ := ctx.Value(remoteAddrKey{}).(string)
	if addr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

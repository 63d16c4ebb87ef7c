package migrate

import (
	"strings"
	"testing"
)

func TestRun_RequiresDSN(t *testing.T) {
	err := Run("", "up")
	if err == nil {
		t.Fatal("Run with empty DSN: expected error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error = %q, want mention of DATABASE_URL", err)
	}
}

func TestRun_RejectsUnknownDirection(t *testing.T) {
	for _, direction := range []string{"", "sideways", "UP", "Down"} {
		t.Run("direction_"+direction, func(t *testing.T) {
			err := Run("postgres://localhost/archipelago", direction)
			if err == nil {
				t.Fatalf("Run with direction %q: expected error", direction)
			}
			if !strings.Contains(err.Error(), "direction") {
				t.Errorf("error = %q, want direction validation failure", err)
			}
		})
	}
}

func TestRun_RejectsUnparsableDSN(t *testing.T) {
	if err := Run("not a url", "up"); err == nil {
		t.Fatal("Run with unparsable DSN: expected error")
	}
}

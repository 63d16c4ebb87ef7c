package security

import "time"

// Test signing secret for unit tests only. Do not use in production.
const testSecret = "unit-test-signing-secret-0123456789abcdef"

// NewTestTokenProvider returns a TokenProvider using the embedded test secret
// and a 15 minute access TTL. For unit tests only.
func NewTestTokenProvider() *TokenProvider {
	return NewTokenProvider([]byte(testSecret), "test-issuer", "test-audience", 15*time.Minute, 0)
}

// TestSecret exposes the embedded test secret so tests can forge tokens
// (e.g. pre-expired ones) with the same key material.
func TestSecret() []byte {
	return []byte(testSecret)
}

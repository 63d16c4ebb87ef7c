package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash([]byte("kupo-pass-1"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" {
		t.Fatal("Hash returned empty string")
	}
	if err := h.Compare(hash, []byte("kupo-pass-1")); err != nil {
		t.Fatalf("Compare with correct password: %v", err)
	}
	if err := h.Compare(hash, []byte("kupo-pass-2")); err == nil {
		t.Fatal("Compare with wrong password succeeded")
	}
}

func TestNewHasher_CostClamping(t *testing.T) {
	cases := []struct {
		name string
		in   int
		want int
	}{
		{"in range", 12, 12},
		{"zero falls back to default", 0, bcrypt.DefaultCost},
		{"negative falls back to default", -1, bcrypt.DefaultCost},
		{"below min clamps", 2, bcrypt.MinCost},
		{"above max clamps", 99, bcrypt.MaxCost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewHasher(tc.in).Cost; got != tc.want {
				t.Errorf("NewHasher(%d).Cost = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

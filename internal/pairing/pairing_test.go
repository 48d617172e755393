package pairing

import (
	"strings"
	"testing"
	"time"
)

type memRateLimitStore struct {
	issuedAt map[string][]time.Time
}

func newMemRateLimitStore() *memRateLimitStore {
	return &memRateLimitStore{issuedAt: make(map[string][]time.Time)}
}

func (m *memRateLimitStore) CountSince(userID string, since time.Time) (int, error) {
	n := 0
	for _, t := range m.issuedAt[userID] {
		if t.After(since) {
			n++
		}
	}
	return n, nil
}

func (m *memRateLimitStore) Record(userID string, at time.Time) error {
	m.issuedAt[userID] = append(m.issuedAt[userID], at)
	return nil
}

var testKey = []byte("test-signing-key")

func TestIssueTokenProducesExpectedShapes(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	issued, err := IssueToken("user-1", newMemRateLimitStore(), testKey, now)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if len(issued.Token) != 64 {
		t.Errorf("got token length %d, want 64 (32 bytes hex-encoded)", len(issued.Token))
	}
	if len(issued.ShortCode) != shortCodeLength {
		t.Errorf("got short code length %d, want %d", len(issued.ShortCode), shortCodeLength)
	}
	for _, r := range issued.ShortCode {
		if !strings.ContainsRune(shortCodeAlphabet, r) {
			t.Errorf("short code %q contains a character outside the no-confusables alphabet", issued.ShortCode)
		}
	}
	if !issued.ExpiresAt.Equal(now.Add(TokenExpiry)) {
		t.Errorf("got expiry %v, want %v", issued.ExpiresAt, now.Add(TokenExpiry))
	}
}

func TestIssueTokenEnforcesRateLimit(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	rl := newMemRateLimitStore()
	for i := 0; i < MaxTokensPerHour; i++ {
		if _, err := IssueToken("user-1", rl, testKey, now); err != nil {
			t.Fatalf("unexpected error on issuance %d: %v", i, err)
		}
	}
	if _, err := IssueToken("user-1", rl, testKey, now); err == nil {
		t.Fatal("expected the next issuance to be rate limited")
	}
}

func TestVerifyTokenRoundTrips(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	issued, err := IssueToken("user-1", newMemRateLimitStore(), testKey, now)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := VerifyToken(issued.SignedJWT, testKey)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.UserID != "user-1" || claims.Token != issued.Token {
		t.Errorf("got claims %+v, want userID=user-1 token=%s", claims, issued.Token)
	}
}

func TestVerifyTokenRejectsWrongKey(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	issued, err := IssueToken("user-1", newMemRateLimitStore(), testKey, now)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := VerifyToken(issued.SignedJWT, []byte("wrong-key")); err == nil {
		t.Fatal("expected verification to fail with the wrong signing key")
	}
}

package jwt

import (
	"crypto/ed25519"
	"errors"
	"strings"
	"testing"
	"time"
)

func hs256TestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-signing-key-0123456789abcdef"),
		Issuer:        "courierlog-test",
		Audience:      "courierlog-api",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestNewManagerRequiresSigningKey(t *testing.T) {
	if _, err := NewManager(Config{SigningMethod: MethodHS256}); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("expected ErrNoSigningKey, got %v", err)
	}
	if _, err := NewManager(Config{SigningMethod: MethodEd25519}); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("expected ErrNoSigningKey for ed25519, got %v", err)
	}
}

func TestSessionMintParseRoundTrip(t *testing.T) {
	m := hs256TestManager(t)
	now := time.Now()

	raw, err := m.MintSession("user-1", "jti-1", now, time.Hour)
	if err != nil {
		t.Fatalf("MintSession failed: %v", err)
	}
	claims, err := m.ParseSession(raw)
	if err != nil {
		t.Fatalf("ParseSession failed: %v", err)
	}
	if claims.Subject != "user-1" || claims.ID != "jti-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.TokenType != TypeSession {
		t.Fatalf("expected token_type=session, got %q", claims.TokenType)
	}
}

func TestTokenTypeDiscriminantEnforced(t *testing.T) {
	m := hs256TestManager(t)
	now := time.Now()

	session, err := m.MintSession("user-1", "jti-s", now, time.Hour)
	if err != nil {
		t.Fatalf("MintSession failed: %v", err)
	}
	access, err := m.MintAPIAccess("user-1", "jti-a", "read:routes", "cli", now, time.Hour)
	if err != nil {
		t.Fatalf("MintAPIAccess failed: %v", err)
	}
	refresh, err := m.MintAPIRefresh("user-1", "jti-r", "jti-a", now, time.Hour)
	if err != nil {
		t.Fatalf("MintAPIRefresh failed: %v", err)
	}

	if _, err := m.ParseAPIAccess(session); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("session token must not parse as api access, got %v", err)
	}
	if _, err := m.ParseAPIRefresh(access); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("access token must not parse as api refresh, got %v", err)
	}
	if _, err := m.ParseSession(refresh); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("refresh token must not parse as session, got %v", err)
	}

	if claims, err := m.ParseAPIRefresh(refresh); err != nil || claims.AccessTokenID != "jti-a" {
		t.Fatalf("refresh token must carry access_token_id, got %+v, %v", claims, err)
	}
}

func TestParseRejectsTamperedSignature(t *testing.T) {
	m := hs256TestManager(t)
	raw, err := m.MintAPIAccess("user-1", "jti-1", "read:routes", "", time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("MintAPIAccess failed: %v", err)
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]
	if _, err := m.ParseAPIAccess(tampered); err == nil {
		t.Fatal("tampered token must not verify")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := hs256TestManager(t)
	raw, err := m.MintSession("user-1", "jti-1", time.Now().Add(-2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("MintSession failed: %v", err)
	}
	if _, err := m.ParseSession(raw); err == nil {
		t.Fatal("expired token must not verify")
	}
}

func TestParseRejectsForeignIssuer(t *testing.T) {
	other, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-signing-key-0123456789abcdef"),
		Issuer:        "someone-else",
		Audience:      "courierlog-api",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	raw, err := other.MintSession("user-1", "jti-1", time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("MintSession failed: %v", err)
	}
	m := hs256TestManager(t)
	if _, err := m.ParseSession(raw); err == nil {
		t.Fatal("token from a foreign issuer must not verify")
	}
}

func TestParseHonorsTimeFunc(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	checkAt := base
	m, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-signing-key-0123456789abcdef"),
		Issuer:        "courierlog-test",
		TimeFunc:      func() time.Time { return checkAt },
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	raw, err := m.MintSession("user-1", "jti-1", base, time.Hour)
	if err != nil {
		t.Fatalf("MintSession failed: %v", err)
	}
	if _, err := m.ParseSession(raw); err != nil {
		t.Fatalf("token inside its window rejected: %v", err)
	}

	checkAt = base.Add(2 * time.Hour)
	if _, err := m.ParseSession(raw); err == nil {
		t.Fatal("token must expire against the injected clock")
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	m, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "courierlog-test",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	raw, err := m.MintSession("user-1", "jti-1", time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("MintSession failed: %v", err)
	}
	claims, err := m.ParseSession(raw)
	if err != nil {
		t.Fatalf("ParseSession failed: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

package authkit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	engine, _, clock := newTestEngine(t)

	token, err := engine.MintSessionToken(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("MintSessionToken failed: %v", err)
	}

	claims, err := engine.ParseSessionToken(token)
	if err != nil {
		t.Fatalf("ParseSessionToken failed: %v", err)
	}
	if claims.Subject != "u1" {
		t.Fatalf("subject %q", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatal("session tokens must carry a unique id")
	}
	if !claims.ExpiresAt.Time.Equal(clock.Now().Add(12 * time.Hour)) {
		t.Fatalf("expected the 12h default TTL, got %v", claims.ExpiresAt.Time)
	}

	two, err := engine.MintSessionToken(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("MintSessionToken failed: %v", err)
	}
	if two == token {
		t.Fatal("every session token must be unique")
	}
}

func TestSessionTokenCustomValidity(t *testing.T) {
	engine, _, clock := newTestEngine(t)

	token, err := engine.MintSessionToken(context.Background(), "u1", 45*time.Minute)
	if err != nil {
		t.Fatalf("MintSessionToken failed: %v", err)
	}
	claims, err := engine.ParseSessionToken(token)
	if err != nil {
		t.Fatalf("ParseSessionToken failed: %v", err)
	}
	if !claims.ExpiresAt.Time.Equal(clock.Now().Add(45 * time.Minute)) {
		t.Fatalf("expected a 45m window, got %v", claims.ExpiresAt.Time)
	}
}

func TestSessionTokenRejections(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.MintSessionToken(ctx, "", 0); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for empty id, got %v", err)
	}
	if _, err := engine.ParseSessionToken("not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	// an API access token is signed with the same key but is not a
	// session token
	issued, err := engine.IssueAPIToken(ctx, "u1", "t", nil, 0)
	if err != nil {
		t.Fatalf("IssueAPIToken failed: %v", err)
	}
	if _, err := engine.ParseSessionToken(issued.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for an API token, got %v", err)
	}
}

func TestSessionTokenExpires(t *testing.T) {
	engine, _, clock := newTestEngine(t)

	token, err := engine.MintSessionToken(context.Background(), "u1", time.Hour)
	if err != nil {
		t.Fatalf("MintSessionToken failed: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if _, err := engine.ParseSessionToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid after expiry, got %v", err)
	}
}

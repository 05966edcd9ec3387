package refresh

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the token value has no record.
	ErrNotFound = errors.New("refresh token not found")

	// ErrConflict indicates the token was not the active chain tail when
	// a conditional update ran: already revoked, already rotated, or
	// expired.
	ErrConflict = errors.New("refresh token already rotated, revoked, or expired")

	// ErrUnavailable wraps backend outages so callers can retry at a
	// higher layer.
	ErrUnavailable = errors.New("refresh store unavailable")
)

// Token is one node of a rotation chain. The raw opaque value is part of
// the stored record (authentication-session tokens, unlike API tokens,
// keep the value as their lookup identity).
type Token struct {
	Token           string
	UserID          string
	ExpiresAt       time.Time
	CreatedAt       time.Time
	CreatedByIP     string
	RevokedAt       time.Time
	RevokedByIP     string
	ReplacedByToken string
}

// Revoked reports whether the token has been revoked.
func (t Token) Revoked() bool { return !t.RevokedAt.IsZero() }

// Expired reports whether the token has passed its expiry at now.
func (t Token) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }

// Active reports whether the token is the usable tail of its chain.
func (t Token) Active(now time.Time) bool { return !t.Revoked() && !t.Expired(now) }

// Store is the persistence contract for rotation chains.
type Store interface {
	// Insert stores a fresh terminal chain node.
	Insert(ctx context.Context, token Token) error

	// Get returns the record for a token value, revoked or not.
	// ErrNotFound when absent.
	Get(ctx context.Context, value string) (*Token, error)

	// Revoke marks the token revoked at most once. It reports false
	// without error when the token is missing or already revoked; the
	// first revocation timestamp is never overwritten.
	Revoke(ctx context.Context, value, ip string, at time.Time) (bool, error)

	// Rotate atomically revokes the active token value, links its
	// ReplacedByToken to the successor's value, and inserts the
	// successor. ErrNotFound when value is unknown, ErrConflict when it
	// is not the active chain tail.
	Rotate(ctx context.Context, value string, successor Token, ip string, at time.Time) error
}

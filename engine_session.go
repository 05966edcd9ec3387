package authkit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/courierlog/authkit/jwt"
)

// MintSessionToken issues a short-lived signed session token for an
// identity that already passed the external OAuth first factor.
// A validity of zero falls back to the configured session TTL.
func (e *Engine) MintSessionToken(ctx context.Context, userID string, validity time.Duration) (string, error) {
	if e == nil || e.jwt == nil {
		return "", ErrEngineNotReady
	}
	if userID == "" {
		return "", ErrUserNotFound
	}
	if validity <= 0 {
		validity = e.config.Session.TTL
	}

	token, err := e.jwt.MintSession(userID, uuid.NewString(), e.now(), validity)
	if err != nil {
		return "", err
	}
	e.emitAudit(ctx, auditEventSessionMinted, true, userID, "", "", nil)
	return token, nil
}

// ParseSessionToken verifies a session token and returns its claims.
// Any verification failure, including a non-session token_type, maps to
// ErrTokenInvalid.
func (e *Engine) ParseSessionToken(raw string) (*jwt.SessionClaims, error) {
	if e == nil || e.jwt == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.jwt.ParseSession(raw)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

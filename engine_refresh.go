package authkit

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/courierlog/authkit/internal"
	"github.com/courierlog/authkit/refresh"
)

const refreshTokenBytes = 64

func (e *Engine) newRefreshToken(userID, ip string) (refresh.Token, error) {
	raw, err := internal.GenerateRandomSecret(refreshTokenBytes)
	if err != nil {
		return refresh.Token{}, err
	}
	now := e.now()
	return refresh.Token{
		Token:       base64.RawURLEncoding.EncodeToString(raw),
		UserID:      userID,
		ExpiresAt:   now.Add(e.config.Refresh.TTL),
		CreatedAt:   now,
		CreatedByIP: ip,
	}, nil
}

// IssueRefreshToken mints an opaque authentication-session refresh
// token: 64 random bytes, fixed validity window, terminal node of a new
// rotation chain.
func (e *Engine) IssueRefreshToken(ctx context.Context, userID, ip string) (*refresh.Token, error) {
	if e == nil || e.users == nil || e.refreshStore == nil {
		return nil, ErrEngineNotReady
	}
	user, err := e.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	token, err := e.newRefreshToken(user.UserID, ip)
	if err != nil {
		return nil, err
	}
	if err := e.refreshStore.Insert(ctx, token); err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	e.emitAudit(ctx, auditEventRefreshIssued, true, user.UserID, "", ip, nil)
	return &token, nil
}

// ValidateRefreshToken returns the owning user id for a non-revoked,
// non-expired token. Expired-but-present and revoked-but-present differ
// only in the audit trail; the caller sees ErrRefreshInvalid either way.
func (e *Engine) ValidateRefreshToken(ctx context.Context, raw string) (string, error) {
	if e == nil || e.refreshStore == nil {
		return "", ErrEngineNotReady
	}
	token, err := e.refreshStore.Get(ctx, raw)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			return "", ErrRefreshInvalid
		}
		return "", errors.Join(ErrStoreUnavailable, err)
	}
	if !token.Active(e.now()) {
		reason := errors.New("refresh token expired")
		if token.Revoked() {
			reason = errors.New("refresh token revoked")
		}
		e.emitAudit(ctx, auditEventRefreshRejected, false, token.UserID, "", "", reason)
		return "", ErrRefreshInvalid
	}
	return token.UserID, nil
}

// RevokeRefreshToken marks a token revoked. Revoking an unknown or
// already-revoked token is a no-op reporting false, never an error; the
// first revocation timestamp survives repeats.
func (e *Engine) RevokeRefreshToken(ctx context.Context, raw, ip string) (bool, error) {
	if e == nil || e.refreshStore == nil {
		return false, ErrEngineNotReady
	}
	ok, err := e.refreshStore.Revoke(ctx, raw, ip, e.now())
	if err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}
	if ok {
		e.emitAudit(ctx, auditEventRefreshRevoked, true, "", "", ip, nil)
	}
	return ok, nil
}

// RotateRefreshToken exchanges the active chain tail for a successor.
// The store revokes the old token, links ReplacedByToken, and inserts
// the successor in one atomic step; of concurrent rotations of the same
// token exactly one wins and the rest see ErrRefreshInvalid. A revoked
// predecessor can never be rotated again, regardless of how healthy the
// rest of the chain is.
func (e *Engine) RotateRefreshToken(ctx context.Context, raw, ip string) (*refresh.Token, error) {
	if e == nil || e.refreshStore == nil {
		return nil, ErrEngineNotReady
	}
	old, err := e.refreshStore.Get(ctx, raw)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	now := e.now()
	if !old.Active(now) {
		e.emitAudit(ctx, auditEventRefreshRejected, false, old.UserID, "", ip, errors.New("rotation of inactive token"))
		return nil, ErrRefreshInvalid
	}

	successor, err := e.newRefreshToken(old.UserID, ip)
	if err != nil {
		return nil, err
	}
	if err := e.refreshStore.Rotate(ctx, raw, successor, ip, now); err != nil {
		switch {
		case errors.Is(err, refresh.ErrNotFound), errors.Is(err, refresh.ErrConflict):
			e.emitAudit(ctx, auditEventRefreshRejected, false, old.UserID, "", ip, err)
			return nil, ErrRefreshInvalid
		default:
			return nil, errors.Join(ErrStoreUnavailable, err)
		}
	}

	e.emitAudit(ctx, auditEventRefreshRotated, true, old.UserID, "", ip, nil)
	return &successor, nil
}

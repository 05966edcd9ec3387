package authkit

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courierlog/authkit/internal"
)

const hoursPerDay = 24

// IssueAPIToken mints a scoped API access token and its paired refresh
// token, persisting only their hashes. Scope handling never grants zero
// scopes silently: an empty request gets the default subset, a request
// with no allowed survivor fails with ErrNoValidScopes. The refresh
// token's validity is fixed, independent of expiryDays (access token
// only; zero means the configured default).
func (e *Engine) IssueAPIToken(ctx context.Context, userID, description string, requestedScopes []string, expiryDays int) (*APITokenIssuance, error) {
	if e == nil || e.users == nil || e.jwt == nil {
		return nil, ErrEngineNotReady
	}
	user, err := e.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	scopes, err := grantScopes(requestedScopes, e.config.APIToken.AllowedScopes, e.config.APIToken.DefaultScopes)
	if err != nil {
		return nil, err
	}
	if expiryDays <= 0 {
		expiryDays = e.config.APIToken.DefaultExpiryDays
	}

	now := e.now()
	accessValidity := time.Duration(expiryDays) * hoursPerDay * time.Hour
	refreshValidity := time.Duration(e.config.APIToken.RefreshExpiryDays) * hoursPerDay * time.Hour
	tokenID := uuid.NewString()
	refreshID := uuid.NewString()

	accessToken, err := e.jwt.MintAPIAccess(user.UserID, tokenID, strings.Join(scopes, " "), description, now, accessValidity)
	if err != nil {
		return nil, err
	}
	refreshToken, err := e.jwt.MintAPIRefresh(user.UserID, refreshID, tokenID, now, refreshValidity)
	if err != nil {
		return nil, err
	}

	record := APITokenRecord{
		TokenID:          tokenID,
		AccessTokenHash:  internal.HashForStorage(accessToken),
		RefreshTokenID:   refreshID,
		RefreshTokenHash: internal.HashForStorage(refreshToken),
		Description:      description,
		Scopes:           scopes,
		IssuedAt:         now,
		ExpiresAt:        now.Add(accessValidity),
		RefreshExpiresAt: now.Add(refreshValidity),
		CreatedAt:        now,
		IsActive:         true,
	}
	if err := e.users.InsertAPIToken(ctx, user.UserID, record); err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	e.emitAudit(ctx, auditEventAPITokenIssued, true, user.UserID, tokenID, "", nil)
	return &APITokenIssuance{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessValidity / time.Second),
		ExpiresAt:    record.ExpiresAt,
		Scopes:       scopes,
		TokenID:      tokenID,
		Description:  description,
	}, nil
}

// RefreshAPIToken exchanges a signed API refresh token for a brand-new
// issuance with the same description and scopes and a reset default
// validity. The referenced record is revoked, never mutated in place, so
// the old access token dies with it.
func (e *Engine) RefreshAPIToken(ctx context.Context, raw string) (*APITokenIssuance, error) {
	if e == nil || e.users == nil || e.jwt == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.jwt.ParseAPIRefresh(raw)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	record, err := e.users.GetAPIToken(ctx, claims.Subject, claims.AccessTokenID)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	if record == nil || !record.IsActive {
		e.emitAudit(ctx, auditEventAPITokenRejected, false, claims.Subject, claims.AccessTokenID, "", errors.New("refresh against missing or inactive record"))
		return nil, ErrTokenInvalid
	}
	// The presented token must be the pair's own refresh token, not just
	// any verifiable one naming this record.
	if record.RefreshTokenHash != internal.HashForStorage(raw) {
		e.emitAudit(ctx, auditEventAPITokenRejected, false, claims.Subject, claims.AccessTokenID, "", errors.New("refresh token hash mismatch"))
		return nil, ErrTokenInvalid
	}

	ok, err := e.users.DeactivateAPIToken(ctx, claims.Subject, record.TokenID, e.now())
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	if !ok {
		// lost a concurrent refresh/revoke race
		return nil, ErrTokenInvalid
	}

	issuance, err := e.IssueAPIToken(ctx, claims.Subject, record.Description, record.Scopes, 0)
	if err != nil {
		return nil, err
	}
	e.emitAudit(ctx, auditEventAPITokenRefreshed, true, claims.Subject, issuance.TokenID, "", nil)
	return issuance, nil
}

// RevokeAPIToken permanently deactivates one of the user's tokens.
// False when no matching active token exists; repeat revocations never
// move the original revocation time.
func (e *Engine) RevokeAPIToken(ctx context.Context, userID, tokenID string) (bool, error) {
	if e == nil || e.users == nil {
		return false, ErrEngineNotReady
	}
	if userID == "" || tokenID == "" {
		return false, nil
	}
	ok, err := e.users.DeactivateAPIToken(ctx, userID, tokenID, e.now())
	if err != nil {
		return false, errors.Join(ErrProviderUnavailable, err)
	}
	if ok {
		e.emitAudit(ctx, auditEventAPITokenRevoked, true, userID, tokenID, "", nil)
	}
	return ok, nil
}

// ValidateAPIToken answers the hot-path yes/no question. Signature,
// expiry, issuer, audience, token_type, and the active record behind the
// claimed id are all required; success bumps the usage counter and
// last-used time as an observable side effect. Every failure is false;
// this path never returns an error to the caller.
func (e *Engine) ValidateAPIToken(ctx context.Context, raw string) bool {
	if e == nil || e.users == nil || e.jwt == nil {
		return false
	}
	claims, err := e.jwt.ParseAPIAccess(raw)
	if err != nil {
		return false
	}

	record, err := e.users.GetAPIToken(ctx, claims.Subject, claims.ID)
	if err != nil || record == nil || !record.IsActive {
		return false
	}
	if record.AccessTokenHash != internal.HashForStorage(raw) {
		return false
	}

	if err := e.users.TouchAPIToken(ctx, claims.Subject, record.TokenID, e.now()); err != nil {
		e.emitAudit(ctx, auditEventAPITokenRejected, false, claims.Subject, record.TokenID, "", err)
	}
	return true
}

// ListActiveAPITokens returns the user's active tokens, newest first,
// annotated with days until expiry.
func (e *Engine) ListActiveAPITokens(ctx context.Context, userID string) ([]APITokenInfo, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	user, err := e.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	records, err := e.users.ListAPITokens(ctx, user.UserID)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	now := e.now()
	infos := make([]APITokenInfo, 0, len(records))
	for _, record := range records {
		if !record.IsActive || !now.Before(record.ExpiresAt) {
			continue
		}
		infos = append(infos, APITokenInfo{
			TokenID:         record.TokenID,
			Description:     record.Description,
			Scopes:          record.Scopes,
			CreatedAt:       record.CreatedAt,
			ExpiresAt:       record.ExpiresAt,
			LastUsedAt:      record.LastUsedAt,
			UsageCount:      record.UsageCount,
			DaysUntilExpiry: int(record.ExpiresAt.Sub(now).Hours() / hoursPerDay),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

package authkit

import "errors"

// Expected, recoverable outcomes are sentinel values so callers branch
// with errors.Is instead of unwrapping. Verification failures are
// deliberately generic: the caller never learns whether a code was
// wrong, expired, or already consumed.
var (
	// ErrEngineNotReady is returned when an Engine method runs before
	// Build wired its dependencies.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrBuilderReused is returned by Build on a Builder that already
	// produced an Engine.
	ErrBuilderReused = errors.New("builder already used")
	// ErrNoSigningKey is the fatal construction-time configuration error
	// for a missing token signing key.
	ErrNoSigningKey = errors.New("no signing key configured")

	// ErrUserNotFound is returned when the user-record collaborator has
	// no record for the given id.
	ErrUserNotFound = errors.New("user not found")
	// ErrTwoFactorNotConfigured is returned when an operation requires a
	// two-factor setup that does not exist.
	ErrTwoFactorNotConfigured = errors.New("two-factor authentication not configured")
	// ErrTwoFactorAlreadyEnabled is returned by BeginTwoFactorSetup while
	// a verified setup is active; it must be disabled first.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication already enabled")
	// ErrCodeInvalid is the generic verification failure for TOTP and
	// backup codes.
	ErrCodeInvalid = errors.New("invalid code")

	// ErrRefreshInvalid is the generic failure for session refresh
	// tokens: unknown, expired, revoked, or rotation race lost.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrTokenInvalid is the generic failure for signed API tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrNoValidScopes is returned when a nonempty scope request has an
	// empty intersection with the allow-list.
	ErrNoValidScopes = errors.New("no requested scope is allowed")

	// ErrProviderUnavailable wraps user-record collaborator outages. The
	// engine never retries; callers may, at their layer.
	ErrProviderUnavailable = errors.New("user provider unavailable")
	// ErrStoreUnavailable wraps refresh-store outages.
	ErrStoreUnavailable = errors.New("refresh store unavailable")
)

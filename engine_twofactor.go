package authkit

import (
	"context"
	"errors"

	"github.com/courierlog/authkit/internal"
)

// BeginTwoFactorSetup starts (or restarts) TOTP enrollment. It
// generates a fresh shared secret and backup code batch, overwriting any
// prior unverified setup, and leaves the user's enabled flag untouched
// until CompleteTwoFactorVerification. While a verified setup is active
// it refuses with ErrTwoFactorAlreadyEnabled; disable first.
func (e *Engine) BeginTwoFactorSetup(ctx context.Context, userID, recoveryEmail string) (*TwoFactorSetup, error) {
	if e == nil || e.users == nil || e.totp == nil {
		return nil, ErrEngineNotReady
	}
	user, err := e.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := e.users.GetTwoFactor(ctx, user.UserID)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	if existing != nil && existing.Verified {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	secret, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	now := e.now()

	plaintext, records, err := generateBackupCodeBatch(e.config.BackupCodes.Count, now)
	if err != nil {
		return nil, err
	}
	if err := e.users.PutTwoFactor(ctx, user.UserID, TwoFactorRecord{
		SecretBase32:  secret,
		SetupAt:       now,
		RecoveryEmail: recoveryEmail,
	}); err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	if err := e.users.ReplaceBackupCodes(ctx, user.UserID, records); err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	e.emitAudit(ctx, auditEventTwoFactorSetupStarted, true, user.UserID, "", "", nil)
	return &TwoFactorSetup{
		SecretBase32:    secret,
		OtpauthURL:      e.totp.ProvisionURI(secret, user.Email),
		ManualEntryCode: internal.ChunkBase32(secret),
		RecoveryEmail:   recoveryEmail,
		BackupCodes:     plaintext,
	}, nil
}

// CompleteTwoFactorVerification proves possession of the enrolled
// authenticator (or a backup code) and flips the setup to verified plus
// the user's enabled flag. On failure nothing changes and the caller
// only sees ErrCodeInvalid.
func (e *Engine) CompleteTwoFactorVerification(ctx context.Context, userID, totpCode, backupCode string) error {
	if e == nil || e.users == nil || e.totp == nil {
		return ErrEngineNotReady
	}
	user, err := e.getUser(ctx, userID)
	if err != nil {
		return err
	}

	record, err := e.users.GetTwoFactor(ctx, user.UserID)
	if err != nil {
		return errors.Join(ErrProviderUnavailable, err)
	}
	if record == nil {
		return ErrTwoFactorNotConfigured
	}

	if err := e.checkSecondFactor(ctx, user.UserID, record, totpCode, backupCode); err != nil {
		e.emitAudit(ctx, auditEventTwoFactorVerified, false, user.UserID, "", "", err)
		return err
	}

	if err := e.users.MarkTwoFactorVerified(ctx, user.UserID); err != nil {
		return errors.Join(ErrProviderUnavailable, err)
	}
	e.emitAudit(ctx, auditEventTwoFactorVerified, true, user.UserID, "", "", nil)
	return nil
}

// VerifyTwoFactorCode re-checks a second factor for an already enabled
// user, e.g. during login step-up. Backup codes are consumed
// exactly once.
func (e *Engine) VerifyTwoFactorCode(ctx context.Context, userID, totpCode, backupCode string) error {
	if e == nil || e.users == nil || e.totp == nil {
		return ErrEngineNotReady
	}
	user, err := e.getUser(ctx, userID)
	if err != nil {
		return err
	}

	record, err := e.users.GetTwoFactor(ctx, user.UserID)
	if err != nil {
		return errors.Join(ErrProviderUnavailable, err)
	}
	if record == nil || !record.Verified {
		return ErrTwoFactorNotConfigured
	}

	if err := e.checkSecondFactor(ctx, user.UserID, record, totpCode, backupCode); err != nil {
		e.emitAudit(ctx, auditEventTwoFactorCheck, false, user.UserID, "", "", err)
		return err
	}
	e.emitAudit(ctx, auditEventTwoFactorCheck, true, user.UserID, "", "", nil)
	return nil
}

// checkSecondFactor tries backup-code consumption first when a backup
// code is supplied, otherwise TOTP validation within the fixed drift
// window.
func (e *Engine) checkSecondFactor(ctx context.Context, userID string, record *TwoFactorRecord, totpCode, backupCode string) error {
	if backupCode != "" {
		ok, err := e.consumeBackupCode(ctx, userID, backupCode)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCodeInvalid
		}
		e.emitAudit(ctx, auditEventBackupCodeUsed, true, userID, "", "", nil)
		return nil
	}
	if !e.totp.ValidateCode(record.SecretBase32, totpCode, e.now()) {
		return ErrCodeInvalid
	}
	return nil
}

// DisableTwoFactor tears down two-factor authentication after proof of
// possession via a currently valid TOTP code. It fails closed: false
// when nothing is configured or the code is wrong, with user state
// untouched. Success clears the setup record, the user's enabled flag,
// and every backup code.
func (e *Engine) DisableTwoFactor(ctx context.Context, userID, totpCode string) (bool, error) {
	if e == nil || e.users == nil || e.totp == nil {
		return false, ErrEngineNotReady
	}
	user, err := e.getUser(ctx, userID)
	if err != nil {
		return false, err
	}

	record, err := e.users.GetTwoFactor(ctx, user.UserID)
	if err != nil {
		return false, errors.Join(ErrProviderUnavailable, err)
	}
	if record == nil || !record.Verified {
		return false, nil
	}
	if !e.totp.ValidateCode(record.SecretBase32, totpCode, e.now()) {
		e.emitAudit(ctx, auditEventTwoFactorDisabled, false, user.UserID, "", "", ErrCodeInvalid)
		return false, nil
	}

	if err := e.users.RemoveTwoFactor(ctx, user.UserID); err != nil {
		return false, errors.Join(ErrProviderUnavailable, err)
	}
	e.emitAudit(ctx, auditEventTwoFactorDisabled, true, user.UserID, "", "", nil)
	return true, nil
}

// TwoFactorStatusFor reports the read-only enrollment state for
// settings surfaces.
func (e *Engine) TwoFactorStatusFor(ctx context.Context, userID string) (*TwoFactorStatus, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	user, err := e.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	record, err := e.users.GetTwoFactor(ctx, user.UserID)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	status := &TwoFactorStatus{}
	if record == nil {
		return status, nil
	}
	status.Enabled = record.Verified
	status.Pending = !record.Verified

	codes, err := e.users.GetBackupCodes(ctx, user.UserID)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	for _, code := range codes {
		if !code.Used {
			status.BackupCodesRemaining++
		}
	}
	return status, nil
}

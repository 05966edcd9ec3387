package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/courierlog/authkit/internal"
)

// generateBackupCodeBatch mints count fresh recovery codes and their
// storage records. Plaintext leaves this function exactly once.
func generateBackupCodeBatch(count int, at time.Time) ([]string, []BackupCodeRecord, error) {
	plaintext := make([]string, 0, count)
	records := make([]BackupCodeRecord, 0, count)
	for i := 0; i < count; i++ {
		code, err := internal.NewBackupCode()
		if err != nil {
			return nil, nil, err
		}
		plaintext = append(plaintext, code)
		records = append(records, BackupCodeRecord{
			Hash:      internal.HashForStorage(internal.CanonicalizeBackupCode(code)),
			CreatedAt: at,
		})
	}
	return plaintext, records, nil
}

// consumeBackupCode hashes the submission and asks the provider for the
// conditional mark-used update. Exactly-once consumption is the
// provider's compare-and-set, not a read-then-write here.
func (e *Engine) consumeBackupCode(ctx context.Context, userID, submitted string) (bool, error) {
	canonical := internal.CanonicalizeBackupCode(submitted)
	if canonical == "" {
		return false, nil
	}
	ok, err := e.users.ConsumeBackupCode(ctx, userID, internal.HashForStorage(canonical), e.now())
	if err != nil {
		return false, errors.Join(ErrProviderUnavailable, err)
	}
	return ok, nil
}

// RegenerateBackupCodes replaces a user's whole recovery batch. The old
// batch is permanently invalid the instant the new one is stored.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	user, err := e.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	plaintext, records, err := generateBackupCodeBatch(e.config.BackupCodes.Count, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.users.ReplaceBackupCodes(ctx, user.UserID, records); err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	e.emitAudit(ctx, auditEventBackupCodesReplaced, true, user.UserID, "", "", nil)
	return plaintext, nil
}

package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/courierlog/authkit/jwt"
	"github.com/courierlog/authkit/refresh"
)

// Engine is the credential and token lifecycle engine. Construct it
// through [Builder]; a built Engine is immutable and safe for concurrent
// use.
type Engine struct {
	config       Config
	jwt          *jwt.Manager
	totp         *totpManager
	users        UserProvider
	refreshStore refresh.Store
	audit        AuditSink
	clock        func() time.Time
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID, tokenID, ip string, cause error) {
	if e.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: e.now(),
		EventType: eventType,
		UserID:    userID,
		TokenID:   tokenID,
		IP:        ip,
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	e.audit.Emit(ctx, event)
}

// getUser resolves a user id through the collaborator. Absence maps to
// ErrUserNotFound, backend failure to ErrProviderUnavailable.
func (e *Engine) getUser(ctx context.Context, userID string) (*UserRecord, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}
	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

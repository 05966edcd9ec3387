package authkit

import (
	"context"
	"time"
)

// UserRecord is the slice of the externally stored user document this
// engine reads. The engine only ever mutates the user's credential
// sub-collections; it never creates or deletes users.
type UserRecord struct {
	UserID           string
	Email            string
	DisplayName      string
	TwoFactorEnabled bool
}

// TwoFactorRecord is a user's TOTP enrollment (0 or 1 per user).
// TwoFactorEnabled on the user must never be true while this record is
// absent or unverified.
type TwoFactorRecord struct {
	SecretBase32  string
	SetupAt       time.Time
	Verified      bool
	RecoveryEmail string
}

// BackupCodeRecord is one single-use recovery code. Only the storage
// hash of the code survives issuance.
type BackupCodeRecord struct {
	Hash      string
	CreatedAt time.Time
	Used      bool
	UsedAt    time.Time
}

// APITokenRecord is the durable trace of an issued API token pair. The
// hash fields are the only persisted form of the raw tokens. IsActive
// is one-way: once false, a record is never reactivated.
type APITokenRecord struct {
	TokenID          string
	AccessTokenHash  string
	RefreshTokenID   string
	RefreshTokenHash string
	Description      string
	Scopes           []string
	IssuedAt         time.Time
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
	LastUsedAt       time.Time
	UsageCount       int64
	IsActive         bool
	RevokedAt        time.Time
}

// UserProvider is the user-record collaborator the host application
// implements against its own storage. Lookup methods return (nil, nil)
// for "no such record"; a non-nil error always means the backend itself
// failed and is surfaced as ErrProviderUnavailable.
//
// ConsumeBackupCode and DeactivateAPIToken must be conditional updates
// (compare-and-set on the Used/IsActive flag): of any number of
// concurrent calls against the same record, exactly one may report true.
type UserProvider interface {
	GetUserByID(ctx context.Context, userID string) (*UserRecord, error)

	GetTwoFactor(ctx context.Context, userID string) (*TwoFactorRecord, error)
	PutTwoFactor(ctx context.Context, userID string, record TwoFactorRecord) error
	// MarkTwoFactorVerified sets Verified on the record and
	// TwoFactorEnabled on the user in one durable update.
	MarkTwoFactorVerified(ctx context.Context, userID string) error
	// RemoveTwoFactor clears the record, the user's TwoFactorEnabled
	// flag, and every backup code.
	RemoveTwoFactor(ctx context.Context, userID string) error

	GetBackupCodes(ctx context.Context, userID string) ([]BackupCodeRecord, error)
	// ReplaceBackupCodes atomically swaps the whole batch; prior codes
	// become invalid the instant the new batch is stored.
	ReplaceBackupCodes(ctx context.Context, userID string, codes []BackupCodeRecord) error
	// ConsumeBackupCode marks the unused record with the given hash as
	// used at the given time. False when no unused record matches.
	ConsumeBackupCode(ctx context.Context, userID, hash string, at time.Time) (bool, error)

	InsertAPIToken(ctx context.Context, userID string, record APITokenRecord) error
	GetAPIToken(ctx context.Context, userID, tokenID string) (*APITokenRecord, error)
	ListAPITokens(ctx context.Context, userID string) ([]APITokenRecord, error)
	// DeactivateAPIToken sets IsActive=false and RevokedAt once. False
	// when no active record matches; the first revocation time is never
	// overwritten.
	DeactivateAPIToken(ctx context.Context, userID, tokenID string, at time.Time) (bool, error)
	// TouchAPIToken bumps the usage counter and last-used time.
	TouchAPIToken(ctx context.Context, userID, tokenID string, at time.Time) error
}

// TwoFactorSetup is returned once by BeginTwoFactorSetup. BackupCodes
// and SecretBase32 appear here in plaintext and nowhere else.
type TwoFactorSetup struct {
	SecretBase32    string
	OtpauthURL      string
	ManualEntryCode string
	RecoveryEmail   string
	BackupCodes     []string
}

// TwoFactorStatus is the read-only state shown on settings surfaces.
type TwoFactorStatus struct {
	Enabled              bool
	Pending              bool
	BackupCodesRemaining int
}

// APITokenIssuance is the one-time response shape for a freshly issued
// API token pair. Field names are wire-compatible with courierlog
// clients.
type APITokenIssuance struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	TokenType    string    `json:"tokenType"`
	ExpiresIn    int64     `json:"expiresIn"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Scopes       []string  `json:"scopes"`
	TokenID      string    `json:"tokenId"`
	Description  string    `json:"description,omitempty"`
}

// APITokenInfo annotates an active token for listing.
type APITokenInfo struct {
	TokenID         string    `json:"tokenId"`
	Description     string    `json:"description,omitempty"`
	Scopes          []string  `json:"scopes"`
	CreatedAt       time.Time `json:"createdAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
	LastUsedAt      time.Time `json:"lastUsedAt,omitzero"`
	UsageCount      int64     `json:"usageCount"`
	DaysUntilExpiry int       `json:"daysUntilExpiry"`
}

package authkit

import (
	"time"

	"github.com/courierlog/authkit/jwt"
)

// Config is the engine's process-wide configuration. It is read once at
// Build and never mutated afterwards; tests supply fixtures directly
// instead of touching ambient state.
type Config struct {
	JWT         JWTConfig
	Session     SessionConfig
	TOTP        TOTPConfig
	BackupCodes BackupCodeConfig
	Refresh     RefreshConfig
	APIToken    APITokenConfig
}

// JWTConfig carries the signing key material shared by session and API
// tokens. A missing key is fatal at Build, never per-request.
type JWTConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte // ed25519 verify key; unused for hs256
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// SessionConfig bounds short-lived web session tokens.
type SessionConfig struct {
	TTL time.Duration
}

// TOTPConfig names the issuer shown in authenticator apps. Digits (6),
// period (30s), and the one-step drift window are fixed by the engine:
// widening the window widens the online brute-force surface.
type TOTPConfig struct {
	Issuer string
}

// BackupCodeConfig sizes a recovery code batch.
type BackupCodeConfig struct {
	Count int
}

// RefreshConfig bounds opaque authentication-session refresh tokens.
type RefreshConfig struct {
	TTL time.Duration
}

// APITokenConfig governs the scoped API token service. AllowedScopes is
// the fixed allow-list requests are intersected against; DefaultScopes
// is granted when a request names none.
type APITokenConfig struct {
	DefaultExpiryDays int
	RefreshExpiryDays int
	AllowedScopes     []string
	DefaultScopes     []string
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: string(jwt.MethodHS256),
			Issuer:        "courierlog",
			Audience:      "courierlog-api",
		},
		Session: SessionConfig{
			TTL: 12 * time.Hour,
		},
		TOTP: TOTPConfig{
			Issuer: "courierlog",
		},
		BackupCodes: BackupCodeConfig{
			Count: 10,
		},
		Refresh: RefreshConfig{
			TTL: 30 * 24 * time.Hour,
		},
		APIToken: APITokenConfig{
			DefaultExpiryDays: 365,
			RefreshExpiryDays: 730,
			AllowedScopes:     AllowedScopes(),
			DefaultScopes:     DefaultScopes(),
		},
	}
}

func normalizeConfig(cfg Config) Config {
	def := defaultConfig()
	if cfg.JWT.SigningMethod == "" {
		cfg.JWT.SigningMethod = def.JWT.SigningMethod
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = def.Session.TTL
	}
	if cfg.TOTP.Issuer == "" {
		cfg.TOTP.Issuer = def.TOTP.Issuer
	}
	if cfg.BackupCodes.Count <= 0 {
		cfg.BackupCodes.Count = def.BackupCodes.Count
	}
	if cfg.Refresh.TTL <= 0 {
		cfg.Refresh.TTL = def.Refresh.TTL
	}
	if cfg.APIToken.DefaultExpiryDays <= 0 {
		cfg.APIToken.DefaultExpiryDays = def.APIToken.DefaultExpiryDays
	}
	if cfg.APIToken.RefreshExpiryDays <= 0 {
		cfg.APIToken.RefreshExpiryDays = def.APIToken.RefreshExpiryDays
	}
	if len(cfg.APIToken.AllowedScopes) == 0 {
		cfg.APIToken.AllowedScopes = def.APIToken.AllowedScopes
	}
	if len(cfg.APIToken.DefaultScopes) == 0 {
		cfg.APIToken.DefaultScopes = def.APIToken.DefaultScopes
	}
	return cfg
}

package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the signature algorithm for all tokens minted by
// a [Manager].
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// Wire values of the token_type claim. Verification treats token_type as
// a discriminant: a session token never parses as an API token and vice
// versa.
const (
	TypeSession    = "session"
	TypeAPIAccess  = "api_access"
	TypeAPIRefresh = "refresh"
)

var (
	// ErrNoSigningKey is returned by [NewManager] when the configured
	// method has no usable key material. Fatal at construction, never
	// surfaced per-request.
	ErrNoSigningKey = errors.New("jwt: no signing key configured")

	// ErrWrongTokenType is returned when a structurally valid token
	// carries a token_type other than the one the caller asked for.
	ErrWrongTokenType = errors.New("jwt: unexpected token type")
)

// Config is the immutable signing configuration handed to [NewManager].
// TimeFunc, when set, replaces wall-clock time during claim validation
// so expiry checks follow the caller's clock.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	TimeFunc      func() time.Time
}

// Manager signs and verifies the three token classes used by the engine.
// It is safe for concurrent use.
type Manager struct {
	config Config
}

// SessionClaims is the claim set of a short-lived web session token.
type SessionClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// APIAccessClaims is the claim set of a long-lived scoped API access
// token. Scopes is the space-joined scope string list.
type APIAccessClaims struct {
	TokenType   string `json:"token_type"`
	Scopes      string `json:"scopes"`
	Description string `json:"description,omitempty"`
	jwt.RegisteredClaims
}

// APIRefreshClaims is the claim set of the refresh token paired with an
// API access token. AccessTokenID references the paired access token's
// jti.
type APIRefreshClaims struct {
	TokenType     string `json:"token_type"`
	AccessTokenID string `json:"access_token_id"`
	jwt.RegisteredClaims
}

// NewManager validates the key material once. A manager that constructs
// successfully can always sign.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, ErrNoSigningKey
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) == 0 {
			return nil, ErrNoSigningKey
		}
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("jwt: ed25519 requires a public verify key")
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("jwt: unsupported signing method")
	}
	return &Manager{config: cfg}, nil
}

// MintSession signs a session token for sub with the given validity.
func (j *Manager) MintSession(sub, jti string, now time.Time, validity time.Duration) (string, error) {
	claims := SessionClaims{
		TokenType:        TypeSession,
		RegisteredClaims: j.registered(sub, jti, now, validity),
	}
	return j.sign(claims)
}

// MintAPIAccess signs a scoped API access token. The jti doubles as the
// durable ApiToken record id.
func (j *Manager) MintAPIAccess(sub, jti, scopes, description string, now time.Time, validity time.Duration) (string, error) {
	claims := APIAccessClaims{
		TokenType:        TypeAPIAccess,
		Scopes:           scopes,
		Description:      description,
		RegisteredClaims: j.registered(sub, jti, now, validity),
	}
	return j.sign(claims)
}

// MintAPIRefresh signs the refresh token paired with accessTokenID.
func (j *Manager) MintAPIRefresh(sub, jti, accessTokenID string, now time.Time, validity time.Duration) (string, error) {
	claims := APIRefreshClaims{
		TokenType:        TypeAPIRefresh,
		AccessTokenID:    accessTokenID,
		RegisteredClaims: j.registered(sub, jti, now, validity),
	}
	return j.sign(claims)
}

// ParseSession verifies signature, expiry, issuer, and audience, then
// requires token_type=session.
func (j *Manager) ParseSession(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := j.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeSession {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ParseAPIAccess verifies an API access token.
func (j *Manager) ParseAPIAccess(tokenStr string) (*APIAccessClaims, error) {
	claims := &APIAccessClaims{}
	if err := j.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeAPIAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ParseAPIRefresh verifies an API refresh token.
func (j *Manager) ParseAPIRefresh(tokenStr string) (*APIRefreshClaims, error) {
	claims := &APIRefreshClaims{}
	if err := j.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeAPIRefresh {
		return nil, ErrWrongTokenType
	}
	if claims.AccessTokenID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (j *Manager) registered(sub, jti string, now time.Time, validity time.Duration) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Subject:   sub,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		Issuer:    j.config.Issuer,
	}
	if j.config.Audience != "" {
		rc.Audience = jwt.ClaimStrings{j.config.Audience}
	}
	return rc
}

func (j *Manager) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(j.method(), claims)
	key, err := j.signKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(key)
}

func (j *Manager) parse(tokenStr string, claims jwt.Claims) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.config.TimeFunc != nil {
		options = append(options, jwt.WithTimeFunc(j.config.TimeFunc))
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return j.verifyKey()
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

func (j *Manager) method() jwt.SigningMethod {
	switch j.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (j *Manager) signKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodEd25519:
		return parseEdPrivateKey(j.config.PrivateKey)
	default:
		return j.config.PrivateKey, nil
	}
}

func (j *Manager) verifyKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodEd25519:
		return parseEdPublicKey(j.config.PublicKey)
	default:
		return j.config.PrivateKey, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.SeedSize {
		return ed25519.NewKeyFromSeed(key), nil
	}
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("jwt: invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwt: invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("jwt: invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("jwt: invalid ed25519 public key type")
	}
	return edKey, nil
}

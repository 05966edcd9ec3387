package authkit

import (
	"errors"
	"time"

	"github.com/courierlog/authkit/jwt"
	"github.com/courierlog/authkit/refresh"
)

// Builder assembles an [Engine]. Configuration problems surface once,
// at Build, so a constructed Engine can always sign and verify.
type Builder struct {
	config Config

	users UserProvider
	store refresh.Store
	sink  AuditSink
	clock func() time.Time

	built bool
}

// New returns a Builder preloaded with defaults.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration; zero-valued fields fall
// back to defaults at Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithUserProvider wires the user-record collaborator. Required.
func (b *Builder) WithUserProvider(users UserProvider) *Builder {
	b.users = users
	return b
}

// WithRefreshStore wires the rotation chain store. Defaults to an
// in-process [refresh.MemoryStore].
func (b *Builder) WithRefreshStore(store refresh.Store) *Builder {
	b.store = store
	return b
}

// WithAuditSink wires the audit event destination. Defaults to NoOpSink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithClock overrides the engine's time source. Tests use it to place
// operations at exact TOTP steps and expiry boundaries.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// Build validates the configuration and wires the Engine. A missing
// signing key is fatal here and never retried per-request.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderReused
	}
	if b.users == nil {
		return nil, errors.New("authkit: a UserProvider is required")
	}

	cfg := normalizeConfig(b.config)
	if len(cfg.JWT.PrivateKey) == 0 {
		return nil, ErrNoSigningKey
	}

	manager, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cfg.JWT.PrivateKey,
		PublicKey:     cfg.JWT.PublicKey,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		TimeFunc:      b.clock,
	})
	if err != nil {
		if errors.Is(err, jwt.ErrNoSigningKey) {
			return nil, ErrNoSigningKey
		}
		return nil, err
	}

	store := b.store
	if store == nil {
		store = refresh.NewMemoryStore()
	}
	sink := b.sink
	if sink == nil {
		sink = NoOpSink{}
	}

	b.built = true
	return &Engine{
		config:       cfg,
		jwt:          manager,
		totp:         newTOTPManager(cfg.TOTP),
		users:        b.users,
		refreshStore: store,
		audit:        sink,
		clock:        b.clock,
	}, nil
}

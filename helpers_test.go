package authkit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/courierlog/authkit/refresh"
)

// testClock is a settable time source so tests can sit exactly on TOTP
// steps and expiry boundaries.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errProviderDown = errors.New("provider down")

type memoryUser struct {
	record      UserRecord
	twoFactor   *TwoFactorRecord
	backupCodes []BackupCodeRecord
	apiTokens   map[string]*APITokenRecord
}

// memoryProvider is an in-process UserProvider with the conditional
// update semantics the engine requires. failing switches every call to
// an outage for propagation tests.
type memoryProvider struct {
	mu      sync.Mutex
	users   map[string]*memoryUser
	failing bool
}

func newMemoryProvider() *memoryProvider {
	return &memoryProvider{users: make(map[string]*memoryUser)}
}

func (p *memoryProvider) addUser(userID, email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[userID] = &memoryUser{
		record:    UserRecord{UserID: userID, Email: email, DisplayName: userID},
		apiTokens: make(map[string]*APITokenRecord),
	}
}

func (p *memoryProvider) user(userID string) (*memoryUser, error) {
	if p.failing {
		return nil, errProviderDown
	}
	return p.users[userID], nil
}

func (p *memoryProvider) GetUserByID(_ context.Context, userID string) (*UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.user(userID)
	if err != nil || u == nil {
		return nil, err
	}
	record := u.record
	return &record, nil
}

func (p *memoryProvider) GetTwoFactor(_ context.Context, userID string) (*TwoFactorRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.user(userID)
	if err != nil || u == nil || u.twoFactor == nil {
		return nil, err
	}
	record := *u.twoFactor
	return &record, nil
}

func (p *memoryProvider) PutTwoFactor(_ context.Context, userID string, record TwoFactorRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.user(userID)
	if err != nil {
		return err
	}
	u.twoFactor = &record
	return nil
}

func (p *memoryProvider) MarkTwoFactorVerified(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.user(userID)
	if err != nil {
		return err
	}
	if u.twoFactor == nil {
		return errors.New("no two-factor record")
	}
	u.twoFactor.Verified = true
	u.record.TwoFactorEnabled = true
	return nil
}

func (p *memoryProvider) RemoveTwoFactor(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.user(userID)
	if err != nil {
		return err
	}
	u.twoFactor = nil
	u.backupCodes = nil
	u.record.TwoFactorEnabled = false
	return nil
}

func (p *memoryProvider) GetBackupCodes(_ context.Context, userID string) ([]BackupCodeRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.user(userID)
	if err != nil || u == nil {
		return nil, err
	}
	out := make([]BackupCodeRecord, len(u.backupCodes))
	copy(out, u.backupCodes)
	return out, nil
}

func (p *memoryProvider) ReplaceBackupCodes(_ context.Context, userID string, codes []BackupCodeRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.user(userID)
	if err != nil {
		return err
	}
	u.backupCodes = make([]BackupCodeRecord, len(codes))
	copy(u.backupCodes, codes)
	return nil
}

func (p *memoryProvider) ConsumeBackupCode(_ context.Context, userID, hash string, at time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.user(userID)
	if err != nil || u == nil {
		return false, err
	}
	for i := range u.backupCodes {
		if !u.backupCodes[i].Used && u.backupCodes[i].Hash == hash {
			u.backupCodes[i].Used = true
			u.backupCodes[i].UsedAt = at
			return true, nil
		}
	}
	return false, nil
}

func (p *memoryProvider) InsertAPIToken(_ context.Context, userID string, record APITokenRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.user(userID)
	if err != nil {
		return err
	}
	stored := record
	u.apiTokens[record.TokenID] = &stored
	return nil
}

func (p *memoryProvider) GetAPIToken(_ context.Context, userID, tokenID string) (*APITokenRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.user(userID)
	if err != nil || u == nil {
		return nil, err
	}
	stored, ok := u.apiTokens[tokenID]
	if !ok {
		return nil, nil
	}
	record := *stored
	return &record, nil
}

func (p *memoryProvider) ListAPITokens(_ context.Context, userID string) ([]APITokenRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.user(userID)
	if err != nil || u == nil {
		return nil, err
	}
	out := make([]APITokenRecord, 0, len(u.apiTokens))
	for _, stored := range u.apiTokens {
		out = append(out, *stored)
	}
	return out, nil
}

func (p *memoryProvider) DeactivateAPIToken(_ context.Context, userID, tokenID string, at time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.user(userID)
	if err != nil || u == nil {
		return false, err
	}
	stored, ok := u.apiTokens[tokenID]
	if !ok || !stored.IsActive {
		return false, nil
	}
	stored.IsActive = false
	stored.RevokedAt = at
	return true, nil
}

func (p *memoryProvider) TouchAPIToken(_ context.Context, userID, tokenID string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.user(userID)
	if err != nil {
		return err
	}
	if stored, ok := u.apiTokens[tokenID]; ok {
		stored.UsageCount++
		stored.LastUsedAt = at
	}
	return nil
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.PrivateKey = []byte("test-signing-key-0123456789abcdef")
	cfg.JWT.Issuer = "courierlog-test"
	cfg.JWT.Audience = "courierlog-api"
	return cfg
}

// newTestEngine builds an engine over a fresh memory provider seeded
// with user u1, pinned to a settable clock.
func newTestEngine(t *testing.T) (*Engine, *memoryProvider, *testClock) {
	t.Helper()
	clock := newTestClock(time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC))
	up := newMemoryProvider()
	up.addUser("u1", "courier@example.com")

	engine, err := New().
		WithConfig(testConfig()).
		WithUserProvider(up).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine, up, clock
}

// enableTwoFactor walks u1 through setup and verification, returning the
// plaintext setup payload.
func enableTwoFactor(t *testing.T, engine *Engine, clock *testClock) *TwoFactorSetup {
	t.Helper()
	setup, err := engine.BeginTwoFactorSetup(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("BeginTwoFactorSetup failed: %v", err)
	}
	code, err := engine.totp.ComputeCode(setup.SecretBase32, clock.Now())
	if err != nil {
		t.Fatalf("ComputeCode failed: %v", err)
	}
	if err := engine.CompleteTwoFactorVerification(context.Background(), "u1", code, ""); err != nil {
		t.Fatalf("CompleteTwoFactorVerification failed: %v", err)
	}
	return setup
}

// failingRefreshStore simulates a refresh backend outage.
type failingRefreshStore struct{}

func (failingRefreshStore) Insert(context.Context, refresh.Token) error {
	return refresh.ErrUnavailable
}

func (failingRefreshStore) Get(context.Context, string) (*refresh.Token, error) {
	return nil, refresh.ErrUnavailable
}

func (failingRefreshStore) Revoke(context.Context, string, string, time.Time) (bool, error) {
	return false, refresh.ErrUnavailable
}

func (failingRefreshStore) Rotate(context.Context, string, refresh.Token, string, time.Time) error {
	return refresh.ErrUnavailable
}

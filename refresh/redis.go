package refresh

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "authkit:rt:"

// Revoked records are kept past expiry for audit before Redis reaps them.
const revokedRetention = 30 * 24 * time.Hour

const (
	statusNotFound int64 = 0
	statusRevoked  int64 = 1
	statusExpired  int64 = 2
	statusOK       int64 = 3
)

// Both scripts load the record, check it is the active chain tail, and
// mutate it in the same Redis execution slot, so concurrent callers
// serialize on the server.
const revokeScript = `
local raw = redis.call("GET", KEYS[1])
if not raw then
  return 0
end
local tok = cjson.decode(raw)
if tonumber(tok.revoked_at_unix) > 0 then
  return 1
end
tok.revoked_at_unix = tonumber(ARGV[1])
tok.revoked_by_ip = ARGV[2]
redis.call("SET", KEYS[1], cjson.encode(tok), "KEEPTTL")
return 3
`

const rotateScript = `
local raw = redis.call("GET", KEYS[1])
if not raw then
  return 0
end
local tok = cjson.decode(raw)
if tonumber(tok.revoked_at_unix) > 0 then
  return 1
end
if tonumber(tok.expires_at_unix) <= tonumber(ARGV[1]) then
  return 2
end
tok.revoked_at_unix = tonumber(ARGV[1])
tok.revoked_by_ip = ARGV[2]
tok.replaced_by_token = ARGV[3]
redis.call("SET", KEYS[1], cjson.encode(tok), "KEEPTTL")
redis.call("SET", KEYS[2], ARGV[4], "EX", ARGV[5])
return 3
`

var (
	revokeLua = redis.NewScript(revokeScript)
	rotateLua = redis.NewScript(rotateScript)
)

// RedisStore persists rotation chains in Redis, one record per token
// value keyed by the value's SHA-256 so raw tokens never appear in the
// keyspace. Conditional updates run as Lua scripts.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. prefix may be empty for the
// default key namespace.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

type redisRecord struct {
	Token           string `json:"token"`
	UserID          string `json:"user_id"`
	ExpiresAtUnix   int64  `json:"expires_at_unix"`
	CreatedAtUnix   int64  `json:"created_at_unix"`
	CreatedByIP     string `json:"created_by_ip"`
	RevokedAtUnix   int64  `json:"revoked_at_unix"`
	RevokedByIP     string `json:"revoked_by_ip"`
	ReplacedByToken string `json:"replaced_by_token"`
}

func toRecord(t Token) redisRecord {
	rec := redisRecord{
		Token:           t.Token,
		UserID:          t.UserID,
		ExpiresAtUnix:   t.ExpiresAt.Unix(),
		CreatedAtUnix:   t.CreatedAt.Unix(),
		CreatedByIP:     t.CreatedByIP,
		RevokedByIP:     t.RevokedByIP,
		ReplacedByToken: t.ReplacedByToken,
	}
	if !t.RevokedAt.IsZero() {
		rec.RevokedAtUnix = t.RevokedAt.Unix()
	}
	return rec
}

func (r redisRecord) toToken() Token {
	t := Token{
		Token:           r.Token,
		UserID:          r.UserID,
		ExpiresAt:       time.Unix(r.ExpiresAtUnix, 0),
		CreatedAt:       time.Unix(r.CreatedAtUnix, 0),
		CreatedByIP:     r.CreatedByIP,
		RevokedByIP:     r.RevokedByIP,
		ReplacedByToken: r.ReplacedByToken,
	}
	if r.RevokedAtUnix > 0 {
		t.RevokedAt = time.Unix(r.RevokedAtUnix, 0)
	}
	return t
}

func (s *RedisStore) key(value string) string {
	sum := sha256.Sum256([]byte(value))
	return s.prefix + hex.EncodeToString(sum[:])
}

func recordTTL(expiresAt, now time.Time) time.Duration {
	ttl := expiresAt.Sub(now) + revokedRetention
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

// Insert stores a fresh terminal chain node.
func (s *RedisStore) Insert(ctx context.Context, token Token) error {
	data, err := json.Marshal(toRecord(token))
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(token.Token), data, recordTTL(token.ExpiresAt, token.CreatedAt)).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

// Get returns the record for a token value, revoked or not.
func (s *RedisStore) Get(ctx context.Context, value string) (*Token, error) {
	raw, err := s.client.Get(ctx, s.key(value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrUnavailable, err)
	}
	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	token := rec.toToken()
	return &token, nil
}

// Revoke marks the token revoked at most once.
func (s *RedisStore) Revoke(ctx context.Context, value, ip string, at time.Time) (bool, error) {
	status, err := revokeLua.Run(ctx, s.client,
		[]string{s.key(value)},
		at.Unix(), ip,
	).Int64()
	if err != nil {
		return false, errors.Join(ErrUnavailable, err)
	}
	return status == statusOK, nil
}

// Rotate revokes the active tail, links it to the successor, and inserts
// the successor in one script execution.
func (s *RedisStore) Rotate(ctx context.Context, value string, successor Token, ip string, at time.Time) error {
	data, err := json.Marshal(toRecord(successor))
	if err != nil {
		return err
	}
	successorTTL := int64(recordTTL(successor.ExpiresAt, at) / time.Second)
	status, err := rotateLua.Run(ctx, s.client,
		[]string{s.key(value), s.key(successor.Token)},
		at.Unix(), ip, successor.Token, string(data), strconv.FormatInt(successorTTL, 10),
	).Int64()
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	switch status {
	case statusNotFound:
		return ErrNotFound
	case statusRevoked, statusExpired:
		return ErrConflict
	default:
		return nil
	}
}

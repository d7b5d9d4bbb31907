// Package redisstore implements the short-lived stores of the service on
// Redis: staged MMS media and one-time passwords. Expiry is delegated to
// Redis key TTLs so several instances can share the same state.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-mms-backend/internal/domain"
	"github.com/tbourn/go-mms-backend/internal/media"
)

// Connect parses a redis:// URL and verifies the server answers PING.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return c, nil
}

// MediaStore keeps staged images as hashes under "mms:media:<id>".
type MediaStore struct {
	rdb    *redis.Client
	prefix string
}

// NewMediaStore wraps an existing client.
func NewMediaStore(rdb *redis.Client) *MediaStore {
	return &MediaStore{rdb: rdb, prefix: "mms:media:"}
}

var _ media.Store = (*MediaStore)(nil)

// Put writes data and content type atomically with the given TTL.
func (s *MediaStore) Put(ctx context.Context, data []byte, contentType string, ttl time.Duration) (string, error) {
	id, err := media.NewID()
	if err != nil {
		return "", err
	}
	key := s.prefix + id
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, "data", data, "type", contentType)
		p.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("stage media: %w", err)
	}
	return id, nil
}

// Get returns the staged object, or media.ErrNotFound once the key expired.
func (s *MediaStore) Get(ctx context.Context, id string) (media.Object, error) {
	vals, err := s.rdb.HMGet(ctx, s.prefix+id, "data", "type").Result()
	if err != nil {
		return media.Object{}, fmt.Errorf("load media: %w", err)
	}
	if vals[0] == nil {
		return media.Object{}, media.ErrNotFound
	}
	data, _ := vals[0].(string)
	ct, _ := vals[1].(string)
	return media.Object{Data: []byte(data), ContentType: ct}, nil
}

// Delete removes the staged object before its TTL runs out.
func (s *MediaStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	return nil
}

// checkOTP compares the stored hash, burning one attempt on a mismatch and
// deleting the key on a match so a code can be used only once.
var checkOTP = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
local attempts = tonumber(redis.call('HGET', KEYS[1], 'attempts') or '0')
if attempts >= tonumber(ARGV[2]) then
  return 0
end
if redis.call('HGET', KEYS[1], 'hash') == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
return 0
`)

// OTPStore keeps the current hashed code per (purpose, phone).
type OTPStore struct {
	rdb         *redis.Client
	maxAttempts int
}

// NewOTPStore wraps an existing client.
func NewOTPStore(rdb *redis.Client, maxAttempts int) *OTPStore {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &OTPStore{rdb: rdb, maxAttempts: maxAttempts}
}

func otpKey(phone string, purpose domain.OTPPurpose) string {
	return "mms:otp:" + string(purpose) + ":" + phone
}

// Put replaces any previous code for the pair and resets its attempts.
func (s *OTPStore) Put(ctx context.Context, phone string, purpose domain.OTPPurpose, codeHash string, ttl time.Duration) error {
	key := otpKey(phone, purpose)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, "hash", codeHash, "attempts", 0)
		p.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

// Check reports whether codeHash matches and consumes it when it does.
func (s *OTPStore) Check(ctx context.Context, phone string, purpose domain.OTPPurpose, codeHash string) (bool, error) {
	n, err := checkOTP.Run(ctx, s.rdb, []string{otpKey(phone, purpose)}, codeHash, s.maxAttempts).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return n == 1, nil
}

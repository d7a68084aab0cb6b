// Package redis provides a Redis-backed store for pending registrations so
// that OTP state survives restarts and is shared across API replicas.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/medkart/pharma-backend/internal/otp"
)

const keyPrefix = "pharma:otp:"

// OTPStore persists otp entries as JSON values with a housekeeping TTL. The
// registry still enforces expiry itself; the TTL only keeps abandoned entries
// from accumulating.
type OTPStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ otp.Store = (*OTPStore)(nil)

// NewOTPStore creates an OTPStore. ttl should comfortably exceed the
// registry's code expiry.
func NewOTPStore(client *redis.Client, ttl time.Duration) *OTPStore {
	return &OTPStore{client: client, ttl: ttl}
}

func (s *OTPStore) Put(ctx context.Context, key string, e otp.Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encode entry")
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "set entry")
	}
	return nil
}

func (s *OTPStore) Get(ctx context.Context, key string) (otp.Entry, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return otp.Entry{}, false, nil
	}
	if err != nil {
		return otp.Entry{}, false, errors.Wrap(err, "get entry")
	}

	var e otp.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return otp.Entry{}, false, errors.Wrap(err, "decode entry")
	}
	return e, true, nil
}

func (s *OTPStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return errors.Wrap(err, "delete entry")
	}
	return nil
}

// Package otp implements the short-lived, single-use verification codes that
// gate account registration. Codes live in a pluggable Store so a
// multi-process deployment can back them with Redis instead of process
// memory.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Verification outcomes. All are recoverable by the caller; retry is a
// user-driven action via Resend.
var (
	ErrNoPending   = errors.New("no pending registration for this email")
	ErrExpired     = errors.New("verification code has expired")
	ErrInvalidCode = errors.New("invalid verification code")
)

// Entry is a pending registration held against an email key. The payload is
// opaque to this package.
type Entry struct {
	Payload  []byte    `json:"payload"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
}

// Store is a keyed entry store. Put replaces the whole entry for a key;
// partial mutations are never visible to concurrent readers.
type Store interface {
	Put(ctx context.Context, key string, e Entry) error
	Get(ctx context.Context, key string) (Entry, bool, error)
	Delete(ctx context.Context, key string) error
}

// Config controls registry behaviour.
type Config struct {
	// Expiry is how long an issued code stays valid. Defaults to 10 minutes.
	Expiry time.Duration
	// BypassCode, when non-empty, also satisfies verification. It must only
	// be set in deployments where real code delivery is disabled.
	BypassCode string
}

// Registry issues, resends, and consumes verification codes keyed by
// normalized email.
type Registry struct {
	store  Store
	expiry time.Duration
	bypass string
	now    func() time.Time
}

// DefaultExpiry is used when Config.Expiry is zero.
const DefaultExpiry = 10 * time.Minute

// NewRegistry creates a Registry over the given store.
func NewRegistry(store Store, cfg Config) *Registry {
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Registry{
		store:  store,
		expiry: expiry,
		bypass: cfg.BypassCode,
		now:    time.Now,
	}
}

// Expiry returns the configured code lifetime.
func (r *Registry) Expiry() time.Duration { return r.expiry }

// NormalizeEmail lowercases and trims an email for use as a registry key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Issue generates a fresh code for the email and stores it with the payload,
// replacing any prior pending entry. The previous code, if any, becomes
// unusable. The code is returned for delivery by the caller.
func (r *Registry) Issue(ctx context.Context, email string, payload []byte) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", errors.Wrap(err, "generate code")
	}

	key := NormalizeEmail(email)
	e := Entry{Payload: payload, Code: code, IssuedAt: r.now()}
	if err := r.store.Put(ctx, key, e); err != nil {
		return "", errors.Wrap(err, "store pending registration")
	}
	return code, nil
}

// Resend replaces the code and timestamp of an existing pending entry,
// keeping its payload. It returns ErrNoPending when nothing is pending for
// the email.
func (r *Registry) Resend(ctx context.Context, email string) (string, []byte, error) {
	key := NormalizeEmail(email)
	e, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return "", nil, errors.Wrap(err, "load pending registration")
	}
	if !ok {
		return "", nil, ErrNoPending
	}

	code, err := generateCode()
	if err != nil {
		return "", nil, errors.Wrap(err, "generate code")
	}

	e.Code = code
	e.IssuedAt = r.now()
	if err := r.store.Put(ctx, key, e); err != nil {
		return "", nil, errors.Wrap(err, "store pending registration")
	}
	return code, e.Payload, nil
}

// VerifyAndConsume checks the submitted code against the pending entry.
// Expired entries are removed and reported as ErrExpired; a later attempt
// sees ErrNoPending. A mismatched code leaves the entry in place so the user
// can retry until expiry. On success the entry is removed (single use) and
// the stored payload returned.
func (r *Registry) VerifyAndConsume(ctx context.Context, email, code string) ([]byte, error) {
	key := NormalizeEmail(email)
	e, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "load pending registration")
	}
	if !ok {
		return nil, ErrNoPending
	}

	if r.now().Sub(e.IssuedAt) >= r.expiry {
		if err := r.store.Delete(ctx, key); err != nil {
			return nil, errors.Wrap(err, "remove expired registration")
		}
		return nil, ErrExpired
	}

	submitted := strings.TrimSpace(code)
	bypassed := r.bypass != "" && submitted == r.bypass
	if submitted != e.Code && !bypassed {
		return nil, ErrInvalidCode
	}

	if err := r.store.Delete(ctx, key); err != nil {
		return nil, errors.Wrap(err, "consume registration")
	}
	return e.Payload, nil
}

// generateCode returns a uniformly random 6-digit code with leading zeros
// preserved.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

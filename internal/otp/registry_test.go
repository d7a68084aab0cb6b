package otp

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, cfg Config) *Registry {
	t.Helper()
	return NewRegistry(NewMemoryStore(), cfg)
}

func TestIssueAndVerify(t *testing.T) {
	r := newTestRegistry(t, Config{})
	ctx := context.Background()

	code, err := r.Issue(ctx, "User@X.com", []byte(`{"name":"Dana"}`))
	require.NoError(t, err)
	require.Len(t, code, 6)

	// Keys are normalized: verify with a differently-cased address.
	payload, err := r.VerifyAndConsume(ctx, "  user@x.com ", code)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"name":"Dana"}`), payload)
}

func TestVerify_SingleUse(t *testing.T) {
	r := newTestRegistry(t, Config{})
	ctx := context.Background()

	code, err := r.Issue(ctx, "user@x.com", []byte("payload"))
	require.NoError(t, err)

	_, err = r.VerifyAndConsume(ctx, "user@x.com", code)
	require.NoError(t, err)

	// Second attempt with the same code: already consumed.
	_, err = r.VerifyAndConsume(ctx, "user@x.com", code)
	require.ErrorIs(t, err, ErrNoPending)
}

func TestVerify_WrongCodeKeepsEntry(t *testing.T) {
	r := newTestRegistry(t, Config{})
	ctx := context.Background()

	code, err := r.Issue(ctx, "user@x.com", []byte("payload"))
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err = r.VerifyAndConsume(ctx, "user@x.com", wrong)
	require.ErrorIs(t, err, ErrInvalidCode)

	// The entry survives a failed attempt; the real code still works.
	_, err = r.VerifyAndConsume(ctx, "user@x.com", code)
	require.NoError(t, err)
}

func TestResend_InvalidatesOldCode(t *testing.T) {
	r := newTestRegistry(t, Config{})
	ctx := context.Background()

	oldCode, err := r.Issue(ctx, "user@x.com", []byte("payload"))
	require.NoError(t, err)

	newCode, payload, err := r.Resend(ctx, "user@x.com")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), payload)

	if oldCode != newCode {
		_, err = r.VerifyAndConsume(ctx, "user@x.com", oldCode)
		require.ErrorIs(t, err, ErrInvalidCode)
	}

	_, err = r.VerifyAndConsume(ctx, "user@x.com", newCode)
	require.NoError(t, err)
}

func TestResend_NoPending(t *testing.T) {
	r := newTestRegistry(t, Config{})

	_, _, err := r.Resend(context.Background(), "nobody@x.com")
	require.ErrorIs(t, err, ErrNoPending)
}

func TestVerify_Expired(t *testing.T) {
	r := newTestRegistry(t, Config{Expiry: 10 * time.Minute})
	ctx := context.Background()

	issued := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return issued }

	code, err := r.Issue(ctx, "user@x.com", []byte("payload"))
	require.NoError(t, err)

	// Exactly at the expiry boundary counts as expired.
	r.now = func() time.Time { return issued.Add(10 * time.Minute) }
	_, err = r.VerifyAndConsume(ctx, "user@x.com", code)
	require.ErrorIs(t, err, ErrExpired)

	// The expired entry was removed, not left behind.
	_, err = r.VerifyAndConsume(ctx, "user@x.com", code)
	require.ErrorIs(t, err, ErrNoPending)
}

func TestIssue_OverwritesPriorEntry(t *testing.T) {
	r := newTestRegistry(t, Config{})
	ctx := context.Background()

	first, err := r.Issue(ctx, "user@x.com", []byte("one"))
	require.NoError(t, err)
	second, err := r.Issue(ctx, "user@x.com", []byte("two"))
	require.NoError(t, err)

	if first != second {
		_, err = r.VerifyAndConsume(ctx, "user@x.com", first)
		require.ErrorIs(t, err, ErrInvalidCode)
	}

	payload, err := r.VerifyAndConsume(ctx, "user@x.com", second)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), payload)
}

func TestBypassCode(t *testing.T) {
	r := newTestRegistry(t, Config{BypassCode: "424242"})
	ctx := context.Background()

	_, err := r.Issue(ctx, "user@x.com", []byte("payload"))
	require.NoError(t, err)

	payload, err := r.VerifyAndConsume(ctx, "user@x.com", "424242")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), payload)
}

func TestBypassCode_DisabledByDefault(t *testing.T) {
	r := newTestRegistry(t, Config{})
	ctx := context.Background()

	code, err := r.Issue(ctx, "user@x.com", []byte("payload"))
	require.NoError(t, err)

	bogus := "424242"
	if bogus == code {
		bogus = "424243"
	}
	_, err = r.VerifyAndConsume(ctx, "user@x.com", bogus)
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestConcurrentIndependentEmails(t *testing.T) {
	r := newTestRegistry(t, Config{})
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			email := fmt.Sprintf("user%d@x.com", i)
			code, err := r.Issue(ctx, email, []byte(email))
			if err != nil {
				errs <- err
				return
			}
			payload, err := r.VerifyAndConsume(ctx, email, code)
			if err != nil {
				errs <- err
				return
			}
			if string(payload) != email {
				errs <- fmt.Errorf("payload mismatch for %s", email)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestGenerateCode_PreservesLeadingZeros(t *testing.T) {
	for range 64 {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			require.True(t, c >= '0' && c <= '9', "non-digit in code %q", code)
		}
	}
}

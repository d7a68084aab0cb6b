package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medkart/pharma-backend/internal/domain/order"
	"github.com/medkart/pharma-backend/internal/domain/user"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *recordingMailer) all() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type staticUserRepo struct {
	acct *user.Account
}

func (r *staticUserRepo) ExistsByEmail(context.Context, string) (bool, error) { return false, nil }
func (r *staticUserRepo) GetByEmail(context.Context, string) (*user.Account, error) {
	return r.acct, nil
}
func (r *staticUserRepo) GetByID(context.Context, string) (*user.Account, error) {
	return r.acct, nil
}
func (r *staticUserRepo) Create(context.Context, *user.Account) error { return nil }

func testOrder() *order.Order {
	return &order.Order{
		ID:              "o1",
		UserID:          "u1",
		ShippingAddress: "12 Harbor Lane",
		PaymentMethod:   "COD",
		TotalAmount:     decimal.RequireFromString("50.00"),
		Items: []order.Item{{
			ProductID:    "p1",
			ProductName:  "Paracetamol",
			Quantity:     12,
			UnitPrice:    decimal.RequireFromString("10"),
			FreeQuantity: 2,
			Subtotal:     decimal.RequireFromString("50"),
		}},
	}
}

func TestOrderPlaced_Delivers(t *testing.T) {
	mailer := &recordingMailer{}
	users := &staticUserRepo{acct: &user.Account{ID: "u1", Email: "dana@example.com", FirstName: "Dana"}}
	d := NewDispatcher(mailer, users, Toggles{OrderPlaced: true}, "", zap.NewNop())

	d.OrderPlaced(testOrder())
	d.Close()

	sent := mailer.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "dana@example.com", sent[0].to)
	assert.Contains(t, sent[0].body, "Paracetamol x12 (includes 2 free)")
	assert.Contains(t, sent[0].body, "Total: 50.00")
}

func TestOrderPlaced_ToggleOff(t *testing.T) {
	mailer := &recordingMailer{}
	users := &staticUserRepo{acct: &user.Account{ID: "u1", Email: "dana@example.com"}}
	d := NewDispatcher(mailer, users, Toggles{}, "", zap.NewNop())

	d.OrderPlaced(testOrder())
	d.Close()

	assert.Empty(t, mailer.all())
}

func TestOTPIssued_DeliveryFailureIsSwallowed(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	users := &staticUserRepo{}
	d := NewDispatcher(mailer, users, Toggles{OTPEmail: true}, "", zap.NewNop())

	// Must not panic or block the caller.
	d.OTPIssued("dana@example.com", "Dana", "123456", 10*time.Minute)
	d.Close()
}

func TestOTPIssued_Body(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, &staticUserRepo{}, Toggles{OTPEmail: true}, "", zap.NewNop())

	d.OTPIssued("dana@example.com", "Dana", "004821", 10*time.Minute)
	d.Close()

	sent := mailer.all()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].body, "004821")
	assert.Contains(t, sent[0].body, "10 minutes")
}

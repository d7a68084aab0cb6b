package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/medkart/pharma-backend/internal/domain/order"
	"github.com/medkart/pharma-backend/internal/domain/product"
	"github.com/medkart/pharma-backend/internal/domain/user"
)

// Toggles enables individual notification kinds.
type Toggles struct {
	OrderPlaced bool
	OTPEmail    bool
	LowStock    bool
}

// Dispatcher sends notifications in background goroutines. It satisfies
// order.Notifier and user.OTPNotifier.
type Dispatcher struct {
	mailer     Mailer
	users      user.Repository
	toggles    Toggles
	adminEmail string
	lg         *zap.Logger

	wg sync.WaitGroup
}

const sendTimeout = 30 * time.Second

// NewDispatcher creates a Dispatcher. adminEmail receives low-stock digests.
func NewDispatcher(mailer Mailer, users user.Repository, toggles Toggles, adminEmail string, lg *zap.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:     mailer,
		users:      users,
		toggles:    toggles,
		adminEmail: adminEmail,
		lg:         lg,
	}
}

// Close waits for in-flight deliveries to finish.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}

// dispatch runs fn on its own goroutine with a bounded context, logging any
// delivery failure.
func (d *Dispatcher) dispatch(kind string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			d.lg.Error("notification delivery failed",
				zap.String("kind", kind),
				zap.Error(err),
			)
		}
	}()
}

// OrderPlaced emails the order confirmation to the order's owner.
func (d *Dispatcher) OrderPlaced(o *order.Order) {
	if !d.toggles.OrderPlaced {
		d.lg.Debug("order notification disabled", zap.String("order_id", o.ID))
		return
	}

	d.dispatch("order_placed", func(ctx context.Context) error {
		acct, err := d.users.GetByID(ctx, o.UserID)
		if err != nil {
			return err
		}

		subject := fmt.Sprintf("Order confirmation — %s", o.ID)
		return d.mailer.Send(ctx, acct.Email, subject, orderPlacedBody(acct, o))
	})
}

// OTPIssued emails a verification code to a registering user.
func (d *Dispatcher) OTPIssued(email, firstName, code string, expiry time.Duration) {
	if !d.toggles.OTPEmail {
		// Delivery disabled: surface the code in the log for local setups.
		d.lg.Info("otp email disabled, code not delivered",
			zap.String("email", email),
			zap.String("code", code),
		)
		return
	}

	d.dispatch("otp", func(ctx context.Context) error {
		subject := "Your verification code"
		body := fmt.Sprintf(
			"Hi %s,\n\nYour verification code is %s. It expires in %d minutes.\n\nIf you did not request this, ignore this email.\n",
			firstName, code, int(expiry.Minutes()),
		)
		return d.mailer.Send(ctx, email, subject, body)
	})
}

// LowStock emails a restock digest to the admin address.
func (d *Dispatcher) LowStock(products []product.Product) {
	if !d.toggles.LowStock || len(products) == 0 || d.adminEmail == "" {
		return
	}

	d.dispatch("low_stock", func(ctx context.Context) error {
		subject := fmt.Sprintf("Low stock alert — %d product(s) need restocking", len(products))
		return d.mailer.Send(ctx, d.adminEmail, subject, lowStockBody(products))
	})
}

func orderPlacedBody(acct *user.Account, o *order.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nThanks for your order! Summary:\n\n", acct.FirstName)
	for _, item := range o.Items {
		fmt.Fprintf(&b, "  %s x%d", item.ProductName, item.Quantity)
		if item.FreeQuantity > 0 {
			fmt.Fprintf(&b, " (includes %d free)", item.FreeQuantity)
		}
		fmt.Fprintf(&b, " — %s\n", item.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s\nShipping to: %s\nPayment: %s\n",
		o.TotalAmount.StringFixed(2), o.ShippingAddress, o.PaymentMethod)
	return b.String()
}

func lowStockBody(products []product.Product) string {
	var b strings.Builder
	b.WriteString("The following products are running low:\n\n")
	for _, p := range products {
		fmt.Fprintf(&b, "  %s (%s): %d left\n", p.Name, p.ID, p.StockQuantity)
	}
	return b.String()
}

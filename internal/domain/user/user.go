package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Role controls access to admin endpoints.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

var (
	// ErrNotFound is returned when a requested account does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrEmailInUse is returned when registration targets an existing account.
	ErrEmailInUse = errors.New("email already in use")
	// ErrBadCredentials is returned for failed logins.
	ErrBadCredentials = errors.New("invalid email or password")
)

// Account is a registered user.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         Role
	CreatedAt    time.Time
}

// Registration is the payload collected before OTP verification. It is held
// opaquely by the OTP registry until the email is verified.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// AuthResult is a signed session token together with the account it
// authenticates.
type AuthResult struct {
	Token   string
	Account *Account
}

// Repository defines persistence operations for accounts.
type Repository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, a *Account) error
}

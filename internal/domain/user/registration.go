package user

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/medkart/pharma-backend/internal/auth"
	"github.com/medkart/pharma-backend/internal/otp"
)

// CodeRegistry is the OTP issue/resend/consume surface the registration flow
// depends on.
type CodeRegistry interface {
	Issue(ctx context.Context, email string, payload []byte) (string, error)
	Resend(ctx context.Context, email string) (string, []byte, error)
	VerifyAndConsume(ctx context.Context, email, code string) ([]byte, error)
	Expiry() time.Duration
}

// TokenIssuer signs session tokens for newly authenticated accounts.
type TokenIssuer interface {
	Issue(userID, role string) (string, error)
}

// OTPNotifier delivers verification codes. Implementations are asynchronous
// and failure-isolated.
type OTPNotifier interface {
	OTPIssued(email, firstName, code string, expiry time.Duration)
}

// RegistrationService gates account creation behind email verification and
// handles logins.
type RegistrationService struct {
	users    Repository
	codes    CodeRegistry
	tokens   TokenIssuer
	notifier OTPNotifier
}

// NewRegistrationService creates a RegistrationService.
func NewRegistrationService(
	users Repository,
	codes CodeRegistry,
	tokens TokenIssuer,
	notifier OTPNotifier,
) *RegistrationService {
	return &RegistrationService{
		users:    users,
		codes:    codes,
		tokens:   tokens,
		notifier: notifier,
	}
}

// Initiate validates that the email is free, stores the registration behind a
// fresh OTP, and triggers code delivery. No account exists until Complete.
func (s *RegistrationService) Initiate(ctx context.Context, reg Registration) error {
	email := otp.NormalizeEmail(reg.Email)

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return errors.Wrap(err, "check email")
	}
	if exists {
		return ErrEmailInUse
	}

	payload, err := json.Marshal(reg)
	if err != nil {
		return errors.Wrap(err, "encode registration")
	}

	code, err := s.codes.Issue(ctx, email, payload)
	if err != nil {
		return err
	}

	s.notifier.OTPIssued(email, reg.FirstName, code, s.codes.Expiry())
	return nil
}

// Resend replaces the pending code for the email and delivers the new one.
func (s *RegistrationService) Resend(ctx context.Context, email string) error {
	key := otp.NormalizeEmail(email)

	code, payload, err := s.codes.Resend(ctx, key)
	if err != nil {
		return err
	}

	var reg Registration
	if err := json.Unmarshal(payload, &reg); err != nil {
		return errors.Wrap(err, "decode registration")
	}

	s.notifier.OTPIssued(key, reg.FirstName, code, s.codes.Expiry())
	return nil
}

// Complete consumes the OTP and creates the account. The code is spent even
// if account creation fails afterwards; the user must restart registration
// in that case.
func (s *RegistrationService) Complete(ctx context.Context, email, code string) (*AuthResult, error) {
	payload, err := s.codes.VerifyAndConsume(ctx, email, code)
	if err != nil {
		return nil, err
	}

	var reg Registration
	if err := json.Unmarshal(payload, &reg); err != nil {
		return nil, errors.Wrap(err, "decode registration")
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return nil, err
	}

	acct := &Account{
		ID:           uuid.New().String(),
		Email:        otp.NormalizeEmail(reg.Email),
		PasswordHash: hash,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Phone:        reg.Phone,
		Role:         RoleCustomer,
		CreatedAt:    time.Now(),
	}
	if err := s.users.Create(ctx, acct); err != nil {
		return nil, errors.Wrap(err, "create account")
	}

	token, err := s.tokens.Issue(acct.ID, string(acct.Role))
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}

	return &AuthResult{Token: token, Account: acct}, nil
}

// Login authenticates an existing account by email and password.
func (s *RegistrationService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	acct, err := s.users.GetByEmail(ctx, otp.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, errors.Wrap(err, "load account")
	}

	if err := auth.CheckPassword(acct.PasswordHash, password); err != nil {
		return nil, ErrBadCredentials
	}

	token, err := s.tokens.Issue(acct.ID, string(acct.Role))
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}

	return &AuthResult{Token: token, Account: acct}, nil
}

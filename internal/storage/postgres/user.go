package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medkart/pharma-backend/internal/domain/user"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone, role, created_at`

const (
	userExistsSQL  = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	userByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	userByIDSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	insertUserSQL = `INSERT INTO users (id, email, password_hash, first_name, last_name, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// ExistsByEmail reports whether an account with the email already exists.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, userExistsSQL, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking email %q: %w", email, err)
	}
	return exists, nil
}

// GetByEmail returns the account registered under the email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.Account, error) {
	return r.getOne(ctx, userByEmailSQL, email)
}

// GetByID returns an account by its identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.Account, error) {
	return r.getOne(ctx, userByIDSQL, id)
}

// Create inserts a new account.
func (r *UserRepository) Create(ctx context.Context, a *user.Account) error {
	_, err := r.pool.Exec(ctx, insertUserSQL,
		a.ID, a.Email, a.PasswordHash, a.FirstName, a.LastName, a.Phone, a.Role,
	)
	if err != nil {
		return fmt.Errorf("creating user %q: %w", a.Email, err)
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, sql, arg string) (*user.Account, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &a, nil
}

func scanUser(row pgx.CollectableRow) (user.Account, error) {
	var a user.Account
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.Phone, &a.Role, &a.CreatedAt,
	)
	return a, err
}

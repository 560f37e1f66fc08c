package repository

import (
	"context"
	"errors"

	"stickman_shake/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)

const pgUniqueViolation = "23505"

// AccountRepository stores sign-in identities.
type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Provider, &a.Subject, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO accounts (id, email, password_hash, provider, subject)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		a.ID, a.Email, a.PasswordHash, a.Provider, a.Subject,
	).Scan(&a.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrAccountExists
	}
	return err
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT id, email, password_hash, provider, subject, created_at
		 FROM accounts
		 WHERE lower(email) = lower($1)`,
		email,
	))
}

func (r *AccountRepository) GetBySubject(ctx context.Context, provider, subject string) (*domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT id, email, password_hash, provider, subject, created_at
		 FROM accounts
		 WHERE provider = $1 AND subject = $2`,
		provider, subject,
	))
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT id, email, password_hash, provider, subject, created_at
		 FROM accounts
		 WHERE id = $1`,
		id,
	))
}

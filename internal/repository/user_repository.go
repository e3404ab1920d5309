package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
)

// UserRepository provides data access methods for the user table.
// The balance column is only written through UpdateBalance, which performs a
// compare-and-swap against the balance the caller read.
type UserRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewUserRepository creates a new UserRepository with the provided database connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *UserRepository) WithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *UserRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const userColumns = `id, email, name, username, balance, referral_code, referred_by, role, is_active, created_at, updated_at`

// Create inserts a new user. Returns ErrDuplicateEntry when the email, username or
// referral code is already taken.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO "user" (` + userColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	var referredBy any
	if u.ReferredBy != "" {
		referredBy = u.ReferredBy
	}

	_, err := r.getQuerier().ExecContext(ctx, query,
		u.ID,
		u.Email,
		u.Name,
		u.Username,
		u.Balance.String(),
		u.ReferralCode,
		referredBy,
		u.Role,
		u.IsActive,
		FormatTime(u.CreatedAt),
		FormatTime(u.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", apperrors.ErrDuplicateEntry, err)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID. Returns ErrUserNotFound if no user matches.
func (r *UserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM "user" WHERE id = ?`, id)
}

// GetByEmail retrieves a user by email. Returns ErrUserNotFound if no user matches.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM "user" WHERE email = ?`, email)
}

// GetByReferralCode retrieves the owner of a referral code.
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (model.User, error) {
	u, err := r.getOne(ctx, `SELECT `+userColumns+` FROM "user" WHERE referral_code = ?`, code)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return model.User{}, apperrors.ErrReferralCodeNotFound
	}
	return u, err
}

// GetBalance reads only the balance column.
func (r *UserRepository) GetBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	var balanceStr string
	err := r.getQuerier().QueryRowContext(ctx, `SELECT balance FROM "user" WHERE id = ?`, id).Scan(&balanceStr)
	if err == sql.ErrNoRows {
		return decimal.Zero, apperrors.ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query balance: %w", err)
	}
	return parseDecimal("balance", balanceStr)
}

// UpdateBalance sets the balance to next only if it still equals expected.
// Returns ErrConcurrentUpdate when the stored balance moved underneath the caller.
func (r *UserRepository) UpdateBalance(ctx context.Context, id string, expected, next decimal.Decimal, at time.Time) error {
	query := `
        UPDATE "user"
        SET balance = ?, updated_at = ?
        WHERE id = ? AND balance = ?
    `

	result, err := r.getQuerier().ExecContext(ctx, query, next.String(), FormatTime(at), id, expected.String())
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return apperrors.ErrConcurrentUpdate
	}

	return nil
}

// SetActive enables or disables an account.
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	result, err := r.getQuerier().ExecContext(ctx,
		`UPDATE "user" SET is_active = ?, updated_at = ? WHERE id = ?`, active, FormatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// ListIDs returns every user ID, used by maintenance jobs.
func (r *UserRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `SELECT id FROM "user" ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user table: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user table results: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user table: %w", err)
	}
	return ids, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (model.User, error) {
	var u model.User
	var balanceStr, createdAtStr, updatedAtStr string
	var referredBy sql.NullString

	err := r.getQuerier().QueryRowContext(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Username,
		&balanceStr,
		&u.ReferralCode,
		&referredBy,
		&u.Role,
		&u.IsActive,
		&createdAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return model.User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}

	if u.Balance, err = parseDecimal("balance", balanceStr); err != nil {
		return model.User{}, err
	}
	if referredBy.Valid {
		u.ReferredBy = referredBy.String
	}
	if u.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.User{}, err
	}
	if u.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.User{}, err
	}

	return u, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
)

// ReferralRepository provides data access methods for the referral table.
type ReferralRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewReferralRepository creates a new ReferralRepository with the provided database connection.
func NewReferralRepository(db *sql.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *ReferralRepository) WithTx(tx *sql.Tx) *ReferralRepository {
	return &ReferralRepository{db: r.db, tx: tx}
}

func (r *ReferralRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const referralColumns = `rf.id, rf.referrer_id, rf.referred_user_id, u.username, rf.status, rf.earnings_generated, rf.bonus_credited, rf.created_at, rf.activated_at`

// Create inserts a pending referral.
func (r *ReferralRepository) Create(ctx context.Context, ref model.Referral) error {
	query := `
        INSERT INTO referral (id, referrer_id, referred_user_id, status, earnings_generated, bonus_credited, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.getQuerier().ExecContext(ctx, query,
		ref.ID,
		ref.ReferrerID,
		ref.ReferredUserID,
		ref.Status,
		ref.EarningsGenerated.String(),
		ref.BonusCredited,
		FormatTime(ref.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", apperrors.ErrDuplicateEntry, err)
		}
		return fmt.Errorf("failed to insert referral: %w", err)
	}
	return nil
}

// GetByReferredUser returns the referral that brought userID in.
// Returns ErrReferralNotFound if the user registered without a code.
func (r *ReferralRepository) GetByReferredUser(ctx context.Context, userID string) (model.Referral, error) {
	query := `
        SELECT ` + referralColumns + `
        FROM referral rf
        JOIN "user" u ON u.id = rf.referred_user_id
        WHERE rf.referred_user_id = ?
    `
	refs, err := r.query(ctx, query, userID)
	if err != nil {
		return model.Referral{}, err
	}
	if len(refs) == 0 {
		return model.Referral{}, apperrors.ErrReferralNotFound
	}
	return refs[0], nil
}

// ListByReferrer returns every referral made by referrerID, newest first.
func (r *ReferralRepository) ListByReferrer(ctx context.Context, referrerID string) ([]model.Referral, error) {
	query := `
        SELECT ` + referralColumns + `
        FROM referral rf
        JOIN "user" u ON u.id = rf.referred_user_id
        WHERE rf.referrer_id = ?
        ORDER BY rf.created_at DESC
    `
	return r.query(ctx, query, referrerID)
}

// Activate moves a pending referral to active. Activating an already active
// referral is a no-op and reports false.
func (r *ReferralRepository) Activate(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.getQuerier().ExecContext(ctx,
		`UPDATE referral SET status = ?, activated_at = ? WHERE id = ? AND status = ?`,
		model.ReferralActive, FormatTime(at), id, model.ReferralPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to activate referral: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// MarkBonusCredited records a credited bonus once. It reports false when the bonus
// was already credited, so callers can skip the payout.
func (r *ReferralRepository) MarkBonusCredited(ctx context.Context, id string, amount decimal.Decimal) (bool, error) {
	var earningsStr string
	err := r.getQuerier().QueryRowContext(ctx,
		`SELECT earnings_generated FROM referral WHERE id = ? AND bonus_credited = 0`, id,
	).Scan(&earningsStr)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query referral: %w", err)
	}

	earnings, err := parseDecimal("earnings_generated", earningsStr)
	if err != nil {
		return false, err
	}

	result, err := r.getQuerier().ExecContext(ctx,
		`UPDATE referral SET bonus_credited = 1, earnings_generated = ? WHERE id = ? AND bonus_credited = 0`,
		earnings.Add(amount).String(), id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update referral: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *ReferralRepository) query(ctx context.Context, query string, args ...any) ([]model.Referral, error) {
	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query referral table: %w", err)
	}
	defer rows.Close()

	refs := []model.Referral{}
	for rows.Next() {
		var ref model.Referral
		var earningsStr, createdAtStr string
		var activatedAt sql.NullString

		if err := rows.Scan(
			&ref.ID,
			&ref.ReferrerID,
			&ref.ReferredUserID,
			&ref.ReferredUsername,
			&ref.Status,
			&earningsStr,
			&ref.BonusCredited,
			&createdAtStr,
			&activatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan referral table results: %w", err)
		}
		if ref.EarningsGenerated, err = parseDecimal("earnings_generated", earningsStr); err != nil {
			return nil, err
		}
		if ref.CreatedAt, err = ParseTime(createdAtStr); err != nil {
			return nil, err
		}
		if ref.ActivatedAt, err = parseNullTime(activatedAt); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referral table: %w", err)
	}
	return refs, nil
}

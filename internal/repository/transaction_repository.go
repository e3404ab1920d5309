package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
)

// TransactionRepository provides data access methods for the transaction table.
// Transactions are append-only: apart from the pending-deposit status transition,
// nothing here updates a stored row.
type TransactionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *TransactionRepository) WithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *TransactionRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const transactionColumns = `t.rowid, t.id, t.user_id, t.symbol, t.name, t.type, t.quantity, t.unit_price, t.total, t.status, t.reference_code, t.created_at`

// Insert appends a transaction and records its insertion sequence in t.Seq.
func (r *TransactionRepository) Insert(ctx context.Context, t *model.Transaction) error {
	query := `
        INSERT INTO "transaction" (id, user_id, symbol, name, type, quantity, unit_price, total, status, reference_code, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	result, err := r.getQuerier().ExecContext(ctx, query,
		t.ID,
		t.UserID,
		t.Symbol,
		t.Name,
		string(t.Type),
		t.Quantity.String(),
		t.UnitPrice.String(),
		t.Total.String(),
		string(t.Status),
		t.ReferenceCode,
		FormatTime(t.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", apperrors.ErrDuplicateEntry, err)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read transaction sequence: %w", err)
	}
	t.Seq = seq

	return nil
}

// GetByID retrieves a transaction owned by userID. A transaction owned by someone else
// is reported as ErrTransactionNotFound. An empty userID skips the ownership check.
func (r *TransactionRepository) GetByID(ctx context.Context, userID, id string) (model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM "transaction" t WHERE t.id = ?`
	args := []any{id}
	if userID != "" {
		query += ` AND t.user_id = ?`
		args = append(args, userID)
	}

	txs, err := r.query(ctx, query, args...)
	if err != nil {
		return model.Transaction{}, err
	}
	if len(txs) == 0 {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	return txs[0], nil
}

// List retrieves a user's transactions matching filter.
// Results are in chronological order (created_at, then insertion order) unless
// filter.NewestFirst is set.
func (r *TransactionRepository) List(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM "transaction" t WHERE t.user_id = ?`
	args := []any{userID}

	if len(filter.Types) > 0 {
		query += ` AND t.type IN (` + placeholders(len(filter.Types)) + `)`
		for _, tt := range filter.Types {
			args = append(args, string(tt))
		}
	}
	if filter.Symbol != "" {
		query += ` AND t.symbol = ?`
		args = append(args, NormalizeSymbol(filter.Symbol))
	}
	if filter.Status != "" {
		query += ` AND t.status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.StartDate.IsZero() {
		query += ` AND t.created_at >= ?`
		args = append(args, FormatTime(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		query += ` AND t.created_at <= ?`
		args = append(args, FormatTime(filter.EndDate))
	}

	if filter.NewestFirst {
		query += ` ORDER BY t.created_at DESC, t.rowid DESC`
	} else {
		query += ` ORDER BY t.created_at ASC, t.rowid ASC`
	}
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	return r.query(ctx, query, args...)
}

// ListCompleted retrieves the completed transactions of a user in chronological order.
// This is the input of the position aggregator.
func (r *TransactionRepository) ListCompleted(ctx context.Context, userID string) ([]model.Transaction, error) {
	return r.List(ctx, userID, model.TransactionFilter{Status: model.StatusCompleted})
}

// ListCompletedTrades retrieves a user's completed buys and sells, optionally for one symbol.
func (r *TransactionRepository) ListCompletedTrades(ctx context.Context, userID, symbol string) ([]model.Transaction, error) {
	return r.List(ctx, userID, model.TransactionFilter{
		Types:  []model.TransactionType{model.TransactionBuy, model.TransactionSell},
		Symbol: symbol,
		Status: model.StatusCompleted,
	})
}

// UpdateStatus moves a transaction from one status to another. Returns
// ErrInvalidStatusTransition if the transaction is not currently in status from.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id string, from, to model.TransactionStatus) error {
	query := `UPDATE "transaction" SET status = ? WHERE id = ? AND status = ?`

	result, err := r.getQuerier().ExecContext(ctx, query, string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, "", id); err != nil {
			return err
		}
		return fmt.Errorf("%w: expected %s", apperrors.ErrInvalidStatusTransition, from)
	}

	return nil
}

// CountCompleted counts a user's completed transactions of the given type.
func (r *TransactionRepository) CountCompleted(ctx context.Context, userID string, txType model.TransactionType) (int, error) {
	var count int
	err := r.getQuerier().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM "transaction" WHERE user_id = ? AND type = ? AND status = ?`,
		userID, string(txType), string(model.StatusCompleted),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// TradedSymbols returns every symbol that appears in a completed trade of any user.
func (r *TransactionRepository) TradedSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `
        SELECT DISTINCT symbol
        FROM "transaction"
        WHERE status = ? AND type IN (?, ?) AND symbol <> ''
        ORDER BY symbol
    `, string(model.StatusCompleted), string(model.TransactionBuy), string(model.TransactionSell))
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction symbols: %w", err)
	}
	defer rows.Close()

	symbols := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan transaction symbols: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction symbols: %w", err)
	}
	return symbols, nil
}

func (r *TransactionRepository) query(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}

	for rows.Next() {
		var t model.Transaction
		var txType, status, quantityStr, unitPriceStr, totalStr, createdAtStr string

		err := rows.Scan(
			&t.Seq,
			&t.ID,
			&t.UserID,
			&t.Symbol,
			&t.Name,
			&txType,
			&quantityStr,
			&unitPriceStr,
			&totalStr,
			&status,
			&t.ReferenceCode,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction table results: %w", err)
		}

		t.Type = model.TransactionType(strings.ToLower(txType))
		t.Status = model.TransactionStatus(strings.ToLower(status))
		if t.Quantity, err = parseDecimal("quantity", quantityStr); err != nil {
			return nil, err
		}
		if t.UnitPrice, err = parseDecimal("unit_price", unitPriceStr); err != nil {
			return nil, err
		}
		if t.Total, err = parseDecimal("total", totalStr); err != nil {
			return nil, err
		}
		t.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil || t.CreatedAt.IsZero() {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}

	return transactions, nil
}

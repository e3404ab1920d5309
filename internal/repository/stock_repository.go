package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
)

// StockRepository provides data access methods for the stock catalog.
type StockRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewStockRepository creates a new StockRepository with the provided database connection.
func NewStockRepository(db *sql.DB) *StockRepository {
	return &StockRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *StockRepository) WithTx(tx *sql.Tx) *StockRepository {
	return &StockRepository{db: r.db, tx: tx}
}

func (r *StockRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// latestPriceJoin attaches the most recent price_quote row of s.symbol as pq.
const latestPriceJoin = `
        LEFT JOIN price_quote pq ON pq.rowid = (
            SELECT p2.rowid FROM price_quote p2
            WHERE p2.symbol = s.symbol
            ORDER BY p2.as_of DESC, p2.rowid DESC
            LIMIT 1
        )`

// Upsert inserts a catalog entry or updates its name, category and active flag.
func (r *StockRepository) Upsert(ctx context.Context, s model.Stock) error {
	query := `
        INSERT INTO stock (symbol, name, category, is_active, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(symbol) DO UPDATE SET
            name = excluded.name,
            category = excluded.category,
            is_active = excluded.is_active,
            updated_at = excluded.updated_at
    `

	_, err := r.getQuerier().ExecContext(ctx, query,
		NormalizeSymbol(s.Symbol),
		s.Name,
		s.Category,
		s.IsActive,
		FormatTime(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert stock: %w", err)
	}
	return nil
}

// Get retrieves a catalog entry. Returns ErrStockNotFound if the symbol is unknown.
func (r *StockRepository) Get(ctx context.Context, symbol string) (model.Stock, error) {
	query := `SELECT symbol, name, category, is_active, updated_at FROM stock WHERE symbol = ?`

	var s model.Stock
	var updatedAtStr string
	err := r.getQuerier().QueryRowContext(ctx, query, NormalizeSymbol(symbol)).Scan(
		&s.Symbol,
		&s.Name,
		&s.Category,
		&s.IsActive,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return model.Stock{}, apperrors.ErrStockNotFound
	}
	if err != nil {
		return model.Stock{}, fmt.Errorf("failed to query stock: %w", err)
	}
	if s.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.Stock{}, err
	}
	return s, nil
}

// ListWithPrices returns catalog entries joined with their last-known price.
// When activeOnly is set, inactive stocks are skipped. A non-empty category keeps only
// stocks in that category.
func (r *StockRepository) ListWithPrices(ctx context.Context, activeOnly bool, category string) ([]model.StockWithPrice, error) {
	query := `
        SELECT s.symbol, s.name, s.category, s.is_active, s.updated_at, pq.price, pq.as_of
        FROM stock s` + latestPriceJoin + `
        WHERE 1=1`

	var args []any
	if activeOnly {
		query += ` AND s.is_active = 1`
	}
	if category != "" {
		query += ` AND s.category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY s.symbol ASC`

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock table: %w", err)
	}
	defer rows.Close()

	stocks := []model.StockWithPrice{}
	for rows.Next() {
		var s model.StockWithPrice
		var updatedAtStr string
		var priceStr, asOfStr sql.NullString

		if err := rows.Scan(&s.Symbol, &s.Name, &s.Category, &s.IsActive, &updatedAtStr, &priceStr, &asOfStr); err != nil {
			return nil, fmt.Errorf("failed to scan stock table results: %w", err)
		}
		if s.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
			return nil, err
		}
		if s.LastPrice, err = parseNullDecimal("price", priceStr); err != nil {
			return nil, err
		}
		if s.AsOf, err = parseNullTime(asOfStr); err != nil {
			return nil, err
		}
		stocks = append(stocks, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock table: %w", err)
	}

	return stocks, nil
}

// Categories returns the distinct non-empty categories of the catalog, sorted.
func (r *StockRepository) Categories(ctx context.Context) ([]string, error) {
	return r.column(ctx, `SELECT DISTINCT category FROM stock WHERE category != '' ORDER BY category`)
}

// ActiveSymbols returns the symbols of every active catalog entry.
func (r *StockRepository) ActiveSymbols(ctx context.Context) ([]string, error) {
	return r.column(ctx, `SELECT symbol FROM stock WHERE is_active = 1 ORDER BY symbol`)
}

func (r *StockRepository) column(ctx context.Context, query string) ([]string, error) {
	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock table: %w", err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan stock table results: %w", err)
		}
		values = append(values, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock table: %w", err)
	}
	return values, nil
}

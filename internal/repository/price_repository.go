package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
)

// PriceRepository stores observed quotes. The newest row per symbol is that symbol's
// last-known price, used when the market-data vendor cannot be reached.
type PriceRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPriceRepository creates a new PriceRepository with the provided database connection.
func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *PriceRepository) WithTx(tx *sql.Tx) *PriceRepository {
	return &PriceRepository{db: r.db, tx: tx}
}

func (r *PriceRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// Insert records a quote.
func (r *PriceRepository) Insert(ctx context.Context, q model.Quote) error {
	query := `
        INSERT INTO price_quote (id, symbol, price, as_of, source)
        VALUES (?, ?, ?, ?, ?)
    `

	_, err := r.getQuerier().ExecContext(ctx, query,
		uuid.New().String(),
		NormalizeSymbol(q.Symbol),
		q.Price.String(),
		FormatTime(q.AsOf),
		q.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to insert price_quote: %w", err)
	}
	return nil
}

// Latest returns the newest quote for symbol. Returns ErrPriceNotFound if none exists.
func (r *PriceRepository) Latest(ctx context.Context, symbol string) (model.Quote, error) {
	quotes, err := r.LatestMany(ctx, []string{symbol})
	if err != nil {
		return model.Quote{}, err
	}
	q, ok := quotes[NormalizeSymbol(symbol)]
	if !ok {
		return model.Quote{}, apperrors.ErrPriceNotFound
	}
	return q, nil
}

// LatestMany returns the newest quote for each of symbols that has one.
func (r *PriceRepository) LatestMany(ctx context.Context, symbols []string) (map[string]model.Quote, error) {
	out := make(map[string]model.Quote, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	args := make([]any, len(symbols))
	for i, s := range symbols {
		args[i] = NormalizeSymbol(s)
	}

	query := `
        SELECT pq.symbol, pq.price, pq.as_of, pq.source
        FROM price_quote pq
        WHERE pq.symbol IN (` + placeholders(len(symbols)) + `)
        AND pq.rowid = (
            SELECT p2.rowid FROM price_quote p2
            WHERE p2.symbol = pq.symbol
            ORDER BY p2.as_of DESC, p2.rowid DESC
            LIMIT 1
        )
    `

	quotes, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, q := range quotes {
		out[q.Symbol] = q
	}
	return out, nil
}

// History returns the quotes recorded for symbol at or after since, oldest first.
// A zero since returns the whole history.
func (r *PriceRepository) History(ctx context.Context, symbol string, since time.Time) ([]model.Quote, error) {
	query := `
        SELECT pq.symbol, pq.price, pq.as_of, pq.source
        FROM price_quote pq
        WHERE pq.symbol = ?
        AND pq.as_of >= ?
        ORDER BY pq.as_of ASC, pq.rowid ASC
    `
	bound := ""
	if !since.IsZero() {
		bound = FormatTime(since)
	}
	return r.query(ctx, query, NormalizeSymbol(symbol), bound)
}

func (r *PriceRepository) query(ctx context.Context, query string, args ...any) ([]model.Quote, error) {
	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query price_quote table: %w", err)
	}
	defer rows.Close()

	quotes := []model.Quote{}
	for rows.Next() {
		var q model.Quote
		var priceStr, asOfStr string

		if err := rows.Scan(&q.Symbol, &priceStr, &asOfStr, &q.Source); err != nil {
			return nil, fmt.Errorf("failed to scan price_quote table results: %w", err)
		}
		if q.Price, err = parseDecimal("price", priceStr); err != nil {
			return nil, err
		}
		if q.AsOf, err = ParseTime(asOfStr); err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price_quote table: %w", err)
	}
	return quotes, nil
}

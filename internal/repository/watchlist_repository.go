package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tikalinvest/brokerage-ledger/internal/model"
)

// WatchlistRepository provides data access methods for the watchlist table.
type WatchlistRepository struct {
	db *sql.DB
}

// NewWatchlistRepository creates a new WatchlistRepository with the provided database connection.
func NewWatchlistRepository(db *sql.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// Toggle adds symbol to the user's watchlist, or removes it when already present.
// It reports whether the symbol is on the watchlist afterwards.
func (r *WatchlistRepository) Toggle(ctx context.Context, userID, symbol string, at time.Time) (bool, error) {
	symbol = NormalizeSymbol(symbol)

	result, err := r.db.ExecContext(ctx, `DELETE FROM watchlist WHERE user_id = ? AND symbol = ?`, userID, symbol)
	if err != nil {
		return false, fmt.Errorf("failed to delete watchlist entry: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if removed > 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO watchlist (id, user_id, symbol, created_at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), userID, symbol, FormatTime(at),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert watchlist entry: %w", err)
	}
	return true, nil
}

// List returns a user's watchlist with catalog names and last-known prices.
func (r *WatchlistRepository) List(ctx context.Context, userID string) ([]model.WatchlistEntry, error) {
	query := `
        SELECT s.id, s.user_id, s.symbol, COALESCE(st.name, ''), s.created_at, pq.price, pq.as_of
        FROM watchlist s
        LEFT JOIN stock st ON st.symbol = s.symbol` + latestPriceJoin + `
        WHERE s.user_id = ?
        ORDER BY s.created_at DESC
    `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist table: %w", err)
	}
	defer rows.Close()

	entries := []model.WatchlistEntry{}
	for rows.Next() {
		var e model.WatchlistEntry
		var createdAtStr string
		var priceStr, asOfStr sql.NullString

		if err := rows.Scan(&e.ID, &e.UserID, &e.Symbol, &e.Name, &createdAtStr, &priceStr, &asOfStr); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist table results: %w", err)
		}
		if e.CreatedAt, err = ParseTime(createdAtStr); err != nil {
			return nil, err
		}
		if e.LastPrice, err = parseNullDecimal("price", priceStr); err != nil {
			return nil, err
		}
		if e.AsOf, err = parseNullTime(asOfStr); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist table: %w", err)
	}
	return entries, nil
}

// Symbols returns every symbol on any watchlist.
func (r *WatchlistRepository) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM watchlist ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist table: %w", err)
	}
	defer rows.Close()

	symbols := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist table results: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist table: %w", err)
	}
	return symbols, nil
}

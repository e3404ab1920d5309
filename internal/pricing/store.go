package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
)

// Store keeps the last-known price per symbol. It is read when the vendor fails.
type Store interface {
	Save(ctx context.Context, q model.Quote) error
	Latest(ctx context.Context, symbols []string) (map[string]model.Quote, error)
}

// SQLStore keeps quotes in the price_quote table.
type SQLStore struct {
	repo *repository.PriceRepository
}

// NewSQLStore wraps a price repository.
func NewSQLStore(repo *repository.PriceRepository) *SQLStore {
	return &SQLStore{repo: repo}
}

// Save appends q to the quote history.
func (s *SQLStore) Save(ctx context.Context, q model.Quote) error {
	return s.repo.Insert(ctx, q)
}

// Latest returns the newest stored quote of each symbol that has one.
func (s *SQLStore) Latest(ctx context.Context, symbols []string) (map[string]model.Quote, error) {
	return s.repo.LatestMany(ctx, symbols)
}

const redisKeyPrefix = "price:"

// RedisStore keeps only the newest quote per symbol under "price:<SYMBOL>".
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store on client. Entries expire after ttl; zero keeps them forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Save overwrites the stored quote of q.Symbol.
func (s *RedisStore) Save(ctx context.Context, q model.Quote) error {
	q.Symbol = repository.NormalizeSymbol(q.Symbol)
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+q.Symbol, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save quote to redis: %w", err)
	}
	return nil
}

// Latest reads the stored quote of each symbol. Missing keys are skipped.
func (s *RedisStore) Latest(ctx context.Context, symbols []string) (map[string]model.Quote, error) {
	out := make(map[string]model.Quote, len(symbols))
	for _, symbol := range symbols {
		symbol = repository.NormalizeSymbol(symbol)
		raw, err := s.client.Get(ctx, redisKeyPrefix+symbol).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read quote from redis: %w", err)
		}

		var q model.Quote
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quote for %s: %w", symbol, err)
		}
		out[symbol] = q
	}
	return out, nil
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

package pricing_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/ledger"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/pricing"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
	"github.com/tikalinvest/brokerage-ledger/internal/testutil"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*pricing.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return pricing.NewRedisStore(client, ttl), mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	t.Run("save overwrites and latest reads back", func(t *testing.T) {
		store, mr := newRedisStore(t, 0)

		for _, price := range []string{"150", "151.75"} {
			err := store.Save(ctx, model.Quote{Symbol: "aapl", Price: decimal.RequireFromString(price), AsOf: asOf, Source: "vendor"})
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
		}

		if !mr.Exists("price:AAPL") {
			t.Error("Expected key price:AAPL to exist")
		}

		got, err := store.Latest(ctx, []string{"AAPL", "MSFT"})
		if err != nil {
			t.Fatalf("Latest() error = %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("Expected 1 quote, got %d", len(got))
		}
		testutil.AssertDecimal(t, "price", got["AAPL"].Price, "151.75")
		if !got["AAPL"].AsOf.Equal(asOf) {
			t.Errorf("Expected as of %v, got %v", asOf, got["AAPL"].AsOf)
		}
	})

	t.Run("entries expire after ttl", func(t *testing.T) {
		store, mr := newRedisStore(t, time.Hour)

		if err := store.Save(ctx, model.Quote{Symbol: "AAPL", Price: decimal.NewFromInt(150), AsOf: asOf}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		mr.FastForward(2 * time.Hour)

		got, err := store.Latest(ctx, []string{"AAPL"})
		if err != nil {
			t.Fatalf("Latest() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Expected expired quote to be gone, got %v", got)
		}
	})

	t.Run("corrupt payload is an error", func(t *testing.T) {
		store, mr := newRedisStore(t, 0)
		if err := mr.Set("price:AAPL", "not json"); err != nil {
			t.Fatalf("failed to seed redis: %v", err)
		}

		if _, err := store.Latest(ctx, []string{"AAPL"}); err == nil {
			t.Error("Expected error for corrupt payload")
		}
	})

	t.Run("backs the price service during an outage", func(t *testing.T) {
		store, _ := newRedisStore(t, 0)
		provider := testutil.NewMockQuoteProvider().WithPrice("AAPL", "150")

		svc, err := pricing.NewService(provider, store, pricing.Options{})
		if err != nil {
			t.Fatalf("NewService() error = %v", err)
		}
		defer svc.Close()

		svc.Lookup(ctx, []string{"AAPL"})
		provider.WithError(errVendorDown)

		got := svc.Lookup(ctx, []string{"AAPL"})
		if got["AAPL"].Source != ledger.SourceCached {
			t.Errorf("Expected cached, got %s", got["AAPL"].Source)
		}
		testutil.AssertDecimal(t, "price", got["AAPL"].Price, "150")
	})
}

func TestNewRedisClient(t *testing.T) {
	ctx := context.Background()

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, err := pricing.NewRedisClient(ctx, mr.Addr(), "", 0)
		if err != nil {
			t.Fatalf("NewRedisClient() error = %v", err)
		}
		_ = client.Close()
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		if _, err := pricing.NewRedisClient(ctx, addr, "", 0); err == nil {
			t.Error("Expected error for unreachable server")
		}
	})
}

func TestSQLStore(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	store := pricing.NewSQLStore(repository.NewPriceRepository(db))
	base := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	quotes := []model.Quote{
		{Symbol: "AAPL", Price: decimal.RequireFromString("150"), AsOf: base, Source: "vendor"},
		{Symbol: "AAPL", Price: decimal.RequireFromString("152"), AsOf: base.Add(time.Minute), Source: "vendor"},
		{Symbol: "MSFT", Price: decimal.RequireFromString("300"), AsOf: base, Source: "vendor"},
	}
	for _, q := range quotes {
		if err := store.Save(ctx, q); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	got, err := store.Latest(ctx, []string{"AAPL", "MSFT", "TSLA"})
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 quotes, got %d", len(got))
	}
	testutil.AssertDecimal(t, "AAPL", got["AAPL"].Price, "152")
	testutil.AssertDecimal(t, "MSFT", got["MSFT"].Price, "300")
}

package pricing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/ledger"
	"github.com/tikalinvest/brokerage-ledger/internal/pricing"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
	"github.com/tikalinvest/brokerage-ledger/internal/testutil"
)

var errVendorDown = errors.New("vendor down")

func newService(t *testing.T, provider pricing.QuoteProvider, opts pricing.Options) *pricing.Service {
	t.Helper()

	db := testutil.SetupTestDB(t)
	svc, err := pricing.NewService(provider, pricing.NewSQLStore(repository.NewPriceRepository(db)), opts)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

// TestService_Lookup verifies the live, cached and unavailable paths of a lookup.
//
// WHY: Valuation must never fail because the vendor is down. A symbol the vendor cannot
// price falls back to its last-known price flagged as cached, and only when there is no
// stored price at all is it reported unavailable. Other symbols stay live.
func TestService_Lookup(t *testing.T) {
	ctx := context.Background()

	t.Run("all symbols live", func(t *testing.T) {
		provider := testutil.NewMockQuoteProvider().
			WithPrice("AAPL", "150.25").
			WithPrice("MSFT", "310")
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPricingService(t, db, provider)

		got := svc.Lookup(ctx, []string{"AAPL", "MSFT"})

		if len(got) != 2 {
			t.Fatalf("Expected 2 results, got %d", len(got))
		}
		if got["AAPL"].Source != ledger.SourceLive {
			t.Errorf("Expected AAPL live, got %s", got["AAPL"].Source)
		}
		testutil.AssertDecimal(t, "AAPL price", got["AAPL"].Price, "150.25")
		testutil.AssertDecimal(t, "MSFT price", got["MSFT"].Price, "310")

		// live quotes become last-known prices
		testutil.AssertRowCount(t, db, "price_quote", 2)
	})

	t.Run("failing symbol falls back to stored price, others stay live", func(t *testing.T) {
		stored := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
		provider := testutil.NewMockQuoteProvider().
			WithPrice("AAPL", "150").
			WithSymbolError("MSFT", errVendorDown)
		db := testutil.SetupTestDB(t)
		testutil.NewPriceQuote("MSFT", "300").At(stored.Add(-time.Hour)).Build(t, db)
		testutil.NewPriceQuote("MSFT", "305").At(stored).Build(t, db)
		svc := testutil.NewTestPricingService(t, db, provider)

		got := svc.Lookup(ctx, []string{"AAPL", "MSFT"})

		if got["AAPL"].Source != ledger.SourceLive {
			t.Errorf("Expected AAPL live, got %s", got["AAPL"].Source)
		}
		msft := got["MSFT"]
		if msft.Source != ledger.SourceCached {
			t.Fatalf("Expected MSFT cached, got %s", msft.Source)
		}
		testutil.AssertDecimal(t, "MSFT price", msft.Price, "305")
		if !msft.AsOf.Equal(stored) {
			t.Errorf("Expected MSFT as of %v, got %v", stored, msft.AsOf)
		}
	})

	t.Run("no live and no stored price is unavailable", func(t *testing.T) {
		provider := testutil.NewMockQuoteProvider().WithError(errVendorDown)
		svc := newService(t, provider, pricing.Options{})

		got := svc.Lookup(ctx, []string{"NOPE"})

		if got["NOPE"].Source != ledger.SourceUnavailable {
			t.Errorf("Expected unavailable, got %s", got["NOPE"].Source)
		}
	})

	t.Run("symbols are normalized and deduplicated", func(t *testing.T) {
		provider := testutil.NewMockQuoteProvider().WithPrice("AAPL", "150")
		svc := newService(t, provider, pricing.Options{})

		got := svc.Lookup(ctx, []string{"aapl", " AAPL ", "AAPL", ""})

		if len(got) != 1 {
			t.Errorf("Expected 1 result, got %d", len(got))
		}
		if provider.Calls("AAPL") != 1 {
			t.Errorf("Expected 1 vendor call, got %d", provider.Calls("AAPL"))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		provider := testutil.NewMockQuoteProvider()
		svc := newService(t, provider, pricing.Options{})

		if got := svc.Lookup(ctx, nil); len(got) != 0 {
			t.Errorf("Expected empty result, got %v", got)
		}
		if provider.CallCount() != 0 {
			t.Errorf("Expected no vendor calls, got %d", provider.CallCount())
		}
	})

	t.Run("slow vendor times out to unavailable", func(t *testing.T) {
		provider := testutil.NewMockQuoteProvider().
			WithPrice("SLOW", "10").
			WithDelay(2 * time.Second)
		svc := newService(t, provider, pricing.Options{Timeout: 50 * time.Millisecond})

		start := time.Now()
		got := svc.Lookup(ctx, []string{"SLOW"})

		if got["SLOW"].Source != ledger.SourceUnavailable {
			t.Errorf("Expected unavailable, got %s", got["SLOW"].Source)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("Expected lookup to give up quickly, took %v", elapsed)
		}
	})
}

func TestService_Quote(t *testing.T) {
	ctx := context.Background()

	t.Run("live", func(t *testing.T) {
		provider := testutil.NewMockQuoteProvider().WithPrice("AAPL", "150")
		svc := newService(t, provider, pricing.Options{})

		q, source, err := svc.Quote(ctx, "aapl")
		if err != nil {
			t.Fatalf("Quote() error = %v", err)
		}
		if source != ledger.SourceLive {
			t.Errorf("Expected live, got %s", source)
		}
		if q.Symbol != "AAPL" {
			t.Errorf("Expected symbol AAPL, got %s", q.Symbol)
		}
	})

	t.Run("cached during outage", func(t *testing.T) {
		provider := testutil.NewMockQuoteProvider().WithError(errVendorDown)
		db := testutil.SetupTestDB(t)
		testutil.NewPriceQuote("AAPL", "149.5").Build(t, db)
		svc := testutil.NewTestPricingService(t, db, provider)

		q, source, err := svc.Quote(ctx, "AAPL")
		if err != nil {
			t.Fatalf("Quote() error = %v", err)
		}
		if source != ledger.SourceCached {
			t.Errorf("Expected cached, got %s", source)
		}
		testutil.AssertDecimal(t, "price", q.Price, "149.5")
	})

	t.Run("unavailable", func(t *testing.T) {
		provider := testutil.NewMockQuoteProvider().WithError(errVendorDown)
		svc := newService(t, provider, pricing.Options{})

		_, source, err := svc.Quote(ctx, "AAPL")
		if !errors.Is(err, apperrors.ErrPriceUnavailable) {
			t.Errorf("Expected ErrPriceUnavailable, got %v", err)
		}
		if source != ledger.SourceUnavailable {
			t.Errorf("Expected unavailable, got %s", source)
		}
	})
}

// TestService_FreshCache verifies that quotes are reused within the fresh TTL.
//
// WHY: Dashboards are polled often. Within FreshTTL the vendor must not be asked again,
// while an explicit refresh always goes to the vendor.
func TestService_FreshCache(t *testing.T) {
	ctx := context.Background()
	provider := testutil.NewMockQuoteProvider().WithPrice("AAPL", "150")
	svc := newService(t, provider, pricing.Options{FreshTTL: time.Minute})

	svc.Lookup(ctx, []string{"AAPL"})
	svc.Lookup(ctx, []string{"AAPL"})
	if provider.Calls("AAPL") != 1 {
		t.Errorf("Expected 1 vendor call within TTL, got %d", provider.Calls("AAPL"))
	}

	provider.WithPrice("AAPL", "155")
	result := svc.Refresh(ctx, []string{"AAPL"})
	if result.Updated != 1 {
		t.Errorf("Expected 1 updated, got %d", result.Updated)
	}
	if provider.Calls("AAPL") != 2 {
		t.Errorf("Expected refresh to call vendor, got %d calls", provider.Calls("AAPL"))
	}

	got := svc.Lookup(ctx, []string{"AAPL"})
	testutil.AssertDecimal(t, "refreshed price", got["AAPL"].Price, "155")
	if provider.Calls("AAPL") != 2 {
		t.Errorf("Expected refreshed quote to be cached, got %d calls", provider.Calls("AAPL"))
	}
}

func TestService_ConcurrentQuotesShareOneCall(t *testing.T) {
	ctx := context.Background()
	provider := testutil.NewMockQuoteProvider().
		WithPrice("AAPL", "150").
		WithDelay(200 * time.Millisecond)
	svc := newService(t, provider, pricing.Options{})

	const callers = 10
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _, err := svc.Quote(ctx, "AAPL")
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Quote() error = %v", err)
		}
	}
	if provider.Calls("AAPL") != 1 {
		t.Errorf("Expected concurrent callers to share 1 vendor call, got %d", provider.Calls("AAPL"))
	}
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()
	provider := testutil.NewMockQuoteProvider().
		WithPrice("AAPL", "150").
		WithPrice("MSFT", "300").
		WithSymbolError("TSLA", errVendorDown)
	svc := newService(t, provider, pricing.Options{MaxWorkers: 2})

	result := svc.Refresh(ctx, []string{"AAPL", "MSFT", "TSLA", "aapl"})

	if result.Requested != 3 {
		t.Errorf("Expected 3 requested, got %d", result.Requested)
	}
	if result.Updated != 2 {
		t.Errorf("Expected 2 updated, got %d", result.Updated)
	}
	if len(result.Failed) != 1 || result.Failed[0] != "TSLA" {
		t.Errorf("Expected TSLA failed, got %v", result.Failed)
	}
}

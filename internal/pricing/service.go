// Package pricing answers "what is this symbol worth right now" for the rest of the app.
//
// A lookup tries, in order: a quote fetched within the fresh TTL, the vendor, and the
// last-known price in the Store. The first two count as live; the last is flagged cached.
package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tikalinvest/brokerage-ledger/internal/apperrors"
	"github.com/tikalinvest/brokerage-ledger/internal/ledger"
	"github.com/tikalinvest/brokerage-ledger/internal/logging"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
	"github.com/tikalinvest/brokerage-ledger/internal/repository"
)

// QuoteProvider fetches a live quote from the market-data vendor.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (model.Quote, error)
}

// Options tunes a Service.
type Options struct {
	// FreshTTL is how long a fetched quote is served without asking the vendor again.
	FreshTTL time.Duration
	// Timeout bounds each vendor call.
	Timeout time.Duration
	// MaxWorkers bounds concurrent vendor calls in Lookup and Refresh.
	MaxWorkers int
}

// Service resolves prices for symbols.
type Service struct {
	provider QuoteProvider
	store    Store
	fresh    *ristretto.Cache
	opts     Options
	group    singleflight.Group
}

// NewService creates a price service.
func NewService(provider QuoteProvider, store Store, opts Options) (*Service, error) {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}

	fresh, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 14,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create quote cache: %w", err)
	}

	return &Service{
		provider: provider,
		store:    store,
		fresh:    fresh,
		opts:     opts,
	}, nil
}

// Close releases the cache.
func (s *Service) Close() {
	s.fresh.Close()
}

// Lookup resolves every symbol. It never fails: a symbol with no live quote and no
// stored price comes back as SourceUnavailable.
func (s *Service) Lookup(ctx context.Context, symbols []string) map[string]ledger.PriceResult {
	symbols = uniqueSymbols(symbols)
	out := make(map[string]ledger.PriceResult, len(symbols))
	if len(symbols) == 0 {
		return out
	}

	var mu sync.Mutex
	var failed []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxWorkers)
	for _, symbol := range symbols {
		g.Go(func() error {
			q, err := s.live(gctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, symbol)
				return nil
			}
			out[symbol] = ledger.PriceResult{Price: q.Price, AsOf: q.AsOf, Source: ledger.SourceLive}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) == 0 {
		return out
	}

	log := logging.FromContext(ctx)
	stored, err := s.store.Latest(ctx, failed)
	if err != nil {
		log.Error("failed to read last-known prices", "symbols", failed, "error", err)
		stored = map[string]model.Quote{}
	}
	for _, symbol := range failed {
		if q, ok := stored[symbol]; ok {
			out[symbol] = ledger.PriceResult{Price: q.Price, AsOf: q.AsOf, Source: ledger.SourceCached}
			continue
		}
		out[symbol] = ledger.PriceResult{Source: ledger.SourceUnavailable}
	}
	log.Warn("serving stale prices", "symbols", failed)
	return out
}

// Quote resolves a single symbol and reports where the price came from.
// Returns ErrPriceUnavailable when neither the vendor nor the store has a price.
func (s *Service) Quote(ctx context.Context, symbol string) (model.Quote, ledger.PriceSource, error) {
	symbol = repository.NormalizeSymbol(symbol)

	q, err := s.live(ctx, symbol)
	if err == nil {
		return q, ledger.SourceLive, nil
	}

	stored, serr := s.store.Latest(ctx, []string{symbol})
	if serr != nil {
		return model.Quote{}, ledger.SourceUnavailable, fmt.Errorf("%w: %v", apperrors.ErrPriceUnavailable, serr)
	}
	if cached, ok := stored[symbol]; ok {
		return cached, ledger.SourceCached, nil
	}
	return model.Quote{}, ledger.SourceUnavailable, fmt.Errorf("%w: %s: %v", apperrors.ErrPriceUnavailable, symbol, err)
}

// Refresh fetches every symbol from the vendor, bypassing the fresh cache, and stores
// the results. Symbols the vendor could not price are listed in Failed.
func (s *Service) Refresh(ctx context.Context, symbols []string) model.PriceRefreshResult {
	symbols = uniqueSymbols(symbols)
	result := model.PriceRefreshResult{Requested: len(symbols), Failed: []string{}}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxWorkers)
	for _, symbol := range symbols {
		g.Go(func() error {
			s.fresh.Del(symbol)
			_, err := s.live(gctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, symbol)
				return nil
			}
			result.Updated++
			return nil
		})
	}
	_ = g.Wait()

	return result
}

// live returns a quote fetched within FreshTTL, or asks the vendor. Concurrent callers for
// the same symbol share one vendor call.
func (s *Service) live(ctx context.Context, symbol string) (model.Quote, error) {
	if v, ok := s.fresh.Get(symbol); ok {
		if q, ok := v.(model.Quote); ok {
			return q, nil
		}
	}

	v, err, _ := s.group.Do(symbol, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeout)
		defer cancel()

		q, err := s.provider.Quote(fetchCtx, symbol)
		if err != nil {
			logging.FromContext(ctx).Warn("quote fetch failed", "symbol", symbol, "error", err)
			return nil, err
		}
		q.Symbol = symbol

		if err := s.store.Save(fetchCtx, q); err != nil {
			logging.FromContext(ctx).Error("failed to store quote", "symbol", symbol, "error", err)
		}
		if s.opts.FreshTTL > 0 {
			s.fresh.SetWithTTL(symbol, q, 1, s.opts.FreshTTL)
			s.fresh.Wait()
		}
		return q, nil
	})
	if err != nil {
		return model.Quote{}, err
	}
	return v.(model.Quote), nil
}

func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = repository.NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

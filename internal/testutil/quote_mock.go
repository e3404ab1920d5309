package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/marketdata"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
)

// MockQuoteProvider is a mock market-data vendor for testing.
// It returns configured prices instead of making API calls and is safe for concurrent use.
//
// Symbols without a configured price fail with marketdata.ErrNoPrice.
type MockQuoteProvider struct {
	mu        sync.Mutex
	prices    map[string]decimal.Decimal
	errs      map[string]error
	err       error
	delay     time.Duration
	calls     map[string]int
	asOf      time.Time
	callCount int
}

// NewMockQuoteProvider creates a provider with no prices.
func NewMockQuoteProvider() *MockQuoteProvider {
	return &MockQuoteProvider{
		prices: make(map[string]decimal.Decimal),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// WithPrice configures the price returned for symbol.
func (m *MockQuoteProvider) WithPrice(symbol, price string) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = decimal.RequireFromString(price)
	delete(m.errs, symbol)
	return m
}

// WithSymbolError makes quotes for symbol fail with err.
func (m *MockQuoteProvider) WithSymbolError(symbol string, err error) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[symbol] = err
	return m
}

// WithError makes every quote fail with err, simulating a vendor outage.
func (m *MockQuoteProvider) WithError(err error) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithDelay makes every call block for d or until the context ends.
func (m *MockQuoteProvider) WithDelay(d time.Duration) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithAsOf fixes the observation time of returned quotes. By default quotes are stamped now.
func (m *MockQuoteProvider) WithAsOf(t time.Time) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asOf = t
	return m
}

// Quote implements pricing.QuoteProvider.
func (m *MockQuoteProvider) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	m.mu.Lock()
	m.callCount++
	m.calls[symbol]++
	delay := m.delay
	err := m.err
	if symErr, ok := m.errs[symbol]; ok {
		err = symErr
	}
	price, ok := m.prices[symbol]
	asOf := m.asOf
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.Quote{}, ctx.Err()
		}
	}
	if err != nil {
		return model.Quote{}, err
	}
	if !ok {
		return model.Quote{}, marketdata.ErrNoPrice
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	return model.Quote{Symbol: symbol, Price: price, AsOf: asOf, Source: marketdata.SourceVendor}, nil
}

// Calls returns how many times symbol was quoted.
func (m *MockQuoteProvider) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// CallCount returns the total number of Quote calls.
func (m *MockQuoteProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

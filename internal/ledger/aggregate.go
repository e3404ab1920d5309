// Package ledger derives positions, valuations and cash balances from a user's
// transaction log. Everything here is pure: no I/O, no clocks, no shared state.
package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/model"
)

// SellCostPolicy decides how a sale reduces the invested amount of a position.
type SellCostPolicy int

const (
	// SellCostSaleTotal subtracts the sale total from the invested amount.
	// The average price is left untouched. This is the historical behavior.
	SellCostSaleTotal SellCostPolicy = iota
	// SellCostAverage subtracts averagePrice x soldQuantity, keeping the remaining
	// cost basis proportional to the remaining shares.
	SellCostAverage
)

// ParseSellCostPolicy maps a config value to a policy.
func ParseSellCostPolicy(s string) (SellCostPolicy, error) {
	switch s {
	case "", "sale_total":
		return SellCostSaleTotal, nil
	case "average":
		return SellCostAverage, nil
	default:
		return SellCostSaleTotal, fmt.Errorf("unknown sell cost policy %q", s)
	}
}

func (p SellCostPolicy) String() string {
	if p == SellCostAverage {
		return "average"
	}
	return "sale_total"
}

// Holding is a user's current net position in one symbol.
type Holding struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Quantity      decimal.Decimal `json:"quantity"`
	AveragePrice  decimal.Decimal `json:"averagePrice"`
	TotalInvested decimal.Decimal `json:"totalInvested"`
}

// Realized accumulates the outcome of sales in one symbol, including closed positions.
// CostBasis is measured at the average price in force at each sale.
type Realized struct {
	Symbol     string          `json:"symbol"`
	SharesSold decimal.Decimal `json:"sharesSold"`
	Proceeds   decimal.Decimal `json:"proceeds"`
	CostBasis  decimal.Decimal `json:"costBasis"`
	GainLoss   decimal.Decimal `json:"gainLoss"`
}

// Ledger is the result of folding a transaction log.
//
// Holdings only contains symbols with a positive quantity. Clamped lists symbols where a
// stored sale exceeded the held quantity; the write path never produces these.
type Ledger struct {
	Holdings map[string]Holding
	Realized map[string]Realized
	Clamped  []string
}

// Aggregator folds transactions into holdings under a sell cost policy.
// The zero value uses SellCostSaleTotal.
type Aggregator struct {
	Policy SellCostPolicy
}

// Aggregate folds txs with the default policy.
func Aggregate(txs []model.Transaction) Ledger {
	return Aggregator{}.Aggregate(txs)
}

// Aggregate folds the completed buy and sell transactions of one user into holdings.
// Input order does not matter: transactions are applied by CreatedAt, then Seq.
func (a Aggregator) Aggregate(txs []model.Transaction) Ledger {
	trades := make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Status == model.StatusCompleted && tx.Type.IsTrade() {
			trades = append(trades, tx)
		}
	}
	SortChronological(trades)

	positions := make(map[string]*Holding)
	realized := make(map[string]*Realized)
	clamped := make(map[string]bool)

	for _, tx := range trades {
		h, ok := positions[tx.Symbol]
		if !ok {
			h = &Holding{Symbol: tx.Symbol, Name: tx.Name}
			positions[tx.Symbol] = h
		}
		if h.Name == "" {
			h.Name = tx.Name
		}
		total := tx.TradeTotal()

		if tx.Type == model.TransactionBuy {
			h.Quantity = h.Quantity.Add(tx.Quantity)
			h.TotalInvested = h.TotalInvested.Add(total)
			if h.Quantity.IsPositive() {
				h.AveragePrice = h.TotalInvested.Div(h.Quantity)
			}
			continue
		}

		sold := decimal.Min(tx.Quantity, h.Quantity)
		proceeds := total
		if tx.Quantity.GreaterThan(h.Quantity) {
			clamped[tx.Symbol] = true
			if tx.Quantity.IsPositive() {
				proceeds = total.Mul(sold).Div(tx.Quantity)
			}
		}
		costBasis := h.AveragePrice.Mul(sold)

		r, ok := realized[tx.Symbol]
		if !ok {
			r = &Realized{Symbol: tx.Symbol}
			realized[tx.Symbol] = r
		}
		r.SharesSold = r.SharesSold.Add(sold)
		r.Proceeds = r.Proceeds.Add(proceeds)
		r.CostBasis = r.CostBasis.Add(costBasis)
		r.GainLoss = r.Proceeds.Sub(r.CostBasis)

		h.Quantity = decimal.Max(decimal.Zero, h.Quantity.Sub(tx.Quantity))
		if h.Quantity.IsZero() {
			h.TotalInvested = decimal.Zero
			continue
		}
		switch a.Policy {
		case SellCostAverage:
			h.TotalInvested = h.TotalInvested.Sub(costBasis)
		default:
			h.TotalInvested = h.TotalInvested.Sub(total)
		}
	}

	out := Ledger{
		Holdings: make(map[string]Holding, len(positions)),
		Realized: make(map[string]Realized, len(realized)),
	}
	for symbol, h := range positions {
		if h.Quantity.IsPositive() {
			out.Holdings[symbol] = *h
		}
	}
	for symbol, r := range realized {
		out.Realized[symbol] = *r
	}
	for symbol := range clamped {
		out.Clamped = append(out.Clamped, symbol)
	}
	sort.Strings(out.Clamped)

	return out
}

// Quantity returns the held quantity of symbol, zero when not held.
func (l Ledger) Quantity(symbol string) decimal.Decimal {
	return l.Holdings[symbol].Quantity
}

// Sorted returns the holdings ordered by symbol.
func (l Ledger) Sorted() []Holding {
	out := make([]Holding, 0, len(l.Holdings))
	for _, h := range l.Holdings {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Symbols returns the held symbols in sorted order.
func (l Ledger) Symbols() []string {
	out := make([]string, 0, len(l.Holdings))
	for symbol := range l.Holdings {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// TotalRealized sums realized gain/loss over every symbol.
func (l Ledger) TotalRealized() decimal.Decimal {
	total := decimal.Zero
	for _, r := range l.Realized {
		total = total.Add(r.GainLoss)
	}
	return total
}

// SortChronological orders transactions by CreatedAt, breaking ties by Seq.
func SortChronological(txs []model.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.Before(txs[j].CreatedAt)
		}
		return txs[i].Seq < txs[j].Seq
	})
}

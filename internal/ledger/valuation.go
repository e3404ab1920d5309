package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource tells where a price came from.
type PriceSource string

// Price sources, from best to worst.
const (
	SourceLive        PriceSource = "live"
	SourceCached      PriceSource = "cached"
	SourceUnavailable PriceSource = "unavailable"
)

// PriceResult is what the price lookup returns per symbol.
// Price and AsOf are meaningless when Source is SourceUnavailable.
type PriceResult struct {
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"asOf"`
	Source PriceSource     `json:"source"`
}

var hundred = decimal.NewFromInt(100)

// HoldingValuation is a holding marked to market.
//
// Stale is set when the price is not live. Excluded is set when no price at all was
// available; such a holding contributes nothing to values or profit/loss but still
// counts toward invested totals.
type HoldingValuation struct {
	Holding
	CurrentPrice      decimal.Decimal `json:"currentPrice"`
	PriceAsOf         *time.Time      `json:"priceAsOf,omitempty"`
	PriceSource       PriceSource     `json:"priceSource"`
	CurrentValue      decimal.Decimal `json:"currentValue"`
	ProfitLoss        decimal.Decimal `json:"profitLoss"`
	ProfitLossPercent decimal.Decimal `json:"profitLossPercent"`
	Stale             bool            `json:"stale"`
	Excluded          bool            `json:"excluded"`
}

// Valuation is a portfolio marked to market.
type Valuation struct {
	Holdings         []HoldingValuation `json:"holdings"`
	Cash             decimal.Decimal    `json:"cash"`
	HoldingsValue    decimal.Decimal    `json:"holdingsValue"`
	TotalValue       decimal.Decimal    `json:"totalValue"`
	TotalInvested    decimal.Decimal    `json:"totalInvested"`
	TotalProfitLoss  decimal.Decimal    `json:"totalProfitLoss"`
	GainPercent      decimal.Decimal    `json:"gainPercent"`
	RealizedGainLoss decimal.Decimal    `json:"realizedGainLoss"`
	Stale            bool               `json:"stale"`
}

// Percent returns part / whole x 100, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// ValueHolding marks one holding to market. A missing or unavailable price yields an
// excluded, stale valuation rather than an error.
func ValueHolding(h Holding, price PriceResult, ok bool) HoldingValuation {
	hv := HoldingValuation{Holding: h, PriceSource: SourceUnavailable}
	if !ok || price.Source == SourceUnavailable || price.Source == "" {
		hv.Stale = true
		hv.Excluded = true
		return hv
	}

	asOf := price.AsOf
	hv.CurrentPrice = price.Price
	hv.PriceAsOf = &asOf
	hv.PriceSource = price.Source
	hv.Stale = price.Source != SourceLive
	hv.CurrentValue = h.Quantity.Mul(price.Price)
	hv.ProfitLoss = hv.CurrentValue.Sub(h.TotalInvested)
	hv.ProfitLossPercent = Percent(hv.ProfitLoss, h.TotalInvested)
	return hv
}

// Value marks holdings to market and adds cash.
// Holdings are reported in the order given.
func Value(holdings []Holding, prices map[string]PriceResult, cash decimal.Decimal) Valuation {
	v := Valuation{
		Holdings:      make([]HoldingValuation, 0, len(holdings)),
		Cash:          cash,
		HoldingsValue: decimal.Zero,
	}

	for _, h := range holdings {
		price, ok := prices[h.Symbol]
		hv := ValueHolding(h, price, ok)

		v.TotalInvested = v.TotalInvested.Add(h.TotalInvested)
		if !hv.Excluded {
			v.HoldingsValue = v.HoldingsValue.Add(hv.CurrentValue)
			v.TotalProfitLoss = v.TotalProfitLoss.Add(hv.ProfitLoss)
		}
		if hv.Stale {
			v.Stale = true
		}
		v.Holdings = append(v.Holdings, hv)
	}

	v.TotalValue = cash.Add(v.HoldingsValue)
	v.GainPercent = Percent(v.TotalProfitLoss, v.TotalInvested)
	return v
}

// Value marks the ledger's holdings to market, sorted by symbol, and carries its realized gain/loss.
func (l Ledger) Value(prices map[string]PriceResult, cash decimal.Decimal) Valuation {
	v := Value(l.Sorted(), prices, cash)
	v.RealizedGainLoss = l.TotalRealized()
	return v
}

// Rounded returns a copy with money rounded to cents, quantities to four places and
// percentages to two.
func (v Valuation) Rounded() Valuation {
	out := v
	out.Holdings = make([]HoldingValuation, len(v.Holdings))
	for i, hv := range v.Holdings {
		hv.Holding = hv.Holding.Rounded()
		hv.CurrentPrice = RoundMoney(hv.CurrentPrice)
		hv.CurrentValue = RoundMoney(hv.CurrentValue)
		hv.ProfitLoss = RoundMoney(hv.ProfitLoss)
		hv.ProfitLossPercent = RoundPercent(hv.ProfitLossPercent)
		out.Holdings[i] = hv
	}
	out.Cash = RoundMoney(v.Cash)
	out.HoldingsValue = RoundMoney(v.HoldingsValue)
	out.TotalValue = RoundMoney(v.TotalValue)
	out.TotalInvested = RoundMoney(v.TotalInvested)
	out.TotalProfitLoss = RoundMoney(v.TotalProfitLoss)
	out.GainPercent = RoundPercent(v.GainPercent)
	out.RealizedGainLoss = RoundMoney(v.RealizedGainLoss)
	return out
}

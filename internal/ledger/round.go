package ledger

import "github.com/shopspring/decimal"

// Display precision.
const (
	MoneyPlaces   = 2
	SharePlaces   = 4
	PercentPlaces = 2
)

// RoundMoney rounds to cents, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// RoundShares rounds a share count to four decimal places.
func RoundShares(d decimal.Decimal) decimal.Decimal {
	return d.Round(SharePlaces)
}

// RoundPercent rounds a percentage to two decimal places.
func RoundPercent(d decimal.Decimal) decimal.Decimal {
	return d.Round(PercentPlaces)
}

// Rounded returns the holding with display precision applied.
func (h Holding) Rounded() Holding {
	h.Quantity = RoundShares(h.Quantity)
	h.AveragePrice = RoundMoney(h.AveragePrice)
	h.TotalInvested = RoundMoney(h.TotalInvested)
	return h
}

// Rounded returns the realized figures with display precision applied.
func (r Realized) Rounded() Realized {
	r.SharesSold = RoundShares(r.SharesSold)
	r.Proceeds = RoundMoney(r.Proceeds)
	r.CostBasis = RoundMoney(r.CostBasis)
	r.GainLoss = RoundMoney(r.GainLoss)
	return r
}

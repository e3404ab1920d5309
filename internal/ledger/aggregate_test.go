package ledger

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tikalinvest/brokerage-ledger/internal/model"
)

var t0 = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func trade(seq int64, at time.Time, txType model.TransactionType, symbol, qty, price string) model.Transaction {
	q, p := d(qty), d(price)
	return model.Transaction{
		ID:        symbol + "-" + string(txType),
		Symbol:    symbol,
		Name:      symbol + " Inc.",
		Type:      txType,
		Quantity:  q,
		UnitPrice: p,
		Total:     RoundMoney(q.Mul(p)),
		Status:    model.StatusCompleted,
		CreatedAt: at,
		Seq:       seq,
	}
}

func assertDecimal(t *testing.T, field string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("Expected %s %s, got %s", field, want, got)
	}
}

// TestAggregate_WorkedExample replays two buys and a full sale.
//
// WHY: a full sale must close the position and reset invested to zero regardless of
// the sale price, and the closed position must drop out of holdings.
func TestAggregate_WorkedExample(t *testing.T) {
	txs := []model.Transaction{
		trade(1, t0, model.TransactionBuy, "AAPL", "10", "100"),
		trade(2, t0.Add(time.Hour), model.TransactionBuy, "AAPL", "5", "120"),
	}

	l := Aggregate(txs)
	h, ok := l.Holdings["AAPL"]
	if !ok {
		t.Fatal("Expected AAPL holding after buys")
	}
	assertDecimal(t, "quantity", h.Quantity, d("15"))
	assertDecimal(t, "invested", h.TotalInvested, d("1600"))
	assertDecimal(t, "average price", RoundMoney(h.AveragePrice), d("106.67"))

	txs = append(txs, trade(3, t0.Add(2*time.Hour), model.TransactionSell, "AAPL", "15", "150"))
	l = Aggregate(txs)

	if _, ok := l.Holdings["AAPL"]; ok {
		t.Error("Expected closed position to be discarded")
	}
	if len(l.Clamped) != 0 {
		t.Errorf("Expected no clamped symbols, got %v", l.Clamped)
	}

	r := l.Realized["AAPL"].Rounded()
	assertDecimal(t, "shares sold", r.SharesSold, d("15"))
	assertDecimal(t, "proceeds", r.Proceeds, d("2250"))
	assertDecimal(t, "cost basis", r.CostBasis, d("1600"))
	assertDecimal(t, "realized gain", r.GainLoss, d("650"))

	cash := CashFromTransactions(append([]model.Transaction{{
		Type: model.TransactionDeposit, Total: d("1600"), Status: model.StatusCompleted,
	}}, txs...))
	assertDecimal(t, "cash", cash, d("2250"))
}

func TestAggregate_AveragePriceInvariant(t *testing.T) {
	txs := []model.Transaction{
		trade(1, t0, model.TransactionBuy, "MSFT", "3", "101.37"),
		trade(2, t0.Add(time.Minute), model.TransactionBuy, "MSFT", "0.5", "99.99"),
		trade(3, t0.Add(2*time.Minute), model.TransactionBuy, "MSFT", "7.25", "250"),
		trade(4, t0.Add(3*time.Minute), model.TransactionBuy, "MSFT", "1", "0.01"),
	}

	for i := 1; i <= len(txs); i++ {
		h := Aggregate(txs[:i]).Holdings["MSFT"]
		want := h.TotalInvested.Div(h.Quantity)
		if !h.AveragePrice.Equal(want) {
			t.Errorf("after %d buys: expected average %s, got %s", i, want, h.AveragePrice)
		}
	}
}

func TestAggregate_Sells(t *testing.T) {
	buy := trade(1, t0, model.TransactionBuy, "TSLA", "10", "100")
	partial := trade(2, t0.Add(time.Hour), model.TransactionSell, "TSLA", "4", "150")

	t.Run("sale total policy subtracts the sale total", func(t *testing.T) {
		h := Aggregate([]model.Transaction{buy, partial}).Holdings["TSLA"]

		assertDecimal(t, "quantity", h.Quantity, d("6"))
		assertDecimal(t, "invested", h.TotalInvested, d("400"))
		assertDecimal(t, "average price", h.AveragePrice, d("100"))
	})

	t.Run("average policy subtracts cost of shares sold", func(t *testing.T) {
		agg := Aggregator{Policy: SellCostAverage}
		h := agg.Aggregate([]model.Transaction{buy, partial}).Holdings["TSLA"]

		assertDecimal(t, "quantity", h.Quantity, d("6"))
		assertDecimal(t, "invested", h.TotalInvested, d("600"))
		assertDecimal(t, "average price", h.AveragePrice, d("100"))
	})

	t.Run("selling exactly the held quantity resets invested", func(t *testing.T) {
		for _, policy := range []SellCostPolicy{SellCostSaleTotal, SellCostAverage} {
			l := Aggregator{Policy: policy}.Aggregate([]model.Transaction{
				buy,
				trade(2, t0.Add(time.Hour), model.TransactionSell, "TSLA", "10", "37.5"),
			})
			if _, ok := l.Holdings["TSLA"]; ok {
				t.Errorf("policy %s: expected position to be closed", policy)
			}
		}
	})

	t.Run("rebuy after close starts a fresh average", func(t *testing.T) {
		l := Aggregate([]model.Transaction{
			buy,
			trade(2, t0.Add(time.Hour), model.TransactionSell, "TSLA", "10", "150"),
			trade(3, t0.Add(2*time.Hour), model.TransactionBuy, "TSLA", "2", "80"),
		})
		h := l.Holdings["TSLA"]

		assertDecimal(t, "quantity", h.Quantity, d("2"))
		assertDecimal(t, "invested", h.TotalInvested, d("160"))
		assertDecimal(t, "average price", h.AveragePrice, d("80"))
	})

	t.Run("oversell in stored data is clamped and reported", func(t *testing.T) {
		l := Aggregate([]model.Transaction{
			trade(1, t0, model.TransactionBuy, "NFLX", "5", "10"),
			trade(2, t0.Add(time.Hour), model.TransactionSell, "NFLX", "8", "10"),
		})

		if _, ok := l.Holdings["NFLX"]; ok {
			t.Error("Expected clamped position to be discarded")
		}
		if !reflect.DeepEqual(l.Clamped, []string{"NFLX"}) {
			t.Errorf("Expected NFLX clamped, got %v", l.Clamped)
		}
		r := l.Realized["NFLX"]
		assertDecimal(t, "shares sold", r.SharesSold, d("5"))
		assertDecimal(t, "proceeds", r.Proceeds, d("50"))
	})
}

func TestAggregate_Ordering(t *testing.T) {
	t.Run("applies by created time regardless of input order", func(t *testing.T) {
		sell := trade(2, t0.Add(time.Hour), model.TransactionSell, "AMZN", "5", "10")
		buy := trade(1, t0, model.TransactionBuy, "AMZN", "5", "10")

		l := Aggregate([]model.Transaction{sell, buy})
		if len(l.Clamped) != 0 {
			t.Errorf("Expected sell to be applied after buy, got clamped %v", l.Clamped)
		}
	})

	t.Run("breaks created time ties by insertion order", func(t *testing.T) {
		buy := trade(1, t0, model.TransactionBuy, "AMZN", "5", "10")
		sell := trade(2, t0, model.TransactionSell, "AMZN", "2", "10")

		l := Aggregate([]model.Transaction{sell, buy})
		assertDecimal(t, "quantity", l.Quantity("AMZN"), d("3"))
		if len(l.Clamped) != 0 {
			t.Errorf("Expected no clamping, got %v", l.Clamped)
		}
	})
}

func TestAggregate_IgnoresNonTrades(t *testing.T) {
	pending := trade(1, t0, model.TransactionBuy, "GOOG", "1", "100")
	pending.Status = model.StatusPending
	cancelled := trade(2, t0, model.TransactionBuy, "GOOG", "1", "100")
	cancelled.Status = model.StatusCancelled
	deposit := model.Transaction{Type: model.TransactionDeposit, Total: d("1000"), Status: model.StatusCompleted}

	l := Aggregate([]model.Transaction{pending, cancelled, deposit})
	if len(l.Holdings) != 0 {
		t.Errorf("Expected no holdings, got %v", l.Holdings)
	}
}

func TestAggregate_LegacyRowsWithoutTotal(t *testing.T) {
	tx := trade(1, t0, model.TransactionBuy, "IBM", "2", "50")
	tx.Total = decimal.Zero

	h := Aggregate([]model.Transaction{tx}).Holdings["IBM"]
	assertDecimal(t, "invested", h.TotalInvested, d("100"))
}

func TestParseSellCostPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    SellCostPolicy
		wantErr bool
	}{
		{"", SellCostSaleTotal, false},
		{"sale_total", SellCostSaleTotal, false},
		{"average", SellCostAverage, false},
		{"fifo", SellCostSaleTotal, true},
	}
	for _, tt := range tests {
		got, err := ParseSellCostPolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSellCostPolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseSellCostPolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

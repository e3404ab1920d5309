// Package report renders portfolio statements as xlsx workbooks.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/tikalinvest/brokerage-ledger/internal/ledger"
	"github.com/tikalinvest/brokerage-ledger/internal/logging"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
)

// Sheet names, in workbook order.
const (
	SheetSummary      = "Summary"
	SheetHoldings     = "Holdings"
	SheetTransactions = "Transactions"
)

// ContentType is the MIME type of generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PortfolioReport is everything a statement shows.
type PortfolioReport struct {
	User         model.User
	Valuation    ledger.Valuation
	Transactions []model.Transaction
	From         time.Time
	To           time.Time
	GeneratedAt  time.Time
}

// XLSXGenerator renders a PortfolioReport.
type XLSXGenerator struct{}

// NewXLSXGenerator creates a generator.
func NewXLSXGenerator() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate renders rep and returns the workbook bytes.
func (g *XLSXGenerator) Generate(ctx context.Context, rep PortfolioReport) ([]byte, error) {
	log := logging.FromContext(ctx)

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Error("failed to close workbook", "error", err)
		}
	}()

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	for _, fill := range []func(*excelize.File, PortfolioReport, sheetStyles) error{
		fillSummary,
		fillHoldings,
		fillTransactions,
	} {
		if err := fill(f, rep, styles); err != nil {
			return nil, err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		log.Error("failed to delete default sheet", "error", err)
	}
	if idx, err := f.GetSheetIndex(SheetSummary); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type sheetStyles struct {
	header int
	money  int
	shares int
	pct    int
	date   int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	var s sheetStyles
	var err error

	s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#cfe2f3"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}

	moneyFmt, sharesFmt, pctFmt, dateFmt := "#,##0.00", "#,##0.0000", "0.00\"%\"", "yyyy-mm-dd hh:mm"
	if s.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt}); err != nil {
		return s, err
	}
	if s.shares, err = f.NewStyle(&excelize.Style{CustomNumFmt: &sharesFmt}); err != nil {
		return s, err
	}
	if s.pct, err = f.NewStyle(&excelize.Style{CustomNumFmt: &pctFmt}); err != nil {
		return s, err
	}
	if s.date, err = f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt}); err != nil {
		return s, err
	}
	return s, nil
}

func fillSummary(f *excelize.File, rep PortfolioReport, st sheetStyles) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("failed to create %s sheet: %w", SheetSummary, err)
	}
	v := rep.Valuation

	period := "all time"
	if !rep.From.IsZero() || !rep.To.IsZero() {
		period = fmt.Sprintf("%s to %s", dateOrDash(rep.From), dateOrDash(rep.To))
	}

	rows := []struct {
		label string
		value any
		style int
	}{
		{"Account", rep.User.Name + " (" + rep.User.Username + ")", 0},
		{"Generated", rep.GeneratedAt, st.date},
		{"Transactions period", period, 0},
		{"Cash", num(v.Cash), st.money},
		{"Holdings value", num(v.HoldingsValue), st.money},
		{"Total value", num(v.TotalValue), st.money},
		{"Total invested", num(v.TotalInvested), st.money},
		{"Unrealized gain/loss", num(v.TotalProfitLoss), st.money},
		{"Gain %", num(v.GainPercent), st.pct},
		{"Realized gain/loss", num(v.RealizedGainLoss), st.money},
		{"Prices stale", v.Stale, 0},
	}

	if err := f.SetCellStr(SheetSummary, "A1", "Portfolio statement"); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, "A1", "B1", st.header); err != nil {
		return err
	}
	if err := f.MergeCell(SheetSummary, "A1", "B1"); err != nil {
		return err
	}

	for i, r := range rows {
		row := i + 2
		if err := f.SetSheetRow(SheetSummary, cell("A", row), &[]any{r.label, r.value}); err != nil {
			return err
		}
		if r.style != 0 {
			if err := f.SetCellStyle(SheetSummary, cell("B", row), cell("B", row), r.style); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(SheetSummary, "A", "B", 24)
}

func fillHoldings(f *excelize.File, rep PortfolioReport, st sheetStyles) error {
	if _, err := f.NewSheet(SheetHoldings); err != nil {
		return fmt.Errorf("failed to create %s sheet: %w", SheetHoldings, err)
	}

	header := []any{"Symbol", "Name", "Quantity", "Average price", "Invested", "Price", "Value", "Gain/loss", "Gain %", "Price source"}
	if err := writeHeader(f, SheetHoldings, header, st); err != nil {
		return err
	}

	for i, h := range rep.Valuation.Holdings {
		row := i + 2
		values := []any{
			h.Symbol,
			h.Name,
			num(h.Quantity),
			num(h.AveragePrice),
			num(h.TotalInvested),
			nil, nil, nil, nil,
			string(h.PriceSource),
		}
		if !h.Excluded {
			values[5] = num(h.CurrentPrice)
			values[6] = num(h.CurrentValue)
			values[7] = num(h.ProfitLoss)
			values[8] = num(h.ProfitLossPercent)
		}
		if err := f.SetSheetRow(SheetHoldings, cell("A", row), &values); err != nil {
			return err
		}
	}

	if n := len(rep.Valuation.Holdings); n > 0 {
		last := n + 1
		for _, c := range []struct {
			from, to string
			style    int
		}{
			{"C", "C", st.shares},
			{"D", "H", st.money},
			{"I", "I", st.pct},
		} {
			if err := f.SetCellStyle(SheetHoldings, cell(c.from, 2), cell(c.to, last), c.style); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(SheetHoldings, "A", "J", 14)
}

func fillTransactions(f *excelize.File, rep PortfolioReport, st sheetStyles) error {
	if _, err := f.NewSheet(SheetTransactions); err != nil {
		return fmt.Errorf("failed to create %s sheet: %w", SheetTransactions, err)
	}

	header := []any{"Date", "Type", "Symbol", "Quantity", "Unit price", "Total", "Status", "Reference"}
	if err := writeHeader(f, SheetTransactions, header, st); err != nil {
		return err
	}

	for i, t := range rep.Transactions {
		row := i + 2
		values := []any{
			t.CreatedAt,
			string(t.Type),
			t.Symbol,
			nil, nil,
			num(t.TradeTotal()),
			string(t.Status),
			t.ReferenceCode,
		}
		if t.Type.IsTrade() {
			values[3] = num(t.Quantity)
			values[4] = num(t.UnitPrice)
		}
		if err := f.SetSheetRow(SheetTransactions, cell("A", row), &values); err != nil {
			return err
		}
	}

	if n := len(rep.Transactions); n > 0 {
		last := n + 1
		if err := f.SetCellStyle(SheetTransactions, "A2", cell("A", last), st.date); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetTransactions, "D2", cell("D", last), st.shares); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetTransactions, "E2", cell("F", last), st.money); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetTransactions, "A", "H", 16)
}

func writeHeader(f *excelize.File, sheet string, header []any, st sheetStyles) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, st.header)
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// num converts a decimal for a spreadsheet cell. Values are already rounded for display.
func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func dateOrDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}


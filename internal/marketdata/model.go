package marketdata

import "github.com/shopspring/decimal"

// ChartResponse represents the raw JSON response of the vendor's chart endpoint.
//
// The structure includes:
//   - Chart.Result: Array of result objects (typically contains one element)
//   - Chart.Result[].Meta: Symbol metadata and the latest traded price
//   - Chart.Result[].Timestamp: Unix timestamps for each data point
//   - Chart.Result[].Indicators: Close prices aligned with Timestamp
//   - Chart.Error: Optional error object from the vendor
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

// ChartResult is one symbol's entry in a ChartResponse.
type ChartResult struct {
	Meta       ChartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*decimal.Decimal `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// ChartMeta carries the symbol metadata. RegularMarketPrice is absent for
// delisted or unknown symbols.
type ChartMeta struct {
	Currency           string           `json:"currency"`
	Symbol             string           `json:"symbol"`
	ExchangeName       string           `json:"exchangeName"`
	LongName           string           `json:"longName"`
	ShortName          string           `json:"shortName"`
	RegularMarketPrice *decimal.Decimal `json:"regularMarketPrice"`
	RegularMarketTime  int64            `json:"regularMarketTime"`
}

// ChartError is the vendor's error object.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

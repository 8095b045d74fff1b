package domain

// NotAvailable is the placeholder used for any metric the data source did not provide.
const NotAvailable = "N/A"

// OverviewResult holds the fundamentals fetched for one ticker.
type OverviewResult struct {
	Symbol    string `json:"symbol"`
	MarketCap string `json:"market_cap"`
	ROE       string `json:"roe"`
	ROA       string `json:"roa"`
}

// DisplayRow is what the result table shows and exports. MarketCap is either
// NotAvailable or a "$"-prefixed, comma-grouped integer.
type DisplayRow struct {
	Symbol    string `json:"symbol"`
	MarketCap string `json:"market_cap"`
	ROE       string `json:"roe"`
	ROA       string `json:"roa"`
}

// Record returns the row in export column order.
func (r DisplayRow) Record() []string {
	return []string{r.Symbol, r.MarketCap, r.ROE, r.ROA}
}

// ExportHeader is the first line of every export.
var ExportHeader = []string{"Company", "Market Cap", "ROE", "ROA"}

// NotFoundReason explains why a fetch produced no data.
type NotFoundReason string

const (
	ReasonTransport     NotFoundReason = "transport"
	ReasonHTTPStatus    NotFoundReason = "http_status"
	ReasonDecode        NotFoundReason = "decode"
	ReasonRateLimited   NotFoundReason = "rate_limited"
	ReasonMissingFields NotFoundReason = "missing_fields"
	ReasonCancelled     NotFoundReason = "cancelled"
)

// FetchOutcome is either Found (Result set) or NotFound (Reason set).
type FetchOutcome struct {
	Symbol string
	Result *OverviewResult
	Reason NotFoundReason
}

// Found wraps a successful fetch.
func Found(result OverviewResult) FetchOutcome {
	return FetchOutcome{Symbol: result.Symbol, Result: &result}
}

// NotFound wraps a fetch that produced no data.
func NotFound(symbol string, reason NotFoundReason) FetchOutcome {
	return FetchOutcome{Symbol: symbol, Reason: reason}
}

// IsFound reports whether the fetch produced a record.
func (o FetchOutcome) IsFound() bool {
	return o.Result != nil
}

// SkippedSymbol records a symbol left out of the results.
type SkippedSymbol struct {
	Symbol string         `json:"symbol"`
	Reason NotFoundReason `json:"reason"`
}

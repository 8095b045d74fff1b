package exporter

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"compfinder/pkg/contracts/domain"
)

// FormatMarketCap renders a raw market capitalization such as "2950000000000.5" as
// "$2,950,000,000,000". The fractional part is truncated. Input that does not parse as
// a finite decimal number ("N/A", "", "None", "Inf", "0x1p4") is returned unchanged.
func FormatMarketCap(value string) string {
	trimmed := strings.TrimSpace(value)
	if isHexLiteral(trimmed) {
		return value
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return value
	}

	n, _ := big.NewFloat(math.Trunc(f)).Int(nil)
	return "$" + groupThousands(n.String())
}

// isHexLiteral reports whether s carries a 0x prefix, which ParseFloat would accept.
func isHexLiteral(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// groupThousands inserts commas every three digits of a base-10 integer string
func groupThousands(digits string) string {
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}

	var b strings.Builder
	b.Grow(len(digits) + len(digits)/3 + 1)
	b.WriteString(sign)

	head := len(digits) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(digits[:head])
	for i := head; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// ToDisplayRow derives the displayed row from a fetched overview.
func ToDisplayRow(r domain.OverviewResult) domain.DisplayRow {
	marketCap := domain.NotAvailable
	if r.MarketCap != domain.NotAvailable {
		marketCap = FormatMarketCap(r.MarketCap)
	}
	return domain.DisplayRow{
		Symbol:    r.Symbol,
		MarketCap: marketCap,
		ROE:       r.ROE,
		ROA:       r.ROA,
	}
}

// ToDisplayRows converts results preserving their order.
func ToDisplayRows(results []domain.OverviewResult) []domain.DisplayRow {
	rows := make([]domain.DisplayRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, ToDisplayRow(r))
	}
	return rows
}

// records flattens rows into export records
func records(rows []domain.DisplayRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Record())
	}
	return out
}

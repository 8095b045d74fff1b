// Package sectors holds the fixed S&P 500 sector presets used when the user picks a
// sector instead of typing symbols.
package sectors

import (
	"strings"

	"compfinder/pkg/contracts/domain"
)

// Catalog is an immutable, ordered mapping from sector name to its representative tickers.
// Build it once with New or Default and share it.
type Catalog struct {
	order   []string
	symbols map[string][]string
}

// New builds a catalog from presets. Duplicate names keep the first entry.
func New(presets []domain.Sector) *Catalog {
	c := &Catalog{symbols: make(map[string][]string, len(presets))}
	for _, p := range presets {
		if _, exists := c.symbols[p.Name]; exists {
			continue
		}
		c.order = append(c.order, p.Name)
		c.symbols[p.Name] = append([]string(nil), p.Symbols...)
	}
	return c
}

// Default returns the built-in sector catalog.
func Default() *Catalog {
	return New([]domain.Sector{
		{Name: "Communication Services", Symbols: []string{"GOOGL", "META", "DIS"}},
		{Name: "Consumer Discretionary", Symbols: []string{"AMZN", "HD", "NKE"}},
		{Name: "Consumer Staples", Symbols: []string{"PG", "KO", "WMT"}},
		{Name: "Energy", Symbols: []string{"XOM", "CVX", "COP"}},
		{Name: "Financials", Symbols: []string{"JPM", "BAC", "GS"}},
		{Name: "Healthcare", Symbols: []string{"JNJ", "PFE", "MRK"}},
		{Name: "Industrials", Symbols: []string{"BA", "CAT", "UPS"}},
		{Name: "Information Technology", Symbols: []string{"AAPL", "MSFT", "NVDA"}},
		{Name: "Materials", Symbols: []string{"LIN", "SHW", "ECL"}},
		{Name: "Real Estate", Symbols: []string{"AMT", "PLD", "CCI"}},
		{Name: "Utilities", Symbols: []string{"NEE", "DUK", "SO"}},
	})
}

// Names returns the sector names in catalog order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Symbols returns a copy of the preset for name. Surrounding whitespace in name is ignored.
func (c *Catalog) Symbols(name string) ([]string, bool) {
	syms, ok := c.symbols[strings.TrimSpace(name)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), syms...), true
}

// Sectors returns every preset in catalog order.
func (c *Catalog) Sectors() []domain.Sector {
	out := make([]domain.Sector, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, domain.Sector{Name: name, Symbols: append([]string(nil), c.symbols[name]...)})
	}
	return out
}

// Len returns the number of sectors.
func (c *Catalog) Len() int {
	return len(c.order)
}

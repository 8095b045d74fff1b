package search

import (
	"errors"
	"strings"
)

var (
	// ErrNoInput means neither symbols nor a sector were given.
	ErrNoInput = errors.New("please enter ticker symbols or select a sector")

	// ErrNoSymbols means the input resolved to an empty symbol list.
	ErrNoSymbols = errors.New("no valid ticker symbols found")
)

// Presets looks up the symbols of a named sector.
type Presets interface {
	Symbols(name string) ([]string, bool)
}

// ResolveSymbols turns the user's input into the ordered list of symbols to fetch.
// Free text wins over the sector; it is split on commas and line breaks, trimmed and
// upper-cased. Order and duplicates are kept.
func ResolveSymbols(text, sector string, presets Presets) ([]string, error) {
	text = strings.TrimSpace(text)
	sector = strings.TrimSpace(sector)

	var symbols []string
	switch {
	case text != "":
		symbols = splitSymbols(text)
	case sector != "":
		if presets != nil {
			symbols, _ = presets.Symbols(sector)
		}
	default:
		return nil, ErrNoInput
	}

	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	return symbols, nil
}

func splitSymbols(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	symbols := make([]string, 0, len(fields))
	for _, f := range fields {
		if s := strings.ToUpper(strings.TrimSpace(f)); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

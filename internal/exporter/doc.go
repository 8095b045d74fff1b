// Package exporter turns fetched overviews into display rows and writes those rows to disk.
//
// FormatMarketCap is the only formatting rule: a numeric market capitalization becomes a
// "$"-prefixed, comma-grouped integer, anything else passes through untouched.
//
// Two Writer implementations share the column layout "Company, Market Cap, ROE, ROA":
//
//	CSVWriter  - encoding/csv, UTF-8, header first
//	XLSXWriter - a single "Comparables" worksheet built with excelize
//
// Example usage:
//
//	w, err := exporter.ForFormat("csv")
//	if err != nil {
//	    return err
//	}
//	err = w.WriteFile(exporter.WithExtension(path, w.Format()), rows)
package exporter

package config

import "time"

// Application constants
const (
	AppName = "Comparable Companies Finder"

	DefaultPort    = 8080
	DefaultLogFile = "logs/comps.log"

	// Alpha Vantage
	DefaultAlphaVantageURL = "https://www.alphavantage.co/query"
	DefaultAPIKey          = "demo"
	DefaultFetchTimeout    = 10 * time.Second

	// Export formats
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Package config loads the application configuration.
//
// Values are resolved in increasing order of precedence:
//
//	1. Default()
//	2. config.yaml (or configs/config.yaml) in the working directory
//	3. a .env file in the working directory (only for variables not already set)
//	4. environment variables prefixed with COMPS_
//
// Nested sections map to underscored names:
//
//	COMPS_SERVER_PORT=9090
//	COMPS_ALPHAVANTAGE_API_KEY=XXXXXXXX
//	COMPS_ALPHAVANTAGE_TIMEOUT=10s
//	COMPS_EXPORT_FORMAT=xlsx
//	COMPS_LOGGING_LEVEL=debug
//
// Paths resolves the directories the application writes to, relative to the
// executable so the tool behaves the same whatever the working directory.
package config

package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics holds the application-specific instruments. A nil *BusinessMetrics is valid
// and records nothing.
type BusinessMetrics struct {
	FetchTotal     metric.Int64Counter
	FetchDuration  metric.Float64Histogram
	SearchTotal    metric.Int64Counter
	SearchDuration metric.Float64Histogram
	SearchSymbols  metric.Int64Histogram
	ExportTotal    metric.Int64Counter
	HTTPRequests   metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	fetchTotal, err := meter.Int64Counter(
		"comps_fetch_total",
		metric.WithDescription("Overview fetches by outcome and reason"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"comps_fetch_duration_seconds",
		metric.WithDescription("Overview fetch duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	searchTotal, err := meter.Int64Counter(
		"comps_search_total",
		metric.WithDescription("Completed searches"),
	)
	if err != nil {
		return nil, err
	}

	searchDuration, err := meter.Float64Histogram(
		"comps_search_duration_seconds",
		metric.WithDescription("Search duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	searchSymbols, err := meter.Int64Histogram(
		"comps_search_symbols",
		metric.WithDescription("Symbols requested per search"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 20, 50, 100),
	)
	if err != nil {
		return nil, err
	}

	exportTotal, err := meter.Int64Counter(
		"comps_export_total",
		metric.WithDescription("Exports by format and status"),
	)
	if err != nil {
		return nil, err
	}

	httpRequests, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &BusinessMetrics{
		FetchTotal:     fetchTotal,
		FetchDuration:  fetchDuration,
		SearchTotal:    searchTotal,
		SearchDuration: searchDuration,
		SearchSymbols:  searchSymbols,
		ExportTotal:    exportTotal,
		HTTPRequests:   httpRequests,
	}, nil
}

// RecordFetch records a single overview fetch.
func (m *BusinessMetrics) RecordFetch(ctx context.Context, found bool, reason string, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "found"
	if !found {
		outcome = "not_found"
	}
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("reason", reason),
	)
	m.FetchTotal.Add(ctx, 1, attrs)
	m.FetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSearch records a finished search. The counter is labelled complete, partial or
// empty by how many of the symbols produced a row; the request size goes to a histogram.
func (m *BusinessMetrics) RecordSearch(ctx context.Context, symbols, found int, duration time.Duration) {
	if m == nil {
		return
	}
	m.SearchTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", searchResult(symbols, found))))
	m.SearchSymbols.Record(ctx, int64(symbols))
	m.SearchDuration.Record(ctx, duration.Seconds())
}

func searchResult(symbols, found int) string {
	switch {
	case found == 0:
		return "empty"
	case found < symbols:
		return "partial"
	default:
		return "complete"
	}
}

// RecordExport records an export attempt.
func (m *BusinessMetrics) RecordExport(ctx context.Context, format string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.ExportTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("status", status),
	))
}

// RecordHTTPRequest records a served HTTP request.
func (m *BusinessMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}

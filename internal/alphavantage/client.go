// Package alphavantage fetches company overviews from the Alpha Vantage query API.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"compfinder/internal/config"
	"compfinder/internal/infrastructure"
	"compfinder/pkg/contracts/domain"
)

// Response keys the overview must carry to count as data.
const (
	KeyMarketCap = "MarketCapitalization"
	KeyROE       = "ReturnOnEquityTTM"
	KeyROA       = "ReturnOnAssetsTTM"

	functionOverview = "OVERVIEW"

	// maxBodyBytes caps how much of a response is decoded
	maxBodyBytes = 1 << 20
)

// Keys Alpha Vantage uses instead of data when a call is throttled.
var throttleKeys = []string{"Note", "Information"}

// Client handles Alpha Vantage API requests
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *infrastructure.BusinessMetrics
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout bounds every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics records every fetch in m.
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a new Alpha Vantage API client
func NewClient(cfg config.AlphaVantageConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultFetchTimeout
	}

	c := &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		tracer:     otel.Tracer(infrastructure.MeterName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = infrastructure.WithComponent(c.logger, "alphavantage")
	return c
}

// FetchOverview issues one OVERVIEW request for symbol. It never returns an error: any
// transport, status or decoding problem, and any payload lacking one of the three required
// keys, yields a NotFound outcome. An invalid symbol and a throttled call look alike on the
// wire; the reason only distinguishes them when Alpha Vantage adds a Note/Information key.
func (c *Client) FetchOverview(ctx context.Context, symbol string) domain.FetchOutcome {
	symbol = strings.TrimSpace(symbol)
	upper := strings.ToUpper(symbol)

	ctx, span := c.tracer.Start(ctx, "alphavantage.overview",
		trace.WithAttributes(attribute.String("symbol", upper)))
	defer span.End()

	start := time.Now()
	outcome := c.fetch(ctx, symbol, upper)
	c.metrics.RecordFetch(ctx, outcome.IsFound(), string(outcome.Reason), time.Since(start))

	span.SetAttributes(attribute.Bool("found", outcome.IsFound()))
	return outcome
}

func (c *Client) fetch(ctx context.Context, symbol, upper string) domain.FetchOutcome {
	logger := c.logger.With(slog.String("symbol", upper))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(symbol), nil)
	if err != nil {
		logger.WarnContext(ctx, "Error building overview request", slog.String("error", err.Error()))
		return domain.NotFound(upper, domain.ReasonTransport)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		reason := domain.ReasonTransport
		if errors.Is(ctx.Err(), context.Canceled) {
			reason = domain.ReasonCancelled
		}
		infrastructure.RecordError(ctx, err)
		logger.WarnContext(ctx, "Error fetching overview",
			slog.String("error", redact(err.Error(), c.apiKey)),
			slog.String("reason", string(reason)))
		return domain.NotFound(upper, reason)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		logger.WarnContext(ctx, "Unexpected overview status", slog.Int("status", resp.StatusCode))
		return domain.NotFound(upper, domain.ReasonHTTPStatus)
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		infrastructure.RecordError(ctx, err)
		logger.WarnContext(ctx, "Error decoding overview", slog.String("error", err.Error()))
		return domain.NotFound(upper, domain.ReasonDecode)
	}

	result, reason, ok := ParseOverview(upper, payload)
	if !ok {
		logger.InfoContext(ctx, "No data for symbol or API limit reached", slog.String("reason", string(reason)))
		return domain.NotFound(upper, reason)
	}

	logger.DebugContext(ctx, "Overview fetched", slog.String("market_cap", result.MarketCap))
	return domain.Found(result)
}

// ParseOverview extracts the three metrics from a decoded OVERVIEW payload. All three keys
// must be present; a present key with a null value renders as "N/A".
func ParseOverview(symbol string, payload map[string]interface{}) (domain.OverviewResult, domain.NotFoundReason, bool) {
	_, hasCap := payload[KeyMarketCap]
	_, hasROE := payload[KeyROE]
	_, hasROA := payload[KeyROA]

	if !hasCap || !hasROE || !hasROA {
		for _, k := range throttleKeys {
			if _, throttled := payload[k]; throttled {
				return domain.OverviewResult{}, domain.ReasonRateLimited, false
			}
		}
		return domain.OverviewResult{}, domain.ReasonMissingFields, false
	}

	return domain.OverviewResult{
		Symbol:    strings.ToUpper(symbol),
		MarketCap: stringValue(payload[KeyMarketCap]),
		ROE:       stringValue(payload[KeyROE]),
		ROA:       stringValue(payload[KeyROA]),
	}, "", true
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return domain.NotAvailable
	}
}

func (c *Client) requestURL(symbol string) string {
	q := url.Values{}
	q.Set("function", functionOverview)
	q.Set("symbol", symbol)
	q.Set("apikey", c.apiKey)

	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s%s", c.baseURL, sep, q.Encode())
}

// redact keeps the API key out of logged URLs
func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "REDACTED")
}

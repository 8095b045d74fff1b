// Package search resolves user input into ticker symbols and runs searches in the background.
//
// Each search gets exactly one worker goroutine. The worker fetches overviews one symbol at
// a time and hands the finished result set to the display loop; it never touches display
// state directly.
package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"compfinder/internal/display"
	"compfinder/internal/exporter"
	"compfinder/internal/infrastructure"
	"compfinder/pkg/contracts/domain"
)

// ErrSearchInProgress is returned by Start while a search is fetching.
var ErrSearchInProgress = display.ErrSearchInProgress

// Fetcher fetches the overview of one symbol.
type Fetcher interface {
	FetchOverview(ctx context.Context, symbol string) domain.FetchOutcome
}

// Request is a search as entered by the user.
type Request struct {
	Symbols string
	Sector  string
}

// Run is a started search.
type Run struct {
	ID      string
	Symbols []string

	done chan struct{}
}

// Done is closed after the run's results reached the display.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics records every search in m.
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithBaseContext sets the context workers run under. Cancelling it stops running searches
// between symbols.
func WithBaseContext(ctx context.Context) Option {
	return func(o *Orchestrator) { o.baseCtx = ctx }
}

// Orchestrator starts searches and routes their results to the display.
type Orchestrator struct {
	fetcher Fetcher
	presets Presets
	display *display.Display

	baseCtx context.Context
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	wg sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator. disp may be nil when only Collect is used.
func NewOrchestrator(fetcher Fetcher, presets Presets, disp *display.Display, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher: fetcher,
		presets: presets,
		display: disp,
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = infrastructure.WithComponent(o.logger, "search")
	return o
}

// Start resolves req and launches its worker. Input errors are returned before anything
// else happens; no fetch is made and the display is left untouched.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*Run, error) {
	symbols, err := ResolveSymbols(req.Symbols, req.Sector, o.presets)
	if err != nil {
		o.logger.InfoContext(ctx, "Search rejected", slog.String("error", err.Error()))
		return nil, err
	}

	run := &Run{
		ID:      uuid.New().String(),
		Symbols: symbols,
		done:    make(chan struct{}),
	}

	if err := o.display.BeginSearch(ctx, run.ID); err != nil {
		return nil, err
	}

	o.logger.InfoContext(ctx, "Search started",
		slog.String("search_id", run.ID),
		slog.Int("symbols", len(symbols)),
		slog.String("sector", req.Sector))

	traceID := infrastructure.GetTraceID(ctx)
	o.wg.Add(1)
	go o.work(traceID, run)

	return run, nil
}

func (o *Orchestrator) work(traceID string, run *Run) {
	defer o.wg.Done()
	defer close(run.done)

	ctx := o.baseCtx
	if traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, traceID)
	}
	logger := o.logger.With(slog.String("search_id", run.ID))

	start := time.Now()
	results, skipped := o.Collect(ctx, run.Symbols)
	rows := exporter.ToDisplayRows(results)

	if err := o.display.FinishSearch(run.ID, rows, skipped); err != nil {
		logger.WarnContext(ctx, "Could not hand results to display", slog.String("error", err.Error()))
	}

	o.metrics.RecordSearch(ctx, len(run.Symbols), len(results), time.Since(start))
	logger.InfoContext(ctx, "Search finished",
		slog.Int("found", len(results)),
		slog.Int("skipped", len(skipped)),
		slog.Duration("duration", time.Since(start)))
}

// Collect fetches symbols one after another in order. NotFound outcomes are logged and
// reported in skipped. Once ctx is done the remaining symbols are skipped as cancelled.
func (o *Orchestrator) Collect(ctx context.Context, symbols []string) ([]domain.OverviewResult, []domain.SkippedSymbol) {
	results := make([]domain.OverviewResult, 0, len(symbols))
	var skipped []domain.SkippedSymbol

	for i, symbol := range symbols {
		if ctx.Err() != nil {
			for _, rest := range symbols[i:] {
				skipped = append(skipped, domain.SkippedSymbol{Symbol: rest, Reason: domain.ReasonCancelled})
			}
			o.logger.InfoContext(ctx, "Search interrupted", slog.Int("remaining", len(symbols)-i))
			break
		}

		outcome := o.fetcher.FetchOverview(ctx, symbol)
		if !outcome.IsFound() {
			o.logger.InfoContext(ctx, "No data for symbol or API limit reached",
				slog.String("symbol", symbol),
				slog.String("reason", string(outcome.Reason)))
			skipped = append(skipped, domain.SkippedSymbol{Symbol: symbol, Reason: outcome.Reason})
			continue
		}
		results = append(results, *outcome.Result)
	}

	return results, skipped
}

// Wait blocks until every started worker has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

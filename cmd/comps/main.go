// Command comps looks up market capitalization, return on equity and return on assets for
// a list of ticker symbols or a sector preset, prints them as a table and optionally
// exports them.
//
//	comps -symbols "AAPL,MSFT,NVDA"
//	comps -sector "Energy" -out energy.xlsx -format xlsx
//	comps -list-sectors
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"compfinder/internal/alphavantage"
	"compfinder/internal/config"
	"compfinder/internal/exporter"
	"compfinder/internal/infrastructure"
	"compfinder/internal/search"
	"compfinder/internal/sectors"
	"compfinder/internal/services"
	api "compfinder/pkg/contracts/api/v1"
	"compfinder/pkg/contracts/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the parsed command line flags
type options struct {
	symbols     string
	sector      string
	out         string
	format      string
	configFile  string
	verbose     bool
	listSectors bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("comps", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.symbols, "symbols", "", "ticker symbols separated by commas or newlines")
	fs.StringVar(&opts.sector, "sector", "", "sector preset to use when -symbols is empty")
	fs.StringVar(&opts.out, "out", "", "export file (extension added when missing)")
	fs.StringVar(&opts.format, "format", "", "export format: csv | xlsx (defaults to the configured format)")
	fs.StringVar(&opts.configFile, "config", "", "path to a config.yaml")
	fs.BoolVar(&opts.verbose, "v", false, "log every request")
	fs.BoolVar(&opts.listSectors, "list-sectors", false, "print the sector presets and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: comps -symbols \"AAPL,MSFT\" | -sector NAME [flags]\n\n")
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), "\nEnvironment:\n  %s\n    \tAlpha Vantage API key (the default %q key only serves IBM)\n",
			config.APIKeyEnv, config.DefaultAPIKey)
	}
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	catalog := sectors.Default()
	if opts.listSectors {
		return printSectors(stdout, catalog)
	}

	cfg, err := loadConfig(opts.configFile)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := infrastructure.NewLoggerWithWriter(stderr, &slog.HandlerOptions{Level: level})

	symbols, err := search.ResolveSymbols(opts.symbols, opts.sector, catalog)
	if err != nil {
		return err
	}
	if cfg.AlphaVantage.UsesDemoKey() {
		logger.WarnContext(ctx, "Using the Alpha Vantage demo key, only IBM is served",
			slog.String("override", config.APIKeyEnv))
	}

	client := alphavantage.NewClient(cfg.AlphaVantage, alphavantage.WithLogger(logger))
	orchestrator := search.NewOrchestrator(client, catalog, nil, search.WithLogger(logger))

	fmt.Fprintln(stderr, domain.StatusFetching)
	results, skipped := orchestrator.Collect(ctx, symbols)
	rows := exporter.ToDisplayRows(results)

	if err := printRows(stdout, rows); err != nil {
		return err
	}
	if len(skipped) > 0 {
		names := make([]string, 0, len(skipped))
		for _, s := range skipped {
			names = append(names, fmt.Sprintf("%s (%s)", s.Symbol, s.Reason))
		}
		fmt.Fprintf(stderr, "Skipped: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintln(stderr, domain.StatusDone)

	if opts.out == "" {
		return nil
	}

	exportSvc := services.NewExportService(staticRows(rows), nil, cfg.Export.Format, logger, nil)
	resp, err := exportSvc.Export(ctx, api.ExportRequest{Path: opts.out, Format: opts.format})
	if err != nil {
		return err
	}
	fmt.Fprintln(stderr, resp.Message)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// staticRows serves a fixed row set to the export service
type staticRows []domain.DisplayRow

func (s staticRows) Rows(context.Context) ([]domain.DisplayRow, error) {
	return s, nil
}

func printRows(w io.Writer, rows []domain.DisplayRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(domain.ExportHeader, "\t"))
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Symbol, row.MarketCap, row.ROE, row.ROA)
	}
	return tw.Flush()
}

func printSectors(w io.Writer, catalog *sectors.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, s := range catalog.Sectors() {
		fmt.Fprintf(tw, "%s\t%s\n", s.Name, strings.Join(s.Symbols, ", "))
	}
	return tw.Flush()
}

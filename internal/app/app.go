package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"compfinder/internal/alphavantage"
	"compfinder/internal/config"
	"compfinder/internal/display"
	apierrors "compfinder/internal/errors"
	"compfinder/internal/infrastructure"
	customMiddleware "compfinder/internal/middleware"
	"compfinder/internal/search"
	"compfinder/internal/sectors"
	"compfinder/internal/services"
	handlers "compfinder/internal/transport/http"
	ws "compfinder/internal/websocket"
	"compfinder/pkg/contracts"
)


// Application holds every long-lived component. Each one is built exactly once.
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics

	Catalog       *sectors.Catalog
	Display       *display.Display
	WebSocketHub  *ws.Hub
	Client        *alphavantage.Client
	Orchestrator  *search.Orchestrator
	ExportService *services.ExportService
	HealthService *services.HealthService

	ErrorHandler *apierrors.ErrorHandler
	Validator    *customMiddleware.Validator
	Router       *chi.Mux
	Server       *http.Server
	FrontendFS   fs.FS

	// OpenBrowser opens the UI once the server answers health checks.
	OpenBrowser bool

	httpClient *http.Client
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// Option customizes an Application before its components are built.
type Option func(*Application)

// WithFrontend serves the browser UI from files.
func WithFrontend(files fs.FS) Option {
	return func(a *Application) { a.FrontendFS = files }
}

// WithPaths overrides the directory layout derived from the executable location.
func WithPaths(paths *config.Paths) Option {
	return func(a *Application) { a.Paths = paths }
}

// WithHTTPClient sets the client used for Alpha Vantage requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *Application) { a.httpClient = hc }
}

// NewApplication loads configuration and logging, then builds the application.
func NewApplication(opts ...Option) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	paths, err := config.GetPaths(cfg.Export.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if cfg.Logging.FilePath != "" && !filepath.IsAbs(cfg.Logging.FilePath) {
		cfg.Logging.FilePath = paths.GetLogPath(cfg.Logging.FilePath)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger, append([]Option{WithPaths(paths)}, opts...)...)
}

// New builds the application from an already loaded configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Application, error) {
	a := &Application{
		Config: cfg,
		Logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.baseCtx, a.cancelBase = context.WithCancel(context.Background())

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	if a.Paths == nil {
		paths, err := config.GetPaths(cfg.Export.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to get paths: %w", err)
		}
		a.Paths = paths
	}
	if err := a.Paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	a.Paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(contracts.Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	a.OTelProviders = providers

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics

	a.initializeServices()
	if err := a.setupRouter(); err != nil {
		return nil, err
	}
	a.createServer()

	return a, nil
}

// initializeServices wires the domain components together
func (a *Application) initializeServices() {
	a.Catalog = sectors.Default()

	a.Display = display.New(a.Logger)
	a.WebSocketHub = ws.NewHub(a.Logger)
	a.Display.Subscribe(a.WebSocketHub.PublishSnapshot)

	clientOpts := []alphavantage.Option{
		alphavantage.WithLogger(a.Logger),
		alphavantage.WithMetrics(a.Metrics),
	}
	if a.httpClient != nil {
		clientOpts = append(clientOpts, alphavantage.WithHTTPClient(a.httpClient))
	}
	a.Client = alphavantage.NewClient(a.Config.AlphaVantage, clientOpts...)

	a.Orchestrator = search.NewOrchestrator(a.Client, a.Catalog, a.Display,
		search.WithLogger(a.Logger),
		search.WithMetrics(a.Metrics),
		search.WithBaseContext(a.baseCtx))

	a.ExportService = services.NewExportService(a.Display, a.Paths, a.Config.Export.Format, a.Logger, a.Metrics)
	a.HealthService = services.NewHealthService(a.Display, a.WebSocketHub, a.Paths.ExportsDir, a.Logger)

	a.ErrorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Level == "debug")
	a.Validator = customMiddleware.NewValidator(a.Logger)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// These don't wrap the ResponseWriter, so the websocket upgrade still sees a Hijacker.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Handle("/ws", ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger))
	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.ErrorHandler))

	var frontend http.Handler
	if a.FrontendFS != nil {
		fh, err := handlers.NewFrontendHandler(a.FrontendFS, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to load frontend: %w", err)
		}
		frontend = fh
	} else {
		a.Logger.Warn("Frontend filesystem not available, serving the API only")
	}

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → rate limit
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.corsConfig()))

		if rl := a.Config.Security.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
		}

		a.setupAPIRoutes(r)

		if frontend != nil {
			r.Handle("/*", frontend)
		}
	})

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	searchHandler := handlers.NewSearchHandler(a.Orchestrator, a.Display, a.Catalog, a.Validator, a.ErrorHandler, a.Logger)
	exportHandler := handlers.NewExportHandler(a.ExportService, a.Validator, a.ErrorHandler, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/version", healthHandler.Version)

		r.Get("/sectors", searchHandler.ListSectors)
		r.Post("/search", searchHandler.StartSearch)
		r.Get("/results", searchHandler.GetResults)

		r.Mount("/export", exportHandler.Routes())
	})
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	origins := append([]string{
		fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
		fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
	}, a.Config.Security.AllowedOrigins...)

	return customMiddleware.CORSConfig{
		AllowedOrigins: origins,
		Logger:         a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// URL is the address the UI is reachable at.
func (a *Application) URL() string {
	host := a.Config.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, a.Config.Server.Port)
}

// StartBackground starts the display loop and the websocket hub.
func (a *Application) StartBackground() {
	go a.Display.Run(context.Background())
	a.WebSocketHub.Start()
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.StartBackground()

	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))
	if a.Config.AlphaVantage.UsesDemoKey() {
		a.Logger.WarnContext(ctx, "Using the Alpha Vantage demo key, only IBM is served",
			slog.String("override", config.APIKeyEnv))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if a.OpenBrowser {
		g.Go(func() error {
			a.openWhenReady(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("Received shutdown signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		return a.Stop(shutdownCtx)
	})

	return g.Wait()
}

// Stop gracefully stops the application. A running search stops before its next symbol.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.cancelBase()
	a.Orchestrator.Wait()
	a.Display.Stop()
	a.WebSocketHub.Stop()

	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// openWhenReady polls the health endpoint and opens the browser once it answers.
func (a *Application) openWhenReady(ctx context.Context) {
	url := a.URL()
	healthURL := url + "/api/health"
	client := &http.Client{Timeout: time.Second}

	const maxRetries = 10
	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				if err := openBrowser(ctx, url); err != nil {
					a.Logger.WarnContext(ctx, "Failed to open browser",
						slog.String("error", err.Error()),
						slog.String("url", url))
					fmt.Printf("\n%s is running. Open %s in your browser.\n\n", config.AppName, url)
				}
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}
	}

	a.Logger.WarnContext(ctx, "Server did not become ready for browser opening",
		slog.String("url", url),
		slog.Int("max_retries", maxRetries))
}

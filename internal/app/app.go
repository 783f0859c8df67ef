package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/config"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/errors"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/exporter"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/infrastructure"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/ingest"
	customMiddleware "github.com/PauloMoekotte/Herkomst-ROC/internal/middleware"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/services"
	handlers "github.com/PauloMoekotte/Herkomst-ROC/internal/transport/http"
	ws "github.com/PauloMoekotte/Herkomst-ROC/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config         *config.Config
	Router         *chi.Mux
	Server         *http.Server
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
	Metrics        *infrastructure.DomainMetrics
	ErrorHandler   *errors.ErrorHandler
	Registry       *dashboard.Registry
	DatasetService *services.DatasetService
	HealthService  *services.HealthService
	WebSocketHub   *ws.Hub
}

// NewApplication loads the configuration, initializes the global logger and
// wires every component
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.NewConfigError("failed to load configuration", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return NewApplicationWithConfig(cfg, logger)
}

// NewApplicationWithConfig wires the application from an explicit
// configuration and logger
func NewApplicationWithConfig(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.Version),
		slog.String("commit", config.Commit))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateDomainMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create domain metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// BuildRegistry creates the dashboards with the configured limits and encodings
func BuildRegistry(cfg *config.Config) (*dashboard.Registry, error) {
	encodings := make([]ingest.Encoding, 0, len(cfg.Ingest.Encodings))
	for _, name := range cfg.Ingest.Encodings {
		enc, err := ingest.ParseEncoding(name)
		if err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("invalid ingest encoding %q", name), err)
		}
		encodings = append(encodings, enc)
	}

	return dashboard.NewRegistry(
		dashboard.NewHerkomst(dashboard.HerkomstOptions{
			TableLimit: cfg.Dashboard.TableLimit,
			TopN:       cfg.Dashboard.TopN,
			Encodings:  encodings,
		}),
		dashboard.NewArbeidsmarkt(encodings...),
		dashboard.NewInstroom(),
	), nil
}

// DatasetOptions maps the configuration onto the dataset service options
func DatasetOptions(cfg *config.Config) services.DatasetOptions {
	return services.DatasetOptions{
		MaxFiles:    cfg.Ingest.MaxFiles,
		CacheTTL:    cfg.Cache.TTL,
		MaxEntries:  cfg.Cache.MaxEntries,
		Exporter:    exporter.Options{BOMPrefix: cfg.Dashboard.ExportBOM},
		ChartWidth:  cfg.Dashboard.ChartWidth,
		ChartHeight: cfg.Dashboard.ChartHeight,
	}
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	registry, err := BuildRegistry(a.Config)
	if err != nil {
		return err
	}
	a.Registry = registry

	a.DatasetService = services.NewDatasetService(registry, DatasetOptions(a.Config), a.Metrics, a.Logger)

	hub := ws.NewHub(a.Metrics, a.Logger)
	hub.Start()
	a.WebSocketHub = hub
	a.DatasetService.OnInvalidate(hub.Invalidated)

	a.HealthService = services.NewHealthService(
		config.Version,
		config.Commit,
		config.BuildTime,
		a.DatasetService,
		hub,
		a.Logger,
	)

	a.ErrorHandler = errors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	handlers.RegisterErrorMappings(a.ErrorHandler)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Only middleware that leaves the ResponseWriter hijackable runs before the live view
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	liveHandler := ws.NewHandler(a.WebSocketHub, a.DatasetService, ws.HandlerOptions{
		AllowedOrigins:  a.Config.Security.AllowedOrigins,
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		PongWait:        a.Config.WebSocket.PongWait,
		PingPeriod:      a.Config.WebSocket.PingPeriod,
	}, a.ErrorHandler, a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).
		Get("/ws/dashboards/{dashboard}/datasets/{id}", liveHandler.ServeHTTP)

	// Prometheus scrape endpoint stays outside the traced group
	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.ErrorHandler))

	r.Group(func(r chi.Router) {
		// OTel → Logger → Recoverer → headers → CORS → rate limit → Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		r.Get("/", handlers.ServeIndex(a.DatasetService, a.Logger))
		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/ready", healthHandler.ReadinessCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/version", healthHandler.Version)
		})

		dashboardHandler := handlers.NewDashboardHandler(a.DatasetService, handlers.DashboardOptions{
			MaxUploadBytes: a.Config.Ingest.MaxUploadBytes,
			MaxFiles:       a.Config.Ingest.MaxFiles,
		}, a.Logger, a.ErrorHandler)
		r.Mount("/dashboards", dashboardHandler.Routes())
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			"Location",
			"X-Request-ID",
			"X-Row-Count",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
	a.Logger.Info("CORS configured", slog.Any("allowed_origins", cfg.AllowedOrigins))
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the HTTP server in the background. A listen failure cancels ctx.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.Version),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()
	a.DatasetService.Close()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}

// Run runs the application until interrupted or the server fails
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.ErrorContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck loads the built-in datasets so a broken embedded
// dataset shows up at startup instead of on the first request
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var failed []string
	for _, info := range a.DatasetService.Dashboards() {
		if !info.HasDefault {
			continue
		}
		summary, err := a.DatasetService.Summary(ctx, info.Name, dashboard.DefaultDatasetID)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", info.Name, err))
			continue
		}
		a.Logger.InfoContext(ctx, "Built-in dataset loaded",
			slog.String("dashboard", info.Name),
			slog.Int("rows", summary.Rows))
	}
	if len(failed) > 0 {
		return fmt.Errorf("built-in datasets failed to load: %v", failed)
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}

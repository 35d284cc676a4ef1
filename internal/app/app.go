package app

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"contrib.go.opencensus.io/integrations/ocsql"

	"github.com/vizora/signage/config"
	"github.com/vizora/signage/internal/database"
	"github.com/vizora/signage/internal/domain"
	"github.com/vizora/signage/internal/repository"
	"github.com/vizora/signage/internal/service"
	"github.com/vizora/signage/pkg/breaker"
	"github.com/vizora/signage/pkg/cache"
	"github.com/vizora/signage/pkg/logger"
	"github.com/vizora/signage/pkg/templating"
	"github.com/vizora/signage/pkg/tracing"
)

// AppInterface defines the interface for the App
type AppInterface interface {
	Initialize() error
	// Start runs the refresh scheduler and blocks until Shutdown
	Start() error
	Shutdown(ctx context.Context) error

	// Getters for app components accessed in tests
	GetConfig() *config.Config
	GetLogger() logger.Logger
	GetDB() *sql.DB
	GetTemplateService() domain.TemplateService

	// Methods for initialization steps
	InitTracing() error
	InitDB() error
	InitRepositories() error
	InitServices() error
}

// App encapsulates the worker dependencies and configuration
type App struct {
	config *config.Config
	logger logger.Logger
	db     *sql.DB

	stopDBStats func()

	contentRepo domain.ContentRepository

	breakers        *breaker.Registry
	feedCache       *cache.InMemoryCache[domain.MapOfAny]
	widgets         *service.WidgetRegistry
	fetcher         *service.DataFetcherService
	renderer        *templating.Renderer
	refreshService  *service.TemplateRefreshService
	scheduler       *service.RefreshScheduler
	templateService *service.TemplateService

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	shutdownOnce   sync.Once
}

// AppOption defines a functional option for configuring the App
type AppOption func(*App)

// WithMockDB configures the app to use a mock database
func WithMockDB(db *sql.DB) AppOption {
	return func(a *App) {
		a.db = db
	}
}

// WithLogger sets a custom logger
func WithLogger(logger logger.Logger) AppOption {
	return func(a *App) {
		a.logger = logger
	}
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, opts ...AppOption) AppInterface {
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	app := &App{
		config:         cfg,
		logger:         logger.NewLoggerWithLevel(cfg.LogLevel),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// InitTracing initializes OpenCensus tracing
func (a *App) InitTracing() error {
	tracingConfig := &a.config.Tracing

	if err := tracing.InitTracing(tracingConfig, a.logger); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if tracingConfig.Enabled {
		a.logger.WithField("trace_exporter", tracingConfig.TraceExporter).
			WithField("metrics_exporter", tracingConfig.MetricsExporter).
			WithField("sampling_rate", tracingConfig.SamplingProbability).
			Info("Tracing initialized successfully")
	}

	return nil
}

// InitDB initializes the database connection. A connection injected with
// WithMockDB is kept as is.
func (a *App) InitDB() error {
	if a.db != nil {
		return nil
	}

	dbCfg := &a.config.Database
	password := dbCfg.Password
	maskedPassword := ""
	if len(password) > 0 {
		maskedPassword = fmt.Sprintf("%c...%c", password[0], password[len(password)-1])
	}
	a.logger.Info(fmt.Sprintf("Connecting to database %s:%d, user %s, sslmode %s, password: %s, dbname: %s", dbCfg.Host, dbCfg.Port, dbCfg.User, dbCfg.SSLMode, maskedPassword, dbCfg.DBName))

	if err := database.EnsureDatabaseExists(dbCfg); err != nil {
		a.logger.Error(err.Error())
		return fmt.Errorf("failed to ensure database exists: %w", err)
	}

	// If tracing is enabled, wrap the postgres driver
	driverName := database.DriverName
	if a.config.Tracing.Enabled {
		var err error
		driverName, err = ocsql.Register(driverName, ocsql.WithAllTraceOptions())
		if err != nil {
			return fmt.Errorf("failed to register opencensus sql driver: %w", err)
		}
		a.logger.Info("Database driver wrapped with OpenCensus tracing")
	}

	db, err := database.Connect(dbCfg, driverName)
	if err != nil {
		return err
	}

	if err := database.InitializeDatabase(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	if a.config.Tracing.Enabled {
		a.stopDBStats = ocsql.RecordStats(db, 5*time.Second)
	}

	a.db = db
	return nil
}

// InitRepositories initializes all repositories
func (a *App) InitRepositories() error {
	if a.db == nil {
		return fmt.Errorf("database must be initialized before repositories")
	}

	a.contentRepo = repository.NewContentRepository(a.db)
	return nil
}

// InitServices wires the rendering engine
func (a *App) InitServices() error {
	if a.contentRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	a.breakers = breaker.NewRegistry(breaker.Settings{
		FailureThreshold: a.config.Breaker.FailureThreshold,
		FailureWindow:    a.config.Breaker.FailureWindow,
		ResetTimeout:     a.config.Breaker.ResetTimeout,
		SuccessThreshold: a.config.Breaker.SuccessThreshold,
	}, a.logger)

	a.feedCache = cache.NewInMemoryCache[domain.MapOfAny](time.Minute)
	rss := service.NewRSSWidget(service.RSSWidgetConfig{
		Timeout:  a.config.Widget.FeedTimeout,
		CacheTTL: a.config.Widget.CacheTTL,
	}, a.breakers, a.feedCache, a.logger)
	a.widgets = service.NewWidgetRegistry(rss)

	a.fetcher = service.NewDataFetcherService(service.DataFetcherConfig{
		Timeout:      a.config.Fetch.Timeout,
		UserAgent:    a.config.Fetch.UserAgent,
		RequireHTTPS: a.config.IsProduction(),
	}, a.breakers, a.widgets, a.logger)

	a.renderer = templating.NewRenderer(
		templating.NewHelperRegistry(),
		templating.WithRenderTimeout(a.config.Render.Timeout),
		templating.WithMaxTemplateSize(a.config.Render.MaxTemplateSize),
	)

	a.refreshService = service.NewTemplateRefreshService(a.contentRepo, a.fetcher, a.renderer, a.logger, a.config.Refresh.Concurrency)
	a.templateService = service.NewTemplateService(a.contentRepo, a.fetcher, a.renderer, a.refreshService, a.breakers, a.logger)

	scheduler, err := service.NewRefreshScheduler(a.refreshService, a.logger, a.config.Refresh.Schedule)
	if err != nil {
		return err
	}
	a.scheduler = scheduler

	a.logger.WithField("widgets", a.widgets.Types()).
		WithField("concurrency", a.config.Refresh.Concurrency).
		Info("Template engine initialized")
	return nil
}

// Initialize sets up all components of the application
func (a *App) Initialize() error {
	a.logger.WithField("version", a.config.Version).Info("Starting signage worker")

	if err := a.InitTracing(); err != nil {
		return err
	}

	if err := a.InitDB(); err != nil {
		return err
	}

	if err := a.InitRepositories(); err != nil {
		return err
	}

	if err := a.InitServices(); err != nil {
		return err
	}

	a.logger.Info("Application successfully initialized")
	return nil
}

func (a *App) Start() error {
	if a.scheduler == nil {
		return fmt.Errorf("services must be initialized before start")
	}

	if a.config.Refresh.Enabled {
		a.scheduler.Start(a.shutdownCtx)
	} else {
		a.logger.Warn("Template refresh is disabled, worker is idle")
	}

	<-a.shutdownCtx.Done()
	return nil
}

// Shutdown stops the scheduler, waiting for the running batch, then
// releases resources
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.shutdownOnce.Do(func() {
		a.logger.Info("Starting graceful shutdown...")

		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			if a.scheduler != nil {
				a.scheduler.Stop()
			}
		}()

		select {
		case <-stopped:
		case <-ctx.Done():
			a.logger.Warn("Shutdown timeout reached")
			err = fmt.Errorf("shutdown timeout exceeded")
		}

		a.shutdownCancel()

		if cleanupErr := a.cleanupResources(); cleanupErr != nil && err == nil {
			err = cleanupErr
		}

		if err != nil {
			a.logger.WithField("error", err).Error("Graceful shutdown completed with errors")
		} else {
			a.logger.Info("Graceful shutdown completed successfully")
		}
	})
	return err
}

// cleanupResources handles cleanup of database and other resources
func (a *App) cleanupResources() error {
	a.logger.Info("Cleaning up resources...")

	if a.feedCache != nil {
		a.feedCache.Stop()
	}

	if a.stopDBStats != nil {
		a.stopDBStats()
	}

	if a.db != nil {
		a.logger.Info("Closing database connection")
		if err := a.db.Close(); err != nil {
			a.logger.WithField("error", err).Error("Error closing database connection")
			return err
		}
	}

	a.logger.Info("Resource cleanup completed")
	return nil
}

// GetConfig returns the app's configuration
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetLogger returns the app's logger
func (a *App) GetLogger() logger.Logger {
	return a.logger
}

// GetDB returns the app's database connection
func (a *App) GetDB() *sql.DB {
	return a.db
}

func (a *App) GetTemplateService() domain.TemplateService {
	if a.templateService == nil {
		return nil
	}
	return a.templateService
}

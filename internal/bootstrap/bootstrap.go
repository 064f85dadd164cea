// Package bootstrap assembles the scrape and sync pipeline shared by the API
// server and the command line tool.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/browser"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/calendar"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/dto"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/repository"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/service"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/cache"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/config"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/database"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/export"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/logger"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/secret"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/storage"
)

// Check reports whether a backing dependency is reachable.
type Check func(ctx context.Context) error

// App holds the wired services. Close releases browsers and connections.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *service.MetricsService
	Validate *validator.Validate
	Cookies  *repository.CookieRepository
	Schedule *service.ScheduleService
	Export   *service.ExportService
	Chrome   browser.ChromeConfig
	Checks   map[string]Check
	closers  []func()
}

// New opens every store and builds the pipeline.
func New(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*App, error) {
	app := &App{
		Config:   cfg,
		Logger:   logr,
		Metrics:  service.NewMetricsService(),
		Validate: dto.NewValidator(),
		Checks:   map[string]Check{},
	}

	store, db, err := openSnapshotStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store (%s): %w", cfg.Snapshot.Driver, err)
	}
	if db != nil {
		app.onClose(func() { _ = db.Close() })
		app.Checks["database"] = db.PingContext
	}

	var scheduleCache *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis, cfg.Cache)
	if err != nil {
		logr.Sugar().Warnw("schedule cache disabled", "error", err)
	}
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient)
		app.onClose(func() { _ = cacheRepo.Close() })
		app.Checks["redis"] = cacheRepo.Ping
		scheduleCache = service.NewCacheService(cacheRepo, app.Metrics, cfg.Cache.TTL, logger.Named(logr, "cache"), true)
	}

	app.Cookies, err = openCookieStore(cfg, logr)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("open cookie store: %w", err)
	}

	app.Chrome = browser.ChromeConfig{
		URL:             cfg.Timetable.URL,
		Headless:        cfg.Browser.Headless,
		ExecPath:        cfg.Browser.ExecPath,
		ResultsSelector: cfg.Timetable.ResultsSelector,
		SignInMarker:    cfg.Timetable.SignInMarker,
	}
	chromeLogger := logger.Named(logr, "chrome")
	pool := browser.NewPool(cfg.Browser.PoolSize, func() (browser.Session, error) {
		return browser.NewChrome(app.Chrome, app.Cookies, chromeLogger)
	}, logger.Named(logr, "browser"))
	app.onClose(pool.Close)

	planner, err := service.NewSyncPlanner(service.SyncPlannerConfig{
		CalendarID:  cfg.Calendar.ID,
		TimeZone:    cfg.Calendar.TimeZone,
		Concurrency: cfg.Calendar.Concurrency,
		RemoteLabel: cfg.Calendar.RemoteLabel,
		OnsiteLabel: cfg.Calendar.OnsiteLabel,
	}, app.Metrics, logger.Named(logr, "sync"))
	if err != nil {
		app.Close()
		return nil, err
	}

	deps := service.ScheduleServiceDeps{
		Pool:      pool,
		Fetcher:   service.NewPageFetcher(service.NewAuthGate(cfg.Timetable.SignInMarker), cfg.Timetable.ResultsSelector, app.Metrics, logger.Named(logr, "fetcher")),
		Extractor: service.NewRecordExtractor(cfg.Timetable.ResultsSelector, app.Metrics, logger.Named(logr, "extractor")),
		Store:     store,
		Planner:   planner,
		Calendars: calendar.NewFactory(calendar.Config{CalendarID: cfg.Calendar.ID, CallTimeout: cfg.Calendar.RequestLimit}, logger.Named(logr, "calendar")),
		Metrics:   app.Metrics,
	}
	if scheduleCache != nil {
		deps.Cache = scheduleCache
	}
	app.Schedule = service.NewScheduleService(deps, service.ScheduleServiceConfig{
		DefaultGroup:   cfg.Timetable.DefaultGroup,
		RequestTimeout: cfg.RequestTimeout,
		CacheTTL:       cfg.Cache.TTL,
		Fetch: service.FetchPolicy{
			MaxAttempts:    cfg.Timetable.MaxAttempts,
			Delay:          cfg.Timetable.RetryDelay,
			AttemptTimeout: cfg.Timetable.AttemptTimeout,
		},
	}, app.Validate, logger.Named(logr, "schedule"))

	app.Export = service.NewExportService(app.Schedule, export.NewCSVExporter(), export.NewPDFExporter(cfg.Export.FontPath), app.Validate, logger.Named(logr, "export"))
	return app, nil
}

// NewAuthService builds the token service of the optional API guard.
func (a *App) NewAuthService() *service.AuthService {
	return service.NewAuthService(logger.Named(a.Logger, "auth"), service.AuthConfig{
		AccessTokenSecret: a.Config.JWT.Secret,
		AccessTokenExpiry: a.Config.JWT.Expiration,
		Issuer:            a.Config.JWT.Issuer,
	})
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func openSnapshotStore(ctx context.Context, cfg *config.Config) (service.ScheduleStore, *sqlx.DB, error) {
	switch cfg.Snapshot.Driver {
	case config.SnapshotDriverPostgres, config.SnapshotDriverSQLite:
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewSnapshotSQLRepository(db, cfg.Snapshot.Scope)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repo, db, nil
	case config.SnapshotDriverFile, "":
		files, err := storage.NewLocalStorage(filepath.Dir(cfg.Snapshot.Path))
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSnapshotFileRepository(files, filepath.Base(cfg.Snapshot.Path)), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown snapshot driver %q", cfg.Snapshot.Driver)
	}
}

func openCookieStore(cfg *config.Config, logr *zap.Logger) (*repository.CookieRepository, error) {
	sealer, err := secret.ResolveSealer(cfg.Cookies.Secret, cfg.Cookies.UseKeyring)
	if err != nil {
		return nil, err
	}
	if sealer == nil {
		logr.Sugar().Warnw("session cookies are stored unencrypted; set COOKIE_SECRET or COOKIE_KEYRING", "path", cfg.Cookies.Path)
	}
	files, err := storage.NewLocalStorage(filepath.Dir(cfg.Cookies.Path))
	if err != nil {
		return nil, err
	}
	return repository.NewCookieRepository(files, filepath.Base(cfg.Cookies.Path), sealer, logger.Named(logr, "cookies")), nil
}

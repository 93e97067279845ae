package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	app "github.com/R3E-Network/records_service/internal/app"
	"github.com/R3E-Network/records_service/internal/app/httpapi"
	"github.com/R3E-Network/records_service/internal/app/metrics"
	"github.com/R3E-Network/records_service/internal/app/storage"
	"github.com/R3E-Network/records_service/internal/app/storage/memory"
	"github.com/R3E-Network/records_service/internal/app/storage/postgres"
	redisstore "github.com/R3E-Network/records_service/internal/app/storage/redis"
	"github.com/R3E-Network/records_service/internal/config"
	"github.com/R3E-Network/records_service/internal/middleware"
	"github.com/R3E-Network/records_service/internal/platform/migrations"
	"github.com/R3E-Network/records_service/pkg/logger"
)

const limiterCleanupInterval = time.Minute

// Application wires configuration, storage, the domain application and the
// HTTP server, and manages their lifecycle.
type Application struct {
	cfg     *config.Config
	log     *logger.Logger
	app     *app.Application
	server  *httpServer
	handler http.Handler
	closers []io.Closer
}

// NewApplication constructs the runtime from cfg. A nil cfg uses defaults.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})
	return newApplication(cfg, log)
}

func newApplication(cfg *config.Config, log *logger.Logger) (*Application, error) {
	rt := &Application{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			rt.closeAll()
		}
	}()

	store, err := rt.buildStore()
	if err != nil {
		return nil, fmt.Errorf("configure storage: %w", err)
	}

	application, err := app.New(app.Stores{Records: store}, log.Named("app"), app.Options{
		HashCost:       cfg.Security.HashCost,
		SampleSchedule: cfg.Stats.Schedule,
	})
	if err != nil {
		return nil, err
	}
	rt.app = application

	sink, sinkCloser, err := httpapi.NewFileAuditSink(cfg.Audit.File)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	if sinkCloser != nil {
		rt.closers = append(rt.closers, sinkCloser)
	}

	api, err := httpapi.NewHandler(application,
		httpapi.WithLogger(log.Named("httpapi")),
		httpapi.WithRouter(cfg.Server.Router),
		httpapi.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		httpapi.WithAuditLog(httpapi.NewAuditLog(cfg.Audit.Max, sink)),
	)
	if err != nil {
		return nil, err
	}

	mws := []func(http.Handler) http.Handler{
		middleware.NewTracingMiddleware(log.Named("http")).Handler,
		middleware.Recover(log.Named("recover")),
		middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins).Handler,
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log.Named("ratelimit"))
		mws = append(mws, limiter.Handler)
		if err := application.Attach(newLimiterJanitor(limiter, limiterCleanupInterval)); err != nil {
			return nil, err
		}
	}
	mws = append(mws, metrics.InstrumentHandler)
	rt.handler = middleware.Chain(api, mws...)

	rt.server = newHTTPServer(cfg.Server, rt.handler, log.Named("http-server"))
	if err := application.Attach(rt.server); err != nil {
		return nil, err
	}
	ok = true
	return rt, nil
}

func (a *Application) buildStore() (storage.RecordStore, error) {
	switch strings.ToLower(a.cfg.Storage.Backend) {
	case "", "memory":
		return memory.New(), nil
	case "postgres":
		db, err := openDatabase(a.cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		return a.postgresStore(db)
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		a.closers = append(a.closers, client)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis %s: %w", a.cfg.Redis.Addr, err)
		}
		return redisstore.New(client, a.cfg.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}
}

// migrateSchema is swapped in tests that have no live database.
var migrateSchema = migrations.Migrate

// postgresStore brings the schema up to date when auto_migrate is set. It
// uses the same versioned path as "recordsd migrate".
func (a *Application) postgresStore(db *sql.DB) (storage.RecordStore, error) {
	if a.cfg.Database.AutoMigrate {
		if err := migrateSchema(db, migrations.Up); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}
	return postgres.New(db), nil
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn not configured")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *Application) Handler() http.Handler { return a.handler }

// Addr returns the address the HTTP server is bound to.
func (a *Application) Addr() string { return a.server.Addr() }

// Run starts all services and blocks until ctx is cancelled or the HTTP
// server fails. It does not stop services; call Shutdown.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil
	case err, ok := <-a.server.Errors():
		if !ok {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}

// Shutdown stops every service in reverse start order and releases storage
// connections.
func (a *Application) Shutdown(ctx context.Context) error {
	err := a.app.Stop(ctx)
	a.closeAll()
	return err
}

func (a *Application) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.WithError(err).Warn("error closing resource")
		}
	}
	a.closers = nil
}

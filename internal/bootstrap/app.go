package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/research-hub/config"
	"github.com/GoSim-25-26J-441/research-hub/internal/db"
	"github.com/GoSim-25-26J-441/research-hub/internal/metrics"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote/events"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote/firebase"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote/memory"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote/postgres"
	"github.com/GoSim-25-26J-441/research-hub/internal/scheduler"
	"github.com/GoSim-25-26J-441/research-hub/internal/snapshot"
	"github.com/GoSim-25-26J-441/research-hub/internal/store"
)

const defaultClientID = "research-hub"

// App holds everything a running server needs.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Auth      *store.AuthStore
	Projects  *store.ProjectStore
	Scheduler *scheduler.Scheduler // nil when sync is disabled
	DB        *db.DB               // nil for the memory remote

	closers []func() error
}

// NewApp wires the remote service and both stores from cfg. On error every
// resource opened so far is released.
func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (app *App, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app = &App{Config: cfg, Log: log, Registry: reg, Metrics: metrics.New(reg)}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		app.onClose(rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return app, fmt.Errorf("redis ping: %w", err)
		}
	}

	hub := newHub(cfg, rdb, log)
	app.onClose(hub.Close)

	storage, err := newStorage(cfg, rdb)
	if err != nil {
		return app, err
	}

	svc, err := app.newRemote(ctx, hub, storage)
	if err != nil {
		return app, err
	}

	guarded := remote.Guard(svc, remote.GuardOptions{
		Name:    "remote",
		Timeout: cfg.Remote.BreakerTimeout,
		Observe: app.Metrics.ObserveRemote,
		OnStateChange: func(name string, from, to gobreaker.State) {
			app.Metrics.BreakerChanged(name, from, to)
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	opts := []store.Option{
		store.WithLogger(log),
		store.WithStorage(storage),
		store.WithObserver(app.Metrics.ObserveStore),
	}
	app.Auth = store.NewAuthStore(guarded, opts...)
	app.Projects = store.NewProjectStore(guarded, app.Auth, opts...)
	app.onClose(func() error {
		app.Projects.Close()
		app.Auth.Close()
		return nil
	})

	if cfg.Sync.Enabled {
		app.Scheduler, err = scheduler.New(cfg.Sync.Schedule, app.Projects, app.Auth,
			scheduler.WithLogger(log), scheduler.WithMetrics(app.Metrics))
		if err != nil {
			return app, err
		}
	}

	log.Info("application wired",
		zap.String("remote", cfg.Remote.Backend),
		zap.String("snapshots", cfg.Snapshot.Backend),
		zap.String("events", cfg.Events.Backend),
		zap.Bool("sync", cfg.Sync.Enabled))
	return app, nil
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *App) newRemote(ctx context.Context, hub events.Hub, storage snapshot.Storage) (remote.Service, error) {
	cfg := a.Config
	if cfg.Remote.Backend == config.RemoteMemory {
		return memory.New(memory.WithHub(hub)), nil
	}

	pool, err := db.Open(ctx, db.Options{
		DSN:      cfg.Database.DSN(),
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, err
	}
	a.DB = pool
	a.onClose(func() error { pool.Close(); return nil })

	var sqlDB *sql.DB
	if sqlDB, err = postgres.Connect(ctx, cfg.Database.DSN(), cfg.Database.MaxConns); err != nil {
		return nil, err
	}
	a.onClose(sqlDB.Close)

	admin, err := firebase.NewAdmin(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return nil, err
	}
	toolkit, err := firebase.NewToolkit(ctx, cfg.Firebase.APIKey)
	if err != nil {
		return nil, err
	}
	creds := firebase.NewCredentials(toolkit, admin, storage, hub, firebase.WithLogger(a.Log))
	return remote.Compose(creds, postgres.New(sqlDB)), nil
}

func newHub(cfg *config.Config, rdb *redis.Client, log *zap.Logger) events.Hub {
	if cfg.Events.Backend != config.EventsRedis {
		return events.NewLocalHub()
	}
	clientID := cfg.Events.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}
	return events.NewRedisHub(rdb, clientID, log)
}

func newStorage(cfg *config.Config, rdb *redis.Client) (snapshot.Storage, error) {
	switch cfg.Snapshot.Backend {
	case config.SnapshotMemory:
		return snapshot.NewMemory(), nil
	case config.SnapshotRedis:
		return snapshot.NewRedis(rdb, cfg.Snapshot.Prefix, cfg.Snapshot.TTL), nil
	}
	dir := cfg.Snapshot.Dir
	if dir == "" {
		d, err := snapshot.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return snapshot.NewFile(dir)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/monocle-dev/statuswatch/db"
	"github.com/monocle-dev/statuswatch/internal/config"
	"github.com/monocle-dev/statuswatch/internal/incidents"
	"github.com/monocle-dev/statuswatch/internal/live"
	"github.com/monocle-dev/statuswatch/internal/lock"
	"github.com/monocle-dev/statuswatch/internal/logger"
	"github.com/monocle-dev/statuswatch/internal/monitors"
	"github.com/monocle-dev/statuswatch/internal/retention"
	"github.com/monocle-dev/statuswatch/internal/scheduler"
	"github.com/monocle-dev/statuswatch/internal/services"
	"github.com/monocle-dev/statuswatch/internal/store"
	"gorm.io/gorm"
)

// app holds the wiring shared by every command.
type app struct {
	cfg   *config.Config
	log   logger.Logger
	db    *gorm.DB
	store *store.GormStore
	redis *redis.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load(config.Options{File: configFile, EnvFile: envFile})
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	conn, err := db.ConnectDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, db: conn, store: store.NewGormStore(conn)}

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}

func (a *app) ping(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (a *app) locker() lock.Locker {
	if a.redis != nil {
		a.log.Info("using redis cycle lock", "addr", a.cfg.Redis.Addr)
		return lock.NewRedis(a.redis)
	}
	return lock.NewLocal()
}

func (a *app) mailer() services.Mailer {
	if a.cfg.Email.ResendAPIKey == "" {
		a.log.Warn("no email provider configured, subscriber emails will only be logged")
		return services.NewLogMailer(a.log)
	}
	return services.NewResendMailer(a.cfg.Email.ResendAPIKey, &http.Client{Timeout: a.cfg.Notify.HTTPTimeout})
}

func (a *app) dispatcher() *services.Dispatcher {
	return services.NewDispatcher(a.store, a.mailer(), a.log.With("component", "dispatcher"), services.DispatcherConfig{
		AppURL:          a.cfg.AppURL,
		FromDomain:      a.cfg.Email.FromDomain,
		EmailBatchSize:  a.cfg.Email.BatchSize,
		ChannelCacheTTL: a.cfg.Notify.ChannelCacheTTL,
		HTTPTimeout:     a.cfg.Notify.HTTPTimeout,
	})
}

func (a *app) engine() *incidents.Engine {
	return incidents.NewEngine(a.store, a.log.With("component", "incidents"))
}

// runner builds the scheduler pipeline. hub may be nil when nothing serves the live feed.
func (a *app) runner(notifier scheduler.Notifier, hub *live.Hub) *scheduler.Runner {
	prober := monitors.NewProber(
		monitors.WithRetry(a.cfg.Probe.RetryCount, a.cfg.Probe.RetryDelay),
		monitors.WithDefaultTimeout(a.cfg.Probe.DefaultTimeout),
		monitors.WithDegradedThreshold(a.cfg.Probe.DegradedThreshold),
	)

	opts := []scheduler.Option{scheduler.WithBatchSize(a.cfg.Scheduler.BatchSize)}
	if hub != nil {
		opts = append(opts, scheduler.WithPublisher(hub))
	}

	s := scheduler.NewScheduler(a.store, prober, a.engine(), notifier, a.log.With("component", "scheduler"), opts...)
	sweeper := retention.NewSweeper(a.store, a.log.With("component", "retention"), a.cfg.Retention.Days)

	return scheduler.NewRunner(s, sweeper, a.locker(), a.cfg.Lock.TTL, a.log)
}

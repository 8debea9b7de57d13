package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hyperengineering/pulse/internal/archive"
	"github.com/hyperengineering/pulse/internal/coach"
	"github.com/hyperengineering/pulse/internal/config"
	"github.com/hyperengineering/pulse/internal/goals"
	"github.com/hyperengineering/pulse/internal/lock"
	"github.com/hyperengineering/pulse/internal/metrics"
	"github.com/hyperengineering/pulse/internal/reminder"
	"github.com/hyperengineering/pulse/internal/store"
)

// app holds the wired engine components shared by the server and the
// offline commands.
type app struct {
	store   *store.SQLiteStore
	metrics *metrics.Metrics
	engine  *reminder.Engine
	goals   *goals.Scheduler
	locker  lock.Locker
	redis   *redis.Client
}

// newApp opens the store and wires the engine. serving enables metrics and
// the configured tick lock; offline commands get neither.
func newApp(ctx context.Context, cfg *config.Config, serving bool) (*app, error) {
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	a := &app{store: db, locker: lock.NewLocal()}

	archiver, err := archive.New(cfg.Archive)
	if err != nil {
		db.Close()
		return nil, err
	}

	var c coach.Coach = coach.Static{}
	if cfg.Coach.APIKey != "" {
		ai := coach.NewOpenAI(cfg.Coach.APIKey, cfg.Coach.Model)
		slog.Info("coach initialized", "model", ai.ModelName())
		c = ai
	}

	if serving {
		a.metrics = metrics.New()

		if cfg.Lock.RedisAddr != "" {
			a.redis = lock.NewRedisClient(cfg.Lock.RedisAddr, cfg.Lock.RedisPassword, cfg.Lock.RedisDB)
			rl := lock.NewRedis(a.redis, cfg.Lock.Key, time.Duration(cfg.Lock.TTL))
			if err := rl.Ping(ctx); err != nil {
				a.close()
				return nil, fmt.Errorf("connect to redis: %w", err)
			}
			a.locker = rl
			slog.Info("tick lock initialized", "backend", "redis", "key", cfg.Lock.Key)
		}
	}

	a.engine = reminder.NewEngine(db,
		reminder.WithCategories(cfg.CategoryMap()),
		reminder.WithRetention(time.Duration(cfg.Alerts.Retention)),
		reminder.WithArchiver(archiver),
		reminder.WithMetrics(a.metrics),
	)
	a.goals = goals.NewScheduler(db,
		goals.WithCoach(c),
		goals.WithMetrics(a.metrics),
	)
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}
}

package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// runtime owns the connections shared by every command.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	store  repository.Store

	postgres *persistence.Postgres
	mongo    *persistence.Mongo
	redis    *persistence.Redis
	nats     *persistence.NATS
}

func loadRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger}
	if err := rt.openStore(ctx); err != nil {
		rt.close(ctx)
		return nil, err
	}
	rt.redis = persistence.NewRedis(cfg.Redis, logger)
	return rt, nil
}

func (rt *runtime) openStore(ctx context.Context) error {
	switch rt.cfg.Storage.Driver {
	case config.StoragePostgres:
		pg, err := persistence.NewPostgres(ctx, rt.cfg.Postgres, rt.logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		rt.postgres = pg
		pool := pg.PoolHandle()
		rt.store = repository.Store{
			Tickets:    repository.NewTicketRepository(pool),
			Identities: repository.NewIdentityRepository(pool),
			Settings:   repository.NewSettingsRepository(pool),
		}
	case config.StorageMongo:
		m, err := persistence.NewMongo(ctx, rt.cfg.Mongo, rt.logger)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		rt.mongo = m
		rt.store = repository.NewMongoStore(m.Database())
	default:
		rt.logger.Warn("using in-memory storage; data is lost on restart")
		rt.store = repository.NewMemoryStore()
	}
	rt.logger.Info("storage ready", zap.String("driver", rt.cfg.Storage.Driver))
	return nil
}

// migrate prepares the schema of the configured backend.
func (rt *runtime) migrate(ctx context.Context) error {
	switch rt.cfg.Storage.Driver {
	case config.StoragePostgres:
		return persistence.RunMigrations(ctx, rt.postgres.PoolHandle(), rt.logger)
	case config.StorageMongo:
		if err := repository.EnsureMongoIndexes(ctx, rt.mongo.Database()); err != nil {
			return fmt.Errorf("ensure mongo indexes: %w", err)
		}
		rt.logger.Info("mongo indexes ensured")
		return nil
	default:
		rt.logger.Info("in-memory storage needs no migrations")
		return nil
	}
}

// dependencyChecks lists the readiness probes for what is actually in use.
func (rt *runtime) dependencyChecks() []handlers.DependencyCheck {
	var checks []handlers.DependencyCheck
	if rt.postgres != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "postgres", Ping: rt.postgres.Ping})
	}
	if rt.mongo != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "mongo", Ping: rt.mongo.Ping})
	}
	if rt.redis.Handle() != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Ping: rt.redis.Ping})
	}
	if rt.nats != nil && rt.nats.Conn != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "nats", Ping: func(context.Context) error { return rt.nats.Ping() }})
	}
	return checks
}

func (rt *runtime) close(ctx context.Context) {
	rt.nats.Close()
	rt.redis.Close()
	rt.mongo.Close(ctx)
	rt.postgres.Close()
	_ = rt.logger.Sync()
}

package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"propertychat/internal/client"
	"propertychat/internal/config"
	"propertychat/internal/repository"
	"propertychat/internal/service"
)

// buildDeps selects an adapter for every collaborator from cfg.Sources.
// The returned cleanup closes whatever connections were opened.
func buildDeps(ctx context.Context, cfg *config.Config, zl *zap.Logger) (service.Deps, func(), error) {
	deps := service.Deps{Logger: zl}
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				zl.Warn("close failed", zap.Error(err))
			}
		}
	}

	var backend *client.Backend
	if cfg.UsesBackend() {
		backend = client.NewBackend(cfg.Backend.URL, cfg.Backend.Timeout, zl.Named("backend"))
		zl.Info("using property backend", zap.String("url", cfg.Backend.URL))
	}

	var repo *repository.PostgresRepository
	if cfg.UsesPostgres() {
		var err error
		repo, err = repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			return deps, cleanup, err
		}
		closers = append(closers, repo.Close)
		if err := repo.EnsureSchema(ctx); err != nil {
			cleanup()
			return deps, func() {}, err
		}
		zl.Info("connected to PostgreSQL")
	}

	switch cfg.Sources.Interpreter {
	case "openai":
		interp, err := service.NewLLMInterpreter(cfg.OpenAI, zl.Named("interpreter"))
		if err != nil {
			cleanup()
			return deps, func() {}, err
		}
		deps.Interpreter = interp
	default:
		deps.Interpreter = backend
	}

	switch cfg.Sources.Catalog {
	case "postgres":
		deps.Catalog, deps.Filterer = repo, repo
	case "memory":
		// snapshot the backend catalog once and filter it in process
		props, err := backend.Catalog(ctx)
		if err != nil {
			cleanup()
			return deps, func() {}, fmt.Errorf("failed to load catalog: %w", err)
		}
		mem := service.NewMemoryFilter(props)
		deps.Catalog, deps.Filterer = mem, mem
		zl.Info("catalog loaded into memory", zap.Int("properties", len(props)))
	default:
		deps.Catalog, deps.Filterer = backend, backend
	}

	switch cfg.Sources.Profiles {
	case "postgres":
		deps.Profiles = repo
	case "backend":
		deps.Profiles = backend
	}

	switch cfg.Sources.Cache {
	case "redis":
		rc, err := repository.NewRedisCache(ctx, cfg.Cache.RedisURL, cfg.Cache.KeyPrefix, cfg.Cache.TTL)
		if err != nil {
			cleanup()
			return deps, func() {}, err
		}
		closers = append(closers, rc.Close)
		deps.Cache = rc
	case "memory":
		deps.Cache = repository.NewMemoryCache(cfg.Cache.KeyPrefix, cfg.Cache.TTL)
	}

	zl.Info("collaborators wired",
		zap.String("interpreter", cfg.Sources.Interpreter),
		zap.String("catalog", cfg.Sources.Catalog),
		zap.String("profiles", cfg.Sources.Profiles),
		zap.String("cache", cfg.Sources.Cache))

	return deps, cleanup, nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/fields"
	"github.com/joseph-ayodele/docforge/internal/pipeline"
	"github.com/joseph-ayodele/docforge/internal/postprocess"
	"github.com/joseph-ayodele/docforge/internal/reference"
	"github.com/joseph-ayodele/docforge/internal/repository"
	"github.com/joseph-ayodele/docforge/internal/schema"
)

// app is the fully wired pipeline plus the resources it holds open.
type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	store     *repository.Store
	schemas   *schema.Registry
	counter   repository.CounterRepository
	processor *pipeline.Processor
}

func openStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*repository.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := repository.HealthCheck(ctx, store, cfg.Database.DialTimeout, logger); err != nil {
		store.Close(logger)
		return nil, err
	}
	return store, nil
}

func loadSchemas(cfg *common.Config, logger *slog.Logger) (*schema.Registry, error) {
	reg := schema.NewRegistry(logger)
	types, err := schema.LoadInto(reg, cfg.Schema.Path)
	if err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}
	logger.Info("schemas loaded", "path", cfg.Schema.Path, "types", len(types))
	return reg, nil
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	reg, err := loadSchemas(cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	bindings, err := entityBindings(cfg, store, logger)
	if err != nil {
		store.Close(logger)
		return nil, err
	}

	counter := repository.NewCounterRepository(store.DB, store.Dialect, logger)
	resolver := reference.NewResolver(bindings, reference.DefaultTransforms(), logger,
		reference.WithConcurrency(cfg.Transform.LookupConcurrency))
	post := postprocess.Default(counter, logger, postprocess.Options{})

	proc, err := pipeline.New(reg, fields.NewSet(logger), resolver, post, pipeline.WithLogger(logger))
	if err != nil {
		store.Close(logger)
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		schemas:   reg,
		counter:   counter,
		processor: proc,
	}, nil
}

func (a *app) Close() {
	a.store.Close(a.logger)
}

// entityBindings binds database tables first, then fixture records for any
// entity type the tables do not cover.
func entityBindings(cfg *common.Config, store *repository.Store, logger *slog.Logger) (*reference.Bindings, error) {
	bindings := reference.NewBindings()

	if cfg.Reference.TablesPath != "" {
		tables, err := repository.LoadTableBindings(cfg.Reference.TablesPath)
		if err != nil {
			return nil, err
		}
		entities, err := repository.NewEntityRepository(store.DB, store.Dialect, tables, logger)
		if err != nil {
			return nil, fmt.Errorf("entity tables: %w", err)
		}
		if err := entities.Bind(bindings); err != nil {
			return nil, err
		}
	}

	if cfg.Reference.FixturesPath != "" {
		raw, err := os.ReadFile(cfg.Reference.FixturesPath)
		if err != nil {
			return nil, fmt.Errorf("read fixtures: %w", err)
		}
		var fixtures map[string][]map[string]any
		if err := json.Unmarshal(raw, &fixtures); err != nil {
			return nil, common.NewAppError("INVALID_INPUT", "parse fixtures", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
		}
		for entityType, records := range fixtures {
			if bindings.Supports(entityType) {
				logger.Warn("fixture shadowed by table binding", "entity_type", entityType)
				continue
			}
			if err := bindings.Bind(entityType, reference.StaticFinder(records)); err != nil {
				return nil, err
			}
		}
	}

	logger.Info("entity lookups bound", "entity_types", bindings.EntityTypes())
	return bindings, nil
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"metaprops/internal/core/temporal"
	"metaprops/internal/core/tx"
	"metaprops/internal/domain"
	"metaprops/internal/domain/assignment"
	"metaprops/internal/domain/constraint"
	"metaprops/internal/domain/filter"
	"metaprops/internal/domain/property"
	"metaprops/internal/domain/search"
	"metaprops/internal/infrastructure/metrics"
	"metaprops/internal/infrastructure/storage/memory"
	"metaprops/internal/infrastructure/storage/postgres"
	"metaprops/internal/infrastructure/storage/postgres/property_repo"
	"metaprops/internal/metadata"
	"metaprops/pkg/logger"
)

// repositories is satisfied by memory.Store and property_repo.Repo.
type repositories interface {
	domain.AssignmentRepository
	domain.PropertyValueRepository
	domain.EntityRepository
}

// app holds the wired engine for one command run.
type app struct {
	cfg       config
	log       *logger.Logger
	norm      *temporal.Normalizer
	compiler  *constraint.Compiler
	validator *constraint.Validator
	registry  *prometheus.Registry
	fixture   *fixture

	repos       repositories
	assignments *assignment.Service
	properties  *property.Service
	search      *search.Service

	closers []func()
}

// newApp wires the engine without a store; commands that need one call
// openStore.
func newApp(cfg config) (*app, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	norm, err := temporal.LoadNormalizer(cfg.TimeZone)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:       cfg,
		log:       log.WithComponent("propcheck"),
		norm:      norm,
		compiler:  constraint.NewCompiler(cfg.CacheSize),
		validator: constraint.NewValidator(norm),
		registry:  prometheus.NewRegistry(),
	}, nil
}

// openStore connects the configured backend: PostgreSQL when a database
// URL is set, otherwise an in-memory store seeded from the fixture.
func (a *app) openStore(ctx context.Context, requireFixture bool) error {
	rec, err := metrics.New(a.registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var txm tx.Manager = tx.Noop{}
	if a.cfg.Fixture != "" {
		fx, err := loadFixtureFile(a.cfg.Fixture)
		if err != nil {
			return err
		}
		a.fixture = fx
		if fx.TimeZone != "" && a.cfg.TimeZone == "" {
			if a.norm, err = temporal.LoadNormalizer(fx.TimeZone); err != nil {
				return err
			}
			a.validator = constraint.NewValidator(a.norm)
		}
	}

	switch {
	case a.cfg.DatabaseURL != "":
		poolCfg := postgres.DefaultPoolConfig(a.cfg.DatabaseURL)
		poolCfg.TimeZone = a.norm.Location().String()
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		pgTx := postgres.NewTxManager(pool)
		repo := property_repo.NewRepo(pgTx)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		a.repos, txm = repo, pgTx
	case a.fixture != nil:
		a.repos = memory.NewStore(nil)
	case requireFixture:
		return fmt.Errorf("either --fixture or --database-url is required")
	default:
		a.repos = memory.NewStore(nil)
	}

	a.assignments = assignment.NewService(assignment.ServiceConfig{
		Repo:      a.repos,
		Values:    a.repos,
		Entities:  a.repos,
		TxManager: txm,
		Compiler:  a.compiler,
		Validator: a.validator,
		Metrics:   rec,
	})
	a.properties = property.NewService(property.ServiceConfig{
		Assignments: a.repos,
		Entities:    a.repos,
		TxManager:   txm,
		Compiler:    a.compiler,
		Validator:   a.validator,
		Metrics:     rec,
	})
	a.search = search.NewService(search.ServiceConfig{
		Assignments: a.repos,
		Entities:    a.repos,
		TxManager:   txm,
		Evaluator:   filter.NewEvaluator(a.norm),
		Metrics:     rec,
	})

	// a database is seeded only by the load command
	if a.fixture != nil && a.cfg.DatabaseURL == "" {
		if err := a.fixture.apply(ctx, a); err != nil {
			return fmt.Errorf("load fixture %s: %w", a.cfg.Fixture, err)
		}
	}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.cfg.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(a.cfg.MetricsTextfile, a.registry); err != nil {
			a.log.Warnw("write metrics textfile failed", "path", a.cfg.MetricsTextfile, "error", err)
		}
	}
	_ = a.log.Sync()
}

func parsePatternType(s string) (metadata.PatternType, error) {
	return constraint.ParsePatternType(strings.ToUpper(strings.TrimSpace(s)))
}

// Package server wires the metadata store, cost graph, policy
// registry, and background tasks into one process-scoped Core value
// and serves the Request API (spec §5, §6). Replaces the teacher's
// hidden-global cmn.GCO/daemon pattern with an explicit struct threaded
// through constructors (SPEC_FULL.md DESIGN NOTES).
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/skystorehq/geogw/internal/api"
	"github.com/skystorehq/geogw/internal/config"
	"github.com/skystorehq/geogw/internal/costgraph"
	"github.com/skystorehq/geogw/internal/engine"
	"github.com/skystorehq/geogw/internal/eviction"
	"github.com/skystorehq/geogw/internal/log"
	"github.com/skystorehq/geogw/internal/policy"
	"github.com/skystorehq/geogw/internal/policy/placement"
	"github.com/skystorehq/geogw/internal/policy/transfer"
	"github.com/skystorehq/geogw/internal/remotestore"
	"github.com/skystorehq/geogw/internal/store"
	"github.com/skystorehq/geogw/internal/sweeper"
)

// Core owns every long-lived dependency the process needs: the
// database connection, the cost graph, the policy registry, and the
// background tasks' lifecycle (spec §5).
type Core struct {
	Config   *config.Config
	DB       *gorm.DB
	Store    *store.Store
	Graph    *costgraph.Graph
	Registry *policy.Registry
	Engine   *engine.Engine
	Sweeper  *sweeper.Sweeper
	Eviction *eviction.Controller
	logger   zerolog.Logger
}

// New builds a Core from configuration: opens the database, migrates
// it, loads the cost graph, and resolves the configured initial
// put/get policies.
func New(cfg *config.Config) (*Core, error) {
	logger := log.WithComponent("server")

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return nil, err
	}

	graph, err := costgraph.LoadFiles(cfg.StorageCSV, cfg.CostCSV, cfg.ThroughputCSV, cfg.CompleteLatencyCSV)
	if err != nil {
		logger.Warn().Err(err).Msg("cost graph not loaded, placement/transfer cost policies will be limited")
		graph = costgraph.New()
	}

	fixedRegion := ""
	if len(cfg.InitRegions) > 0 {
		fixedRegion = cfg.InitRegions[0]
	}
	putPolicy, ok := placement.New(cfg.PutPolicy, placement.Config{
		Graph:           graph,
		FixedRegion:     fixedRegion,
		FixedTTLSeconds: int64(24 * time.Hour / time.Second),
		Skystore: placement.SkystoreConfig{
			WindowHours:            cfg.Sky.WindowHours,
			RecomputeIntervalHours: cfg.Sky.RecomputeIntervalHours,
			MinHistogramSamples:    cfg.Sky.MinHistogramSamples,
		},
	})
	if !ok {
		putPolicy, _ = placement.New(placement.NameAlwaysStore, placement.Config{})
	}
	getPolicy, ok := transfer.New(cfg.GetPolicy, graph, nil)
	if !ok {
		getPolicy, _ = transfer.New(transfer.NameDirect, graph, nil)
	}
	reg := policy.NewRegistry(putPolicy, getPolicy)

	var remote remotestore.Client = remotestore.NoopClient{}
	ev := eviction.New(st, remote, func() string { return reg.Snapshot().PutPolicy.Name() }, 500)

	// Engine gets a reference to the eviction controller so that
	// locate_object can itself trigger clean_object on an hour
	// boundary (spec §4.4), not just the hourly ticker in ev.Start.
	eng := engine.New(st, reg, ev)

	sw := sweeper.New(st, cfg.Sweep.Interval, cfg.Sweep.Cutoff)

	return &Core{
		Config:   cfg,
		DB:       db,
		Store:    st,
		Graph:    graph,
		Registry: reg,
		Engine:   eng,
		Sweeper:  sw,
		Eviction: ev,
		logger:   logger,
	}, nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DB.Driver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	default:
		return gorm.Open(sqlite.Open(cfg.DB.DSN), &gorm.Config{})
	}
}

// Serve starts the background tasks and blocks serving the Request
// API until ctx is canceled.
func (c *Core) Serve(ctx context.Context) error {
	c.Sweeper.Start()
	defer c.Sweeper.Stop()
	c.Eviction.Start()
	defer c.Eviction.Stop()

	handler := api.NewHandler(c.Store, c.Registry, c.Eviction, c.Engine, c.Graph)
	srv := &http.Server{
		Addr:         c.Config.HTTPCfg.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info().Str("addr", c.Config.HTTPCfg.Addr).Msg("request API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

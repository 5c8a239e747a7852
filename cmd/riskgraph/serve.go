package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/riskgraph-simulator/core"
	"github.com/signalsfoundry/riskgraph-simulator/internal/api"
	"github.com/signalsfoundry/riskgraph-simulator/internal/logging"
	"github.com/signalsfoundry/riskgraph-simulator/internal/observability"
	"github.com/signalsfoundry/riskgraph-simulator/kb"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		addr        string
		scenarioDir string
		iterations  int
		workers     int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulator over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.HTTP.Addr = addr
			}
			if cmd.Flags().Changed("scenario-dir") {
				a.cfg.ScenarioDir = scenarioDir
			}
			if cmd.Flags().Changed("iterations") {
				a.cfg.Simulation.Iterations = iterations
			}
			if cmd.Flags().Changed("workers") {
				a.cfg.Simulation.Workers = workers
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			lis, err := net.Listen("tcp", a.cfg.HTTP.Addr)
			if err != nil {
				a.log.Error(cmd.Context(), "failed to listen", logging.String("addr", a.cfg.HTTP.Addr), logging.Err(err))
				return err
			}
			return a.serve(cmd.Context(), lis)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&scenarioDir, "scenario-dir", "", "directory of .json/.hcl scenarios to expose under /scenarios")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "default iterations per request")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines per run (default GOMAXPROCS)")
	return cmd
}

// serve runs the HTTP server on lis until ctx is cancelled.
func (a *app) serve(ctx context.Context, lis net.Listener) error {
	cfg := a.cfg
	log := a.log

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing.Observability(), log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	engineOpts := []core.EngineOption{
		core.WithLogger(log.With(logging.String("component", "engine"))),
		core.WithDefaultWorkers(cfg.Simulation.Workers),
	}
	serverOpts := []api.Option{
		api.WithLogger(log.With(logging.String("component", "api"))),
		api.WithIterations(cfg.Simulation.Iterations),
		api.WithMaxIterations(cfg.Simulation.MaxIterations),
		api.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes),
	}

	var httpMetrics *observability.HTTPCollector
	if cfg.Metrics.Enabled {
		httpMetrics, err = observability.NewHTTPCollector(a.registry)
		if err != nil {
			log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
			return err
		}
		simMetrics, err := observability.NewSimulationCollector(a.registry)
		if err != nil {
			log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
			return err
		}
		engineOpts = append(engineOpts, core.WithRunRecorder(simMetrics))
		serverOpts = append(serverOpts, api.WithMetrics(httpMetrics))
	}

	catalog := kb.NewKnowledgeBase()
	unsubscribe := catalog.Subscribe(func(kb.Event) {
		httpMetrics.SetCatalogSize(catalog.Len())
	})
	defer unsubscribe()
	if cfg.ScenarioDir != "" {
		n, err := catalog.LoadDir(cfg.ScenarioDir)
		if err != nil {
			log.Error(ctx, "failed to load scenarios", logging.String("dir", cfg.ScenarioDir), logging.Err(err))
			return err
		}
		names := make([]string, 0, n)
		for _, sc := range catalog.ListScenarios() {
			names = append(names, sc.Name)
		}
		log.Info(ctx, "loaded scenarios",
			logging.String("dir", cfg.ScenarioDir),
			logging.Int("count", n),
			logging.Any("names", names),
		)
	}
	serverOpts = append(serverOpts, api.WithCatalog(catalog))

	srv := &http.Server{
		Handler:      api.NewServer(core.NewEngine(engineOpts...), serverOpts...).Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(ctx, "starting HTTP server", logging.String("addr", lis.Addr().String()))
		if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error(ctx, "HTTP server exited", logging.Err(err))
		return err
	}
	return nil
}

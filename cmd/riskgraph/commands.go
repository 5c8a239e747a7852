package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/riskgraph-simulator/core"
)

// errViolations makes validate exit non-zero after printing its report.
var errViolations = errors.New("graph has violations")

func (a *app) simulateCmd() *cobra.Command {
	var (
		iterations int
		seed       int64
		workers    int
		compact    bool
	)
	cmd := &cobra.Command{
		Use:   "simulate FILE",
		Short: "Run a Monte-Carlo simulation and print the results document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGraph(args[0])
			if err != nil {
				return err
			}

			opts := core.Options{Iterations: a.cfg.Simulation.Iterations}
			if cmd.Flags().Changed("iterations") {
				opts.Iterations = iterations
			}
			if cmd.Flags().Changed("seed") {
				opts.Seed = &seed
			}
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}

			engine := core.NewEngine(
				core.WithLogger(a.log),
				core.WithDefaultWorkers(a.cfg.Simulation.Workers),
			)
			res, err := engine.Simulate(cmd.Context(), g, opts)
			if err != nil {
				var verr *core.ValidationError
				if errors.As(err, &verr) {
					for _, v := range verr.Violations {
						fmt.Fprintf(a.stderr, "  - %s\n", v)
					}
				}
				return err
			}
			return a.printJSON(res, compact)
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 0, "number of iterations (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "pin the random seed for reproducible output")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (default GOMAXPROCS)")
	cmd.Flags().BoolVar(&compact, "compact", false, "print single-line JSON")
	return cmd
}

type validateReport struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations"`
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Report every structural violation in a scenario graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGraph(args[0])
			if err != nil {
				return err
			}
			violations := core.Validate(g)
			if violations == nil {
				violations = []string{}
			}
			if err := a.printJSON(validateReport{Valid: len(violations) == 0, Violations: violations}, false); err != nil {
				return err
			}
			if len(violations) > 0 {
				return fmt.Errorf("%w: %d found", errViolations, len(violations))
			}
			return nil
		},
	}
}

func (a *app) orderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order FILE",
		Short: "Print the evaluation order of expression and result nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGraph(args[0])
			if err != nil {
				return err
			}
			order, err := core.ResolveOrder(g)
			if err != nil {
				return err
			}
			for _, id := range order {
				fmt.Fprintln(a.stdout, id)
			}
			return nil
		},
	}
}

func (a *app) printJSON(v any, compact bool) error {
	enc := json.NewEncoder(a.stdout)
	if !compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

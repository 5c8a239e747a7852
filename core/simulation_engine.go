package core

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/riskgraph-simulator/internal/logging"
	"github.com/signalsfoundry/riskgraph-simulator/internal/sampling"
	"github.com/signalsfoundry/riskgraph-simulator/model"
)

const tracerName = "github.com/signalsfoundry/riskgraph-simulator/core"

// cancelCheckEvery is how many iterations a worker runs between context
// checks.
const cancelCheckEvery = 256

// Run outcomes reported to the RunRecorder.
const (
	OutcomeOK                      = "ok"
	OutcomeInvalid                 = "invalid"
	OutcomeCycle                   = "cycle"
	OutcomeUnsupportedDistribution = "unsupported_distribution"
	OutcomeCanceled                = "canceled"
	OutcomeError                   = "error"
)

// Options configures a single simulation run.
type Options struct {
	// Iterations is the number of Monte-Carlo passes; it must be positive.
	Iterations int
	// Seed pins the generator. When nil a random seed is drawn and the
	// result metadata reports no seed.
	Seed *int64
	// Workers bounds the goroutines sharing the run. Zero uses the
	// engine default. The result does not depend on the worker count.
	Workers int
}

// RunRecorder receives a summary of every finished run.
type RunRecorder interface {
	ObserveRun(outcome string, iterations, discarded int, elapsed time.Duration)
}

// Engine runs Monte-Carlo simulations over scenario graphs. An Engine is
// stateless between runs and safe for concurrent use.
type Engine struct {
	log     logging.Logger
	metrics RunRecorder
	tracer  trace.Tracer
	workers int
}

// EngineOption customises Engine construction.
type EngineOption func(*Engine)

// WithLogger attaches a structured logger for run events.
func WithLogger(l logging.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithRunRecorder attaches an optional metrics recorder.
func WithRunRecorder(r RunRecorder) EngineOption {
	return func(e *Engine) {
		e.metrics = r
	}
}

// WithTracer overrides the tracer used for run spans.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithDefaultWorkers sets the worker count used when Options.Workers is zero.
func WithDefaultWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine builds an Engine. Without options it logs nothing, records no
// metrics and uses one worker per available CPU.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		log:     logging.Noop(),
		tracer:  otel.Tracer(tracerName),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Simulate runs a simulation with a default Engine.
func Simulate(ctx context.Context, g *model.ScenarioGraph, opts Options) (*model.SimulationResult, error) {
	return NewEngine().Simulate(ctx, g, opts)
}

// Simulate validates g, resolves its evaluation order and runs
// opts.Iterations passes of sampling, edge application and evaluation.
//
// Structural problems (validation violations, dependency cycles,
// unsupported distributions, a non-positive iteration count) and context
// cancellation abort the run with no partial result. Iterations whose
// evaluation fails or yields NaN are discarded and only counted.
func (e *Engine) Simulate(ctx context.Context, g *model.ScenarioGraph, opts Options) (*model.SimulationResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := e.log.With(logging.String("run_id", runID))

	ctx, span := e.tracer.Start(ctx, "core.Simulate", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("iterations", opts.Iterations),
	))
	defer span.End()

	res, err := e.simulate(ctx, log, g, opts)
	elapsed := time.Since(start)
	outcome := outcomeOf(err)
	if e.metrics != nil {
		iterations, discarded := 0, 0
		if res != nil {
			iterations, discarded = res.Metadata.Iterations, res.Metadata.Discarded
		}
		e.metrics.ObserveRun(outcome, iterations, discarded, elapsed)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		log.Warn(ctx, "simulation rejected",
			logging.String("outcome", outcome),
			logging.Err(err),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int("discarded", res.Metadata.Discarded))
	log.Info(ctx, "simulation finished",
		logging.Int("iterations", res.Metadata.Iterations),
		logging.Int("discarded", res.Metadata.Discarded),
		logging.Int("effective", res.Metadata.Effective()),
		logging.Float64("discard_ratio", float64(res.Metadata.Discarded)/float64(res.Metadata.Iterations)),
		logging.Int("results", len(res.Results)),
		logging.Duration("duration", elapsed),
	)
	return res, nil
}

func (e *Engine) simulate(ctx context.Context, log logging.Logger, g *model.ScenarioGraph, opts Options) (*model.SimulationResult, error) {
	if opts.Iterations <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidIterations, opts.Iterations)
	}
	p, err := compile(g)
	if err != nil {
		return nil, err
	}

	seed := sampling.RandomSeed()
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = e.workers
	}
	workers = max(1, min(workers, opts.Iterations))

	params, computed, results := g.Counts()
	fields := []logging.Field{
		logging.Int("iterations", opts.Iterations),
		logging.Int("workers", workers),
		logging.Int("parameters", params),
		logging.Int("computed", computed),
		logging.Int("results", results),
		logging.Int("edges", len(g.Edges)),
	}
	if opts.Seed != nil {
		fields = append(fields, logging.Int64("seed", seed))
	}
	log.Info(ctx, "simulation started", fields...)

	shards := make([]shard, workers)

	grp, gctx := errgroup.WithContext(ctx)
	chunk := (opts.Iterations + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, opts.Iterations)
		if lo >= hi {
			continue
		}
		grp.Go(func() error {
			return shards[w].run(gctx, p, seed, lo, hi)
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	var total tally
	for _, sh := range shards {
		total.merge(sh.tally)
	}
	if total.discarded() > 0 {
		log.Debug(ctx, "iterations discarded",
			logging.Int("evaluation_errors", total.evalErrors),
			logging.Int("nan_values", total.nanValues),
			logging.String("first_error", total.firstErrorText()),
		)
	}

	out := &model.SimulationResult{
		Results: make(map[string]model.Stats, len(p.results)),
		Metadata: model.RunMetadata{
			Iterations: opts.Iterations,
			Discarded:  total.discarded(),
		},
	}
	if opts.Seed != nil {
		s := *opts.Seed
		out.Metadata.Seed = &s
	}
	for r, rs := range p.results {
		out.Results[rs.id] = summarizeOwned(collect(shards, r))
	}
	return out, nil
}

// shard is one worker's slice of a run. It keeps only committed values,
// so memory follows committed iterations rather than the requested count.
type shard struct {
	values [][]float64 // [result][committed iteration]
	tally  tally
}

// run executes iterations [lo, hi). Iteration i always draws from stream
// (seed, i), so the shard layout never changes the values produced.
func (sh *shard) run(ctx context.Context, p *plan, seed int64, lo, hi int) error {
	sh.values = make([][]float64, len(p.results))
	f := newFrame(p)
	for i := lo; i < hi; i++ {
		if (i-lo)%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		reason, err := f.run(sampling.NewStream(seed, uint64(i)))
		switch reason {
		case committed:
			for r, rs := range p.results {
				sh.values[r] = append(sh.values[r], f.values[rs.slot])
			}
		case discardEvaluation:
			sh.tally.evalErrors++
			if sh.tally.firstErr == nil {
				sh.tally.firstErr = err
				sh.tally.firstIdx = i
			}
		case discardNaN:
			sh.tally.nanValues++
		}
	}
	return nil
}

// collect concatenates result r's committed values across shards. Shards
// cover ascending iteration ranges, so the output is in iteration order.
func collect(shards []shard, r int) []float64 {
	n := 0
	for _, sh := range shards {
		if r < len(sh.values) {
			n += len(sh.values[r])
		}
	}
	out := make([]float64, 0, n)
	for i := range shards {
		if r < len(shards[i].values) {
			out = append(out, shards[i].values[r]...)
			shards[i].values[r] = nil
		}
	}
	return out
}

// tally counts one shard's discards.
type tally struct {
	evalErrors int
	nanValues  int
	firstErr   error
	firstIdx   int
}

func (t *tally) discarded() int { return t.evalErrors + t.nanValues }

func (t *tally) merge(o tally) {
	t.evalErrors += o.evalErrors
	t.nanValues += o.nanValues
	if o.firstErr != nil && (t.firstErr == nil || o.firstIdx < t.firstIdx) {
		t.firstErr = o.firstErr
		t.firstIdx = o.firstIdx
	}
}

func (t *tally) firstErrorText() string {
	if t.firstErr == nil {
		return ""
	}
	return t.firstErr.Error()
}

func outcomeOf(err error) string {
	var unsupported *sampling.UnsupportedDistributionError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrInvalidGraph), errors.Is(err, ErrInvalidIterations), errors.Is(err, ErrNilGraph):
		return OutcomeInvalid
	case errors.Is(err, ErrCycleDetected):
		return OutcomeCycle
	case errors.As(err, &unsupported):
		return OutcomeUnsupportedDistribution
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}

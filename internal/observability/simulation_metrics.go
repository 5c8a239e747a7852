package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SimulationCollector exposes Monte-Carlo run metrics.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	Runs                *prometheus.CounterVec
	IterationsTotal     prometheus.Counter
	DiscardedIterations prometheus.Counter
	RunDuration         prometheus.Histogram
}

// NewSimulationCollector registers simulation metrics against the provided registerer.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_runs_total",
		Help: "Total number of simulation runs, labeled by outcome.",
	}, []string{"outcome"})
	runs, err := registerCounterVec(reg, runs, "simulation_runs_total")
	if err != nil {
		return nil, err
	}

	iterations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulation_iterations_total",
		Help: "Cumulative number of Monte-Carlo iterations executed.",
	})
	iterations, err = registerCounter(reg, iterations, "simulation_iterations_total")
	if err != nil {
		return nil, err
	}

	discarded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulation_discarded_iterations_total",
		Help: "Cumulative number of iterations discarded for evaluation errors or NaN values.",
	})
	discarded, err = registerCounter(reg, discarded, "simulation_discarded_iterations_total")
	if err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simulation_run_duration_seconds",
		Help:    "Wall-clock duration of simulation runs.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})
	duration, err = registerHistogram(reg, duration, "simulation_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:            gatherer,
		Runs:                runs,
		IterationsTotal:     iterations,
		DiscardedIterations: discarded,
		RunDuration:         duration,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimulationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveRun records one finished run. Rejected runs carry zero iterations.
func (c *SimulationCollector) ObserveRun(outcome string, iterations, discarded int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.Runs != nil {
		c.Runs.WithLabelValues(outcome).Inc()
	}
	if c.IterationsTotal != nil && iterations > 0 {
		c.IterationsTotal.Add(float64(iterations))
	}
	if c.DiscardedIterations != nil && discarded > 0 {
		c.DiscardedIterations.Add(float64(discarded))
	}
	if c.RunDuration != nil {
		c.RunDuration.Observe(elapsed.Seconds())
	}
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

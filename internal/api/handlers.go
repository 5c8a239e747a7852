package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/signalsfoundry/riskgraph-simulator/core"
	"github.com/signalsfoundry/riskgraph-simulator/kb"
	"github.com/signalsfoundry/riskgraph-simulator/model"
	"go.opentelemetry.io/otel/attribute"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type validateResponse struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations"`
}

type orderResponse struct {
	Order []string `json:"order"`
}

type scenarioEntry struct {
	Name       string   `json:"name"`
	Source     string   `json:"source,omitempty"`
	Parameters []string `json:"parameters"`
	Computed   []string `json:"computed"`
	Results    []string `json:"results"`
	Edges      []string `json:"edges"`
}

type scenarioListResponse struct {
	Scenarios []scenarioEntry `json:"scenarios"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: Version})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) error {
	opts, err := s.runOptions(r)
	if err != nil {
		return err
	}
	g, err := s.decodeGraph(w, r)
	if err != nil {
		return err
	}
	return s.simulate(w, r, "", g, opts)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) error {
	g, err := s.decodeGraph(w, r)
	if err != nil {
		return err
	}
	violations := core.Validate(g)
	if violations == nil {
		violations = []string{}
	}
	return writeJSON(w, http.StatusOK, validateResponse{Valid: len(violations) == 0, Violations: violations})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) error {
	g, err := s.decodeGraph(w, r)
	if err != nil {
		return err
	}
	order, err := core.ResolveOrder(g)
	if err != nil {
		return err
	}
	if order == nil {
		order = []string{}
	}
	return writeJSON(w, http.StatusOK, orderResponse{Order: order})
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) error {
	resp := scenarioListResponse{Scenarios: []scenarioEntry{}}
	if s.catalog != nil {
		for _, sc := range s.catalog.ListScenarios() {
			resp.Scenarios = append(resp.Scenarios, describeEntry(sc))
		}
	}
	return writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) error {
	sc, err := s.lookup(r.PathValue("name"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, sc.Graph)
}

func (s *Server) handleSimulateScenario(w http.ResponseWriter, r *http.Request) error {
	opts, err := s.runOptions(r)
	if err != nil {
		return err
	}
	sc, err := s.lookup(r.PathValue("name"))
	if err != nil {
		return err
	}
	return s.simulate(w, r, sc.Name, sc.Graph, opts)
}

func (s *Server) simulate(w http.ResponseWriter, r *http.Request, scenario string, g *model.ScenarioGraph, opts core.Options) error {
	ctx, span := StartChildSpan(r.Context(), "api.simulate", scenario,
		attribute.Int("iterations", opts.Iterations),
		attribute.Bool("seed_pinned", opts.Seed != nil),
	)
	defer span.End()

	res, err := s.engine.Simulate(ctx, g, opts)
	if err != nil {
		span.RecordError(err)
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

func (s *Server) lookup(name string) (kb.Scenario, error) {
	if s.catalog == nil {
		return kb.Scenario{}, fmt.Errorf("%w: scenario %q", ErrNotFound, name)
	}
	sc, ok := s.catalog.GetScenario(name)
	if !ok {
		return kb.Scenario{}, fmt.Errorf("%w: %q", kb.ErrScenarioNotFound, name)
	}
	return sc, nil
}

// decodeGraph reads a JSON graph document from the request body.
func (s *Server) decodeGraph(w http.ResponseWriter, r *http.Request) (*model.ScenarioGraph, error) {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	defer body.Close()
	g, err := core.LoadScenario(body)
	if err != nil {
		if StatusFor(err) == http.StatusRequestEntityTooLarge {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return g, nil
}

// runOptions parses the iterations and seed query parameters.
func (s *Server) runOptions(r *http.Request) (core.Options, error) {
	q := r.URL.Query()
	opts := core.Options{Iterations: s.iterations}

	if raw := q.Get("iterations"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return opts, fmt.Errorf("%w: iterations %q is not an integer", ErrBadRequest, raw)
		}
		opts.Iterations = n
	}
	if opts.Iterations <= 0 {
		return opts, fmt.Errorf("%w: got %d", core.ErrInvalidIterations, opts.Iterations)
	}
	if s.maxIterations > 0 && opts.Iterations > s.maxIterations {
		return opts, fmt.Errorf("%w: iterations %d exceeds the limit of %d", ErrBadRequest, opts.Iterations, s.maxIterations)
	}

	if raw := q.Get("seed"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("%w: seed %q is not a 64-bit integer", ErrBadRequest, raw)
		}
		opts.Seed = &seed
	}
	return opts, nil
}

func describeEntry(sc kb.Scenario) scenarioEntry {
	sum := core.Describe(sc.Graph)
	return scenarioEntry{
		Name:       sc.Name,
		Source:     sc.Source,
		Parameters: nonNil(sum.ParameterIDs),
		Computed:   nonNil(sum.ComputedIDs),
		Results:    nonNil(sum.ResultIDs),
		Edges:      nonNil(sum.EdgeIDs),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

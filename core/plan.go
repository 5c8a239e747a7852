package core

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/signalsfoundry/riskgraph-simulator/internal/expr"
	"github.com/signalsfoundry/riskgraph-simulator/internal/sampling"
	"github.com/signalsfoundry/riskgraph-simulator/model"
)

// plan is the compiled, read-only form of a graph shared by every worker
// of a run. Node values live in slots indexed by plan.slots.
type plan struct {
	slots   map[string]int
	params  []paramStep
	edges   []edgeStep
	steps   []formulaStep
	results []resultSlot
}

type paramStep struct {
	slot   int
	drawer sampling.Drawer
}

type edgeStep struct {
	slot        int
	probability float64
	impact      model.ImpactType
	drawer      sampling.Drawer
}

type formulaStep struct {
	id   string
	slot int
	prog *expr.Program
	// err is set when the formula does not parse; every evaluation of
	// the step then fails with it.
	err error
}

type resultSlot struct {
	id   string
	slot int
}

// compile validates g and builds its plan. Every error it returns is fatal
// to the run.
func compile(g *model.ScenarioGraph) (*plan, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	if err := validate(g); err != nil {
		return nil, err
	}
	order, err := ResolveOrder(g)
	if err != nil {
		return nil, err
	}

	p := &plan{slots: make(map[string]int, len(g.Nodes))}
	for _, n := range g.Nodes {
		p.slots[n.ID] = len(p.slots)
	}

	for _, n := range g.Nodes {
		if n.Type != model.NodeTypeParameter {
			continue
		}
		d, err := sampling.Compile(n.Distribution)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", n.ID, err)
		}
		p.params = append(p.params, paramStep{slot: p.slots[n.ID], drawer: d})
	}

	edges := make([]model.Edge, len(g.Edges))
	copy(edges, g.Edges)
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Priority < edges[j].Priority })
	for _, e := range edges {
		d, err := sampling.Compile(e.Distribution)
		if err != nil {
			return nil, fmt.Errorf("edge %q: %w", e.ID, err)
		}
		p.edges = append(p.edges, edgeStep{
			slot:        p.slots[e.Target],
			probability: e.Probability,
			impact:      e.ImpactType,
			drawer:      d,
		})
	}

	idx := g.Index()
	for _, id := range order {
		prog, err := expr.Compile(idx[id].Formula)
		p.steps = append(p.steps, formulaStep{id: id, slot: p.slots[id], prog: prog, err: err})
	}

	for _, id := range g.ResultIDs() {
		p.results = append(p.results, resultSlot{id: id, slot: p.slots[id]})
	}
	return p, nil
}

// frame holds one iteration's bindings. It is reused across the
// iterations of a single worker.
type frame struct {
	plan   *plan
	values []float64
	bound  []bool
}

func newFrame(p *plan) *frame {
	return &frame{
		plan:   p,
		values: make([]float64, len(p.slots)),
		bound:  make([]bool, len(p.slots)),
	}
}

// Lookup implements expr.Env.
func (f *frame) Lookup(name string) (expr.Value, bool) {
	slot, ok := f.plan.slots[name]
	if !ok || !f.bound[slot] {
		return expr.Value{}, false
	}
	return expr.Scalar(f.values[slot]), true
}

func (f *frame) set(slot int, v float64) {
	f.values[slot] = v
	f.bound[slot] = true
}

// discardReason classifies why an iteration was not committed.
type discardReason uint8

const (
	committed discardReason = iota
	discardEvaluation
	discardNaN
)

// run executes one iteration against rng, leaving the bound values in f.
// The returned error is only set for evaluation failures.
func (f *frame) run(rng *rand.Rand) (discardReason, error) {
	clear(f.bound)
	p := f.plan

	for _, ps := range p.params {
		f.set(ps.slot, ps.drawer.Draw(rng))
	}

	for _, es := range p.edges {
		// One trial per edge per iteration, fired or not.
		if rng.Float64() >= es.probability {
			continue
		}
		impact := es.drawer.Draw(rng)
		switch es.impact {
		case model.ImpactAbsolute:
			f.values[es.slot] += impact
		case model.ImpactPercentage:
			f.values[es.slot] += f.values[es.slot] * (impact / 100)
		}
	}

	for _, ps := range p.params {
		if math.IsNaN(f.values[ps.slot]) {
			return discardNaN, nil
		}
	}

	for _, st := range p.steps {
		if st.err != nil {
			return discardEvaluation, st.err
		}
		v, err := st.prog.Eval(f)
		if err != nil {
			return discardEvaluation, err
		}
		if v.HasNaN() {
			return discardNaN, nil
		}
		x, ok := v.Float()
		if !ok {
			return discardEvaluation, &expr.EvaluationError{
				Expression: st.prog.Source(),
				Reason:     fmt.Sprintf("node %q produced a vector of %d values", st.id, v.Len()),
			}
		}
		f.set(st.slot, x)
	}
	return committed, nil
}

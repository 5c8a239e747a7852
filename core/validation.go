package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/riskgraph-simulator/model"
)

// Validate checks the structural invariants of g and returns every
// violation found, in graph order. An empty result means the graph can be
// simulated. The graph is never modified.
func Validate(g *model.ScenarioGraph) []string {
	if g == nil {
		return []string{ErrNilGraph.Error()}
	}

	var violations []string
	add := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	seen := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			add("node #%d has an empty id", i)
			continue
		}
		if first, dup := seen[n.ID]; dup {
			add("node %q is declared more than once (#%d and #%d)", n.ID, first, i)
			continue
		}
		seen[n.ID] = i

		switch n.Type {
		case model.NodeTypeParameter:
			switch {
			case n.Distribution == nil:
				add("parameter %q has no distribution", n.ID)
			case !n.Distribution.HasParameters():
				add("parameter %q distribution %q is missing its parameters block", n.ID, n.Distribution.Type)
			}
			if n.Formula != "" {
				add("parameter %q must not have a formula", n.ID)
			}
		case model.NodeTypeExpression, model.NodeTypeResult:
			if n.Formula == "" {
				add("%s node %q has no formula", n.Type, n.ID)
			}
			if n.Distribution != nil {
				add("%s node %q must not have a distribution", n.Type, n.ID)
			}
		default:
			add("node %q has unknown type %q", n.ID, n.RawType())
		}
	}

	idx := g.Index()
	for i, e := range g.Edges {
		name := e.ID
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		target, ok := idx[e.Target]
		switch {
		case !ok:
			add("edge %q targets unknown node %q", name, e.Target)
		case target.Type != model.NodeTypeParameter:
			add("edge %q targets node %q of type %s; edges may only target parameter nodes", name, e.Target, target.RawType())
		}
		if math.IsNaN(e.Probability) || e.Probability < 0 || e.Probability > 1 {
			add("edge %q probability %v is outside [0, 1]", name, e.Probability)
		}
		if e.ImpactType == model.ImpactUnknown {
			add("edge %q has unknown impact type %q", name, e.RawImpactType())
		}
		switch {
		case e.Distribution == nil:
			add("edge %q has no distribution", name)
		case !e.Distribution.HasParameters():
			add("edge %q distribution %q is missing its parameters block", name, e.Distribution.Type)
		}
	}
	return violations
}

// validate wraps Validate's findings in a ValidationError.
func validate(g *model.ScenarioGraph) error {
	if violations := Validate(g); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

package core

import (
	"github.com/signalsfoundry/riskgraph-simulator/internal/expr"
	"github.com/signalsfoundry/riskgraph-simulator/model"
)

type visitState uint8

const (
	unvisited visitState = iota
	visiting
	visited
)

// ResolveOrder returns the expression and result node ids in an order
// where every node follows the computed nodes its formula references.
//
// The order is a depth-first post-order over computed nodes in declaration
// order. A formula depends on a node when one of its identifier tokens is
// exactly that node's id. Parameter references end the walk since
// parameters are bound before any formula runs. A reference back onto the
// active path yields a CycleDetectedError naming the revisited node.
func ResolveOrder(g *model.ScenarioGraph) ([]string, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	idx := g.Index()
	state := make(map[string]visitState, len(idx))
	order := make([]string, 0, len(idx))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visited:
			return nil
		case visiting:
			return &CycleDetectedError{Node: id}
		}
		state[id] = visiting
		for _, dep := range expr.References(idx[id].Formula) {
			n, ok := idx[dep]
			if !ok || !n.Computed() {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = visited
		order = append(order, id)
		return nil
	}

	for _, n := range g.Nodes {
		if !n.Computed() {
			continue
		}
		if err := visit(n.ID); err != nil {
			return nil, err
		}
	}
	return order, nil
}

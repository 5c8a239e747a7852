package core

import (
	"errors"
	"reflect"
	"testing"

	"github.com/signalsfoundry/riskgraph-simulator/model"
)

func TestResolveOrderDetectsCycle(t *testing.T) {
	g := &model.ScenarioGraph{Nodes: []model.Node{
		expression("A", "B+1"),
		expression("B", "A+1"),
	}}
	_, err := ResolveOrder(g)
	var cycle *CycleDetectedError
	if !errors.As(err, &cycle) {
		t.Fatalf("ResolveOrder() error = %v, want CycleDetectedError", err)
	}
	if cycle.Node != "A" {
		t.Errorf("cycle node = %q, want %q", cycle.Node, "A")
	}
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("errors.Is(err, ErrCycleDetected) = false")
	}
}

func TestResolveOrderDependencyFirst(t *testing.T) {
	g := &model.ScenarioGraph{Nodes: []model.Node{
		expression("A", "1"),
		expression("B", "A+1"),
	}}
	order, err := ResolveOrder(g)
	if err != nil {
		t.Fatalf("ResolveOrder() error = %v", err)
	}
	if want := []string{"A", "B"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestResolveOrderVisitsForwardReferences(t *testing.T) {
	g := &model.ScenarioGraph{Nodes: []model.Node{
		result("total", "cost + margin"),
		param("price", constant(10)),
		expression("margin", "price - cost"),
		expression("cost", "price * 0.6"),
	}}
	order, err := ResolveOrder(g)
	if err != nil {
		t.Fatalf("ResolveOrder() error = %v", err)
	}
	if want := []string{"cost", "margin", "total"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestResolveOrderSelfReference(t *testing.T) {
	g := &model.ScenarioGraph{Nodes: []model.Node{expression("x", "x * 2")}}
	_, err := ResolveOrder(g)
	var cycle *CycleDetectedError
	if !errors.As(err, &cycle) || cycle.Node != "x" {
		t.Fatalf("ResolveOrder() error = %v, want cycle at x", err)
	}
}

func TestResolveOrderMatchesWholeIdentifiers(t *testing.T) {
	// "cost" is a substring of "cost_total" but not a reference to it.
	g := &model.ScenarioGraph{Nodes: []model.Node{
		expression("cost", "cost_total / 2"),
		expression("cost_total", "100"),
		result("r", "cost"),
	}}
	order, err := ResolveOrder(g)
	if err != nil {
		t.Fatalf("ResolveOrder() error = %v", err)
	}
	if want := []string{"cost_total", "cost", "r"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestResolveOrderIgnoresParametersAndUnknownNames(t *testing.T) {
	g := &model.ScenarioGraph{Nodes: []model.Node{
		param("p", constant(1)),
		result("r", "max(p, ghost)"),
	}}
	order, err := ResolveOrder(g)
	if err != nil {
		t.Fatalf("ResolveOrder() error = %v", err)
	}
	if want := []string{"r"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

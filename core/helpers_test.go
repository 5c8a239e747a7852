package core

import (
	"strings"
	"testing"

	"github.com/signalsfoundry/riskgraph-simulator/model"
)

func mustLoad(t *testing.T, doc string) *model.ScenarioGraph {
	t.Helper()
	g, err := LoadScenario(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	return g
}

func constant(v float64) *model.Distribution {
	return &model.Distribution{
		Type:       model.DistConstant,
		Parameters: map[string]model.ParamValue{"value": model.Number(v)},
	}
}

func bernoulli(p float64) *model.Distribution {
	return &model.Distribution{
		Type:       model.DistBernoulli,
		Parameters: map[string]model.ParamValue{"p": model.Number(p)},
	}
}

func param(id string, d *model.Distribution) model.Node {
	return model.Node{ID: id, Type: model.NodeTypeParameter, Distribution: d}
}

func expression(id, formula string) model.Node {
	return model.Node{ID: id, Type: model.NodeTypeExpression, Formula: formula}
}

func result(id, formula string) model.Node {
	return model.Node{ID: id, Type: model.NodeTypeResult, Formula: formula}
}

func seed(v int64) *int64 { return &v }

// core/scenario_loader_test.go
package core

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/signalsfoundry/riskgraph-simulator/model"
)

func TestLoadScenario_DecodesGraph(t *testing.T) {
	jsonData := `
{
  "schemaVersion": "1.0",
  "nodes": [
    {
      "id": "revenue",
      "type": "Parameter",
      "distribution": {"type": "Normal", "parameters": {"mean": 100, "stddev": 10}}
    },
    {
      "id": "churn",
      "type": "parameter",
      "distribution": {"type": "discrete", "parameters": {"values": [0, 0.05, 0.1]}}
    },
    {
      "id": "net",
      "type": "expression",
      "formula": "revenue * (1 - churn)",
      "is_result": true
    },
    {
      "id": "final",
      "type": "result",
      "formula": "net"
    }
  ],
  "edges": [
    {
      "id": "price-war",
      "target": "revenue",
      "probability": 0.25,
      "priority": 3,
      "impact_type": "percentage",
      "distribution": {"type": "uniform", "parameters": {"lower": -20, "upper": -5}}
    }
  ]
}
`

	g, err := LoadScenario(strings.NewReader(jsonData))
	if err != nil {
		t.Fatalf("LoadScenario returned error: %v", err)
	}
	if g.SchemaVersion != "1.0" {
		t.Errorf("SchemaVersion = %q, want 1.0", g.SchemaVersion)
	}
	if len(g.Nodes) != 4 || len(g.Edges) != 1 {
		t.Fatalf("decoded %d nodes and %d edges, want 4 and 1", len(g.Nodes), len(g.Edges))
	}

	revenue, ok := g.NodeByID("revenue")
	if !ok {
		t.Fatalf("expected node revenue")
	}
	if revenue.Type != model.NodeTypeParameter {
		t.Errorf("revenue type = %v, want parameter", revenue.Type)
	}
	if revenue.Distribution.Type != model.DistNormal {
		t.Errorf("revenue distribution = %q, want normal", revenue.Distribution.Type)
	}
	if sd, ok := revenue.Distribution.Scalar("stddev"); !ok || sd != 10 {
		t.Errorf("stddev = %v (%v), want 10", sd, ok)
	}

	churn, _ := g.NodeByID("churn")
	if vs, ok := churn.Distribution.Values("values"); !ok || !reflect.DeepEqual(vs, []float64{0, 0.05, 0.1}) {
		t.Errorf("churn values = %v (%v)", vs, ok)
	}

	net, _ := g.NodeByID("net")
	if !net.IsResult || !net.Reported() {
		t.Errorf("net should be reported via is_result")
	}

	edge := g.Edges[0]
	if edge.ImpactType != model.ImpactPercentage || edge.Priority != 3 || edge.Probability != 0.25 {
		t.Errorf("edge = %+v", edge)
	}

	if v := Validate(g); len(v) != 0 {
		t.Errorf("loaded graph should validate, got %v", v)
	}

	sum := Describe(g)
	if !reflect.DeepEqual(sum.ResultIDs, []string{"net", "final"}) {
		t.Errorf("ResultIDs = %v", sum.ResultIDs)
	}
	if !reflect.DeepEqual(sum.ParameterIDs, []string{"revenue", "churn"}) {
		t.Errorf("ParameterIDs = %v", sum.ParameterIDs)
	}
}

func TestLoadScenario_KeepsMissingParametersForValidation(t *testing.T) {
	g, err := LoadScenario(strings.NewReader(`{"nodes":[{"id":"p","type":"parameter","distribution":{"type":"constant"}}]}`))
	if err != nil {
		t.Fatalf("LoadScenario returned error: %v", err)
	}
	if v := Validate(g); len(v) != 1 {
		t.Fatalf("Validate() = %v, want one missing-parameters violation", v)
	}
}

func TestLoadScenario_RejectsMalformedJSON(t *testing.T) {
	if _, err := LoadScenario(strings.NewReader(`{"nodes": [`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := LoadScenario(strings.NewReader(`{"nodes":[{"id":"p","type":"parameter","distribution":{"type":"discrete","parameters":{"values":"abc"}}}]}`)); err == nil {
		t.Fatalf("expected error for non-numeric parameter")
	}
}

func TestLoadScenarioFile_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "revenue.json")
	if err := os.WriteFile(jsonPath, []byte(revenueScenario), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	g, err := LoadScenarioFile(jsonPath)
	if err != nil {
		t.Fatalf("LoadScenarioFile(json): %v", err)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(g.Nodes))
	}

	_, err = LoadScenarioFile(filepath.Join(dir, "revenue.yaml"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("LoadScenarioFile(yaml) error = %v, want ErrUnsupportedFormat", err)
	}
	if IsScenarioFile("x.yaml") || !IsScenarioFile("x.HCL") {
		t.Fatalf("IsScenarioFile classification wrong")
	}
}

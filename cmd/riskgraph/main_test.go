package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/riskgraph-simulator/core"
	"github.com/signalsfoundry/riskgraph-simulator/internal/config"
	"github.com/signalsfoundry/riskgraph-simulator/internal/logging"
	"github.com/signalsfoundry/riskgraph-simulator/model"
)

const revenueJSON = `{
  "schemaVersion": "1.0",
  "nodes": [
    {"id": "revenue", "type": "parameter", "distribution": {"type": "constant", "parameters": {"value": 100}}},
    {"id": "margin", "type": "expression", "formula": "revenue * 0.25"},
    {"id": "profit", "type": "result", "formula": "margin + 1"}
  ],
  "edges": []
}`

const revenueHCL = `
schema_version = "1.0"

parameter "revenue" {
  distribution "constant" {
    value = 100
  }
}

expression "margin" {
  formula = "revenue * 0.25"
}

result "profit" {
  formula = "margin + 1"
}
`

const brokenJSON = `{
  "schemaVersion": "1.0",
  "nodes": [
    {"id": "revenue", "type": "parameter"},
    {"id": "out", "type": "result", "formula": "revenue"}
  ],
  "edges": [
    {"id": "e1", "target": "out", "probability": 0.5, "impactType": "absolute",
     "distribution": {"type": "constant", "parameters": {"value": 1}}}
  ]
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// run executes the CLI with args and returns stdout, stderr and the error.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSimulateJSONAndHCLAgree(t *testing.T) {
	dir := t.TempDir()
	jsonPath := writeFile(t, dir, "revenue.json", revenueJSON)
	hclPath := writeFile(t, dir, "revenue.hcl", revenueHCL)

	jsonOut, stderr, err := run(t, "simulate", jsonPath, "-n", "50", "--seed", "3")
	if err != nil {
		t.Fatalf("simulate json: %v (stderr %s)", err, stderr)
	}
	hclOut, stderr, err := run(t, "simulate", hclPath, "-n", "50", "--seed", "3")
	if err != nil {
		t.Fatalf("simulate hcl: %v (stderr %s)", err, stderr)
	}
	if jsonOut != hclOut {
		t.Fatalf("json and hcl output differ:\n%s\n---\n%s", jsonOut, hclOut)
	}

	var res model.SimulationResult
	if err := json.Unmarshal([]byte(jsonOut), &res); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got := res.Results["profit"].Mean; got != 26 {
		t.Fatalf("profit mean = %v, want 26", got)
	}
	if res.Metadata.Iterations != 50 || res.Metadata.Seed == nil || *res.Metadata.Seed != 3 {
		t.Fatalf("metadata = %+v", res.Metadata)
	}
}

func TestSimulateUsesConfigIterations(t *testing.T) {
	t.Setenv("RISKGRAPH_ITERATIONS", "")
	dir := t.TempDir()
	graph := writeFile(t, dir, "revenue.json", revenueJSON)
	cfg := writeFile(t, dir, "riskgraph.yaml", "simulation:\n  iterations: 12\n")

	out, _, err := run(t, "--config", cfg, "simulate", graph, "--compact")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("--compact output spans several lines: %q", out)
	}
	var res model.SimulationResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if res.Metadata.Iterations != 12 || res.Metadata.Seed != nil {
		t.Fatalf("metadata = %+v, want 12 iterations and null seed", res.Metadata)
	}
}

func TestSimulateFailures(t *testing.T) {
	dir := t.TempDir()
	broken := writeFile(t, dir, "broken.json", brokenJSON)
	text := writeFile(t, dir, "notes.txt", "hello")

	_, stderr, err := run(t, "simulate", broken, "-n", "5")
	if !errors.Is(err, core.ErrInvalidGraph) {
		t.Fatalf("simulate broken graph err = %v, want ErrInvalidGraph", err)
	}
	if !strings.Contains(stderr, `parameter "revenue" has no distribution`) {
		t.Fatalf("violations not listed on stderr: %q", stderr)
	}

	if _, _, err := run(t, "simulate", text); !errors.Is(err, core.ErrUnsupportedFormat) {
		t.Fatalf("simulate .txt err = %v, want ErrUnsupportedFormat", err)
	}
	if _, _, err := run(t, "simulate", filepath.Join(dir, "absent.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("simulate missing file err = %v, want ErrNotExist", err)
	}
	if _, _, err := run(t, "simulate"); err == nil {
		t.Fatalf("expected an argument count error")
	}
	if _, _, err := run(t, "simulate", broken, "-n", "0"); !errors.Is(err, core.ErrInvalidIterations) {
		t.Fatalf("zero iterations err = %v, want ErrInvalidIterations", err)
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()

	out, _, err := run(t, "validate", writeFile(t, dir, "ok.json", revenueJSON))
	if err != nil {
		t.Fatalf("validate ok graph: %v", err)
	}
	var ok validateReport
	if err := json.Unmarshal([]byte(out), &ok); err != nil || !ok.Valid || len(ok.Violations) != 0 {
		t.Fatalf("report = %+v (err %v)", ok, err)
	}

	out, _, err = run(t, "validate", writeFile(t, dir, "broken.json", brokenJSON))
	if !errors.Is(err, errViolations) {
		t.Fatalf("validate broken graph err = %v, want errViolations", err)
	}
	var bad validateReport
	if err := json.Unmarshal([]byte(out), &bad); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if bad.Valid || len(bad.Violations) != 2 {
		t.Fatalf("report = %+v, want 2 violations", bad)
	}
}

func TestOrderCommand(t *testing.T) {
	dir := t.TempDir()
	out, _, err := run(t, "order", writeFile(t, dir, "revenue.hcl", revenueHCL))
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if out != "margin\nprofit\n" {
		t.Fatalf("order output = %q", out)
	}

	cyclic := `{"nodes": [
	  {"id": "a", "type": "expression", "formula": "b"},
	  {"id": "b", "type": "result", "formula": "a"}
	], "edges": []}`
	if _, _, err := run(t, "order", writeFile(t, dir, "cyclic.json", cyclic)); !errors.Is(err, core.ErrCycleDetected) {
		t.Fatalf("order cyclic err = %v, want ErrCycleDetected", err)
	}
}

func TestServeAnswersAndShutsDown(t *testing.T) {
	for _, key := range []string{"RISKGRAPH_TRACING_ENABLED", "RISKGRAPH_METRICS_ENABLED", "RISKGRAPH_SCENARIO_DIR"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	writeFile(t, dir, "revenue.json", revenueJSON)

	cfg := config.Default()
	cfg.ScenarioDir = dir
	cfg.HTTP.ShutdownTimeout = 2 * time.Second
	a := &app{
		stdout:   io.Discard,
		stderr:   io.Discard,
		registry: prometheus.NewRegistry(),
		cfg:      cfg,
		log:      logging.Noop(),
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, lis) }()

	base := fmt.Sprintf("http://%s", lis.Addr())
	resp, err := http.Post(base+"/scenarios/revenue/simulate?iterations=10&seed=1", "application/json", nil)
	if err != nil {
		cancel()
		t.Fatalf("POST simulate: %v", err)
	}
	var res model.SimulationResult
	decodeErr := json.NewDecoder(resp.Body).Decode(&res)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || decodeErr != nil || res.Results["profit"].Mean != 26 {
		cancel()
		t.Fatalf("status %d, decode err %v, result %+v", resp.StatusCode, decodeErr, res)
	}

	metrics, err := http.Get(base + "/metrics")
	if err != nil {
		cancel()
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(metrics.Body)
	metrics.Body.Close()
	for _, want := range []string{"catalog_scenarios 1", `simulation_runs_total{outcome="ok"} 1`} {
		if !strings.Contains(string(body), want) {
			cancel()
			t.Fatalf("metrics output missing %q", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop after cancellation")
	}
}

func TestServeRejectsMissingScenarioDir(t *testing.T) {
	t.Setenv("RISKGRAPH_TRACING_ENABLED", "")
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	cfg.ScenarioDir = filepath.Join(t.TempDir(), "absent")
	a := &app{stdout: io.Discard, stderr: io.Discard, cfg: cfg, log: logging.Noop()}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	if err := a.serve(context.Background(), lis); err == nil {
		t.Fatalf("expected an error for a missing scenario directory")
	}
}

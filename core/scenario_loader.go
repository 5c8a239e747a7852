// core/scenario_loader.go
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/signalsfoundry/riskgraph-simulator/internal/hclscenario"
	"github.com/signalsfoundry/riskgraph-simulator/model"
)

// ErrUnsupportedFormat indicates a scenario file with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported scenario format")

// ScenarioSummary is a small summary of a loaded graph.
// It's mainly useful for logging from main().
type ScenarioSummary struct {
	SchemaVersion string
	ParameterIDs  []string
	ComputedIDs   []string
	ResultIDs     []string
	EdgeIDs       []string
}

// LoadScenario decodes a JSON graph document from r.
//
// It fails only on JSON / structural decode errors. Semantic problems
// (dangling edge targets, missing parameters blocks) are left to Validate
// so that all of them can be reported together.
func LoadScenario(r io.Reader) (*model.ScenarioGraph, error) {
	var g model.ScenarioGraph
	dec := json.NewDecoder(r)
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}
	return &g, nil
}

// LoadScenarioFile reads a graph from path, picking the decoder by
// extension: .json for graph documents, .hcl for the HCL block format.
func LoadScenarioFile(path string) (*model.ScenarioGraph, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		g, err := LoadScenario(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return g, nil
	case ".hcl":
		return hclscenario.LoadFile(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// IsScenarioFile reports whether path has an extension LoadScenarioFile
// understands.
func IsScenarioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".hcl":
		return true
	}
	return false
}

// Describe summarises g for logging.
func Describe(g *model.ScenarioGraph) *ScenarioSummary {
	s := &ScenarioSummary{}
	if g == nil {
		return s
	}
	s.SchemaVersion = g.SchemaVersion
	for _, n := range g.Nodes {
		switch {
		case n.Type == model.NodeTypeParameter:
			s.ParameterIDs = append(s.ParameterIDs, n.ID)
		case n.Computed():
			s.ComputedIDs = append(s.ComputedIDs, n.ID)
		}
		if n.Reported() {
			s.ResultIDs = append(s.ResultIDs, n.ID)
		}
	}
	for _, e := range g.Edges {
		s.EdgeIDs = append(s.EdgeIDs, e.ID)
	}
	return s
}

// Package hclscenario reads scenario graphs written as HCL blocks.
//
// A scenario file is a sequence of parameter, expression, result and edge
// blocks. Distributions are nested blocks labelled with their type, whose
// attributes are the distribution parameters:
//
//	schema_version = "1.0"
//
//	parameter "revenue" {
//	  distribution "normal" {
//	    mean   = 100
//	    stddev = 10
//	  }
//	}
//
//	result "final_revenue" {
//	  formula = "revenue * 0.9"
//	}
//
//	edge "price_war" {
//	  target      = "revenue"
//	  probability = 0.25
//	  priority    = 1
//	  impact_type = "percentage"
//	  distribution "uniform" {
//	    lower = -20
//	    upper = -5
//	  }
//	}
//
// Nodes keep their order of appearance in the file. A distribution block
// with no attributes decodes like a JSON distribution without a parameters
// block, so validation reports it.
package hclscenario

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/signalsfoundry/riskgraph-simulator/model"
)

// ErrDecode wraps every HCL parse or decode failure.
var ErrDecode = errors.New("hcl scenario decode failed")

var fileSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "schema_version"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "parameter", LabelNames: []string{"id"}},
		{Type: "expression", LabelNames: []string{"id"}},
		{Type: "result", LabelNames: []string{"id"}},
		{Type: "edge", LabelNames: []string{"id"}},
	},
}

type parameterBlock struct {
	Distribution *distributionBlock `hcl:"distribution,block"`
	IsResult     *bool              `hcl:"is_result,optional"`
}

type formulaBlock struct {
	Formula  string `hcl:"formula"`
	IsResult *bool  `hcl:"is_result,optional"`
}

type edgeBlock struct {
	Target       string             `hcl:"target"`
	Probability  float64            `hcl:"probability"`
	Priority     int                `hcl:"priority,optional"`
	ImpactType   string             `hcl:"impact_type"`
	Distribution *distributionBlock `hcl:"distribution,block"`
}

type distributionBlock struct {
	Type   string   `hcl:"type,label"`
	Params hcl.Body `hcl:",remain"`
}

// LoadFile parses the HCL scenario at path.
func LoadFile(path string) (*model.ScenarioGraph, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(src, path)
}

// Load parses an HCL scenario held in src. filename is used in
// diagnostics only.
func Load(src []byte, filename string) (*model.ScenarioGraph, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrDecode, filename, diags)
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, filename, diags)
	}

	g := &model.ScenarioGraph{
		Nodes: make([]model.Node, 0, len(content.Blocks)),
		Edges: make([]model.Edge, 0),
	}
	if attr, ok := content.Attributes["schema_version"]; ok {
		diags = gohcl.DecodeExpression(attr.Expr, nil, &g.SchemaVersion)
		if diags.HasErrors() {
			return nil, fmt.Errorf("%w: %s: %w", ErrDecode, filename, diags)
		}
	}

	for _, block := range content.Blocks {
		id := block.Labels[0]
		switch block.Type {
		case "parameter":
			var pb parameterBlock
			if diags := gohcl.DecodeBody(block.Body, nil, &pb); diags.HasErrors() {
				return nil, fmt.Errorf("%w: parameter %q: %w", ErrDecode, id, diags)
			}
			dist, err := pb.Distribution.toModel()
			if err != nil {
				return nil, fmt.Errorf("%w: parameter %q: %w", ErrDecode, id, err)
			}
			n := model.Node{ID: id, Type: model.NodeTypeParameter, Distribution: dist}
			if pb.IsResult != nil {
				n.IsResult = *pb.IsResult
			}
			g.Nodes = append(g.Nodes, n)

		case "expression", "result":
			var fb formulaBlock
			if diags := gohcl.DecodeBody(block.Body, nil, &fb); diags.HasErrors() {
				return nil, fmt.Errorf("%w: %s %q: %w", ErrDecode, block.Type, id, diags)
			}
			n := model.Node{ID: id, Formula: fb.Formula}
			n.DeclareType(block.Type)
			if fb.IsResult != nil {
				n.IsResult = *fb.IsResult
			}
			g.Nodes = append(g.Nodes, n)

		case "edge":
			var eb edgeBlock
			if diags := gohcl.DecodeBody(block.Body, nil, &eb); diags.HasErrors() {
				return nil, fmt.Errorf("%w: edge %q: %w", ErrDecode, id, diags)
			}
			dist, err := eb.Distribution.toModel()
			if err != nil {
				return nil, fmt.Errorf("%w: edge %q: %w", ErrDecode, id, err)
			}
			e := model.Edge{
				ID:           id,
				Target:       eb.Target,
				Probability:  eb.Probability,
				Priority:     eb.Priority,
				Distribution: dist,
			}
			e.DeclareImpact(eb.ImpactType)
			g.Edges = append(g.Edges, e)
		}
	}
	return g, nil
}

func (d *distributionBlock) toModel() (*model.Distribution, error) {
	if d == nil {
		return nil, nil
	}
	dist := &model.Distribution{Type: model.NormalizeDistributionType(d.Type)}

	attrs, diags := d.Params.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	if len(attrs) == 0 {
		return dist, nil
	}

	dist.Parameters = make(map[string]model.ParamValue, len(attrs))
	for name, attr := range attrs {
		v, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		pv, err := paramValue(v)
		if err != nil {
			return nil, fmt.Errorf("distribution %q parameter %q: %w", d.Type, name, err)
		}
		dist.Parameters[name] = pv
	}
	return dist, nil
}

// paramValue converts a number or a list/tuple of numbers.
func paramValue(v cty.Value) (model.ParamValue, error) {
	if v.IsNull() || !v.IsKnown() {
		return model.ParamValue{}, errors.New("value must be known and non-null")
	}
	ty := v.Type()
	switch {
	case ty.Equals(cty.Number):
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return model.ParamValue{}, err
		}
		return model.Number(f), nil

	case ty.IsListType() || ty.IsTupleType():
		list := make([]float64, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, el := it.Element()
			if el.IsNull() || !el.Type().Equals(cty.Number) {
				return model.ParamValue{}, fmt.Errorf("list elements must be numbers, got %s", el.Type().FriendlyName())
			}
			var f float64
			if err := gocty.FromCtyValue(el, &f); err != nil {
				return model.ParamValue{}, err
			}
			list = append(list, f)
		}
		return model.List(list...), nil

	default:
		return model.ParamValue{}, fmt.Errorf("expected a number or a list of numbers, got %s", ty.FriendlyName())
	}
}

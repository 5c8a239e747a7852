package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wire shapes for the graph document. They accept both the camelCase keys
// of the public schema and the snake_case aliases emitted by older clients.

type graphJSON struct {
	SchemaVersion    string     `json:"schemaVersion"`
	SchemaVersionAlt string     `json:"schema_version,omitempty"`
	Nodes            []nodeJSON `json:"nodes"`
	Edges            []edgeJSON `json:"edges"`
}

type nodeJSON struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Distribution *distributionJSON `json:"distribution,omitempty"`
	Formula      string            `json:"formula,omitempty"`
	IsResult     *bool             `json:"isResult,omitempty"`
	IsResultAlt  *bool             `json:"is_result,omitempty"`
}

type edgeJSON struct {
	ID            string            `json:"id"`
	Target        string            `json:"target"`
	Probability   float64           `json:"probability"`
	Priority      int               `json:"priority"`
	ImpactType    string            `json:"impactType"`
	ImpactTypeAlt string            `json:"impact_type,omitempty"`
	Distribution  *distributionJSON `json:"distribution,omitempty"`
}

type distributionJSON struct {
	Type       string                `json:"type"`
	Parameters map[string]ParamValue `json:"parameters"`
}

// UnmarshalJSON accepts a number or an array of numbers.
func (p *ParamValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []float64
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("parameter list: %w", err)
		}
		*p = ParamValue{List: list, IsList: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("parameter must be a number or a list of numbers: %w", err)
	}
	*p = ParamValue{Number: v}
	return nil
}

// MarshalJSON renders a number or an array of numbers.
func (p ParamValue) MarshalJSON() ([]byte, error) {
	if p.IsList {
		list := p.List
		if list == nil {
			list = []float64{}
		}
		return json.Marshal(list)
	}
	return json.Marshal(p.Number)
}

func (d *distributionJSON) toModel() *Distribution {
	if d == nil {
		return nil
	}
	return &Distribution{
		Type:       NormalizeDistributionType(d.Type),
		Parameters: d.Parameters,
	}
}

func distributionToJSON(d *Distribution) *distributionJSON {
	if d == nil {
		return nil
	}
	return &distributionJSON{Type: string(d.Type), Parameters: d.Parameters}
}

// UnmarshalJSON decodes the graph document.
func (g *ScenarioGraph) UnmarshalJSON(data []byte) error {
	var in graphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	g.SchemaVersion = in.SchemaVersion
	if g.SchemaVersion == "" {
		g.SchemaVersion = in.SchemaVersionAlt
	}

	g.Nodes = make([]Node, 0, len(in.Nodes))
	for _, jn := range in.Nodes {
		n := Node{
			ID:           jn.ID,
			Distribution: jn.Distribution.toModel(),
			Formula:      jn.Formula,
		}
		n.DeclareType(jn.Type)
		switch {
		case jn.IsResult != nil:
			n.IsResult = *jn.IsResult
		case jn.IsResultAlt != nil:
			n.IsResult = *jn.IsResultAlt
		}
		g.Nodes = append(g.Nodes, n)
	}

	g.Edges = make([]Edge, 0, len(in.Edges))
	for _, je := range in.Edges {
		e := Edge{
			ID:           je.ID,
			Target:       je.Target,
			Probability:  je.Probability,
			Priority:     je.Priority,
			Distribution: je.Distribution.toModel(),
		}
		impact := je.ImpactType
		if impact == "" {
			impact = je.ImpactTypeAlt
		}
		e.DeclareImpact(impact)
		g.Edges = append(g.Edges, e)
	}
	return nil
}

// MarshalJSON encodes the graph using the camelCase schema.
func (g ScenarioGraph) MarshalJSON() ([]byte, error) {
	out := graphJSON{
		SchemaVersion: g.SchemaVersion,
		Nodes:         make([]nodeJSON, 0, len(g.Nodes)),
		Edges:         make([]edgeJSON, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		jn := nodeJSON{
			ID:           n.ID,
			Type:         n.RawType(),
			Distribution: distributionToJSON(n.Distribution),
			Formula:      n.Formula,
		}
		if n.IsResult {
			isResult := true
			jn.IsResult = &isResult
		}
		out.Nodes = append(out.Nodes, jn)
	}
	for _, e := range g.Edges {
		out.Edges = append(out.Edges, edgeJSON{
			ID:           e.ID,
			Target:       e.Target,
			Probability:  e.Probability,
			Priority:     e.Priority,
			ImpactType:   e.RawImpactType(),
			Distribution: distributionToJSON(e.Distribution),
		})
	}
	return json.Marshal(out)
}

package model

import (
	"fmt"
	"strings"
)

// NodeType identifies the role of a node in a scenario graph.
type NodeType int

const (
	NodeTypeUnknown NodeType = iota
	NodeTypeParameter
	NodeTypeExpression
	NodeTypeResult
)

// String returns the lower-case wire name of the node type.
func (t NodeType) String() string {
	switch t {
	case NodeTypeParameter:
		return "parameter"
	case NodeTypeExpression:
		return "expression"
	case NodeTypeResult:
		return "result"
	default:
		return "unknown"
	}
}

// ParseNodeType maps a wire name onto a NodeType. Matching is
// case-insensitive; unrecognised names return NodeTypeUnknown and an error.
func ParseNodeType(s string) (NodeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "parameter":
		return NodeTypeParameter, nil
	case "expression":
		return NodeTypeExpression, nil
	case "result":
		return NodeTypeResult, nil
	default:
		return NodeTypeUnknown, fmt.Errorf("unknown node type %q", s)
	}
}

// ImpactType controls how a fired risk edge changes its target value.
type ImpactType int

const (
	ImpactUnknown ImpactType = iota
	// ImpactAbsolute adds the drawn impact to the target value.
	ImpactAbsolute
	// ImpactPercentage adds target*(impact/100) to the target value.
	ImpactPercentage
)

func (t ImpactType) String() string {
	switch t {
	case ImpactAbsolute:
		return "absolute"
	case ImpactPercentage:
		return "percentage"
	default:
		return "unknown"
	}
}

// ParseImpactType maps a wire name onto an ImpactType.
func ParseImpactType(s string) (ImpactType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "absolute":
		return ImpactAbsolute, nil
	case "percentage", "percent":
		return ImpactPercentage, nil
	default:
		return ImpactUnknown, fmt.Errorf("unknown impact type %q", s)
	}
}

// ScenarioGraph is the full input document: parameters, derived
// expressions, results and the risk edges that perturb parameters.
//
// A graph is owned by a single simulation run and treated as read-only
// once the run starts; workers share it without copying.
type ScenarioGraph struct {
	SchemaVersion string
	Nodes         []Node
	Edges         []Edge
}

// Node is a single vertex of the scenario graph.
type Node struct {
	ID   string
	Type NodeType

	// Distribution is populated for parameter nodes only.
	Distribution *Distribution
	// Formula is populated for expression and result nodes only.
	Formula string

	IsResult bool

	// rawType keeps the original type string when it could not be parsed,
	// so validation can report it.
	rawType string
}

// Reported reports whether statistics for this node appear in the output.
func (n Node) Reported() bool {
	return n.Type == NodeTypeResult || n.IsResult
}

// Computed reports whether the node's value comes from a formula.
func (n Node) Computed() bool {
	return n.Type == NodeTypeExpression || n.Type == NodeTypeResult
}

// RawType returns the type string the node was declared with.
func (n Node) RawType() string {
	if n.rawType != "" {
		return n.rawType
	}
	return n.Type.String()
}

// Edge is a probabilistic perturbation of a parameter node.
type Edge struct {
	ID          string
	Target      string
	Probability float64
	// Priority orders edge application; lower values apply first and ties
	// keep declaration order.
	Priority     int
	ImpactType   ImpactType
	Distribution *Distribution

	rawImpact string
}

// RawImpactType returns the impact type string the edge was declared with.
func (e Edge) RawImpactType() string {
	if e.rawImpact != "" {
		return e.rawImpact
	}
	return e.ImpactType.String()
}

// NodeByID returns the node with the given id, or false.
func (g *ScenarioGraph) NodeByID(id string) (Node, bool) {
	if g == nil {
		return Node{}, false
	}
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Index returns the nodes keyed by id. When ids repeat the first
// declaration wins.
func (g *ScenarioGraph) Index() map[string]Node {
	idx := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, ok := idx[n.ID]; ok {
			continue
		}
		idx[n.ID] = n
	}
	return idx
}

// ResultIDs lists the reported node ids in declaration order.
func (g *ScenarioGraph) ResultIDs() []string {
	var ids []string
	for _, n := range g.Nodes {
		if n.Reported() {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Counts returns the number of parameter, computed and reported nodes.
func (g *ScenarioGraph) Counts() (parameters, computed, results int) {
	for _, n := range g.Nodes {
		if n.Type == NodeTypeParameter {
			parameters++
		}
		if n.Computed() {
			computed++
		}
		if n.Reported() {
			results++
		}
	}
	return parameters, computed, results
}

// DeclareType sets the node type from its wire name, remembering the raw
// string when it is not recognised.
func (n *Node) DeclareType(raw string) {
	t, err := ParseNodeType(raw)
	n.Type = t
	n.rawType = ""
	if err != nil {
		n.rawType = raw
	}
}

// DeclareImpact sets the impact type from its wire name, remembering the
// raw string when it is not recognised.
func (e *Edge) DeclareImpact(raw string) {
	t, err := ParseImpactType(raw)
	e.ImpactType = t
	e.rawImpact = ""
	if err != nil {
		e.rawImpact = raw
	}
}

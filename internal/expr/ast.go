package expr

// Span is a byte range in the source expression.
type Span struct {
	Start int
	End   int
}

// NodeKind tags the variant held by a Node.
type NodeKind int

const (
	KindLiteral NodeKind = iota
	KindVariable
	KindBinary
	KindUnary
	KindCompare
	KindCall
)

func (k NodeKind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindVariable:
		return "variable"
	case KindBinary:
		return "binary"
	case KindUnary:
		return "unary"
	case KindCompare:
		return "compare"
	case KindCall:
		return "call"
	default:
		return "unknown"
	}
}

// Node is one vertex of a parsed expression. Only the fields of its Kind
// are populated.
type Node struct {
	Kind NodeKind
	Span Span

	// Literal
	Number float64

	// Variable, Call
	Name string

	// Binary, Unary
	Op      string
	Left    *Node
	Right   *Node
	Operand *Node

	// Compare: len(Ops) == len(Operands)-1
	Operands []*Node
	Ops      []string

	// Call
	Args []*Node
}

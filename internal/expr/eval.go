package expr

import (
	"fmt"
	"math"
)

// Env resolves variable names to values.
type Env interface {
	Lookup(name string) (Value, bool)
}

// Bindings is a map-backed Env.
type Bindings map[string]Value

// Lookup implements Env.
func (b Bindings) Lookup(name string) (Value, bool) {
	v, ok := b[name]
	return v, ok
}

// Program is a parsed expression that can be evaluated repeatedly.
// It is immutable and safe for concurrent use.
type Program struct {
	source string
	root   *Node
}

// Compile parses source once for repeated evaluation.
func Compile(source string) (*Program, error) {
	root, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return &Program{source: source, root: root}, nil
}

// Source returns the expression text.
func (p *Program) Source() string { return p.source }

// Eval evaluates the program against env.
func (p *Program) Eval(env Env) (Value, error) {
	v, err := evalNode(p.root, env)
	if err != nil {
		if ee, ok := err.(*EvaluationError); ok && ee.Expression == "" {
			ee.Expression = p.source
		}
		return Value{}, err
	}
	return v, nil
}

// Evaluate parses and evaluates expression against bindings.
func Evaluate(expression string, bindings Bindings) (Value, error) {
	prog, err := Compile(expression)
	if err != nil {
		return Value{}, err
	}
	return prog.Eval(bindings)
}

func evalNode(n *Node, env Env) (Value, error) {
	switch n.Kind {
	case KindLiteral:
		return Scalar(n.Number), nil

	case KindVariable:
		if env != nil {
			if v, ok := env.Lookup(n.Name); ok {
				return v, nil
			}
		}
		return Value{}, &EvaluationError{Token: n.Name, Offset: n.Span.Start, Reason: fmt.Sprintf("unknown variable %q", n.Name)}

	case KindUnary:
		v, err := evalNode(n.Operand, env)
		if err != nil {
			return Value{}, err
		}
		if n.Op == "+" {
			return zip(n.Op, false, func(xs []float64) (float64, error) { return xs[0], nil }, v)
		}
		return zip(n.Op, false, func(xs []float64) (float64, error) { return -xs[0], nil }, v)

	case KindBinary:
		left, err := evalNode(n.Left, env)
		if err != nil {
			return Value{}, err
		}
		right, err := evalNode(n.Right, env)
		if err != nil {
			return Value{}, err
		}
		f, ok := arithmetic[n.Op]
		if !ok {
			return Value{}, &EvaluationError{Token: n.Op, Offset: n.Span.Start, Reason: fmt.Sprintf("operator %q is not allowed", n.Op)}
		}
		out, err := zip(n.Op, false, func(xs []float64) (float64, error) { return f(xs[0], xs[1]) }, left, right)
		if err != nil {
			return Value{}, withOffset(err, n.Left.Span.End)
		}
		return out, nil

	case KindCompare:
		return evalCompare(n, env)

	case KindCall:
		fn, ok := functions[n.Name]
		if !ok {
			return Value{}, &EvaluationError{Token: n.Name, Offset: n.Span.Start, Reason: fmt.Sprintf("function %q is not allowed", n.Name)}
		}
		if err := fn.checkArity(n.Name, len(n.Args)); err != nil {
			err.Offset = n.Span.Start
			return Value{}, err
		}
		args := make([]Value, len(n.Args))
		for i, a := range n.Args {
			v, err := evalNode(a, env)
			if err != nil {
				return Value{}, err
			}
			args[i] = v
		}
		out, err := fn.call(args)
		if err != nil {
			return Value{}, withOffset(err, n.Span.Start)
		}
		return out, nil

	default:
		return Value{}, &EvaluationError{Offset: n.Span.Start, Reason: fmt.Sprintf("unsupported node kind %s", n.Kind)}
	}
}

// evalCompare evaluates a chained comparison as the AND of each adjacent
// pair. Every operand is evaluated exactly once, before any pair is
// combined, so an unknown variable anywhere in the chain is an error.
func evalCompare(n *Node, env Env) (Value, error) {
	operands := make([]Value, len(n.Operands))
	for i, op := range n.Operands {
		v, err := evalNode(op, env)
		if err != nil {
			return Value{}, err
		}
		operands[i] = v
	}
	result := Bool(true)
	for i, op := range n.Ops {
		cmp := comparisons[op]
		pair, err := zip(op, true, func(xs []float64) (float64, error) {
			return b2f(cmp(xs[0], xs[1])), nil
		}, operands[i], operands[i+1])
		if err != nil {
			return Value{}, withOffset(err, n.Operands[i].Span.End)
		}
		result, err = zip(op, true, func(xs []float64) (float64, error) {
			return b2f(xs[0] != 0 && xs[1] != 0), nil
		}, result, pair)
		if err != nil {
			return Value{}, withOffset(err, n.Operands[i].Span.End)
		}
	}
	return result, nil
}

func withOffset(err error, offset int) error {
	if ee, ok := err.(*EvaluationError); ok && ee.Offset == 0 {
		ee.Offset = offset
	}
	return err
}

var arithmetic = map[string]func(a, b float64) (float64, error){
	"+": func(a, b float64) (float64, error) { return a + b, nil },
	"-": func(a, b float64) (float64, error) { return a - b, nil },
	"*": func(a, b float64) (float64, error) { return a * b, nil },
	"/": func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, &EvaluationError{Token: "/", Reason: "division by zero"}
		}
		return a / b, nil
	},
	// Floored modulo: the result takes the sign of the divisor.
	"%": func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, &EvaluationError{Token: "%", Reason: "modulo by zero"}
		}
		r := math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return r, nil
	},
	"**": func(a, b float64) (float64, error) {
		if a == 0 && b < 0 {
			return 0, &EvaluationError{Token: "**", Reason: "zero raised to a negative power"}
		}
		return math.Pow(a, b), nil
	},
}

var comparisons = map[string]func(a, b float64) bool{
	"<":  func(a, b float64) bool { return a < b },
	"<=": func(a, b float64) bool { return a <= b },
	">":  func(a, b float64) bool { return a > b },
	">=": func(a, b float64) bool { return a >= b },
	"==": func(a, b float64) bool { return a == b },
	"!=": func(a, b float64) bool { return a != b },
}

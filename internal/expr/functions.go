package expr

import (
	"fmt"
	"math"
	"sort"
)

type function struct {
	minArgs int
	maxArgs int // -1 for variadic
	call    func(args []Value) (Value, error)
}

func (f function) checkArity(name string, n int) *EvaluationError {
	if n < f.minArgs || (f.maxArgs >= 0 && n > f.maxArgs) {
		want := fmt.Sprintf("%d", f.minArgs)
		switch {
		case f.maxArgs < 0:
			want = fmt.Sprintf("at least %d", f.minArgs)
		case f.maxArgs != f.minArgs:
			want = fmt.Sprintf("%d to %d", f.minArgs, f.maxArgs)
		}
		return &EvaluationError{Token: name, Reason: fmt.Sprintf("%s() takes %s argument(s), got %d", name, want, n)}
	}
	return nil
}

// functions is the complete call whitelist.
var functions = map[string]function{
	"abs":   unary("abs", math.Abs),
	"floor": unary("floor", math.Floor),
	"ceil":  unary("ceil", math.Ceil),
	"log":   unary("log", math.Log),
	"exp":   unary("exp", math.Exp),
	"round": {minArgs: 1, maxArgs: 2, call: roundFn},
	"min":   {minArgs: 2, maxArgs: -1, call: fold("min", math.Min)},
	"max":   {minArgs: 2, maxArgs: -1, call: fold("max", math.Max)},
	"where": {minArgs: 3, maxArgs: 3, call: whereFn},
}

// FunctionNames lists the whitelisted functions in sorted order.
func FunctionNames() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func unary(name string, f func(float64) float64) function {
	return function{minArgs: 1, maxArgs: 1, call: func(args []Value) (Value, error) {
		return zip(name, false, func(xs []float64) (float64, error) {
			return f(xs[0]), nil
		}, args[0])
	}}
}

// fold reduces the arguments elementwise, so min(a, b) over vectors picks
// the smaller element at each index.
func fold(name string, f func(a, b float64) float64) func(args []Value) (Value, error) {
	return func(args []Value) (Value, error) {
		return zip(name, false, func(xs []float64) (float64, error) {
			acc := xs[0]
			for _, x := range xs[1:] {
				acc = f(acc, x)
			}
			return acc, nil
		}, args...)
	}
}

// roundFn rounds half to even, optionally to a number of decimals.
func roundFn(args []Value) (Value, error) {
	if len(args) == 1 {
		return zip("round", false, func(xs []float64) (float64, error) {
			return math.RoundToEven(xs[0]), nil
		}, args[0])
	}
	digits, ok := args[1].Float()
	if !ok || digits != math.Trunc(digits) {
		return Value{}, &EvaluationError{Token: "round", Reason: "round() decimals must be an integer scalar"}
	}
	scale := math.Pow(10, digits)
	return zip("round", false, func(xs []float64) (float64, error) {
		return math.RoundToEven(xs[0]*scale) / scale, nil
	}, args[0])
}

func whereFn(args []Value) (Value, error) {
	return zip("where", false, func(xs []float64) (float64, error) {
		if xs[0] != 0 {
			return xs[1], nil
		}
		return xs[2], nil
	}, args...)
}

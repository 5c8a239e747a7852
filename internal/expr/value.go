package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a scalar or a vector of float64. Comparison results carry a
// boolean flag; numerically they are 1 or 0.
type Value struct {
	num     float64
	vec     []float64
	isVec   bool
	boolean bool
}

// Scalar wraps a single number.
func Scalar(v float64) Value { return Value{num: v} }

// Vector wraps a copy of vs.
func Vector(vs ...float64) Value {
	out := make([]float64, len(vs))
	copy(out, vs)
	return Value{vec: out, isVec: true}
}

// Bool wraps a truth value.
func Bool(b bool) Value {
	return Value{num: b2f(b), boolean: true}
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// IsVector reports whether v holds a vector.
func (v Value) IsVector() bool { return v.isVec }

// IsBool reports whether v came from a comparison.
func (v Value) IsBool() bool { return v.boolean }

// Len is 1 for scalars and the element count for vectors.
func (v Value) Len() int {
	if v.isVec {
		return len(v.vec)
	}
	return 1
}

// At returns element i; scalars broadcast to every index.
func (v Value) At(i int) float64 {
	if v.isVec {
		return v.vec[i]
	}
	return v.num
}

// Float returns the scalar value. ok is false for vectors.
func (v Value) Float() (f float64, ok bool) {
	if v.isVec {
		return 0, false
	}
	return v.num, true
}

// Floats returns the elements as a new slice.
func (v Value) Floats() []float64 {
	if !v.isVec {
		return []float64{v.num}
	}
	out := make([]float64, len(v.vec))
	copy(out, v.vec)
	return out
}

// Truth returns the truth value of a scalar. For vectors it reports
// whether every element is non-zero.
func (v Value) Truth() bool {
	if !v.isVec {
		return v.num != 0
	}
	for _, x := range v.vec {
		if x == 0 {
			return false
		}
	}
	return true
}

// HasNaN reports whether any element is NaN.
func (v Value) HasNaN() bool {
	if !v.isVec {
		return math.IsNaN(v.num)
	}
	for _, x := range v.vec {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

func (v Value) String() string {
	format := func(x float64) string {
		if v.boolean {
			return strconv.FormatBool(x != 0)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	if !v.isVec {
		return format(v.num)
	}
	parts := make([]string, len(v.vec))
	for i, x := range v.vec {
		parts[i] = format(x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// broadcastLen returns the common length of the operands, or an error
// when two vectors disagree.
func broadcastLen(token string, vals ...Value) (int, bool, error) {
	n, vec := 1, false
	for _, v := range vals {
		if !v.isVec {
			continue
		}
		if !vec {
			n, vec = len(v.vec), true
			continue
		}
		if len(v.vec) != n {
			return 0, false, &EvaluationError{Token: token, Reason: fmt.Sprintf("operands have mismatched lengths %d and %d", n, len(v.vec))}
		}
	}
	return n, vec, nil
}

// zip applies f elementwise across the operands with scalar broadcasting.
func zip(token string, boolean bool, f func(xs []float64) (float64, error), vals ...Value) (Value, error) {
	n, vec, err := broadcastLen(token, vals...)
	if err != nil {
		return Value{}, err
	}
	xs := make([]float64, len(vals))
	if !vec {
		for j, v := range vals {
			xs[j] = v.num
		}
		r, err := f(xs)
		if err != nil {
			return Value{}, err
		}
		return Value{num: r, boolean: boolean}, nil
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		for j, v := range vals {
			xs[j] = v.At(i)
		}
		r, err := f(xs)
		if err != nil {
			return Value{}, err
		}
		out[i] = r
	}
	return Value{vec: out, isVec: true, boolean: boolean}, nil
}

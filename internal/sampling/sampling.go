// Package sampling draws values from the tagged distributions used by
// parameter nodes and risk edges.
//
// Every function takes the generator explicitly; the package holds no
// random state of its own, so concurrent runs never share a stream.
package sampling

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/signalsfoundry/riskgraph-simulator/model"
)

// ErrUnsupportedDistribution is matched by every UnsupportedDistributionError.
var ErrUnsupportedDistribution = errors.New("unsupported distribution")

// UnsupportedDistributionError reports an unknown type tag or a missing or
// malformed parameter.
type UnsupportedDistributionError struct {
	Type   string
	Reason string
}

func (e *UnsupportedDistributionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unsupported distribution type %q", e.Type)
	}
	return fmt.Sprintf("unsupported distribution %q: %s", e.Type, e.Reason)
}

// Is lets errors.Is match against ErrUnsupportedDistribution.
func (e *UnsupportedDistributionError) Is(target error) bool {
	return target == ErrUnsupportedDistribution
}

func unsupported(t model.DistributionType, format string, args ...any) error {
	return &UnsupportedDistributionError{Type: string(t), Reason: fmt.Sprintf(format, args...)}
}

// Drawer produces one draw per call from a validated distribution.
type Drawer interface {
	Draw(rng *rand.Rand) float64
}

// DrawerFunc adapts a function to the Drawer interface.
type DrawerFunc func(rng *rand.Rand) float64

// Draw calls f(rng).
func (f DrawerFunc) Draw(rng *rand.Rand) float64 { return f(rng) }

// Compile validates d and returns a Drawer bound to its parameters.
func Compile(d *model.Distribution) (Drawer, error) {
	if d == nil {
		return nil, &UnsupportedDistributionError{Reason: "distribution is missing"}
	}
	t := model.NormalizeDistributionType(string(d.Type))

	switch t {
	case model.DistConstant:
		v, err := scalar(d, t, "value")
		if err != nil {
			return nil, err
		}
		return DrawerFunc(func(*rand.Rand) float64 { return v }), nil

	case model.DistNormal:
		mean, err := scalar(d, t, "mean")
		if err != nil {
			return nil, err
		}
		stddev, err := scalar(d, t, "stddev")
		if err != nil {
			return nil, err
		}
		if stddev < 0 {
			return nil, unsupported(t, "stddev must be non-negative, got %g", stddev)
		}
		return DrawerFunc(func(rng *rand.Rand) float64 {
			return mean + stddev*rng.NormFloat64()
		}), nil

	case model.DistUniform:
		lower, err := scalar(d, t, "lower")
		if err != nil {
			return nil, err
		}
		upper, err := scalar(d, t, "upper")
		if err != nil {
			return nil, err
		}
		if upper < lower {
			return nil, unsupported(t, "upper (%g) is below lower (%g)", upper, lower)
		}
		return DrawerFunc(func(rng *rand.Rand) float64 {
			return uniform(rng, lower, upper)
		}), nil

	case model.DistTriangular:
		lo, err := scalar(d, t, "min")
		if err != nil {
			return nil, err
		}
		mode, err := scalar(d, t, "mode")
		if err != nil {
			return nil, err
		}
		hi, err := scalar(d, t, "max")
		if err != nil {
			return nil, err
		}
		if !(lo <= mode && mode <= hi) {
			return nil, unsupported(t, "requires min <= mode <= max, got %g, %g, %g", lo, mode, hi)
		}
		return DrawerFunc(func(rng *rand.Rand) float64 {
			return triangular(rng.Float64(), lo, mode, hi)
		}), nil

	case model.DistDiscrete:
		values, ok := d.Values("values")
		if !ok {
			return nil, unsupported(t, "missing list parameter %q", "values")
		}
		if len(values) == 0 {
			return nil, unsupported(t, "parameter %q is empty", "values")
		}
		vs := append([]float64(nil), values...)
		return DrawerFunc(func(rng *rand.Rand) float64 {
			return vs[rng.IntN(len(vs))]
		}), nil

	case model.DistLognormal:
		mu, err := scalar(d, t, "mean")
		if err != nil {
			return nil, err
		}
		sigma, err := scalar(d, t, "sigma")
		if err != nil {
			return nil, err
		}
		if sigma < 0 {
			return nil, unsupported(t, "sigma must be non-negative, got %g", sigma)
		}
		return DrawerFunc(func(rng *rand.Rand) float64 {
			return math.Exp(mu + sigma*rng.NormFloat64())
		}), nil

	case model.DistBernoulli:
		p, err := scalar(d, t, "p")
		if err != nil {
			return nil, err
		}
		if p < 0 || p > 1 {
			return nil, unsupported(t, "p must lie in [0, 1], got %g", p)
		}
		return DrawerFunc(func(rng *rand.Rand) float64 {
			if rng.Float64() < p {
				return 1
			}
			return 0
		}), nil

	default:
		return nil, &UnsupportedDistributionError{Type: string(d.Type)}
	}
}

// Check validates d without drawing.
func Check(d *model.Distribution) error {
	_, err := Compile(d)
	return err
}

// Sample returns count independent draws from d.
func Sample(d *model.Distribution, count int, rng *rand.Rand) ([]float64, error) {
	if count < 0 {
		return nil, fmt.Errorf("sample count must be non-negative, got %d", count)
	}
	if rng == nil {
		return nil, errors.New("sample: nil generator")
	}
	drawer, err := Compile(d)
	if err != nil {
		return nil, err
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = drawer.Draw(rng)
	}
	return out, nil
}

func scalar(d *model.Distribution, t model.DistributionType, name string) (float64, error) {
	p, ok := d.Parameters[name]
	if !ok {
		return 0, unsupported(t, "missing parameter %q", name)
	}
	if p.IsList {
		return 0, unsupported(t, "parameter %q must be a number", name)
	}
	if math.IsNaN(p.Number) {
		return 0, unsupported(t, "parameter %q is NaN", name)
	}
	return p.Number, nil
}

// uniform draws from the half-open interval [lower, upper). A degenerate
// interval returns lower.
func uniform(rng *rand.Rand, lower, upper float64) float64 {
	if upper <= lower {
		return lower
	}
	x := lower + (upper-lower)*rng.Float64()
	if x >= upper {
		// lower + span*u can round up to upper for u close to 1.
		x = math.Nextafter(upper, lower)
	}
	return x
}

// triangular maps u in [0, 1) through the inverse CDF.
func triangular(u, lo, mode, hi float64) float64 {
	span := hi - lo
	if span == 0 {
		return lo
	}
	c := (mode - lo) / span
	if u < c {
		return lo + math.Sqrt(u*span*(mode-lo))
	}
	return hi - math.Sqrt((1-u)*span*(hi-mode))
}

package model

import (
	"fmt"
	"strings"
)

// DistributionType is the tag selecting a sampling family.
type DistributionType string

const (
	DistConstant   DistributionType = "constant"
	DistNormal     DistributionType = "normal"
	DistUniform    DistributionType = "uniform"
	DistTriangular DistributionType = "triangular"
	DistDiscrete   DistributionType = "discrete"
	DistLognormal  DistributionType = "lognormal"
	DistBernoulli  DistributionType = "bernoulli"
)

// NormalizeDistributionType lower-cases and trims a type tag.
func NormalizeDistributionType(s string) DistributionType {
	return DistributionType(strings.ToLower(strings.TrimSpace(s)))
}

// ParamValue is a distribution parameter: either a single number or a
// list of numbers (discrete values).
type ParamValue struct {
	Number float64
	List   []float64
	IsList bool
}

// Number builds a scalar parameter.
func Number(v float64) ParamValue { return ParamValue{Number: v} }

// List builds a list parameter.
func List(vs ...float64) ParamValue {
	out := make([]float64, len(vs))
	copy(out, vs)
	return ParamValue{List: out, IsList: true}
}

func (p ParamValue) String() string {
	if p.IsList {
		return fmt.Sprintf("%v", p.List)
	}
	return fmt.Sprintf("%g", p.Number)
}

// Distribution is a tagged distribution with its parameters.
//
// Parameters is nil when the document carried no "parameters" block at
// all; an empty, non-nil map means the block was present but empty.
type Distribution struct {
	Type       DistributionType
	Parameters map[string]ParamValue
}

// HasParameters reports whether the parameters block was supplied.
func (d *Distribution) HasParameters() bool {
	return d != nil && d.Parameters != nil
}

// Scalar returns the named numeric parameter.
func (d *Distribution) Scalar(name string) (float64, bool) {
	if d == nil {
		return 0, false
	}
	p, ok := d.Parameters[name]
	if !ok || p.IsList {
		return 0, false
	}
	return p.Number, true
}

// Values returns the named list parameter.
func (d *Distribution) Values(name string) ([]float64, bool) {
	if d == nil {
		return nil, false
	}
	p, ok := d.Parameters[name]
	if !ok || !p.IsList {
		return nil, false
	}
	return p.List, true
}

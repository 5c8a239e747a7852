package sampling

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/riskgraph-simulator/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dist(t model.DistributionType, params map[string]model.ParamValue) *model.Distribution {
	return &model.Distribution{Type: t, Parameters: params}
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func TestSampleConstant(t *testing.T) {
	rng := NewStream(42, 0)
	out, err := Sample(dist(model.DistConstant, map[string]model.ParamValue{"value": model.Number(7)}), 5, rng)
	require.NoError(t, err)
	require.Len(t, out, 5)
	for _, v := range out {
		assert.Equal(t, 7.0, v)
	}
}

func TestSampleNormalShape(t *testing.T) {
	rng := NewStream(42, 0)
	out, err := Sample(dist(model.DistNormal, map[string]model.ParamValue{
		"mean":   model.Number(0),
		"stddev": model.Number(1),
	}), 1_000, rng)
	require.NoError(t, err)
	assert.InDelta(t, 0, mean(out), 0.1)
}

func TestSampleUniformHalfOpen(t *testing.T) {
	rng := NewStream(7, 3)
	out, err := Sample(dist(model.DistUniform, map[string]model.ParamValue{
		"lower": model.Number(10),
		"upper": model.Number(12),
	}), 100_000, rng)
	require.NoError(t, err)
	for _, v := range out {
		require.GreaterOrEqual(t, v, 10.0)
		require.Less(t, v, 12.0)
	}
}

func TestSampleUniformDegenerate(t *testing.T) {
	rng := NewStream(1, 0)
	out, err := Sample(dist(model.DistUniform, map[string]model.ParamValue{
		"lower": model.Number(3),
		"upper": model.Number(3),
	}), 10, rng)
	require.NoError(t, err)
	for _, v := range out {
		assert.Equal(t, 3.0, v)
	}
}

func TestSampleTriangularMode(t *testing.T) {
	rng := NewStream(42, 0)
	out, err := Sample(dist(model.DistTriangular, map[string]model.ParamValue{
		"min":  model.Number(0),
		"mode": model.Number(5),
		"max":  model.Number(10),
	}), 1_000, rng)
	require.NoError(t, err)
	m := mean(out)
	assert.True(t, m >= 4 && m <= 6, "mean %v outside [4, 6]", m)
	for _, v := range out {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 10.0)
	}
}

func TestSampleDiscreteValues(t *testing.T) {
	rng := NewStream(42, 0)
	out, err := Sample(dist(model.DistDiscrete, map[string]model.ParamValue{
		"values": model.List(1, 2, 3),
	}), 100, rng)
	require.NoError(t, err)
	seen := map[float64]bool{}
	for _, v := range out {
		require.Contains(t, []float64{1, 2, 3}, v)
		seen[v] = true
	}
	assert.Len(t, seen, 3, "100 draws should hit every value")
}

func TestSampleLognormalPositive(t *testing.T) {
	rng := NewStream(42, 0)
	out, err := Sample(dist(model.DistLognormal, map[string]model.ParamValue{
		"mean":  model.Number(0),
		"sigma": model.Number(0.5),
	}), 100, rng)
	require.NoError(t, err)
	for _, v := range out {
		require.Greater(t, v, 0.0)
	}
}

func TestSampleBernoulliMean(t *testing.T) {
	rng := NewStream(42, 0)
	out, err := Sample(dist(model.DistBernoulli, map[string]model.ParamValue{"p": model.Number(0.3)}), 10_000, rng)
	require.NoError(t, err)
	m := mean(out)
	assert.True(t, m > 0.28 && m < 0.32, "mean %v outside (0.28, 0.32)", m)
	for _, v := range out {
		require.True(t, v == 0 || v == 1)
	}
}

func TestSampleTypeTagIsCaseInsensitive(t *testing.T) {
	rng := NewStream(1, 0)
	out, err := Sample(dist("Constant", map[string]model.ParamValue{"value": model.Number(2)}), 1, rng)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, out)
}

func TestSampleRejectsUnknownType(t *testing.T) {
	_, err := Sample(dist("poisson", map[string]model.ParamValue{"lambda": model.Number(1)}), 1, NewStream(1, 0))
	require.Error(t, err)

	var ude *UnsupportedDistributionError
	require.True(t, errors.As(err, &ude))
	assert.Equal(t, "poisson", ude.Type)
	assert.ErrorIs(t, err, ErrUnsupportedDistribution)
}

func TestCheckRejectsMissingAndMalformedParameters(t *testing.T) {
	cases := map[string]*model.Distribution{
		"missing stddev":    dist(model.DistNormal, map[string]model.ParamValue{"mean": model.Number(1)}),
		"no parameters":     dist(model.DistConstant, nil),
		"list for scalar":   dist(model.DistConstant, map[string]model.ParamValue{"value": model.List(1, 2)}),
		"scalar for list":   dist(model.DistDiscrete, map[string]model.ParamValue{"values": model.Number(1)}),
		"empty list":        dist(model.DistDiscrete, map[string]model.ParamValue{"values": model.List()}),
		"p out of range":    dist(model.DistBernoulli, map[string]model.ParamValue{"p": model.Number(1.5)}),
		"mode out of range": dist(model.DistTriangular, map[string]model.ParamValue{"min": model.Number(0), "mode": model.Number(11), "max": model.Number(10)}),
		"nil distribution":  nil,
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			err := Check(d)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsupportedDistribution)
		})
	}
}

func TestStreamsAreReproducible(t *testing.T) {
	d := dist(model.DistNormal, map[string]model.ParamValue{"mean": model.Number(5), "stddev": model.Number(2)})

	a, err := Sample(d, 50, NewStream(99, 4))
	require.NoError(t, err)
	b, err := Sample(d, 50, NewStream(99, 4))
	require.NoError(t, err)
	c, err := Sample(d, 50, NewStream(99, 5))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

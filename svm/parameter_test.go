package svm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gosvm/pkg/errors"
	"github.com/YuminosukeSato/gosvm/svm/kernel"
)

func TestParameterValidate(t *testing.T) {
	prob := &Problem{
		X: [][]float64{{0}, {1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}, {9}},
		Y: []float64{1, 1, -1, -1, -1, -1, -1, -1, -1, -1},
	}

	tests := []struct {
		name   string
		modify func(p *Parameter)
		param  string
	}{
		{"unknown type", func(p *Parameter) { p.Type = Type(9) }, "type"},
		{"nil kernel", func(p *Parameter) { p.Kernel = nil }, "kernel"},
		{"negative gamma", func(p *Parameter) { p.Kernel = kernel.RBF{Gamma: -1} }, "gamma"},
		{"zero cache", func(p *Parameter) { p.CacheSize = 0 }, "cache_size"},
		{"zero eps", func(p *Parameter) { p.Eps = 0 }, "eps"},
		{"zero C", func(p *Parameter) { p.C = 0 }, "C"},
		{"nu above one", func(p *Parameter) { p.Type = NuSVR; p.Nu = 1.5 }, "nu"},
		{"zero nu", func(p *Parameter) { p.Type = OneClass; p.Nu = 0 }, "nu"},
		{"negative p", func(p *Parameter) { p.Type = EpsilonSVR; p.P = -0.1 }, "p"},
		{"one-class probability", func(p *Parameter) { p.Type = OneClass; p.Probability = true }, "probability"},
		{"zero weight", func(p *Parameter) { p.Weights = map[int]float64{1: 0} }, "weights"},
		{"infeasible nu", func(p *Parameter) { p.Type = NuSVC; p.Nu = 0.9 }, "nu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameter()
			tt.modify(&p)
			err := p.Validate(prob)
			require.Error(t, err)
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve), "got %T: %v", err, err)
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}

	p := DefaultParameter()
	p.Type = NuSVC
	p.Nu = 0.9
	assert.True(t, errors.Is(p.Validate(prob), errors.ErrInfeasibleNu))

	// C is not read by one-class training
	p = DefaultParameter()
	p.Type = OneClass
	p.C = 0
	assert.NoError(t, p.Validate(prob))

	p = DefaultParameter()
	p.Type = NuSVC
	p.Nu = 0.3
	assert.NoError(t, p.Validate(prob))
	assert.NoError(t, p.Validate(nil))
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "c_svc", CSVC.String())
	assert.Equal(t, "nu_svr", NuSVR.String())
	assert.Equal(t, "unknown", Type(42).String())
	assert.True(t, NuSVC.IsClassifier())
	assert.False(t, OneClass.IsClassifier())
	assert.True(t, EpsilonSVR.IsRegression())
}

func TestNewProblem(t *testing.T) {
	_, err := NewProblem(nil, nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	_, err = NewProblem([][]float64{{1}, {2}}, []float64{1})
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	_, err = NewProblem([][]float64{{1, 2}, {2}}, []float64{1, 2})
	assert.True(t, errors.As(err, &de))

	_, err = NewProblem([][]float64{{}}, []float64{1})
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	prob, err := NewProblem([][]float64{{1}, {2}, {3}}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, prob.Len())
	sub := prob.subset([]int{2, 0})
	assert.Equal(t, [][]float64{{3}, {1}}, sub.X)
	assert.Equal(t, []float64{3, 1}, sub.Y)
}

package svm

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gosvm/pkg/errors"
	"github.com/YuminosukeSato/gosvm/pkg/log"
	"github.com/YuminosukeSato/gosvm/svm/kernel"
	"github.com/YuminosukeSato/gosvm/svm/solver"
)

func quiet(t *testing.T) {
	t.Helper()
	provider, _ := log.NewTestLoggerProvider(log.LevelError)
	prev := log.SetProvider(provider)
	t.Cleanup(func() { log.SetProvider(prev) })
}

// gaussianBlobs draws n points around each center, labelled by the center's
// position in labels.
func gaussianBlobs(seed int64, n int, std float64, centers [][]float64, labels []float64) *Problem {
	rng := rand.New(rand.NewSource(seed))
	prob := &Problem{}
	for i := 0; i < n; i++ {
		for c, center := range centers {
			x := make([]float64, len(center))
			for d := range x {
				x[d] = center[d] + std*rng.NormFloat64()
			}
			prob.X = append(prob.X, x)
			prob.Y = append(prob.Y, labels[c])
		}
	}
	return prob
}

func trainingAccuracy(m *Model, prob *Problem) float64 {
	var hit int
	for i, x := range prob.X {
		if m.Predict(x) == prob.Y[i] {
			hit++
		}
	}
	return float64(hit) / float64(prob.Len())
}

func TestSeparableFourPoints(t *testing.T) {
	quiet(t)
	// the margin points are (2,0) and (0,0); the separator is x = 1
	prob, err := NewProblem(
		[][]float64{{4, 0}, {2, 0}, {0, 0}, {-2, 0}},
		[]float64{1, 1, -1, -1},
	)
	require.NoError(t, err)
	param := DefaultParameter()
	param.Kernel = kernel.Linear{}

	m, err := Train(context.Background(), prob, &param)
	require.NoError(t, err)

	assert.True(t, m.Converged)
	assert.Equal(t, []int{1, -1}, m.Labels)
	assert.Equal(t, []int{1, 1}, m.NSV)
	assert.Equal(t, []int{1, 2}, m.SVIndices)
	assert.InDelta(t, 1.0, math.Abs(m.Rho[0]), 1e-3)
	assert.InDelta(t, 0.5, m.SVCoef[0][0], 1e-3)
	assert.InDelta(t, -0.5, m.SVCoef[0][1], 1e-3)

	assert.Equal(t, 1.0, m.Predict([]float64{3, 1}))
	assert.Equal(t, -1.0, m.Predict([]float64{-1, 1}))
	assert.InDelta(t, 2.0, m.PredictValues([]float64{3, 0})[0], 1e-3)
}

func TestOneClassBoundedSupportVectors(t *testing.T) {
	quiet(t)
	rng := rand.New(rand.NewSource(1))
	prob := &Problem{}
	// five points jittered around the origin first, so the initial
	// multipliers sit on them and the solver has to move every unit
	for i := 0; i < 5; i++ {
		prob.X = append(prob.X, []float64{0.01 * rng.NormFloat64(), 0.01 * rng.NormFloat64()})
		prob.Y = append(prob.Y, 1)
	}
	// five outliers on a pentagon around them
	for i := 0; i < 5; i++ {
		a := 2 * math.Pi * float64(i) / 5
		prob.X = append(prob.X, []float64{math.Cos(a), math.Sin(a)})
		prob.Y = append(prob.Y, 1)
	}

	param := DefaultParameter()
	param.Type = OneClass
	param.Nu = 0.5
	param.Kernel = kernel.RBF{Gamma: 1}

	m, err := Train(context.Background(), prob, &param)
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{5, 6, 7, 8, 9}, m.SVIndices)
	var sum float64
	for _, a := range m.SVCoef[0] {
		assert.InDelta(t, 1.0, a, 1e-6)
		sum += a
	}
	assert.InDelta(t, 5.0, sum, 1e-9)

	for i, x := range prob.X {
		want := 1.0
		if i >= 5 {
			want = -1
		}
		assert.Equal(t, want, m.Predict(x), "point %d", i)
	}
}

func TestSingleClassRejected(t *testing.T) {
	quiet(t)
	prob, err := NewProblem([][]float64{{0}, {1}, {2}}, []float64{3, 3, 3})
	require.NoError(t, err)

	for _, typ := range []Type{CSVC, NuSVC} {
		param := DefaultParameter()
		param.Type = typ
		param.Nu = 0.1
		_, err = Train(context.Background(), prob, &param)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrSingleClass), "%s: %v", typ, err)
	}
}

func TestEpsilonSVRTubeContainsLine(t *testing.T) {
	quiet(t)
	x := [][]float64{{0}, {1}, {2}, {3}, {4}}

	t.Run("constant", func(t *testing.T) {
		prob, err := NewProblem(x, []float64{2, 2, 2, 2, 2})
		require.NoError(t, err)
		param := DefaultParameter()
		param.Type = EpsilonSVR
		param.Kernel = kernel.Linear{}
		param.P = 0.5

		m, err := Train(context.Background(), prob, &param)
		require.NoError(t, err)
		assert.Empty(t, m.SV)
		for _, xi := range x {
			assert.Equal(t, 2.0, m.Predict(xi))
		}
	})

	t.Run("sloped", func(t *testing.T) {
		y := []float64{0, 0.1, 0.2, 0.3, 0.4}
		prob, err := NewProblem(x, y)
		require.NoError(t, err)
		param := DefaultParameter()
		param.Type = EpsilonSVR
		param.Kernel = kernel.Linear{}
		param.P = 0.5

		m, err := Train(context.Background(), prob, &param)
		require.NoError(t, err)
		assert.Empty(t, m.SV)
		for i, xi := range x {
			assert.InDelta(t, y[i], m.Predict(xi), param.P)
		}
	})
}

func TestEpsilonSVRFitsLine(t *testing.T) {
	quiet(t)
	prob := &Problem{}
	for i := 0; i < 20; i++ {
		v := float64(i) / 4
		prob.X = append(prob.X, []float64{v})
		prob.Y = append(prob.Y, 2*v+1)
	}
	param := DefaultParameter()
	param.Type = EpsilonSVR
	param.Kernel = kernel.Linear{}
	param.C = 10
	param.P = 0.1

	m, err := Train(context.Background(), prob, &param)
	require.NoError(t, err)
	assert.NotEmpty(t, m.SV)
	for i, x := range prob.X {
		assert.InDelta(t, prob.Y[i], m.Predict(x), param.P+0.05)
	}
}

func TestNuSVRFitsLine(t *testing.T) {
	quiet(t)
	prob := &Problem{}
	for i := 0; i < 20; i++ {
		v := float64(i) / 4
		prob.X = append(prob.X, []float64{v})
		prob.Y = append(prob.Y, -v+3)
	}
	param := DefaultParameter()
	param.Type = NuSVR
	param.Kernel = kernel.Linear{}
	param.C = 10
	param.Nu = 0.5

	m, err := Train(context.Background(), prob, &param)
	require.NoError(t, err)
	for i, x := range prob.X {
		assert.InDelta(t, prob.Y[i], m.Predict(x), 0.1)
	}
}

var threeCenters = [][]float64{{0, 0}, {5, 5}, {0, 5}}

func TestMulticlassOneVsOne(t *testing.T) {
	quiet(t)
	prob := gaussianBlobs(2, 10, 0.5, threeCenters, []float64{1, 2, 3})

	for _, typ := range []Type{CSVC, NuSVC} {
		t.Run(typ.String(), func(t *testing.T) {
			param := DefaultParameter()
			param.Type = typ
			param.Nu = 0.3
			param.Kernel = kernel.RBF{Gamma: 0.5}

			m, err := Train(context.Background(), prob, &param)
			require.NoError(t, err)

			assert.Equal(t, 3, m.NClass)
			assert.Equal(t, []int{1, 2, 3}, m.Labels)
			assert.Len(t, m.Rho, 3)
			assert.Len(t, m.SVCoef, 2)
			total := 0
			for _, n := range m.NSV {
				total += n
			}
			assert.Equal(t, len(m.SV), total)
			assert.Equal(t, 1.0, trainingAccuracy(m, prob))

			x := []float64{1, 1}
			dec := m.PredictValues(x)
			for p := 0; p < m.NumPairs(); p++ {
				pd, err := m.PairDecision(p)
				require.NoError(t, err)

				// yᵀα = 0 holds per pair
				var sum, value float64
				for k, idx := range pd.SupportVectorIndices {
					sum += pd.Coefficients[k]
					value += pd.Coefficients[k] * param.Kernel.Compute(x, prob.X[idx])
				}
				assert.InDelta(t, 0, sum, 1e-9, "pair %d", p)
				assert.InDelta(t, dec[p], value-pd.Rho, 1e-9, "pair %d", p)
			}
			_, err = m.PairDecision(3)
			assert.Error(t, err)
		})
	}
}

func TestTrainDoesNotModifyProblem(t *testing.T) {
	quiet(t)
	prob := gaussianBlobs(3, 8, 1, threeCenters, []float64{3, 1, 2})
	xs := make([][]float64, len(prob.X))
	for i, x := range prob.X {
		xs[i] = append([]float64(nil), x...)
	}
	ys := append([]float64(nil), prob.Y...)

	param := DefaultParameter()
	_, err := Train(context.Background(), prob, &param)
	require.NoError(t, err)
	assert.Equal(t, xs, prob.X)
	assert.Equal(t, ys, prob.Y)
}

func TestGroupClasses(t *testing.T) {
	g := groupClasses(&Problem{Y: []float64{2, 5, 2, 7, 5}})
	assert.Equal(t, []int{2, 5, 7}, g.label)
	assert.Equal(t, []int{2, 2, 1}, g.count)
	assert.Equal(t, []int{0, 2, 4}, g.start)
	assert.Equal(t, []int{0, 2, 1, 4, 3}, g.perm)

	// -1 seen first is swapped behind +1
	g = groupClasses(&Problem{Y: []float64{-1, 1, -1}})
	assert.Equal(t, []int{1, -1}, g.label)
	assert.Equal(t, []int{1, 2}, g.count)
	assert.Equal(t, []int{1, 0, 2}, g.perm)

	g = groupClasses(&Problem{Y: []float64{-1, 2}})
	assert.Equal(t, []int{-1, 2}, g.label)
}

func TestPairClasses(t *testing.T) {
	var got [][2]int
	for p := 0; p < 6; p++ {
		i, j := pairClasses(4, p)
		got = append(got, [2]int{i, j})
	}
	assert.Equal(t, [][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}, got)
}

func TestTrainCancelled(t *testing.T) {
	quiet(t)
	prob := gaussianBlobs(4, 20, 1, threeCenters, []float64{1, 2, 3})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	param := DefaultParameter()
	_, err := Train(ctx, prob, &param)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "%v", err)

	_, err = CrossValidation(ctx, prob, &param, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "%v", err)
}

func TestParallelMatchesSequential(t *testing.T) {
	quiet(t)
	prob := gaussianBlobs(5, 12, 1, threeCenters, []float64{1, 2, 3})

	param := DefaultParameter()
	param.Probability = true
	param.Seed = 7
	seq, err := Train(context.Background(), prob, &param)
	require.NoError(t, err)

	param.Parallel = true
	par, err := Train(context.Background(), prob, &param)
	require.NoError(t, err)

	assert.Equal(t, seq.SVIndices, par.SVIndices)
	assert.Equal(t, seq.SVCoef, par.SVCoef)
	assert.Equal(t, seq.Rho, par.Rho)
	assert.Equal(t, seq.ProbA, par.ProbA)
	assert.Equal(t, seq.ProbB, par.ProbB)
}

func TestMaxIterKeepsModel(t *testing.T) {
	quiet(t)
	prob := gaussianBlobs(6, 20, 1.5, threeCenters[:2], []float64{1, -1})
	param := DefaultParameter()
	param.MaxIter = 1

	m, err := Train(context.Background(), prob, &param)
	require.NoError(t, err)
	assert.False(t, m.Converged)
	assert.NotEmpty(t, m.SV)
}

func TestTrainLogsSummary(t *testing.T) {
	provider, logger := log.NewTestLoggerProvider(log.LevelDebug)
	prev := log.SetProvider(provider)
	defer log.SetProvider(prev)

	prob := gaussianBlobs(8, 10, 1, threeCenters[:2], []float64{1, -1})
	param := DefaultParameter()
	param.Weights = map[int]float64{9: 2}
	_, err := Train(context.Background(), prob, &param)
	require.NoError(t, err)

	assert.True(t, logger.ContainsMessage("training finished"))
	assert.True(t, logger.ContainsMessage("sub-problem solved"))
	assert.True(t, logger.ContainsMessage("class weight label not found"))
	assert.True(t, logger.ContainsField(log.SVMTypeKey, "c_svc"))
}

func TestClassWeightsShiftBoundary(t *testing.T) {
	quiet(t)
	prob := gaussianBlobs(9, 20, 1.5, [][]float64{{-1, 0}, {1, 0}}, []float64{1, -1})
	param := DefaultParameter()
	param.Kernel = kernel.Linear{}
	plain, err := Train(context.Background(), prob, &param)
	require.NoError(t, err)

	param.Weights = map[int]float64{1: 10}
	weighted, err := Train(context.Background(), prob, &param)
	require.NoError(t, err)

	// a heavier positive class claims more of the overlap
	var plainPos, weightedPos int
	for _, x := range prob.X {
		if plain.Predict(x) == 1 {
			plainPos++
		}
		if weighted.Predict(x) == 1 {
			weightedPos++
		}
	}
	assert.GreaterOrEqual(t, weightedPos, plainPos)
}

func TestTrainRejectsMalformedProblem(t *testing.T) {
	quiet(t)
	tests := []struct {
		name string
		prob *Problem
		want error
	}{
		{"short X", &Problem{X: [][]float64{{0}}, Y: []float64{1, -1}}, &errors.DimensionError{}},
		{"long X", &Problem{X: [][]float64{{0}, {1}, {2}}, Y: []float64{1, -1}}, &errors.DimensionError{}},
		{"ragged rows", &Problem{X: [][]float64{{0}, {1, 2}, {2}}, Y: []float64{0, 1, 2}}, &errors.DimensionError{}},
		{"empty features", &Problem{X: [][]float64{{}, {}}, Y: []float64{1, -1}}, &errors.ValueError{}},
		{"nil", nil, errors.ErrEmptyData},
	}

	for _, typ := range []Type{CSVC, EpsilonSVR} {
		for _, tt := range tests {
			t.Run(typ.String()+"/"+tt.name, func(t *testing.T) {
				param := DefaultParameter()
				param.Type = typ
				param.Kernel = kernel.RBF{Gamma: 1}

				var trainErr, cvErr error
				require.NotPanics(t, func() {
					_, trainErr = Train(context.Background(), tt.prob, &param)
					_, cvErr = CrossValidation(context.Background(), tt.prob, &param, 2)
				})
				for _, err := range []error{trainErr, cvErr} {
					require.Error(t, err)
					switch want := tt.want.(type) {
					case *errors.DimensionError:
						assert.True(t, errors.As(err, &want), "%v", err)
					case *errors.ValueError:
						assert.True(t, errors.As(err, &want), "%v", err)
					default:
						assert.True(t, errors.Is(err, want), "%v", err)
					}
				}
			})
		}
	}
}

func TestTrainOneUnknownType(t *testing.T) {
	prob := &Problem{X: [][]float64{{0}, {1}}, Y: []float64{1, -1}}
	param := DefaultParameter()
	param.Type = Type(42)
	param.Kernel = kernel.Linear{}

	_, err := trainOne(prob, &param, 1, 1, solver.Config{Eps: 1e-3, Logger: log.GetLogger()})
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve), "%v", err)
	assert.Equal(t, "type", ve.ParamName)
}

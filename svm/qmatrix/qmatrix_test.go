package qmatrix

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gosvm/svm/kernel"
)

func randomPoints(rng *rand.Rand, n, d int) [][]float64 {
	x := make([][]float64, n)
	for i := range x {
		x[i] = make([]float64, d)
		for j := range x[i] {
			x[i][j] = rng.NormFloat64()
		}
	}
	return x
}

// dense evaluates the full matrix through the current permutation.
type dense func(perm []int, i, j int) float64

func checkAgainst(t *testing.T, q Matrix, n int, want dense, rng *rand.Rand) {
	t.Helper()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for step := 0; step < 400; step++ {
		if rng.Intn(3) == 0 {
			i, j := rng.Intn(n), rng.Intn(n)
			q.SwapIndex(i, j)
			perm[i], perm[j] = perm[j], perm[i]
			continue
		}
		i := rng.Intn(n)
		length := 1 + rng.Intn(n)
		row := q.Row(i, length)
		require.Len(t, row, length)
		for j := 0; j < length; j++ {
			require.InDelta(t, want(perm, i, j), row[j], 1e-12, "Q[%d][%d]", i, j)
		}
		for j := 0; j < n; j++ {
			require.InDelta(t, want(perm, j, j), q.Diagonal()[j], 1e-12)
		}
	}
}

func TestSVCMatchesDirectEvaluation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	x := randomPoints(rng, 15, 3)
	y := make([]int8, len(x))
	for i := range y {
		y[i] = 1
		if i%3 == 0 {
			y[i] = -1
		}
	}
	k := kernel.RBF{Gamma: 0.5}
	// tiny cache to force evictions
	q := NewSVC(x, y, k, 0)

	checkAgainst(t, q, len(x), func(perm []int, i, j int) float64 {
		a, b := perm[i], perm[j]
		return float64(y[a]*y[b]) * k.Compute(x[a], x[b])
	}, rng)
}

func TestOneClassMatchesDirectEvaluation(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	x := randomPoints(rng, 12, 2)
	k := kernel.Polynomial{Gamma: 1, Coef0: 1, Degree: 2}
	q := NewOneClass(x, k, 8*12*12)

	checkAgainst(t, q, len(x), func(perm []int, i, j int) float64 {
		return k.Compute(x[perm[i]], x[perm[j]])
	}, rng)
}

func TestSVRMatchesDirectEvaluation(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x := randomPoints(rng, 8, 2)
	l := len(x)
	k := kernel.Linear{}
	q := NewSVR(x, k, 0)

	sign := func(v int) float64 {
		if v < l {
			return 1
		}
		return -1
	}
	checkAgainst(t, q, 2*l, func(perm []int, i, j int) float64 {
		a, b := perm[i], perm[j]
		return sign(a) * sign(b) * k.Compute(x[a%l], x[b%l])
	}, rng)
}

func TestSVRRowsUseAlternatingBuffers(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}}
	q := NewSVR(x, kernel.Linear{}, 0)
	r0 := q.Row(0, 6)
	r1 := q.Row(1, 6)
	// both rows stay valid together
	assert.Equal(t, []float64{1, 2, 3, -1, -2, -3}, r0)
	assert.Equal(t, []float64{2, 4, 6, -2, -4, -6}, r1)
}

func TestSwapDoesNotReorderCallerData(t *testing.T) {
	x := [][]float64{{1}, {2}}
	q := NewOneClass(x, kernel.Linear{}, 0)
	q.SwapIndex(0, 1)
	assert.Equal(t, []float64{1}, x[0])
}

package svm

import (
	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/gosvm/pkg/errors"
)

// minProb bounds pairwise probabilities away from 0 and 1 before coupling.
const minProb = 1e-7

// Model is a trained decision function.
//
// For classifiers the support vectors are pooled across all one-vs-one
// pairs and stored class by class in Labels order; NSV[c] of them belong to
// class c. The coefficients of pair (i, j), i < j, are split across two
// rows of SVCoef: class i's vectors use SVCoef[j-1] and class j's vectors
// use SVCoef[i]. One-class and regression models have a single row.
type Model struct {
	Param Parameter
	Type  Type

	// NClass is the number of classes; 2 for one-class and regression.
	NClass int
	// Labels holds the class labels in training order (classifiers only).
	Labels []int
	// NSV is the number of support vectors per class (classifiers only).
	NSV []int

	SV [][]float64
	// SVIndices are the positions of SV in the training Problem.
	SVIndices []int
	SVCoef    [][]float64
	// Rho has one entry per one-vs-one pair, or one in total.
	Rho []float64

	// ProbA and ProbB are the pairwise sigmoid parameters. For regression
	// ProbA[0] is the Laplace scale of the residuals.
	ProbA []float64
	ProbB []float64

	// Converged is false when any sub-solve hit its iteration cap.
	Converged bool
}

// PairDecision is the binary decision function of one one-vs-one pair.
type PairDecision struct {
	// SupportVectorIndices index the training Problem.
	SupportVectorIndices []int
	Coefficients         []float64
	Rho                  float64
}

// NumPairs returns the number of binary decision functions.
func (m *Model) NumPairs() int {
	if !m.Type.IsClassifier() {
		return 1
	}
	return m.NClass * (m.NClass - 1) / 2
}

// PairDecision returns the decision function of pair p, in the order
// (0,1), (0,2), ..., (1,2), ... of class indices. Non-classifier models only
// have pair 0.
func (m *Model) PairDecision(p int) (PairDecision, error) {
	if p < 0 || p >= m.NumPairs() {
		return PairDecision{}, errors.NewValidationError("pair", "out of range", p)
	}
	if !m.Type.IsClassifier() {
		return PairDecision{
			SupportVectorIndices: append([]int(nil), m.SVIndices...),
			Coefficients:         append([]float64(nil), m.SVCoef[0]...),
			Rho:                  m.Rho[0],
		}, nil
	}

	start := m.svStarts()
	i, j := pairClasses(m.NClass, p)
	d := PairDecision{Rho: m.Rho[p]}
	for k := start[i]; k < start[i]+m.NSV[i]; k++ {
		d.SupportVectorIndices = append(d.SupportVectorIndices, m.SVIndices[k])
		d.Coefficients = append(d.Coefficients, m.SVCoef[j-1][k])
	}
	for k := start[j]; k < start[j]+m.NSV[j]; k++ {
		d.SupportVectorIndices = append(d.SupportVectorIndices, m.SVIndices[k])
		d.Coefficients = append(d.Coefficients, m.SVCoef[i][k])
	}
	return d, nil
}

// pairClasses maps a pair number to its class indices i < j.
func pairClasses(nr, p int) (int, int) {
	for i := 0; i < nr; i++ {
		n := nr - i - 1
		if p < n {
			return i, i + 1 + p
		}
		p -= n
	}
	return -1, -1
}

func (m *Model) svStarts() []int {
	start := make([]int, m.NClass)
	for i := 1; i < m.NClass; i++ {
		start[i] = start[i-1] + m.NSV[i-1]
	}
	return start
}

// PredictValues returns the decision values for x: one per pair for
// classifiers, otherwise the single value Σ coef·K(sv, x) - rho.
func (m *Model) PredictValues(x []float64) []float64 {
	kv := make([]float64, len(m.SV))
	for i, sv := range m.SV {
		kv[i] = m.Param.Kernel.Compute(x, sv)
	}

	if !m.Type.IsClassifier() {
		return []float64{floats.Dot(m.SVCoef[0], kv) - m.Rho[0]}
	}

	start := m.svStarts()
	dec := make([]float64, 0, m.NumPairs())
	p := 0
	for i := 0; i < m.NClass; i++ {
		for j := i + 1; j < m.NClass; j++ {
			si, sj := start[i], start[j]
			ci, cj := m.NSV[i], m.NSV[j]
			sum := floats.Dot(m.SVCoef[j-1][si:si+ci], kv[si:si+ci]) +
				floats.Dot(m.SVCoef[i][sj:sj+cj], kv[sj:sj+cj])
			dec = append(dec, sum-m.Rho[p])
			p++
		}
	}
	return dec
}

// Predict returns the class label, the one-class verdict (+1 inlier, -1
// outlier) or the regression value for x. Classifiers vote over all pairs;
// ties go to the class seen first.
func (m *Model) Predict(x []float64) float64 {
	if m.Type.IsClassifier() && m.NClass == 1 {
		return float64(m.Labels[0])
	}
	dec := m.PredictValues(x)
	switch {
	case m.Type == OneClass:
		if dec[0] > 0 {
			return 1
		}
		return -1
	case m.Type.IsRegression():
		return dec[0]
	}

	vote := make([]int, m.NClass)
	p := 0
	for i := 0; i < m.NClass; i++ {
		for j := i + 1; j < m.NClass; j++ {
			if dec[p] > 0 {
				vote[i]++
			} else {
				vote[j]++
			}
			p++
		}
	}
	return float64(m.Labels[argmaxInt(vote)])
}

// HasProbability reports whether the model carries probability information.
func (m *Model) HasProbability() bool {
	switch {
	case m.Type.IsClassifier():
		return m.ProbA != nil && m.ProbB != nil
	case m.Type.IsRegression():
		return m.ProbA != nil
	default:
		return false
	}
}

// PredictProbability returns the most probable label of x and the class
// probabilities in Labels order. The model must be a classifier trained with
// Probability set.
func (m *Model) PredictProbability(x []float64) (float64, []float64, error) {
	if !m.Type.IsClassifier() || !m.HasProbability() {
		return 0, nil, errors.NewValueError("svm.Model.PredictProbability",
			"model does not carry probability estimates; train a classifier with Probability set")
	}
	if m.NClass == 1 {
		return float64(m.Labels[0]), []float64{1}, nil
	}

	dec := m.PredictValues(x)
	k := m.NClass
	r := make([][]float64, k)
	for i := range r {
		r[i] = make([]float64, k)
	}
	p := 0
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			r[i][j] = errors.ClipValue(sigmoidPredict(dec[p], m.ProbA[p], m.ProbB[p]), minProb, 1-minProb)
			r[j][i] = 1 - r[i][j]
			p++
		}
	}

	prob := make([]float64, k)
	if k == 2 {
		prob[0], prob[1] = r[0][1], r[1][0]
	} else {
		multiclassProbability(k, r, prob)
	}
	return float64(m.Labels[floats.MaxIdx(prob)]), prob, nil
}

// SVRProbability returns the scale σ of the Laplace distribution
// p(z) = exp(-|z|/σ)/(2σ) fitted to the residuals of a regression model.
func (m *Model) SVRProbability() (float64, error) {
	if !m.Type.IsRegression() || m.ProbA == nil {
		return 0, errors.NewValueError("svm.Model.SVRProbability",
			"model does not carry a residual scale; train a regression model with Probability set")
	}
	return m.ProbA[0], nil
}

func argmaxInt(v []int) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

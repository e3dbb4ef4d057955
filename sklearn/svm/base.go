// Package svm provides scikit-learn style support vector machines over
// gonum matrices: SVC, NuSVC, OneClassSVM, SVR and NuSVR.
//
// Classifiers follow the one-vs-one scheme of the training engine.
// DecisionFunction returns one column per class pair (i, j), i < j in
// Classes() order, positive towards class i.
package svm

import (
	"context"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/gosvm/core/model"
	"github.com/YuminosukeSato/gosvm/core/parallel"
	"github.com/YuminosukeSato/gosvm/pkg/errors"
	"github.com/YuminosukeSato/gosvm/pkg/log"
	gosvm "github.com/YuminosukeSato/gosvm/svm"
)

// predictParallelThreshold 行を超える予測は行を分割して並列に処理する。
// 学習済みモデルは読み取り専用なので共有してよい。
const predictParallelThreshold = 256

// base は全推定器に共通の学習・予測処理を持つ。
type base struct {
	state *model.StateManager
	cfg   config
	typ   gosvm.Type
	name  string

	model *gosvm.Model
	gamma float64
}

func newBase(name string, typ gosvm.Type, opts []Option) base {
	b := base{
		state: model.NewStateManager(),
		cfg:   defaultConfig(),
		typ:   typ,
		name:  name,
	}
	for _, opt := range opts {
		opt(&b.cfg)
	}
	return b
}

// rows copies X into row slices.
func rows(X mat.Matrix) [][]float64 {
	r, _ := X.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, X)
	}
	return out
}

// column extracts y as a slice; y must be (n, 1) or (1, n).
func column(op string, y mat.Matrix, n int) ([]float64, error) {
	r, c := y.Dims()
	switch {
	case c == 1 && r == n:
		return mat.Col(nil, 0, y), nil
	case r == 1 && c == n:
		return mat.Row(nil, 0, y), nil
	case c == 1:
		return nil, errors.NewDimensionError(op, n, r, 0)
	default:
		return nil, errors.NewValueError(op, "y must be a column vector")
	}
}

// resolveGamma は gamma モードを学習データから具体値に変換する。
func (b *base) resolveGamma(x [][]float64) (float64, error) {
	nFeatures := len(x[0])
	switch b.cfg.gammaMode {
	case "":
		return b.cfg.gamma, nil
	case GammaAuto:
		return 1 / float64(nFeatures), nil
	case GammaScale:
		flat := make([]float64, 0, len(x)*nFeatures)
		for _, row := range x {
			flat = append(flat, row...)
		}
		v := stat.PopVariance(flat, nil)
		if v == 0 {
			return 1, nil
		}
		return 1 / (float64(nFeatures) * v), nil
	default:
		return 0, errors.NewValidationError("gamma", "mode must be scale or auto", b.cfg.gammaMode)
	}
}

func (b *base) problem(op string, X, y mat.Matrix) (*gosvm.Problem, error) {
	if X == nil {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	n, _ := X.Dims()
	x := rows(X)
	var target []float64
	if y == nil {
		// one-class training ignores the targets
		target = make([]float64, n)
	} else {
		var err error
		if target, err = column(op, y, n); err != nil {
			return nil, err
		}
	}
	return gosvm.NewProblem(x, target)
}

func (b *base) parameter(x [][]float64) (gosvm.Parameter, error) {
	gamma, err := b.resolveGamma(x)
	if err != nil {
		return gosvm.Parameter{}, err
	}
	k, err := b.cfg.buildKernel(gamma)
	if err != nil {
		return gosvm.Parameter{}, err
	}
	b.gamma = gamma
	return b.cfg.parameter(b.typ, k), nil
}

func (b *base) fit(ctx context.Context, X, y mat.Matrix) (err error) {
	op := b.name + ".Fit"
	defer errors.Recover(&err, op)

	prob, err := b.problem(op, X, y)
	if err != nil {
		return err
	}
	param, err := b.parameter(prob.X)
	if err != nil {
		return err
	}
	log.GetLoggerWithName("sklearn.svm").Debug("fitting estimator",
		log.ModelNameKey, b.name,
		log.OperationKey, log.OperationFit,
		"gamma", b.gamma,
	)

	m, err := gosvm.Train(ctx, prob, &param)
	if err != nil {
		return err
	}

	b.state.Reset()
	b.model = m
	b.state.SetDimensions(len(prob.X[0]), prob.Len())
	if b.typ.IsClassifier() {
		b.state.SetClasses(m.NClass)
	}
	b.state.SetFitted()
	return nil
}

// Fit trains the estimator. y is ignored by OneClassSVM and may be nil there.
func (b *base) Fit(X, y mat.Matrix) error {
	return b.fit(context.Background(), X, y)
}

// FitContext is Fit with cancellation.
func (b *base) FitContext(ctx context.Context, X, y mat.Matrix) error {
	return b.fit(ctx, X, y)
}

// checkPredict validates X against the fitted state and returns its rows.
func (b *base) checkPredict(method string, X mat.Matrix) ([][]float64, error) {
	if err := b.state.RequireFitted(b.name, method); err != nil {
		return nil, err
	}
	_, c := X.Dims()
	if err := b.state.RequireFeatures(b.name+"."+method, c); err != nil {
		return nil, err
	}
	return rows(X), nil
}

// Predict returns an (n, 1) matrix of labels, ±1 verdicts or values.
func (b *base) Predict(X mat.Matrix) (mat.Matrix, error) {
	x, err := b.checkPredict("Predict", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(x), 1, nil)
	parallel.ParallelizeWithThreshold(len(x), predictParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			out.Set(i, 0, b.model.Predict(x[i]))
		}
	})
	return out, nil
}

// DecisionFunction returns the raw decision values, one column per pair for
// classifiers and a single column otherwise.
func (b *base) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	x, err := b.checkPredict("DecisionFunction", X)
	if err != nil {
		return nil, err
	}
	if b.typ.IsClassifier() && b.model.NClass == 1 {
		return mat.NewDense(len(x), 1, nil), nil
	}
	out := mat.NewDense(len(x), b.model.NumPairs(), nil)
	parallel.ParallelizeWithThreshold(len(x), predictParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			out.SetRow(i, b.model.PredictValues(x[i]))
		}
	})
	return out, nil
}

// CrossValPredict returns out-of-fold predictions for every row of X,
// using the estimator's configuration and nFold folds.
func (b *base) CrossValPredict(ctx context.Context, X, y mat.Matrix, nFold int) (mat.Matrix, error) {
	op := b.name + ".CrossValPredict"
	prob, err := b.problem(op, X, y)
	if err != nil {
		return nil, err
	}
	param, err := b.parameter(prob.X)
	if err != nil {
		return nil, err
	}
	pred, err := gosvm.CrossValidation(ctx, prob, &param, nFold)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(pred), 1, pred), nil
}

// GetParams returns the hyperparameters with scikit-learn names.
func (b *base) GetParams() map[string]interface{} {
	return b.cfg.params(b.typ)
}

// Model returns the trained model, or nil before Fit.
func (b *base) Model() *gosvm.Model {
	return b.model
}

// IsFitted reports whether Fit has succeeded.
func (b *base) IsFitted() bool {
	return b.state.IsFitted()
}

// SupportVectors returns the support vectors as rows.
func (b *base) SupportVectors() (mat.Matrix, error) {
	if err := b.state.RequireFitted(b.name, "SupportVectors"); err != nil {
		return nil, err
	}
	nFeatures, _ := b.state.GetDimensions()
	if len(b.model.SV) == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(len(b.model.SV), nFeatures, nil)
	for i, sv := range b.model.SV {
		out.SetRow(i, sv)
	}
	return out, nil
}

// Support returns the training row indices of the support vectors.
func (b *base) Support() []int {
	if b.model == nil {
		return nil
	}
	return append([]int(nil), b.model.SVIndices...)
}

// DualCoef returns the support vector coefficients, one row per entry of
// the model's SVCoef.
func (b *base) DualCoef() (mat.Matrix, error) {
	if err := b.state.RequireFitted(b.name, "DualCoef"); err != nil {
		return nil, err
	}
	if len(b.model.SV) == 0 || len(b.model.SVCoef) == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(len(b.model.SVCoef), len(b.model.SV), nil)
	for i, coef := range b.model.SVCoef {
		out.SetRow(i, coef)
	}
	return out, nil
}

// Intercept returns -rho per decision function.
func (b *base) Intercept() []float64 {
	if b.model == nil {
		return nil
	}
	out := make([]float64, len(b.model.Rho))
	for i, r := range b.model.Rho {
		out[i] = -r
	}
	return out
}

// Converged reports whether every sub-solve met the tolerance.
func (b *base) Converged() bool {
	return b.model != nil && b.model.Converged
}

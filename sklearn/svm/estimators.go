package svm

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosvm/core/model"
	"github.com/YuminosukeSato/gosvm/metrics"
	"github.com/YuminosukeSato/gosvm/pkg/errors"
	gosvm "github.com/YuminosukeSato/gosvm/svm"
)

var (
	_ model.Classifier      = (*SVC)(nil)
	_ model.Classifier      = (*NuSVC)(nil)
	_ model.OutlierDetector = (*OneClassSVM)(nil)
	_ model.Regressor       = (*SVR)(nil)
	_ model.Regressor       = (*NuSVR)(nil)
	_ model.ParameterGetter = (*SVC)(nil)
)

// classifier は SVC と NuSVC の共通部分。
type classifier struct {
	base
}

// Classes returns the class labels in training order.
func (c *classifier) Classes() []int {
	if c.model == nil {
		return nil
	}
	return append([]int(nil), c.model.Labels...)
}

// NSupport returns the number of support vectors per class.
func (c *classifier) NSupport() []int {
	if c.model == nil {
		return nil
	}
	return append([]int(nil), c.model.NSV...)
}

// PredictProba returns an (n, n_classes) matrix of class probabilities in
// Classes() order. The estimator must be built WithProbability(true).
func (c *classifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	x, err := c.checkPredict("PredictProba", X)
	if err != nil {
		return nil, err
	}
	if !c.cfg.probability {
		return nil, errors.NewValueError(c.name+".PredictProba", "probability estimates must be enabled with WithProbability(true) before Fit")
	}
	out := mat.NewDense(len(x), c.model.NClass, nil)
	for i, row := range x {
		_, p, err := c.model.PredictProbability(row)
		if err != nil {
			return nil, err
		}
		out.SetRow(i, p)
	}
	return out, nil
}

// Score returns the mean accuracy on X and y.
func (c *classifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, pred)
}

// SVC is C-support vector classification.
type SVC struct {
	classifier
}

// NewSVC creates a C-SVC with an RBF kernel, C=1 and gamma="scale".
func NewSVC(opts ...Option) *SVC {
	return &SVC{classifier{newBase("SVC", gosvm.CSVC, opts)}}
}

// NuSVC is nu-support vector classification.
type NuSVC struct {
	classifier
}

// NewNuSVC creates a nu-SVC with nu=0.5.
func NewNuSVC(opts ...Option) *NuSVC {
	return &NuSVC{classifier{newBase("NuSVC", gosvm.NuSVC, opts)}}
}

// OneClassSVM is unsupervised outlier detection.
type OneClassSVM struct {
	base
}

// NewOneClassSVM creates a one-class SVM with nu=0.5.
func NewOneClassSVM(opts ...Option) *OneClassSVM {
	return &OneClassSVM{newBase("OneClassSVM", gosvm.OneClass, opts)}
}

// regressor は SVR と NuSVR の共通部分。
type regressor struct {
	base
}

// Score returns the coefficient of determination R² on X and y.
func (r *regressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	n, _ := X.Dims()
	yTrue, err := column(r.name+".Score", y, n)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yTrue, mat.Col(nil, 0, pred))
}

// Sigma returns the Laplace scale of the training residuals. The estimator
// must be built WithProbability(true).
func (r *regressor) Sigma() (float64, error) {
	if err := r.state.RequireFitted(r.name, "Sigma"); err != nil {
		return 0, err
	}
	return r.model.SVRProbability()
}

// SVR is epsilon-support vector regression.
type SVR struct {
	regressor
}

// NewSVR creates an epsilon-SVR with C=1 and epsilon=0.1.
func NewSVR(opts ...Option) *SVR {
	return &SVR{regressor{newBase("SVR", gosvm.EpsilonSVR, opts)}}
}

// NuSVR is nu-support vector regression.
type NuSVR struct {
	regressor
}

// NewNuSVR creates a nu-SVR with C=1 and nu=0.5.
func NewNuSVR(opts ...Option) *NuSVR {
	return &NuSVR{regressor{newBase("NuSVR", gosvm.NuSVR, opts)}}
}

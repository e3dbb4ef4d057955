// Package model provides the estimator interfaces and fitted-state handling
// shared by the scikit-learn style SVM estimators.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns accuracy for classifiers and R^2 for regressors.
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// Regressor combines interfaces for regression models.
type Regressor interface {
	Fitter
	Predictor
	Scorer
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Fitter
	Predictor
	Scorer
	DecisionFunctioner

	// PredictProba returns probability estimates for each class.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique classes seen during fitting.
	Classes() []int
}

// OutlierDetector is implemented by unsupervised novelty detectors.
// Fit ignores y, which may be nil.
type OutlierDetector interface {
	Fitter
	Predictor
	DecisionFunctioner
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

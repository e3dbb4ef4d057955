// Package gosvm provides support vector machines for Go, trained with a
// libsvm-compatible SMO solver.
//
// The module is split into two layers:
//
//   - svm: the training engine. Problem, Parameter, Train, CrossValidation
//     and Model with one-vs-one prediction, Platt scaling and the Laplace
//     model for regression. Subpackages hold the kernels (svm/kernel), the
//     kernel column cache (svm/cache), the Q matrices (svm/qmatrix) and the
//     SMO solver itself (svm/solver).
//   - sklearn/svm: scikit-learn style estimators over gonum matrices
//     (SVC, NuSVC, OneClassSVM, SVR, NuSVR) configured with functional
//     options.
//
// Supporting packages: preprocessing for feature scaling, metrics for
// scoring, pkg/errors for typed errors and pkg/log for structured logging.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "gonum.org/v1/gonum/mat"
//
//	    "github.com/YuminosukeSato/gosvm/sklearn/svm"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 2, []float64{0, 0, 0, 1, 4, 4, 4, 5})
//	    y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
//
//	    clf := svm.NewSVC(svm.WithC(10), svm.WithKernel("rbf"))
//	    if err := clf.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//	    pred, _ := clf.Predict(mat.NewDense(1, 2, []float64{3.5, 4}))
//	    fmt.Println(pred.At(0, 0))
//	}
//
// # Error Handling
//
// Errors are typed (ValidationError, DimensionError, NotFittedError,
// ModelError) and wrap sentinel causes such as ErrInfeasibleNu or
// ErrSingleClass, so callers can use errors.Is and errors.As from
// pkg/errors. Training that stops at the iteration limit still returns a
// model; the warning goes through the warning handler and the model reports
// Converged() == false.
//
// # Logging
//
// Logging goes through pkg/log. SetupLogger installs an slog backend and
// NewZerologProvider a zerolog one; a test provider captures records.
package gosvm

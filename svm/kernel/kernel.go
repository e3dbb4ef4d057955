// Package kernel provides the kernel functions K(x, y) used to build the
// implicit SVM kernel matrix.
package kernel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/gosvm/pkg/errors"
)

// Kernel computes the inner product of two feature vectors in the kernel's
// feature space. Implementations must be symmetric and safe for concurrent
// use; x and y always have the same length.
type Kernel interface {
	Compute(x, y []float64) float64
	String() string
}

// Linear is K(x, y) = <x, y>.
type Linear struct{}

func (Linear) Compute(x, y []float64) float64 { return floats.Dot(x, y) }

func (Linear) String() string { return "linear" }

// Polynomial is K(x, y) = (Gamma*<x, y> + Coef0)^Degree.
type Polynomial struct {
	Gamma  float64
	Coef0  float64
	Degree int
}

func (k Polynomial) Compute(x, y []float64) float64 {
	return powi(k.Gamma*floats.Dot(x, y)+k.Coef0, k.Degree)
}

func (k Polynomial) String() string {
	return fmt.Sprintf("poly(gamma=%g, coef0=%g, degree=%d)", k.Gamma, k.Coef0, k.Degree)
}

// RBF is K(x, y) = exp(-Gamma*||x-y||^2).
type RBF struct {
	Gamma float64
}

func (k RBF) Compute(x, y []float64) float64 {
	if len(x) != len(y) {
		panic("kernel: slice lengths do not match")
	}
	// squared distance directly; floats.Distance would take the root
	var sum float64
	for i, v := range x {
		d := v - y[i]
		sum += d * d
	}
	return math.Exp(-k.Gamma * sum)
}

func (k RBF) String() string { return fmt.Sprintf("rbf(gamma=%g)", k.Gamma) }

// Sigmoid is K(x, y) = tanh(Gamma*<x, y> + Coef0). It is not positive
// semi-definite for every parameter choice; the solver tolerates that.
type Sigmoid struct {
	Gamma float64
	Coef0 float64
}

func (k Sigmoid) Compute(x, y []float64) float64 {
	return math.Tanh(k.Gamma*floats.Dot(x, y) + k.Coef0)
}

func (k Sigmoid) String() string {
	return fmt.Sprintf("sigmoid(gamma=%g, coef0=%g)", k.Gamma, k.Coef0)
}

// Func adapts an ordinary function to the Kernel interface.
type Func func(x, y []float64) float64

func (f Func) Compute(x, y []float64) float64 { return f(x, y) }

func (Func) String() string { return "custom" }

// Validate checks the parameters of the built-in kernels.
func Validate(k Kernel) error {
	switch k := k.(type) {
	case nil:
		return errors.NewValidationError("kernel", "must not be nil", nil)
	case Func:
		if k == nil {
			return errors.NewValidationError("kernel", "must not be nil", nil)
		}
	case Polynomial:
		if k.Gamma < 0 {
			return errors.NewValidationError("gamma", "must be >= 0", k.Gamma)
		}
		if k.Degree < 0 {
			return errors.NewValidationError("degree", "must be >= 0", k.Degree)
		}
	case RBF:
		if k.Gamma < 0 {
			return errors.NewValidationError("gamma", "must be >= 0", k.Gamma)
		}
	case Sigmoid:
		if k.Gamma < 0 {
			return errors.NewValidationError("gamma", "must be >= 0", k.Gamma)
		}
	}
	return nil
}

// powi computes base^times by repeated squaring.
func powi(base float64, times int) float64 {
	tmp, ret := base, 1.0
	for t := times; t > 0; t /= 2 {
		if t%2 == 1 {
			ret *= tmp
		}
		tmp *= tmp
	}
	return ret
}

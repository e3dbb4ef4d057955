package svm

import (
	"github.com/YuminosukeSato/gosvm/pkg/errors"
)

// Problem is a training set: one feature vector per row of X and its target
// in Y. For classification Y holds integral class labels; for regression the
// target value; one-class training ignores Y.
//
// The training code never modifies X or Y.
type Problem struct {
	X [][]float64
	Y []float64
}

// NewProblem validates x and y and wraps them without copying.
func NewProblem(x [][]float64, y []float64) (*Problem, error) {
	p := &Problem{X: x, Y: y}
	if err := p.validate("svm.NewProblem"); err != nil {
		return nil, err
	}
	return p, nil
}

// validate checks that p is non-empty, that X and Y have one entry per
// example and that every feature vector has the same non-zero length.
func (p *Problem) validate(op string) error {
	if p == nil || len(p.X) == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(p.Y) != len(p.X) {
		return errors.NewDimensionError(op, len(p.X), len(p.Y), 0)
	}
	d := len(p.X[0])
	if d == 0 {
		return errors.NewValueError(op, "feature vectors must not be empty")
	}
	for _, row := range p.X {
		if len(row) != d {
			return errors.NewDimensionError(op, d, len(row), 1)
		}
	}
	return nil
}

// Len returns the number of examples.
func (p *Problem) Len() int { return len(p.Y) }

// subset returns the problem restricted to idx, in that order.
func (p *Problem) subset(idx []int) *Problem {
	sub := &Problem{
		X: make([][]float64, len(idx)),
		Y: make([]float64, len(idx)),
	}
	for k, i := range idx {
		sub.X[k] = p.X[i]
		sub.Y[k] = p.Y[i]
	}
	return sub
}

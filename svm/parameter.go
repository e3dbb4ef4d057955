package svm

import (
	"math"

	"github.com/YuminosukeSato/gosvm/pkg/errors"
	"github.com/YuminosukeSato/gosvm/svm/kernel"
)

// Type selects the SVM formulation.
type Type int

const (
	CSVC Type = iota
	NuSVC
	OneClass
	EpsilonSVR
	NuSVR
)

func (t Type) String() string {
	switch t {
	case CSVC:
		return "c_svc"
	case NuSVC:
		return "nu_svc"
	case OneClass:
		return "one_class"
	case EpsilonSVR:
		return "epsilon_svr"
	case NuSVR:
		return "nu_svr"
	default:
		return "unknown"
	}
}

// IsClassifier reports whether the formulation trains one-vs-one classifiers.
func (t Type) IsClassifier() bool { return t == CSVC || t == NuSVC }

// IsRegression reports whether the formulation predicts real values.
func (t Type) IsRegression() bool { return t == EpsilonSVR || t == NuSVR }

// Parameter is the training configuration. Only the fields used by Type are
// read: C for CSVC, EpsilonSVR and NuSVR; Nu for NuSVC, OneClass and NuSVR;
// P for EpsilonSVR.
type Parameter struct {
	Type   Type
	Kernel kernel.Kernel

	C   float64
	Nu  float64
	P   float64 // epsilon of the epsilon-insensitive loss
	Eps float64 // stopping tolerance

	CacheSize   int64 // kernel cache in bytes, per sub-problem
	Shrinking   bool
	Probability bool

	// Weights multiplies C for the given class label.
	Weights map[int]float64

	// Seed drives every shuffle (probability and cross-validation folds).
	Seed int64
	// MaxIter caps solver iterations when positive.
	MaxIter int
	// Parallel trains one-vs-one pairs and folds concurrently, each with
	// its own kernel cache.
	Parallel bool
}

// DefaultParameter returns a C-SVC configuration with an RBF kernel of
// gamma 1.
func DefaultParameter() Parameter {
	return Parameter{
		Type:      CSVC,
		Kernel:    kernel.RBF{Gamma: 1},
		C:         1,
		Nu:        0.5,
		P:         0.1,
		Eps:       1e-3,
		CacheSize: 100 << 20,
		Shrinking: true,
	}
}

// Validate rejects configurations that cannot be trained on prob, before
// any solve starts. prob may be nil, in which case the nu-SVC feasibility
// check is skipped.
func (p *Parameter) Validate(prob *Problem) error {
	switch p.Type {
	case CSVC, NuSVC, OneClass, EpsilonSVR, NuSVR:
	default:
		return errors.NewValidationError("type", "unknown svm type", int(p.Type))
	}
	if err := kernel.Validate(p.Kernel); err != nil {
		return err
	}
	if p.CacheSize <= 0 {
		return errors.NewValidationError("cache_size", "must be > 0", p.CacheSize)
	}
	if !(p.Eps > 0) {
		return errors.NewValidationError("eps", "must be > 0", p.Eps)
	}

	switch p.Type {
	case CSVC, EpsilonSVR, NuSVR:
		if !(p.C > 0) {
			return errors.NewValidationError("C", "must be > 0", p.C)
		}
	}
	switch p.Type {
	case NuSVC, OneClass, NuSVR:
		if !(p.Nu > 0 && p.Nu <= 1) {
			return errors.NewValidationError("nu", "must be in (0, 1]", p.Nu)
		}
	}
	if p.Type == EpsilonSVR && !(p.P >= 0) {
		return errors.NewValidationError("p", "must be >= 0", p.P)
	}
	if p.Probability && p.Type == OneClass {
		return errors.NewValidationError("probability", "one-class SVM probability output not supported", p.Probability)
	}
	for label, w := range p.Weights {
		if !(w > 0) || math.IsInf(w, 0) {
			return errors.NewValidationError("weights", "class weight must be positive and finite", label)
		}
	}

	if p.Type == NuSVC && prob != nil {
		g := groupClasses(prob)
		for i := 0; i < len(g.label); i++ {
			n1 := g.count[i]
			for j := i + 1; j < len(g.label); j++ {
				n2 := g.count[j]
				if p.Nu*float64(n1+n2)/2 > float64(min(n1, n2)) {
					return errors.NewValidationErrorWithCause("nu", "specified nu is infeasible", p.Nu, errors.ErrInfeasibleNu)
				}
			}
		}
	}
	return nil
}

package svm

import (
	"math"

	"github.com/YuminosukeSato/gosvm/pkg/errors"
	"github.com/YuminosukeSato/gosvm/pkg/log"
	"github.com/YuminosukeSato/gosvm/svm/qmatrix"
	"github.com/YuminosukeSato/gosvm/svm/solver"
)

// decision is one trained binary (or one-class / regression) function.
type decision struct {
	alpha  []float64
	rho    float64
	status solver.Status
}

// trainOne solves a single formulation on prob. cp and cn are the
// per-class bounds of C-SVC and are ignored by the other formulations.
func trainOne(prob *Problem, param *Parameter, cp, cn float64, cfg solver.Config) (*decision, error) {
	var (
		alpha []float64
		res   *solver.Result
		err   error
	)
	switch param.Type {
	case CSVC:
		alpha, res, err = solveCSVC(prob, param, cp, cn, cfg)
	case NuSVC:
		alpha, res, err = solveNuSVC(prob, param, cfg)
	case OneClass:
		alpha, res, err = solveOneClass(prob, param, cfg)
	case EpsilonSVR:
		alpha, res, err = solveEpsilonSVR(prob, param, cfg)
	case NuSVR:
		alpha, res, err = solveNuSVR(prob, param, cfg)
	default:
		return nil, errors.NewValidationError("type", "unknown svm type", int(param.Type))
	}
	if err != nil {
		return nil, err
	}

	nSV, nBSV := 0, 0
	for i, a := range alpha {
		if math.Abs(a) == 0 {
			continue
		}
		nSV++
		bound := res.UpperBoundN
		if prob.Y[i] > 0 {
			bound = res.UpperBoundP
		}
		if math.Abs(a) >= bound {
			nBSV++
		}
	}
	cfg.Logger.Debug("sub-problem solved",
		log.SamplesKey, prob.Len(),
		log.ObjectiveKey, res.Obj,
		log.RhoKey, res.Rho,
		log.NSVKey, nSV,
		log.NBSVKey, nBSV,
		log.IterationKey, res.Iterations,
	)

	return &decision{alpha: alpha, rho: res.Rho, status: res.Status}, nil
}

func signs(y []float64) []int8 {
	s := make([]int8, len(y))
	for i, v := range y {
		if v > 0 {
			s[i] = 1
		} else {
			s[i] = -1
		}
	}
	return s
}

func solveCSVC(prob *Problem, param *Parameter, cp, cn float64, cfg solver.Config) ([]float64, *solver.Result, error) {
	l := prob.Len()
	y := signs(prob.Y)
	p := make([]float64, l)
	for i := range p {
		p[i] = -1
	}

	q := qmatrix.NewSVC(prob.X, y, param.Kernel, param.CacheSize)
	res, err := solver.Solve(q, p, y, make([]float64, l), cp, cn, cfg)
	if err != nil {
		return nil, nil, err
	}

	alpha := res.Alpha
	if cp == cn {
		var sum float64
		for _, a := range alpha {
			sum += a
		}
		cfg.Logger.Debug("c-svc solved", "nu", sum/(cp*float64(l)))
	}
	for i := range alpha {
		alpha[i] *= float64(y[i])
	}
	return alpha, res, nil
}

func solveNuSVC(prob *Problem, param *Parameter, cfg solver.Config) ([]float64, *solver.Result, error) {
	l := prob.Len()
	y := signs(prob.Y)

	// feasible start: nu*l/2 of mass on each class, filled front to back
	alpha := make([]float64, l)
	sumPos := param.Nu * float64(l) / 2
	sumNeg := sumPos
	for i := range alpha {
		if y[i] == 1 {
			alpha[i] = math.Min(1, sumPos)
			sumPos -= alpha[i]
		} else {
			alpha[i] = math.Min(1, sumNeg)
			sumNeg -= alpha[i]
		}
	}

	q := qmatrix.NewSVC(prob.X, y, param.Kernel, param.CacheSize)
	res, err := solver.SolveNu(q, make([]float64, l), y, alpha, 1, 1, cfg)
	if err != nil {
		return nil, nil, err
	}

	r := res.R
	cfg.Logger.Debug("nu-svc solved", "c", 1/r)

	out := res.Alpha
	for i := range out {
		out[i] *= float64(y[i]) / r
	}
	res.Rho /= r
	res.Obj /= r * r
	res.UpperBoundP = 1 / r
	res.UpperBoundN = 1 / r
	return out, res, nil
}

func solveOneClass(prob *Problem, param *Parameter, cfg solver.Config) ([]float64, *solver.Result, error) {
	l := prob.Len()
	alpha := make([]float64, l)

	// nu*l multipliers at the upper bound, the fraction on the next one
	n := int(param.Nu * float64(l))
	for i := 0; i < n; i++ {
		alpha[i] = 1
	}
	if n < l {
		alpha[n] = param.Nu*float64(l) - float64(n)
	}

	ones := make([]int8, l)
	for i := range ones {
		ones[i] = 1
	}

	q := qmatrix.NewOneClass(prob.X, param.Kernel, param.CacheSize)
	res, err := solver.Solve(q, make([]float64, l), ones, alpha, 1, 1, cfg)
	if err != nil {
		return nil, nil, err
	}
	return res.Alpha, res, nil
}

func solveEpsilonSVR(prob *Problem, param *Parameter, cfg solver.Config) ([]float64, *solver.Result, error) {
	l := prob.Len()
	linear := make([]float64, 2*l)
	y := make([]int8, 2*l)
	for i := 0; i < l; i++ {
		linear[i] = param.P - prob.Y[i]
		y[i] = 1
		linear[i+l] = param.P + prob.Y[i]
		y[i+l] = -1
	}

	q := qmatrix.NewSVR(prob.X, param.Kernel, param.CacheSize)
	res, err := solver.Solve(q, linear, y, make([]float64, 2*l), param.C, param.C, cfg)
	if err != nil {
		return nil, nil, err
	}

	alpha := make([]float64, l)
	var sum float64
	for i := 0; i < l; i++ {
		alpha[i] = res.Alpha[i] - res.Alpha[i+l]
		sum += math.Abs(alpha[i])
	}
	cfg.Logger.Debug("epsilon-svr solved", "nu", sum/(param.C*float64(l)))
	return alpha, res, nil
}

func solveNuSVR(prob *Problem, param *Parameter, cfg solver.Config) ([]float64, *solver.Result, error) {
	l := prob.Len()
	c := param.C
	alpha2 := make([]float64, 2*l)
	linear := make([]float64, 2*l)
	y := make([]int8, 2*l)

	sum := c * param.Nu * float64(l) / 2
	for i := 0; i < l; i++ {
		alpha2[i] = math.Min(sum, c)
		alpha2[i+l] = alpha2[i]
		sum -= alpha2[i]

		linear[i] = -prob.Y[i]
		y[i] = 1
		linear[i+l] = prob.Y[i]
		y[i+l] = -1
	}

	q := qmatrix.NewSVR(prob.X, param.Kernel, param.CacheSize)
	res, err := solver.SolveNu(q, linear, y, alpha2, c, c, cfg)
	if err != nil {
		return nil, nil, err
	}
	cfg.Logger.Debug("nu-svr solved", "epsilon", -res.R)

	alpha := make([]float64, l)
	for i := 0; i < l; i++ {
		alpha[i] = res.Alpha[i] - res.Alpha[i+l]
	}
	return alpha, res, nil
}

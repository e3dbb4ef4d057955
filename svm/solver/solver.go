// Package solver implements the SMO decomposition method of Fan, Chen and Lin
// (JMLR 6, 2005) for the SVM dual
//
//	min 0.5 αᵀQα + pᵀα
//	s.t. yᵀα = Δ, 0 <= α_i <= C_i
//
// with second-order working set selection and shrinking. SolveNu handles the
// additional constraint eᵀα = const of the nu formulations.
package solver

import (
	"math"

	"github.com/tevino/abool"

	"github.com/YuminosukeSato/gosvm/pkg/errors"
	"github.com/YuminosukeSato/gosvm/pkg/log"
	"github.com/YuminosukeSato/gosvm/svm/qmatrix"
)

// tau replaces a non-positive quadratic coefficient when choosing and
// updating a working pair.
const tau = 1e-12

// Status is the terminal state of a solve.
type Status int

const (
	// Converged means the maximal violating pair fell below Eps.
	Converged Status = iota
	// MaxIterReached means the iteration cap was hit; Alpha is usable but
	// may be suboptimal.
	MaxIterReached
	// Cancelled means Config.Stop was set before convergence.
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case MaxIterReached:
		return "max_iter_reached"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Config controls one solve.
type Config struct {
	// Eps is the stopping tolerance on the maximal violating pair.
	Eps float64
	// Shrinking enables the active-set heuristic.
	Shrinking bool
	// MaxIter overrides the default cap max(1e7, 100*l) when positive.
	MaxIter int
	// Logger receives diagnostics; nil uses the "svm.solver" logger.
	Logger log.Logger
	// Stop is polled once per iteration; nil never stops.
	Stop *abool.AtomicBool
}

// Result is the output of a solve.
type Result struct {
	Alpha []float64
	Rho   float64
	Obj   float64
	// R is the nu formulations' rescaling term (r1+r2)/2; zero for Solve.
	R           float64
	UpperBoundP float64
	UpperBoundN float64
	Iterations  int
	Status      Status
}

const (
	lowerBound int8 = iota
	upperBound
	free
)

type solver struct {
	nu bool

	l          int
	activeSize int
	y          []int8
	grad       []float64
	status     []int8
	alpha      []float64
	q          qmatrix.Matrix
	qd         []float64
	eps        float64
	cp, cn     float64
	p          []float64
	activeSet  []int
	gradBar    []float64
	unshrink   bool

	logger log.Logger
}

// Solve runs the standard solver. p, y and alpha have length l where l is
// the order of q; alpha is the feasible starting point and is not modified.
// cp and cn are the upper bounds for y=+1 and y=-1.
//
// A non-nil error is returned only when the kernel produced NaN or Inf; the
// partial Result is returned alongside it.
func Solve(q qmatrix.Matrix, p []float64, y []int8, alpha []float64, cp, cn float64, cfg Config) (*Result, error) {
	s := newSolver(false, q, p, y, alpha, cp, cn, cfg)
	return s.run(cfg)
}

// SolveNu runs the nu solver, which keeps Σα separately for y=+1 and y=-1
// and reports the rescaling term in Result.R.
func SolveNu(q qmatrix.Matrix, p []float64, y []int8, alpha []float64, cp, cn float64, cfg Config) (*Result, error) {
	s := newSolver(true, q, p, y, alpha, cp, cn, cfg)
	return s.run(cfg)
}

func newSolver(nu bool, q qmatrix.Matrix, p []float64, y []int8, alpha []float64, cp, cn float64, cfg Config) *solver {
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("svm.solver")
	}
	l := len(alpha)
	s := &solver{
		nu:     nu,
		l:      l,
		q:      q,
		qd:     q.Diagonal(),
		p:      append([]float64(nil), p...),
		y:      append([]int8(nil), y...),
		alpha:  append([]float64(nil), alpha...),
		cp:     cp,
		cn:     cn,
		eps:    cfg.Eps,
		logger: logger,
	}

	s.status = make([]int8, l)
	for i := 0; i < l; i++ {
		s.updateStatus(i)
	}

	s.activeSet = make([]int, l)
	for i := range s.activeSet {
		s.activeSet[i] = i
	}
	s.activeSize = l

	s.grad = make([]float64, l)
	s.gradBar = make([]float64, l)
	copy(s.grad, s.p)
	for i := 0; i < l; i++ {
		if s.isLowerBound(i) {
			continue
		}
		qi := q.Row(i, l)
		ai := s.alpha[i]
		for j := 0; j < l; j++ {
			s.grad[j] += ai * qi[j]
		}
		if s.isUpperBound(i) {
			ci := s.c(i)
			for j := 0; j < l; j++ {
				s.gradBar[j] += ci * qi[j]
			}
		}
	}
	return s
}

func (s *solver) c(i int) float64 {
	if s.y[i] > 0 {
		return s.cp
	}
	return s.cn
}

func (s *solver) updateStatus(i int) {
	switch {
	case s.alpha[i] >= s.c(i):
		s.status[i] = upperBound
	case s.alpha[i] <= 0:
		s.status[i] = lowerBound
	default:
		s.status[i] = free
	}
}

func (s *solver) isUpperBound(i int) bool { return s.status[i] == upperBound }
func (s *solver) isLowerBound(i int) bool { return s.status[i] == lowerBound }
func (s *solver) isFree(i int) bool       { return s.status[i] == free }

// swapIndex is the only place per-example state is reordered.
func (s *solver) swapIndex(i, j int) {
	s.q.SwapIndex(i, j)
	s.y[i], s.y[j] = s.y[j], s.y[i]
	s.grad[i], s.grad[j] = s.grad[j], s.grad[i]
	s.status[i], s.status[j] = s.status[j], s.status[i]
	s.alpha[i], s.alpha[j] = s.alpha[j], s.alpha[i]
	s.p[i], s.p[j] = s.p[j], s.p[i]
	s.activeSet[i], s.activeSet[j] = s.activeSet[j], s.activeSet[i]
	s.gradBar[i], s.gradBar[j] = s.gradBar[j], s.gradBar[i]
}

// reconstructGradient recomputes grad for the inactive range from gradBar
// and the free variables.
func (s *solver) reconstructGradient() {
	if s.activeSize == s.l {
		return
	}

	for j := s.activeSize; j < s.l; j++ {
		s.grad[j] = s.gradBar[j] + s.p[j]
	}

	nrFree := 0
	for j := 0; j < s.activeSize; j++ {
		if s.isFree(j) {
			nrFree++
		}
	}
	if 2*nrFree < s.activeSize {
		s.logger.Debug("few free variables, disabling shrinking may be faster",
			log.ActiveSizeKey, s.activeSize)
	}

	// pick the direction needing fewer kernel evaluations
	if nrFree*s.l > 2*s.activeSize*(s.l-s.activeSize) {
		for i := s.activeSize; i < s.l; i++ {
			qi := s.q.Row(i, s.activeSize)
			for j := 0; j < s.activeSize; j++ {
				if s.isFree(j) {
					s.grad[i] += s.alpha[j] * qi[j]
				}
			}
		}
		return
	}
	for i := 0; i < s.activeSize; i++ {
		if !s.isFree(i) {
			continue
		}
		qi := s.q.Row(i, s.l)
		ai := s.alpha[i]
		for j := s.activeSize; j < s.l; j++ {
			s.grad[j] += ai * qi[j]
		}
	}
}

func (s *solver) maxIter(override int) int {
	if override > 0 {
		return override
	}
	n := math.MaxInt32
	if s.l <= math.MaxInt32/100 {
		n = 100 * s.l
	}
	if n < 10_000_000 {
		n = 10_000_000
	}
	return n
}

func (s *solver) run(cfg Config) (*Result, error) {
	maxIter := s.maxIter(cfg.MaxIter)
	period := s.l
	if period > 1000 {
		period = 1000
	}
	counter := period + 1
	status := MaxIterReached
	iter := 0

	for iter < maxIter {
		if cfg.Stop != nil && cfg.Stop.IsSet() {
			status = Cancelled
			break
		}

		counter--
		if counter == 0 {
			counter = period
			if cfg.Shrinking {
				s.doShrinking()
			}
		}

		i, j, ok := s.selectWorkingSet()
		if !ok {
			// may be a false stop caused by shrinking
			s.reconstructGradient()
			s.activeSize = s.l
			if i, j, ok = s.selectWorkingSet(); !ok {
				status = Converged
				break
			}
			counter = 1 // shrink on the next iteration
		}

		iter++
		s.update(i, j)
	}

	if status != Converged {
		if s.activeSize < s.l {
			// the objective needs the whole gradient
			s.reconstructGradient()
			s.activeSize = s.l
		}
		if status == MaxIterReached {
			errors.Warn(errors.NewConvergenceWarning("SMO", iter, "reaching max number of iterations"))
			s.logger.Warn("reaching max number of iterations",
				log.IterationKey, iter,
				log.ErrorCodeKey, log.ErrorConvergence,
				log.SuggestionKey, "increase the tolerance or scale the features",
			)
		}
	}

	res := &Result{
		Alpha:       make([]float64, s.l),
		UpperBoundP: s.cp,
		UpperBoundN: s.cn,
		Iterations:  iter,
		Status:      status,
	}
	if s.nu {
		res.Rho, res.R = s.calculateRhoNu()
	} else {
		res.Rho = s.calculateRho()
	}

	var v float64
	for i := 0; i < s.l; i++ {
		v += s.alpha[i] * (s.grad[i] + s.p[i])
	}
	res.Obj = v / 2

	for i := 0; i < s.l; i++ {
		res.Alpha[s.activeSet[i]] = s.alpha[i]
	}

	attrs := []any{
		log.IterationKey, iter,
		log.ObjectiveKey, res.Obj,
		log.RhoKey, res.Rho,
		log.StatusKey, status.String(),
	}
	if c, ok := s.q.(interface{ CacheUsage() (int64, int64) }); ok {
		used, budget := c.CacheUsage()
		attrs = append(attrs, log.CacheUsedKey, used, log.CacheBudgetKey, budget)
	}
	s.logger.Debug("optimization finished", attrs...)

	if err := errors.CheckNumericalStability("solver.alpha", res.Alpha, iter); err != nil {
		return res, err
	}
	if err := errors.CheckScalar("solver.rho", res.Rho, iter); err != nil {
		return res, err
	}
	return res, nil
}

// update performs the analytic two-variable step on (i, j) and propagates
// the change into grad and gradBar.
func (s *solver) update(i, j int) {
	qi := s.q.Row(i, s.activeSize)
	qj := s.q.Row(j, s.activeSize)

	ci, cj := s.c(i), s.c(j)
	oldAi, oldAj := s.alpha[i], s.alpha[j]
	alpha := s.alpha

	if s.y[i] != s.y[j] {
		quad := s.qd[i] + s.qd[j] + 2*qi[j]
		if quad <= 0 {
			quad = tau
		}
		delta := (-s.grad[i] - s.grad[j]) / quad
		diff := alpha[i] - alpha[j]
		alpha[i] += delta
		alpha[j] += delta

		if diff > 0 {
			if alpha[j] < 0 {
				alpha[j] = 0
				alpha[i] = diff
			}
		} else if alpha[i] < 0 {
			alpha[i] = 0
			alpha[j] = -diff
		}
		if diff > ci-cj {
			if alpha[i] > ci {
				alpha[i] = ci
				alpha[j] = ci - diff
			}
		} else if alpha[j] > cj {
			alpha[j] = cj
			alpha[i] = cj + diff
		}
	} else {
		quad := s.qd[i] + s.qd[j] - 2*qi[j]
		if quad <= 0 {
			quad = tau
		}
		delta := (s.grad[i] - s.grad[j]) / quad
		sum := alpha[i] + alpha[j]
		alpha[i] -= delta
		alpha[j] += delta

		if sum > ci {
			if alpha[i] > ci {
				alpha[i] = ci
				alpha[j] = sum - ci
			}
		} else if alpha[j] < 0 {
			alpha[j] = 0
			alpha[i] = sum
		}
		if sum > cj {
			if alpha[j] > cj {
				alpha[j] = cj
				alpha[i] = sum - cj
			}
		} else if alpha[i] < 0 {
			alpha[i] = 0
			alpha[j] = sum
		}
	}

	dAi := alpha[i] - oldAi
	dAj := alpha[j] - oldAj
	for k := 0; k < s.activeSize; k++ {
		s.grad[k] += qi[k]*dAi + qj[k]*dAj
	}

	ui, uj := s.isUpperBound(i), s.isUpperBound(j)
	s.updateStatus(i)
	s.updateStatus(j)
	if ui != s.isUpperBound(i) {
		s.shiftGradBar(i, ci, ui)
	}
	if uj != s.isUpperBound(j) {
		s.shiftGradBar(j, cj, uj)
	}
}

// shiftGradBar adds or removes c*Q[i] from gradBar when i crosses the upper
// bound.
func (s *solver) shiftGradBar(i int, c float64, wasUpper bool) {
	qi := s.q.Row(i, s.l)
	if wasUpper {
		c = -c
	}
	for k := 0; k < s.l; k++ {
		s.gradBar[k] += c * qi[k]
	}
}

func (s *solver) selectWorkingSet() (int, int, bool) {
	if s.nu {
		return s.selectWorkingSetNu()
	}

	// i maximises -y_i*grad_i over I_up; j minimises the second-order
	// objective decrease over I_low.
	gmax := math.Inf(-1)
	gmax2 := math.Inf(-1)
	gmaxIdx, gminIdx := -1, -1
	objDiffMin := math.Inf(1)

	for t := 0; t < s.activeSize; t++ {
		if s.y[t] == 1 {
			if !s.isUpperBound(t) && -s.grad[t] >= gmax {
				gmax = -s.grad[t]
				gmaxIdx = t
			}
		} else if !s.isLowerBound(t) && s.grad[t] >= gmax {
			gmax = s.grad[t]
			gmaxIdx = t
		}
	}

	i := gmaxIdx
	var qi []float64
	if i != -1 { // qi is not read when gmax is -Inf
		qi = s.q.Row(i, s.activeSize)
	}

	for j := 0; j < s.activeSize; j++ {
		if s.y[j] == 1 {
			if s.isLowerBound(j) {
				continue
			}
			gradDiff := gmax + s.grad[j]
			if s.grad[j] >= gmax2 {
				gmax2 = s.grad[j]
			}
			if gradDiff > 0 {
				quad := s.qd[i] + s.qd[j] - 2*float64(s.y[i])*qi[j]
				if objDiff := objectiveDecrease(gradDiff, quad); objDiff <= objDiffMin {
					gminIdx = j
					objDiffMin = objDiff
				}
			}
		} else {
			if s.isUpperBound(j) {
				continue
			}
			gradDiff := gmax - s.grad[j]
			if -s.grad[j] >= gmax2 {
				gmax2 = -s.grad[j]
			}
			if gradDiff > 0 {
				quad := s.qd[i] + s.qd[j] + 2*float64(s.y[i])*qi[j]
				if objDiff := objectiveDecrease(gradDiff, quad); objDiff <= objDiffMin {
					gminIdx = j
					objDiffMin = objDiff
				}
			}
		}
	}

	if gmax+gmax2 < s.eps || gminIdx == -1 {
		return -1, -1, false
	}
	return gmaxIdx, gminIdx, true
}

func objectiveDecrease(gradDiff, quad float64) float64 {
	if quad > 0 {
		return -(gradDiff * gradDiff) / quad
	}
	return -(gradDiff * gradDiff) / tau
}

func (s *solver) beShrunk(i int, gmax1, gmax2 float64) bool {
	switch {
	case s.isUpperBound(i):
		if s.y[i] == 1 {
			return -s.grad[i] > gmax1
		}
		return -s.grad[i] > gmax2
	case s.isLowerBound(i):
		if s.y[i] == 1 {
			return s.grad[i] > gmax2
		}
		return s.grad[i] > gmax1
	default:
		return false
	}
}

func (s *solver) doShrinking() {
	if s.nu {
		s.doShrinkingNu()
		return
	}

	gmax1 := math.Inf(-1) // max { -y_i * grad(f)_i | i in I_up(α) }
	gmax2 := math.Inf(-1) // max { y_i * grad(f)_i | i in I_low(α) }

	for i := 0; i < s.activeSize; i++ {
		if s.y[i] == 1 {
			if !s.isUpperBound(i) && -s.grad[i] >= gmax1 {
				gmax1 = -s.grad[i]
			}
			if !s.isLowerBound(i) && s.grad[i] >= gmax2 {
				gmax2 = s.grad[i]
			}
		} else {
			if !s.isUpperBound(i) && -s.grad[i] >= gmax2 {
				gmax2 = -s.grad[i]
			}
			if !s.isLowerBound(i) && s.grad[i] >= gmax1 {
				gmax1 = s.grad[i]
			}
		}
	}

	if !s.unshrink && gmax1+gmax2 <= s.eps*10 {
		s.unshrink = true
		s.reconstructGradient()
		s.activeSize = s.l
	}

	s.shrink(func(i int) bool { return s.beShrunk(i, gmax1, gmax2) })
}

// shrink moves every example satisfying drop behind the active prefix.
func (s *solver) shrink(drop func(i int) bool) {
	for i := 0; i < s.activeSize; i++ {
		if !drop(i) {
			continue
		}
		s.activeSize--
		for s.activeSize > i {
			if !drop(s.activeSize) {
				s.swapIndex(i, s.activeSize)
				break
			}
			s.activeSize--
		}
	}
}

func (s *solver) calculateRho() float64 {
	nrFree := 0
	ub, lb := math.Inf(1), math.Inf(-1)
	var sumFree float64

	for i := 0; i < s.activeSize; i++ {
		yg := float64(s.y[i]) * s.grad[i]
		switch {
		case s.isUpperBound(i):
			if s.y[i] == -1 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case s.isLowerBound(i):
			if s.y[i] == 1 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			nrFree++
			sumFree += yg
		}
	}

	if nrFree > 0 {
		return sumFree / float64(nrFree)
	}
	return (ub + lb) / 2
}

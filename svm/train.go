package svm

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/tevino/abool"

	"github.com/YuminosukeSato/gosvm/core/parallel"
	"github.com/YuminosukeSato/gosvm/pkg/errors"
	"github.com/YuminosukeSato/gosvm/pkg/log"
	"github.com/YuminosukeSato/gosvm/svm/solver"
)

// Train fits a model of param.Type to prob.
//
// The problem and the configuration are validated before any solve starts. Cancelling ctx
// stops every running solve at its next iteration; Train then returns an
// error wrapping ctx.Err(). A solve that hits its iteration cap does not
// fail training: a ConvergenceWarning is emitted and Model.Converged is
// false.
func Train(ctx context.Context, prob *Problem, param *Parameter) (*Model, error) {
	if err := prob.validate("svm.Train"); err != nil {
		return nil, err
	}
	if err := param.Validate(prob); err != nil {
		return nil, err
	}

	t := newTrainer(ctx, param)
	defer t.close()

	if param.Type.IsClassifier() && len(groupClasses(prob).label) < 2 {
		t.logger.Error("training data has a single class",
			log.ErrorCodeKey, log.ErrorSingleClass,
			log.SuggestionKey, "provide examples of at least two classes",
		)
		return nil, errors.NewModelError("svm.Train", "invalid problem", errors.ErrSingleClass)
	}

	began := time.Now()
	m, err := t.train(prob, param)
	if err != nil {
		return nil, err
	}
	t.logger.Info("training finished",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, prob.Len(),
		log.FeaturesKey, len(prob.X[0]),
		log.ClassesKey, m.NClass,
		log.NSVKey, len(m.SV),
		log.DurationMsKey, time.Since(began).Milliseconds(),
	)
	return m, nil
}

// trainer carries what every nested training of one call shares: the
// context, the solver stop flag set on cancellation, and the logger.
type trainer struct {
	ctx    context.Context
	stop   *abool.AtomicBool
	logger log.Logger
	cancel func() bool
}

func newTrainer(ctx context.Context, param *Parameter) *trainer {
	t := &trainer{
		ctx:  ctx,
		stop: abool.New(),
		logger: log.GetLoggerWithName("svm").With(
			log.SVMTypeKey, param.Type.String(),
			log.KernelKey, param.Kernel.String(),
		),
	}
	t.cancel = context.AfterFunc(ctx, t.stop.Set)
	return t
}

func (t *trainer) close() { t.cancel() }

func (t *trainer) workers(param *Parameter) int {
	if param.Parallel {
		return runtime.NumCPU()
	}
	return 1
}

func (t *trainer) solverConfig(param *Parameter, logger log.Logger) solver.Config {
	return solver.Config{
		Eps:       param.Eps,
		Shrinking: param.Shrinking,
		MaxIter:   param.MaxIter,
		Logger:    logger,
		Stop:      t.stop,
	}
}

// cancelled reports ctx.Err() wrapped for the operation.
func (t *trainer) cancelled(op string) error {
	err := t.ctx.Err()
	if err == nil {
		err = context.Canceled
	}
	return errors.Wrapf(err, "%s: training cancelled", op)
}

// deriveSeed gives each pair or fold its own reproducible random stream.
func deriveSeed(seed, stream int64) int64 { return seed*31 + stream + 1 }

// train fits prob without validating param. Nested trainings (probability
// folds, cross validation) go through here so that a fold which happens to
// violate a data-dependent check, such as nu feasibility, still trains.
func (t *trainer) train(prob *Problem, param *Parameter) (*Model, error) {
	if t.ctx.Err() != nil {
		return nil, t.cancelled("svm.Train")
	}
	if param.Type.IsClassifier() {
		return t.trainClassifier(prob, param)
	}

	m := &Model{
		Param:     *param,
		Type:      param.Type,
		NClass:    2,
		Converged: true,
	}
	if param.Type.IsRegression() && param.Probability {
		scale, err := t.svrProbability(prob, param)
		if err != nil {
			return nil, err
		}
		m.ProbA = []float64{scale}
	}

	d, err := trainOne(prob, param, 0, 0, t.solverConfig(param, t.logger))
	if err != nil {
		return nil, err
	}
	if d.status == solver.Cancelled {
		return nil, t.cancelled("svm.Train")
	}
	m.Converged = d.status == solver.Converged
	m.Rho = []float64{d.rho}

	coef := make([]float64, 0)
	for i, a := range d.alpha {
		if math.Abs(a) > 0 {
			m.SV = append(m.SV, prob.X[i])
			m.SVIndices = append(m.SVIndices, i)
			coef = append(coef, a)
		}
	}
	m.SVCoef = [][]float64{coef}
	return m, nil
}

// pair is one one-vs-one sub-problem.
type pair struct {
	i, j int
	dec  *decision
	a, b float64
}

func (t *trainer) trainClassifier(prob *Problem, param *Parameter) (*Model, error) {
	g := groupClasses(prob)
	nr := len(g.label)
	l := prob.Len()

	x := make([][]float64, l)
	for i, k := range g.perm {
		x[i] = prob.X[k]
	}

	weightedC := make([]float64, nr)
	for c, label := range g.label {
		weightedC[c] = param.C
		if w, ok := param.Weights[label]; ok {
			weightedC[c] *= w
		}
	}
	for label := range param.Weights {
		found := false
		for _, have := range g.label {
			found = found || have == label
		}
		if !found {
			t.logger.Warn("class weight label not found in training data", "label", label)
		}
	}

	pairs := make([]pair, 0, nr*(nr-1)/2)
	for i := 0; i < nr; i++ {
		for j := i + 1; j < nr; j++ {
			pairs = append(pairs, pair{i: i, j: j})
		}
	}

	err := parallel.ForEach(t.ctx, len(pairs), t.workers(param), func(p int) error {
		return errors.SafeExecute("svm.Train", func() error {
			return t.trainPair(p, &pairs[p], g, x, param, weightedC)
		})
	})
	if err != nil {
		if t.ctx.Err() != nil {
			return nil, t.cancelled("svm.Train")
		}
		return nil, err
	}

	m := &Model{
		Param:     *param,
		Type:      param.Type,
		NClass:    nr,
		Labels:    append([]int(nil), g.label...),
		Rho:       make([]float64, len(pairs)),
		Converged: true,
	}
	if param.Probability {
		m.ProbA = make([]float64, len(pairs))
		m.ProbB = make([]float64, len(pairs))
	}

	nonzero := make([]bool, l)
	for p, pr := range pairs {
		si, sj := g.start[pr.i], g.start[pr.j]
		ci, cj := g.count[pr.i], g.count[pr.j]
		for k := 0; k < ci; k++ {
			if math.Abs(pr.dec.alpha[k]) > 0 {
				nonzero[si+k] = true
			}
		}
		for k := 0; k < cj; k++ {
			if math.Abs(pr.dec.alpha[ci+k]) > 0 {
				nonzero[sj+k] = true
			}
		}
		m.Rho[p] = pr.dec.rho
		m.Converged = m.Converged && pr.dec.status == solver.Converged
		if param.Probability {
			m.ProbA[p], m.ProbB[p] = pr.a, pr.b
		}
	}

	m.NSV = make([]int, nr)
	for c := 0; c < nr; c++ {
		for k := 0; k < g.count[c]; k++ {
			if nonzero[g.start[c]+k] {
				m.NSV[c]++
			}
		}
	}
	for i := 0; i < l; i++ {
		if nonzero[i] {
			m.SV = append(m.SV, x[i])
			m.SVIndices = append(m.SVIndices, g.perm[i])
		}
	}

	nzStart := make([]int, nr)
	for c := 1; c < nr; c++ {
		nzStart[c] = nzStart[c-1] + m.NSV[c-1]
	}
	m.SVCoef = make([][]float64, nr-1)
	for c := range m.SVCoef {
		m.SVCoef[c] = make([]float64, len(m.SV))
	}

	for _, pr := range pairs {
		i, j := pr.i, pr.j
		si, sj := g.start[i], g.start[j]
		ci, cj := g.count[i], g.count[j]

		q := nzStart[i]
		for k := 0; k < ci; k++ {
			if nonzero[si+k] {
				m.SVCoef[j-1][q] = pr.dec.alpha[k]
				q++
			}
		}
		q = nzStart[j]
		for k := 0; k < cj; k++ {
			if nonzero[sj+k] {
				m.SVCoef[i][q] = pr.dec.alpha[ci+k]
				q++
			}
		}
	}
	return m, nil
}

// trainPair solves class i against class j, with i as the positive class.
func (t *trainer) trainPair(p int, pr *pair, g classGroups, x [][]float64, param *Parameter, weightedC []float64) error {
	si, sj := g.start[pr.i], g.start[pr.j]
	ci, cj := g.count[pr.i], g.count[pr.j]

	sub := &Problem{
		X: make([][]float64, 0, ci+cj),
		Y: make([]float64, 0, ci+cj),
	}
	for k := 0; k < ci; k++ {
		sub.X = append(sub.X, x[si+k])
		sub.Y = append(sub.Y, 1)
	}
	for k := 0; k < cj; k++ {
		sub.X = append(sub.X, x[sj+k])
		sub.Y = append(sub.Y, -1)
	}

	logger := t.logger.With(log.PairKey, p)
	cp, cn := weightedC[pr.i], weightedC[pr.j]

	if param.Probability {
		rng := rand.New(rand.NewSource(deriveSeed(param.Seed, int64(p))))
		a, b, err := t.binarySVCProbability(sub, param, cp, cn, rng)
		if err != nil {
			return err
		}
		pr.a, pr.b = a, b
	}

	d, err := trainOne(sub, param, cp, cn, t.solverConfig(param, logger))
	if err != nil {
		return err
	}
	if d.status == solver.Cancelled {
		return t.cancelled("svm.Train")
	}
	pr.dec = d
	return nil
}

package svm

import (
	"context"
	"math/rand"

	"github.com/YuminosukeSato/gosvm/core/parallel"
	"github.com/YuminosukeSato/gosvm/metrics"
	"github.com/YuminosukeSato/gosvm/pkg/errors"
	"github.com/YuminosukeSato/gosvm/pkg/log"
)

// CrossValidation trains nFold models, each on all folds but one, and
// returns for every example the prediction of the model that did not see
// it: a label for classifiers (the most probable one when Probability is
// set), the one-class verdict, or the regression value.
//
// Classification folds are stratified so that each fold keeps the class
// proportions of prob. nFold larger than the number of examples is reduced
// to leave-one-out.
func CrossValidation(ctx context.Context, prob *Problem, param *Parameter, nFold int) ([]float64, error) {
	if err := prob.validate("svm.CrossValidation"); err != nil {
		return nil, err
	}
	if nFold < 2 {
		return nil, errors.NewValidationError("n_fold", "must be >= 2", nFold)
	}
	if err := param.Validate(prob); err != nil {
		return nil, err
	}

	t := newTrainer(ctx, param)
	defer t.close()

	if l := prob.Len(); nFold > l {
		t.logger.Warn("more folds than examples, using leave-one-out", "n_fold", nFold, log.SamplesKey, l)
		nFold = l
	}
	return t.crossValidation(prob, param, nFold)
}

// foldPermutation orders the examples so that fold f occupies
// perm[start[f]:start[f+1]].
func foldPermutation(prob *Problem, param *Parameter, nFold int, rng *rand.Rand) (perm, start []int) {
	l := prob.Len()
	start = make([]int, nFold+1)

	if !param.Type.IsClassifier() || nFold >= l {
		perm = rng.Perm(l)
		for f := 0; f <= nFold; f++ {
			start[f] = f * l / nFold
		}
		return perm, start
	}

	g := groupClasses(prob)
	index := append([]int(nil), g.perm...)
	for c := range g.label {
		block := index[g.start[c] : g.start[c]+g.count[c]]
		rng.Shuffle(len(block), func(i, j int) { block[i], block[j] = block[j], block[i] })
	}

	// each fold takes the same share of every class
	perm = make([]int, 0, l)
	for f := 0; f < nFold; f++ {
		start[f] = len(perm)
		for c := range g.label {
			begin := g.start[c] + f*g.count[c]/nFold
			end := g.start[c] + (f+1)*g.count[c]/nFold
			perm = append(perm, index[begin:end]...)
		}
	}
	start[nFold] = l
	return perm, start
}

func (t *trainer) crossValidation(prob *Problem, param *Parameter, nFold int) ([]float64, error) {
	rng := rand.New(rand.NewSource(param.Seed))
	perm, start := foldPermutation(prob, param, nFold, rng)
	target := make([]float64, prob.Len())

	err := parallel.ForEach(t.ctx, nFold, t.workers(param), func(f int) error {
		return errors.SafeExecute("svm.CrossValidation", func() error {
			begin, end := start[f], start[f+1]
			idx := make([]int, 0, len(perm)-(end-begin))
			idx = append(idx, perm[:begin]...)
			idx = append(idx, perm[end:]...)

			foldParam := *param
			foldParam.Seed = deriveSeed(param.Seed, int64(f))
			m, err := t.train(prob.subset(idx), &foldParam)
			if err != nil {
				return err
			}

			probability := param.Probability && param.Type.IsClassifier()
			for _, j := range perm[begin:end] {
				if probability {
					label, _, err := m.PredictProbability(prob.X[j])
					if err != nil {
						return err
					}
					target[j] = label
				} else {
					target[j] = m.Predict(prob.X[j])
				}
			}
			t.logger.Debug("fold finished", log.FoldKey, f, log.SamplesKey, len(idx))
			return nil
		})
	})
	if err != nil {
		if t.ctx.Err() != nil {
			return nil, t.cancelled("svm.CrossValidation")
		}
		return nil, err
	}
	t.report(prob, param, target)
	return target, nil
}

// report logs the cross validation score: accuracy for classifiers, mean
// squared error and squared correlation for regression.
func (t *trainer) report(prob *Problem, param *Parameter, target []float64) {
	attrs := []any{log.OperationKey, log.OperationCrossValidate, log.SamplesKey, prob.Len()}
	switch {
	case param.Type.IsRegression():
		mse, err := metrics.MSE(prob.Y, target)
		if err != nil {
			return
		}
		attrs = append(attrs, log.MSEKey, mse)
		// undefined when either side is constant
		if r2, err := metrics.SquaredCorrelation(prob.Y, target); err == nil {
			attrs = append(attrs, log.SquaredCorrelationKey, r2)
		}
	case param.Type.IsClassifier():
		acc, err := metrics.Accuracy(prob.Y, target)
		if err != nil {
			return
		}
		attrs = append(attrs, log.AccuracyKey, acc)
	default:
		return
	}
	t.logger.Info("cross validation finished", attrs...)
}

package svm

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/gosvm/metrics"
	"github.com/YuminosukeSato/gosvm/pkg/log"
)

// probFolds is the number of internal folds used to collect out-of-sample
// decision values.
const probFolds = 5

// sigmoidTrain fits P(y=1|f) = 1/(1+exp(A·f+B)) to decision values by
// Newton's method with a backtracking line search (Lin, Lin and Weng, 2007).
func sigmoidTrain(dec, labels []float64, logger log.Logger) (a, b float64) {
	const (
		maxIter = 100
		minStep = 1e-10
		sigma   = 1e-12 // keeps the Hessian positive definite
		eps     = 1e-5
	)

	var prior1, prior0 float64
	for _, y := range labels {
		if y > 0 {
			prior1++
		} else {
			prior0++
		}
	}

	hiTarget := (prior1 + 1) / (prior1 + 2)
	loTarget := 1 / (prior0 + 2)
	t := make([]float64, len(dec))
	for i, y := range labels {
		if y > 0 {
			t[i] = hiTarget
		} else {
			t[i] = loTarget
		}
	}

	objective := func(a, b float64) float64 {
		var f float64
		for i, d := range dec {
			fApB := d*a + b
			if fApB >= 0 {
				f += t[i]*fApB + math.Log1p(math.Exp(-fApB))
			} else {
				f += (t[i]-1)*fApB + math.Log1p(math.Exp(fApB))
			}
		}
		return f
	}

	a, b = 0, math.Log((prior0+1)/(prior1+1))
	fval := objective(a, b)

	iter := 0
	for ; iter < maxIter; iter++ {
		h11, h22, h21 := sigma, sigma, 0.0
		var g1, g2 float64
		for i, d := range dec {
			fApB := d*a + b
			var p, q float64
			if fApB >= 0 {
				e := math.Exp(-fApB)
				p, q = e/(1+e), 1/(1+e)
			} else {
				e := math.Exp(fApB)
				p, q = 1/(1+e), e/(1+e)
			}
			d2 := p * q
			h11 += d * d * d2
			h22 += d2
			h21 += d * d2
			d1 := t[i] - p
			g1 += d * d1
			g2 += d1
		}

		if math.Abs(g1) < eps && math.Abs(g2) < eps {
			break
		}

		det := h11*h22 - h21*h21
		dA := -(h22*g1 - h21*g2) / det
		dB := -(-h21*g1 + h11*g2) / det
		gd := g1*dA + g2*dB

		step := 1.0
		for step >= minStep {
			newA, newB := a+step*dA, b+step*dB
			newf := objective(newA, newB)
			if newf < fval+0.0001*step*gd {
				a, b, fval = newA, newB, newf
				break
			}
			step /= 2
		}
		if step < minStep {
			logger.Debug("sigmoid line search failed", log.IterationKey, iter)
			break
		}
	}
	if iter >= maxIter {
		logger.Debug("sigmoid fit reached maximal iterations", log.IterationKey, iter)
	}
	return a, b
}

func sigmoidPredict(dec, a, b float64) float64 {
	fApB := dec*a + b
	if fApB >= 0 {
		e := math.Exp(-fApB)
		return e / (1 + e)
	}
	return 1 / (1 + math.Exp(fApB))
}

// multiclassProbability couples the pairwise estimates r[i][j] ≈ P(i | i or j)
// into class probabilities p (Wu, Lin and Weng, 2004, method 2).
func multiclassProbability(k int, r [][]float64, p []float64) {
	maxIter := max(100, k)
	eps := 0.005 / float64(k)

	q := make([][]float64, k)
	qp := make([]float64, k)
	for t := 0; t < k; t++ {
		q[t] = make([]float64, k)
		p[t] = 1 / float64(k)
		for j := 0; j < t; j++ {
			q[t][t] += r[j][t] * r[j][t]
			q[t][j] = q[j][t]
		}
		for j := t + 1; j < k; j++ {
			q[t][t] += r[j][t] * r[j][t]
			q[t][j] = -r[j][t] * r[t][j]
		}
	}

	iter := 0
	for ; iter < maxIter; iter++ {
		var pQp float64
		for t := 0; t < k; t++ {
			qp[t] = 0
			for j := 0; j < k; j++ {
				qp[t] += q[t][j] * p[j]
			}
			pQp += p[t] * qp[t]
		}
		var maxError float64
		for t := 0; t < k; t++ {
			maxError = math.Max(maxError, math.Abs(qp[t]-pQp))
		}
		if maxError < eps {
			break
		}

		for t := 0; t < k; t++ {
			diff := (-qp[t] + pQp) / q[t][t]
			p[t] += diff
			pQp = (pQp + diff*(diff*q[t][t]+2*qp[t])) / (1 + diff) / (1 + diff)
			for j := 0; j < k; j++ {
				qp[j] = (qp[j] + diff*q[t][j]) / (1 + diff)
				p[j] /= 1 + diff
			}
		}
	}
	if iter >= maxIter {
		log.GetLoggerWithName("svm").Debug("multiclass probability exceeded max_iter", log.IterationKey, iter)
	}
}

// binarySVCProbability estimates the sigmoid parameters of a binary problem
// (labels ±1) from out-of-fold decision values.
func (t *trainer) binarySVCProbability(prob *Problem, param *Parameter, cp, cn float64, rng *rand.Rand) (float64, float64, error) {
	l := prob.Len()
	perm := rng.Perm(l)
	dec := make([]float64, l)

	for f := 0; f < probFolds; f++ {
		begin, end := f*l/probFolds, (f+1)*l/probFolds
		idx := make([]int, 0, l-(end-begin))
		idx = append(idx, perm[:begin]...)
		idx = append(idx, perm[end:]...)
		sub := prob.subset(idx)

		var pos, neg int
		for _, y := range sub.Y {
			if y > 0 {
				pos++
			} else {
				neg++
			}
		}

		// a fold without one of the classes gets a constant decision value
		switch {
		case pos == 0 && neg == 0:
			for _, j := range perm[begin:end] {
				dec[j] = 0
			}
		case pos > 0 && neg == 0:
			for _, j := range perm[begin:end] {
				dec[j] = 1
			}
		case pos == 0 && neg > 0:
			for _, j := range perm[begin:end] {
				dec[j] = -1
			}
		default:
			subParam := *param
			subParam.Probability = false
			subParam.C = 1
			subParam.Weights = map[int]float64{1: cp, -1: cn}
			subParam.Parallel = false

			m, err := t.train(sub, &subParam)
			if err != nil {
				return 0, 0, err
			}
			// the sub-model's first label decides the sign of its decision values
			for _, j := range perm[begin:end] {
				dec[j] = m.PredictValues(prob.X[j])[0] * float64(m.Labels[0])
			}
		}
	}

	a, b := sigmoidTrain(dec, prob.Y, t.logger)
	return a, b, nil
}

// svrProbability returns the Laplace scale of the cross-validated residuals
// after discarding those beyond five standard deviations.
func (t *trainer) svrProbability(prob *Problem, param *Parameter) (float64, error) {
	subParam := *param
	subParam.Probability = false

	pred, err := t.crossValidation(prob, &subParam, probFolds)
	if err != nil {
		return 0, err
	}

	mae, err := metrics.MAE(prob.Y, pred)
	if err != nil {
		return 0, err
	}
	std := math.Sqrt(2 * mae * mae)

	kept := make([]float64, 0, len(pred))
	for i := range pred {
		r := math.Abs(prob.Y[i] - pred[i])
		if r <= 5*std {
			kept = append(kept, r)
		}
	}
	scale := stat.Mean(kept, nil)
	t.logger.Debug("svr residual scale estimated",
		"sigma", scale,
		"outliers", len(pred)-len(kept),
	)
	return scale, nil
}


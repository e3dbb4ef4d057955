package solver

import "math"

// selectWorkingSetNu picks a pair with y_i == y_j, so that both Σα over
// y=+1 and over y=-1 stay fixed.
func (s *solver) selectWorkingSetNu() (int, int, bool) {
	gmaxp, gmaxp2 := math.Inf(-1), math.Inf(-1)
	gmaxn, gmaxn2 := math.Inf(-1), math.Inf(-1)
	gmaxpIdx, gmaxnIdx, gminIdx := -1, -1, -1
	objDiffMin := math.Inf(1)

	for t := 0; t < s.activeSize; t++ {
		if s.y[t] == 1 {
			if !s.isUpperBound(t) && -s.grad[t] >= gmaxp {
				gmaxp = -s.grad[t]
				gmaxpIdx = t
			}
		} else if !s.isLowerBound(t) && s.grad[t] >= gmaxn {
			gmaxn = s.grad[t]
			gmaxnIdx = t
		}
	}

	ip, in := gmaxpIdx, gmaxnIdx
	var qip, qin []float64
	if ip != -1 {
		qip = s.q.Row(ip, s.activeSize)
	}
	if in != -1 {
		qin = s.q.Row(in, s.activeSize)
	}

	for j := 0; j < s.activeSize; j++ {
		if s.y[j] == 1 {
			if s.isLowerBound(j) {
				continue
			}
			gradDiff := gmaxp + s.grad[j]
			if s.grad[j] >= gmaxp2 {
				gmaxp2 = s.grad[j]
			}
			if gradDiff > 0 {
				quad := s.qd[ip] + s.qd[j] - 2*qip[j]
				if objDiff := objectiveDecrease(gradDiff, quad); objDiff <= objDiffMin {
					gminIdx = j
					objDiffMin = objDiff
				}
			}
		} else {
			if s.isUpperBound(j) {
				continue
			}
			gradDiff := gmaxn - s.grad[j]
			if -s.grad[j] >= gmaxn2 {
				gmaxn2 = -s.grad[j]
			}
			if gradDiff > 0 {
				quad := s.qd[in] + s.qd[j] - 2*qin[j]
				if objDiff := objectiveDecrease(gradDiff, quad); objDiff <= objDiffMin {
					gminIdx = j
					objDiffMin = objDiff
				}
			}
		}
	}

	if math.Max(gmaxp+gmaxp2, gmaxn+gmaxn2) < s.eps || gminIdx == -1 {
		return -1, -1, false
	}
	if s.y[gminIdx] == 1 {
		return gmaxpIdx, gminIdx, true
	}
	return gmaxnIdx, gminIdx, true
}

func (s *solver) beShrunkNu(i int, gmax1, gmax2, gmax3, gmax4 float64) bool {
	switch {
	case s.isUpperBound(i):
		if s.y[i] == 1 {
			return -s.grad[i] > gmax1
		}
		return -s.grad[i] > gmax4
	case s.isLowerBound(i):
		if s.y[i] == 1 {
			return s.grad[i] > gmax2
		}
		return s.grad[i] > gmax3
	default:
		return false
	}
}

func (s *solver) doShrinkingNu() {
	gmax1 := math.Inf(-1) // max { -y_i * grad(f)_i | y_i = +1, i in I_up(α) }
	gmax2 := math.Inf(-1) // max { y_i * grad(f)_i | y_i = +1, i in I_low(α) }
	gmax3 := math.Inf(-1) // max { -y_i * grad(f)_i | y_i = -1, i in I_up(α) }
	gmax4 := math.Inf(-1) // max { y_i * grad(f)_i | y_i = -1, i in I_low(α) }

	for i := 0; i < s.activeSize; i++ {
		if !s.isUpperBound(i) {
			if s.y[i] == 1 {
				gmax1 = math.Max(gmax1, -s.grad[i])
			} else {
				gmax4 = math.Max(gmax4, -s.grad[i])
			}
		}
		if !s.isLowerBound(i) {
			if s.y[i] == 1 {
				gmax2 = math.Max(gmax2, s.grad[i])
			} else {
				gmax3 = math.Max(gmax3, s.grad[i])
			}
		}
	}

	if !s.unshrink && math.Max(gmax1+gmax2, gmax3+gmax4) <= s.eps*10 {
		s.unshrink = true
		s.reconstructGradient()
		s.activeSize = s.l
	}

	s.shrink(func(i int) bool { return s.beShrunkNu(i, gmax1, gmax2, gmax3, gmax4) })
}

// calculateRhoNu returns rho = (r1-r2)/2 and r = (r1+r2)/2, where r1 and r2
// are the bias estimates of the y=+1 and y=-1 halves.
func (s *solver) calculateRhoNu() (rho, r float64) {
	nrFree1, nrFree2 := 0, 0
	ub1, ub2 := math.Inf(1), math.Inf(1)
	lb1, lb2 := math.Inf(-1), math.Inf(-1)
	var sumFree1, sumFree2 float64

	for i := 0; i < s.activeSize; i++ {
		g := s.grad[i]
		if s.y[i] == 1 {
			switch {
			case s.isLowerBound(i):
				ub1 = math.Min(ub1, g)
			case s.isUpperBound(i):
				lb1 = math.Max(lb1, g)
			default:
				nrFree1++
				sumFree1 += g
			}
		} else {
			switch {
			case s.isLowerBound(i):
				ub2 = math.Min(ub2, g)
			case s.isUpperBound(i):
				lb2 = math.Max(lb2, g)
			default:
				nrFree2++
				sumFree2 += g
			}
		}
	}

	r1 := (ub1 + lb1) / 2
	if nrFree1 > 0 {
		r1 = sumFree1 / float64(nrFree1)
	}
	r2 := (ub2 + lb2) / 2
	if nrFree2 > 0 {
		r2 = sumFree2 / float64(nrFree2)
	}
	return (r1 - r2) / 2, (r1 + r2) / 2
}

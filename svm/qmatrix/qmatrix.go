// Package qmatrix provides the implicit kernel matrices Q consumed by the SMO
// solver. Rows are computed on demand through a kernel cache; only the
// diagonal is materialised.
package qmatrix

import (
	"github.com/YuminosukeSato/gosvm/svm/cache"
	"github.com/YuminosukeSato/gosvm/svm/kernel"
)

// Matrix is the solver's view of Q.
//
// Row returns Q[i][0:length]. The returned slice may be reused by a later
// call to Row, so callers must not hold more than two rows at once.
// SwapIndex exchanges examples i and j everywhere the matrix keeps
// per-example state, including the cache.
type Matrix interface {
	Row(i, length int) []float64
	Diagonal() []float64
	SwapIndex(i, j int)
}

// base holds the feature rows and cache shared by SVC and OneClass.
type base struct {
	x     [][]float64
	k     kernel.Kernel
	cache *cache.Cache
	qd    []float64
}

func newBase(x [][]float64, k kernel.Kernel, cacheBytes int64) base {
	// own the row slice so swaps never reorder the caller's data
	rows := make([][]float64, len(x))
	copy(rows, x)
	return base{
		x:     rows,
		k:     k,
		cache: cache.New(len(rows), cacheBytes),
		qd:    make([]float64, len(rows)),
	}
}

func (b *base) Diagonal() []float64 { return b.qd }

// CacheUsage reports the cached and budgeted element counts.
func (b *base) CacheUsage() (used, budget int64) { return b.cache.Used(), b.cache.Budget() }

func (b *base) swap(i, j int) {
	b.cache.SwapIndex(i, j)
	b.x[i], b.x[j] = b.x[j], b.x[i]
	b.qd[i], b.qd[j] = b.qd[j], b.qd[i]
}

// SVC is Q[i][j] = y[i]*y[j]*K(x[i], x[j]) for two-class problems.
type SVC struct {
	base
	y []int8
}

// NewSVC builds the two-class matrix. y holds the ±1 labels in the same
// order as x.
func NewSVC(x [][]float64, y []int8, k kernel.Kernel, cacheBytes int64) *SVC {
	q := &SVC{
		base: newBase(x, k, cacheBytes),
		y:    append([]int8(nil), y...),
	}
	for i := range q.x {
		q.qd[i] = k.Compute(q.x[i], q.x[i])
	}
	return q
}

func (q *SVC) Row(i, length int) []float64 {
	data, start := q.cache.Data(i, length)
	for j := start; j < length; j++ {
		data[j] = float64(q.y[i]*q.y[j]) * q.k.Compute(q.x[i], q.x[j])
	}
	return data[:length]
}

func (q *SVC) SwapIndex(i, j int) {
	q.swap(i, j)
	q.y[i], q.y[j] = q.y[j], q.y[i]
}

// OneClass is Q[i][j] = K(x[i], x[j]).
type OneClass struct {
	base
}

// NewOneClass builds the one-class matrix.
func NewOneClass(x [][]float64, k kernel.Kernel, cacheBytes int64) *OneClass {
	q := &OneClass{base: newBase(x, k, cacheBytes)}
	for i := range q.x {
		q.qd[i] = k.Compute(q.x[i], q.x[i])
	}
	return q
}

func (q *OneClass) Row(i, length int) []float64 {
	data, start := q.cache.Data(i, length)
	for j := start; j < length; j++ {
		data[j] = q.k.Compute(q.x[i], q.x[j])
	}
	return data[:length]
}

func (q *OneClass) SwapIndex(i, j int) { q.swap(i, j) }

// SVR is the doubled matrix of the regression duals. Virtual row t in
// [0, 2l) refers to example t mod l; rows [0, l) carry sign +1 and rows
// [l, 2l) sign -1, matching the labels handed to the solver, so that
// Q[s][t] = sign[s]*sign[t]*K(x[s mod l], x[t mod l]).
//
// The cache is keyed by real example and always holds full rows of length
// l, so swaps only touch the sign, index and diagonal arrays.
type SVR struct {
	x     [][]float64
	k     kernel.Kernel
	l     int
	cache *cache.Cache
	sign  []int8
	index []int
	qd    []float64

	buffer [2][]float64
	next   int
}

// NewSVR builds the 2l×2l regression matrix over l examples.
func NewSVR(x [][]float64, k kernel.Kernel, cacheBytes int64) *SVR {
	l := len(x)
	q := &SVR{
		x:     x,
		k:     k,
		l:     l,
		cache: cache.New(l, cacheBytes),
		sign:  make([]int8, 2*l),
		index: make([]int, 2*l),
		qd:    make([]float64, 2*l),
	}
	for i := 0; i < l; i++ {
		q.sign[i] = 1
		q.sign[i+l] = -1
		q.index[i] = i
		q.index[i+l] = i
		q.qd[i] = k.Compute(x[i], x[i])
		q.qd[i+l] = q.qd[i]
	}
	q.buffer[0] = make([]float64, 2*l)
	q.buffer[1] = make([]float64, 2*l)
	return q
}

func (q *SVR) Row(i, length int) []float64 {
	ri := q.index[i]
	data, valid := q.cache.Data(ri, q.l)
	for j := valid; j < q.l; j++ {
		data[j] = q.k.Compute(q.x[ri], q.x[j])
	}

	// reorder into the next buffer; two rows are alive at a time
	buf := q.buffer[q.next]
	q.next = 1 - q.next
	si := float64(q.sign[i])
	for j := 0; j < length; j++ {
		buf[j] = si * float64(q.sign[j]) * data[q.index[j]]
	}
	return buf[:length]
}

func (q *SVR) Diagonal() []float64 { return q.qd }

// CacheUsage reports the cached and budgeted element counts.
func (q *SVR) CacheUsage() (used, budget int64) { return q.cache.Used(), q.cache.Budget() }

func (q *SVR) SwapIndex(i, j int) {
	q.sign[i], q.sign[j] = q.sign[j], q.sign[i]
	q.index[i], q.index[j] = q.index[j], q.index[i]
	q.qd[i], q.qd[j] = q.qd[j], q.qd[i]
}

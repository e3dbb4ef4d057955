// Package preprocessing は SVM の前段で使う特徴量スケーリングを提供する。
//
// RBF などの距離ベースのカーネルは特徴量のスケールに敏感なため、学習前に
// 各特徴量を揃えておくことが推奨される。MinMaxScaler の既定範囲 [-1, 1] は
// svm-scale と同じ。
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/gosvm/core/model"
	"github.com/YuminosukeSato/gosvm/pkg/errors"
)

// Transformer は学習済みの変換を行列に適用するインターフェース
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
	InverseTransform(X mat.Matrix) (mat.Matrix, error)
}

var (
	_ Transformer = (*StandardScaler)(nil)
	_ Transformer = (*MinMaxScaler)(nil)
)

// constantTol 以下のばらつきしかない特徴量はスケールしない
const constantTol = 1e-8

// affine は列ごとの x' = (x - shift) / scale 変換。両スケーラーで共有する。
type affine struct {
	state *model.StateManager
	name  string
	shift []float64
	scale []float64
}

func newAffine(name string) affine {
	return affine{state: model.NewStateManager(), name: name}
}

func (a *affine) columns(op string, X mat.Matrix) ([][]float64, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
	}
	return cols, nil
}

func (a *affine) fitted(shift, scale []float64, nSamples int) {
	a.shift, a.scale = shift, scale
	a.state.Reset()
	a.state.SetDimensions(len(shift), nSamples)
	a.state.SetFitted()
}

func (a *affine) apply(method string, X mat.Matrix, inverse bool) (mat.Matrix, error) {
	if err := a.state.RequireFitted(a.name, method); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := a.state.RequireFeatures(a.name+"."+method, c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, j int, v float64) float64 {
		if inverse {
			return v*a.scale[j] + a.shift[j]
		}
		return (v - a.shift[j]) / a.scale[j]
	}, X)
	return out, nil
}

// StandardScaler は各特徴量を平均0、標準偏差1に変換する
type StandardScaler struct {
	affine

	// WithMean は平均を引くかどうか
	WithMean bool
	// WithStd は標準偏差で割るかどうか
	WithStd bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	XScaled, err := scaler.FitTransform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{affine: newAffine("StandardScaler"), WithMean: withMean, WithStd: withStd}
}

// Fit は各特徴量の平均と母標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	cols, err := s.columns("StandardScaler.Fit", X)
	if err != nil {
		return err
	}
	shift := make([]float64, len(cols))
	scale := make([]float64, len(cols))
	for j, col := range cols {
		mean, variance := stat.PopMeanVariance(col, nil)
		if s.WithMean {
			shift[j] = mean
		}
		scale[j] = 1
		if sd := math.Sqrt(variance); s.WithStd && sd >= constantTol {
			scale[j] = sd
		}
	}
	s.fitted(shift, scale, len(cols[0]))
	return nil
}

// Transform は学習済みの統計量で標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	return s.apply("Transform", X, false)
}

// FitTransform は Fit と Transform を続けて行う
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化を元に戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	return s.apply("InverseTransform", X, true)
}

// Mean returns the fitted per-feature shift.
func (s *StandardScaler) Mean() []float64 { return append([]float64(nil), s.shift...) }

// Scale returns the fitted per-feature divisor.
func (s *StandardScaler) Scale() []float64 { return append([]float64(nil), s.scale...) }

func (s *StandardScaler) String() string {
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
}

// MinMaxScaler は各特徴量を FeatureRange に線形変換する
type MinMaxScaler struct {
	affine

	FeatureRange [2]float64
}

// NewMinMaxScaler は指定範囲への MinMaxScaler を作成する
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{affine: newAffine("MinMaxScaler"), FeatureRange: featureRange}
}

// NewMinMaxScalerDefault は [-1, 1] へのスケーラーを作成する
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{-1, 1})
}

// Fit は各特徴量の最小値と最大値から変換を決める。
// 定数の特徴量は範囲の下端に写る。
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	lo, hi := m.FeatureRange[0], m.FeatureRange[1]
	if !(lo < hi) {
		return errors.NewValidationError("feature_range", "lower bound must be below upper bound", m.FeatureRange)
	}
	cols, err := m.columns("MinMaxScaler.Fit", X)
	if err != nil {
		return err
	}
	shift := make([]float64, len(cols))
	scale := make([]float64, len(cols))
	for j, col := range cols {
		minV, maxV := col[0], col[0]
		for _, v := range col[1:] {
			minV = min(minV, v)
			maxV = max(maxV, v)
		}
		span := maxV - minV
		if span < constantTol {
			span = 1
		}
		// x' = lo + (x - min) * (hi - lo) / span
		scale[j] = span / (hi - lo)
		shift[j] = minV - lo*scale[j]
	}
	m.fitted(shift, scale, len(cols[0]))
	return nil
}

// Transform は学習済みの範囲で変換する
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	return m.apply("Transform", X, false)
}

// FitTransform は Fit と Transform を続けて行う
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform は変換を元に戻す
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	return m.apply("InverseTransform", X, true)
}

func (m *MinMaxScaler) String() string {
	return fmt.Sprintf("MinMaxScaler(feature_range=(%g, %g))", m.FeatureRange[0], m.FeatureRange[1])
}

// Package metrics はSVMの評価指標を提供する
package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/gosvm/pkg/errors"
)

// checkPair は2つのベクトルの長さを検証する
func checkPair(op string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return errors.NewValueError(op, "empty vector")
	}
	if len(yPred) != len(yTrue) {
		return errors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MSE", yTrue, yPred); err != nil {
		return 0, err
	}
	// MSE = (1/n) * ||yTrue - yPred||²
	d := floats.Distance(yTrue, yPred, 2)
	return d * d / float64(len(yTrue)), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MAE", yTrue, yPred); err != nil {
		return 0, err
	}
	return floats.Distance(yTrue, yPred, 1) / float64(len(yTrue)), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}
	mean := stat.Mean(yTrue, nil)

	var tss, rss float64
	for i, v := range yTrue {
		tss += (v - mean) * (v - mean)
		rss += (v - yPred[i]) * (v - yPred[i])
	}

	// 全変動が0の場合（すべてのyTrueが同じ値）
	if tss == 0 {
		return 0, errors.Newf("R2Score: total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// SquaredCorrelation は真値と予測値のピアソン相関係数の二乗を返す。
// 回帰の交差検証で平均二乗誤差と並べて報告する指標。
func SquaredCorrelation(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("SquaredCorrelation", yTrue, yPred); err != nil {
		return 0, err
	}
	if stat.Variance(yTrue, nil) == 0 || stat.Variance(yPred, nil) == 0 {
		return 0, errors.NewValueError("SquaredCorrelation", "constant input has undefined correlation")
	}
	r := stat.Correlation(yTrue, yPred, nil)
	return r * r, nil
}

func columnOf(op string, m mat.Matrix) ([]float64, error) {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	if c != 1 {
		return nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	return mat.Col(nil, 0, m), nil
}

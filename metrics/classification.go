package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosvm/pkg/errors"
)

// Accuracy は予測ラベルが真のラベルと一致した割合を返す
func Accuracy(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i, v := range yTrue {
		if v == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// AccuracyMatrix は n×1 行列形式の入力に対してAccuracyを計算する
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	a, err := columnOf("AccuracyMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	b, err := columnOf("AccuracyMatrix", yPred)
	if err != nil {
		return 0, err
	}
	return Accuracy(a, b)
}

// ClassificationError は誤分類率（1 - Accuracy）を返す
func ClassificationError(yTrue, yPred []float64) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "ClassificationError")
	}
	return 1 - acc, nil
}

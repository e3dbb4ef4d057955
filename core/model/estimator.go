package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う（n×1 の列ベクトル）
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// DecisionFunctioner は決定関数の値を返すモデルのインターフェース
type DecisionFunctioner interface {
	// DecisionFunction は各サンプルの決定関数値を返す
	// 多クラス分類では one-vs-one の組ごとに1列となる
	DecisionFunction(X mat.Matrix) (mat.Matrix, error)
}

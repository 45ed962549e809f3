package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う (n×1 の列ベクトル)
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier は二値分類器のインターフェース
type Classifier interface {
	Fitter
	Predictor

	// PredictProba は各クラスの確率を返す (n×クラス数)
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes は学習時に見たクラスラベルを昇順で返す
	Classes() []int
}

// Cloner は同じハイパーパラメータで未学習の新しいインスタンスを作れるモデル。
// 交差検証で fold ごとに独立したモデルを学習させるために使う。
type Cloner interface {
	Clone() Classifier
}

// CoefficientProvider は線形モデルの係数ベクトル（特徴量ごとに1つ）を公開する
type CoefficientProvider interface {
	Coef() []float64
}

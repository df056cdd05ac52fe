package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は n×1 の列ベクトル
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を n×1 の行列で返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は教師あり学習モデルの基本インターフェース
type Estimator interface {
	Fitter
	Predictor
}

// Regressor は回帰モデルのインターフェース
type Regressor interface {
	Estimator
}

// Classifier は分類モデルのインターフェース
// ラベルは 0..k-1 にエンコードされた整数を float64 で表現したもの
type Classifier interface {
	Estimator

	// Classes は学習時に観測したクラスラベルを昇順で返す
	Classes() []int
}

// ProbabilisticClassifier は確率を推定できる分類モデルのインターフェース
// RidgeClassifier のように確率を持たないモデルは実装しない
type ProbabilisticClassifier interface {
	Classifier

	// PredictProba は各クラスの確率を n×k の行列で返す。列の順序は Classes() と同じ
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter はハイパーパラメータを公開するモデルのインターフェース
type ParameterGetter interface {
	// GetParams はモデルのハイパーパラメータを返す
	GetParams() map[string]interface{}
}

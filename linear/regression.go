// Package linear は最小二乗法による線形回帰とリッジ回帰を提供する
package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/core/parallel"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

// LinearRegression は通常の最小二乗法による線形回帰モデル
//
// X と y を中心化してから特異値分解で最小ノルム解を求めるので、
// one-hot 列のような多重共線性があっても学習できる。
type LinearRegression struct {
	model.BaseEstimator

	Coef         []float64 // 重み（係数）
	Intercept    float64   // 切片
	NFeatures    int       // 特徴量の数
	FitIntercept bool
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &LinearRegression{FitIntercept: cfg.fitIntercept}
}

// Fit はモデルを訓練データで学習させる
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	_, c, err := model.CheckXY("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	Xc, yc, xMean, yMean := center(X, y, lr.FitIntercept)

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "svd failed", errors.ErrSingularMatrix)
	}
	rank := svd.Rank(1e-12)
	if rank == 0 {
		// 全ての特徴量が定数の場合は切片のみのモデルになる
		lr.Coef = make([]float64, c)
	} else {
		var w mat.Dense
		svd.SolveTo(&w, yc, rank)
		lr.Coef = mat.Col(nil, 0, &w)
	}

	lr.NFeatures = c
	lr.Intercept = intercept(lr.Coef, xMean, yMean)
	lr.SetFitted()
	return nil
}

// Predict は入力データに対する予測を n×1 の行列で返す
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "Predict")
	}
	return predict("LinearRegression.Predict", X, lr.Coef, lr.Intercept)
}

// GetParams はハイパーパラメータを返す
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{"fit_intercept": lr.FitIntercept}
}

func (lr *LinearRegression) String() string {
	return fmt.Sprintf("LinearRegression(fit_intercept=%t)", lr.FitIntercept)
}

// Ridge はL2正則化付きの線形回帰モデル
// 目的関数 ||y - Xw||² + alpha * ||w||² を最小化する。切片は正則化しない
type Ridge struct {
	model.BaseEstimator

	Coef         []float64
	Intercept    float64
	NFeatures    int
	Alpha        float64
	FitIntercept bool
}

// NewRidge は新しいリッジ回帰モデルを作成する (デフォルト alpha=1.0)
func NewRidge(opts ...Option) *Ridge {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Ridge{Alpha: cfg.alpha, FitIntercept: cfg.fitIntercept}
}

// Fit は正規方程式 (XᵀX + αI) w = Xᵀy をコレスキー分解で解く
func (r *Ridge) Fit(X, y mat.Matrix) error {
	if r.Alpha <= 0 {
		return errors.NewValidationError("alpha", "must be positive", r.Alpha)
	}
	_, c, err := model.CheckXY("Ridge.Fit", X, y)
	if err != nil {
		return err
	}

	Xc, yc, xMean, yMean := center(X, y, r.FitIntercept)

	A := mat.NewSymDense(c, nil)
	A.SymOuterK(1, Xc.T())
	for j := 0; j < c; j++ {
		A.SetSym(j, j, A.At(j, j)+r.Alpha)
	}

	var b mat.VecDense
	b.MulVec(Xc.T(), yc.ColView(0))

	var chol mat.Cholesky
	if ok := chol.Factorize(A); !ok {
		return errors.NewModelError("Ridge.Fit", "matrix is not positive definite", errors.ErrSingularMatrix)
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &b); err != nil {
		return errors.NewModelError("Ridge.Fit", "failed to solve normal equations", err)
	}

	r.Coef = mat.Col(nil, 0, &w)
	r.NFeatures = c
	r.Intercept = intercept(r.Coef, xMean, yMean)
	r.SetFitted()
	return nil
}

// Predict は入力データに対する予測を n×1 の行列で返す
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("Ridge", "Predict")
	}
	return predict("Ridge.Predict", X, r.Coef, r.Intercept)
}

// GetParams はハイパーパラメータを返す
func (r *Ridge) GetParams() map[string]interface{} {
	return map[string]interface{}{"alpha": r.Alpha, "fit_intercept": r.FitIntercept}
}

func (r *Ridge) String() string {
	return fmt.Sprintf("Ridge(alpha=%g, fit_intercept=%t)", r.Alpha, r.FitIntercept)
}

// center は X と y を列平均で中心化したコピーを返す
// fitIntercept が false の場合は平均を0として扱う
func center(X, y mat.Matrix, fitIntercept bool) (*mat.Dense, *mat.Dense, []float64, float64) {
	r, c := X.Dims()
	xMean := make([]float64, c)
	var yMean float64
	if fitIntercept {
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				xMean[j] += X.At(i, j)
			}
			yMean += y.At(i, 0)
		}
		for j := range xMean {
			xMean[j] /= float64(r)
		}
		yMean /= float64(r)
	}

	Xc := mat.NewDense(r, c, nil)
	yc := mat.NewDense(r, 1, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				Xc.Set(i, j, X.At(i, j)-xMean[j])
			}
			yc.Set(i, 0, y.At(i, 0)-yMean)
		}
	})
	return Xc, yc, xMean, yMean
}

func intercept(coef, xMean []float64, yMean float64) float64 {
	b := yMean
	for j, w := range coef {
		b -= w * xMean[j]
	}
	return b
}

func predict(op string, X mat.Matrix, coef []float64, b float64) (mat.Matrix, error) {
	r, c := X.Dims()
	if c != len(coef) {
		return nil, errors.NewDimensionError(op, len(coef), c, 1)
	}
	var v mat.VecDense
	v.MulVec(X, mat.NewVecDense(c, coef))
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, v.AtVec(i)+b)
	}
	return out, nil
}

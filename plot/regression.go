package plot

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot/plotter"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Residuals plots residuals (true minus predicted) against predictions for
// the train and test splits, with each split's R² in the legend.
func Residuals(trainTrue, trainPred, testTrue, testPred []float64) ([]byte, error) {
	if err := checkPairs("plot.Residuals", trainTrue, trainPred); err != nil {
		return nil, err
	}
	if err := checkPairs("plot.Residuals", testTrue, testPred); err != nil {
		return nil, err
	}
	p := newPlot("Residuals", "Predicted Value", "Residuals")
	p.Add(plotter.NewGrid())

	for _, split := range []struct {
		name        string
		truth, pred []float64
		color       color.Color
	}{
		{"Train", trainTrue, trainPred, trainColor},
		{"Test", testTrue, testPred, testColor},
	} {
		res := make([]float64, len(split.truth))
		for i := range res {
			res[i] = split.truth[i] - split.pred[i]
		}
		s, err := scatter(split.pred, res, split.color)
		if err != nil {
			return nil, err
		}
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("%s R² = %.3f", split.name, rSquared(split.truth, split.pred)), s)
	}

	lo, hi := minMax(trainPred, testPred)
	zero, err := dashedLine(plotter.XYs{{X: lo, Y: 0}, {X: hi, Y: 0}}, refColor)
	if err != nil {
		return nil, err
	}
	p.Add(zero)
	return render(p)
}

// PredictionError plots true values against predictions with the identity line.
func PredictionError(yTrue, yPred []float64) ([]byte, error) {
	if err := checkPairs("plot.PredictionError", yTrue, yPred); err != nil {
		return nil, err
	}
	p := newPlot(fmt.Sprintf("Prediction Error (R² = %.3f)", rSquared(yTrue, yPred)), "y", "ŷ")
	p.Add(plotter.NewGrid())

	s, err := scatter(yTrue, yPred, trainColor)
	if err != nil {
		return nil, err
	}
	p.Add(s)

	lo, hi := minMax(yTrue, yPred)
	identity, err := dashedLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}}, refColor)
	if err != nil {
		return nil, err
	}
	p.Add(identity)
	p.Legend.Add("identity", identity)
	p.Legend.Top = true
	p.Legend.Left = true
	return render(p)
}

// CooksDistance plots the influence of every training row on an ordinary
// least squares fit of y on X, with the 4/n threshold.
func CooksDistance(X *mat.Dense, y []float64) ([]byte, error) {
	d, err := CooksDistances(X, y)
	if err != nil {
		return nil, err
	}
	n := len(d)
	threshold := 4 / float64(n)
	var over int
	for _, v := range d {
		if v > threshold {
			over++
		}
	}

	p := newPlot("Cook's Distance Outlier Detection", "instance index", "influence (I)")
	stems, err := plotter.NewBarChart(plotter.Values(d), 1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stems")
	}
	stems.Color = trainColor
	stems.LineStyle.Width = 0
	p.Add(stems)

	line, err := dashedLine(plotter.XYs{{X: 0, Y: threshold}, {X: float64(n - 1), Y: threshold}}, alertColor)
	if err != nil {
		return nil, err
	}
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("%.1f%% > %.3f", 100*float64(over)/float64(n), threshold), line)
	return render(p)
}

// CooksDistances returns Cook's distance for every row of X under an
// ordinary least squares fit with intercept.
func CooksDistances(X *mat.Dense, y []float64) ([]float64, error) {
	if X == nil {
		return nil, errors.NewValueError("plot.CooksDistances", "nil design matrix")
	}
	n, c := X.Dims()
	if n != len(y) {
		return nil, errors.NewDimensionError("plot.CooksDistances", n, len(y), 0)
	}

	design := mat.NewDense(n, c+1, nil)
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1)
		for j := 0; j < c; j++ {
			design.Set(i, j+1, X.At(i, j))
		}
	}

	var svd mat.SVD
	if !svd.Factorize(design, mat.SVDThin) {
		return nil, errors.NewModelError("plot.CooksDistances", "svd", errors.New("factorization failed"))
	}
	values := svd.Values(nil)
	var u mat.Dense
	svd.UTo(&u)

	rank := 0
	tol := float64(max(n, c+1)) * values[0] * 2.220446049250313e-16
	for _, s := range values {
		if s > tol {
			rank++
		}
	}
	if n <= rank {
		return nil, errors.NewValueError("plot.CooksDistances", "needs more rows than model parameters")
	}

	// hat values and fitted values both come from the leading left singular vectors
	ur := u.Slice(0, n, 0, rank)
	yv := mat.NewVecDense(n, y)
	var coef, fitted mat.VecDense
	coef.MulVec(ur.T(), yv)
	fitted.MulVec(ur, &coef)

	hat := make([]float64, n)
	var sse float64
	for i := 0; i < n; i++ {
		for j := 0; j < rank; j++ {
			v := ur.At(i, j)
			hat[i] += v * v
		}
		r := y[i] - fitted.AtVec(i)
		sse += r * r
	}
	mse := sse / float64(n-rank)

	out := make([]float64, n)
	for i := range out {
		r := y[i] - fitted.AtVec(i)
		lev := hat[i]
		if mse == 0 || lev >= 1 {
			continue
		}
		out[i] = r * r / (float64(rank) * mse) * lev / ((1 - lev) * (1 - lev))
	}
	return out, nil
}

func rSquared(yTrue, yPred []float64) float64 {
	return stat.RSquaredFrom(yPred, yTrue, nil)
}

package plot

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/automl/metrics"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// ROC draws one-vs-rest ROC curves. yTrue holds class indices, proba one
// column per class. Binary problems draw only the curve of class 1.
func ROC(yTrue []float64, proba mat.Matrix, classes []string) ([]byte, error) {
	if proba == nil {
		return nil, errors.NewValueError("plot.ROC", "model has no probability estimates")
	}
	n, k := proba.Dims()
	if len(yTrue) != n {
		return nil, errors.NewDimensionError("plot.ROC", len(yTrue), n, 0)
	}
	if k != len(classes) || k < 2 {
		return nil, errors.NewValueError("plot.ROC", "probability columns do not match the classes")
	}

	p := newPlot("ROC Curves", "False Positive Rate", "True Positive Rate")
	p.Add(plotter.NewGrid())

	first := 0
	if k == 2 {
		first = 1
	}
	var aucSum float64
	for c := first; c < k; c++ {
		yc := mat.NewVecDense(n, nil)
		for i, v := range yTrue {
			if int(v) == c {
				yc.SetVec(i, 1)
			}
		}
		score := mat.NewVecDense(n, mat.Col(nil, c, proba))
		fpr, tpr, _, err := metrics.ROCCurve(yc, score)
		if err != nil {
			return nil, err
		}
		auc, err := metrics.AUC(yc, score)
		if err != nil {
			return nil, err
		}
		aucSum += auc
		l, err := plotter.NewLine(xys(fpr, tpr))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create roc line")
		}
		l.Color = plotutil.Color(c - first)
		l.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("ROC of class %s, AUC = %.2f", classes[c], auc), l)
	}
	if k > 2 {
		p.Title.Text = fmt.Sprintf("ROC Curves (macro AUC = %.2f)", aucSum/float64(k))
	}

	chance, err := dashedLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}}, refColor)
	if err != nil {
		return nil, err
	}
	p.Add(chance)
	p.Legend.Add("chance", chance)
	p.Legend.Top = false
	p.Legend.Left = false
	p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = 0, 1, 0, 1.02
	return render(p)
}

// grid is a k×m table drawn as a heat map with row 0 at the top.
type grid struct {
	values *mat.Dense
}

func (g grid) Dims() (c, r int) {
	rows, cols := g.values.Dims()
	return cols, rows
}

func (g grid) Z(c, r int) float64 {
	rows, _ := g.values.Dims()
	return g.values.At(rows-1-r, c)
}

func (g grid) X(c int) float64 { return float64(c) }
func (g grid) Y(r int) float64 { return float64(r) }

func heatMap(title, xLabel, yLabel string, values *mat.Dense, colNames, rowNames []string, cell func(r, c int) string) ([]byte, error) {
	rows, cols := values.Dims()
	p := newPlot(title, xLabel, yLabel)

	hm := plotter.NewHeatMap(grid{values}, palette.Heat(12, 1))
	if lo, hi := mat.Min(values), mat.Max(values); lo == hi {
		hm.Min, hm.Max = lo, lo+1
	}
	p.Add(hm)

	var pts plotter.XYs
	var texts []string
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			pts = append(pts, plotter.XY{X: float64(c), Y: float64(rows - 1 - r)})
			texts = append(texts, cell(r, c))
		}
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: texts})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cell labels")
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = -0.5
		labels.TextStyle[i].YAlign = -0.5
	}
	p.Add(labels)

	reversed := make([]string, rows)
	for r, name := range rowNames {
		reversed[rows-1-r] = name
	}
	p.NominalX(colNames...)
	p.NominalY(reversed...)
	p.X.Padding, p.Y.Padding = 0, 0
	return render(p)
}

// ConfusionMatrix draws cm (rows true class, columns predicted class) with the
// count in every cell.
func ConfusionMatrix(cm *mat.Dense, classes []string) ([]byte, error) {
	if cm == nil {
		return nil, errors.NewValueError("plot.ConfusionMatrix", "nil matrix")
	}
	r, c := cm.Dims()
	if r != len(classes) || c != len(classes) {
		return nil, errors.NewDimensionError("plot.ConfusionMatrix", len(classes), r, 0)
	}
	return heatMap("Confusion Matrix", "Predicted Class", "True Class", cm, classes, classes,
		func(i, j int) string { return strconv.Itoa(int(cm.At(i, j))) })
}

// ClassReport draws precision, recall and F1 per class, with the support in
// the row labels.
func ClassReport(report []metrics.ClassReport, classes []string) ([]byte, error) {
	if len(report) == 0 || len(report) != len(classes) {
		return nil, errors.NewValueError("plot.ClassReport", "report does not match the classes")
	}
	values := mat.NewDense(len(report), 3, nil)
	rows := make([]string, len(report))
	for i, r := range report {
		values.SetRow(i, []float64{r.Precision, r.Recall, r.F1})
		rows[i] = fmt.Sprintf("%s (%d)", classes[i], r.Support)
	}
	return heatMap("Classification Report", "Metric", "Class (support)", values,
		[]string{"precision", "recall", "f1"}, rows,
		func(i, j int) string { return fmt.Sprintf("%.3f", values.At(i, j)) })
}

package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// ラベルは 0..k-1 にエンコードされた整数を float64 で表したもの。
// 二値分類では 1 を陽性クラスとして扱う。

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率 (1 - Accuracy) を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return nil
}

// AUC は二値分類のROC曲線下面積を計算する
//
// 同点のスコアは平均順位で扱う (Mann-Whitney U 統計量と同じ)。
// yTrue が単一クラスの場合は定義できないので 0.5 を返し UndefinedMetricWarning を出す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return yScore.AtVec(idx[a]) < yScore.AtVec(idx[b]) })

	var nPos, nNeg, rankSum float64
	for start := 0; start < n; {
		end := start + 1
		for end < n && yScore.AtVec(idx[end]) == yScore.AtVec(idx[start]) {
			end++
		}
		// 1始まりの順位 start+1..end の平均
		rank := float64(start+end+1) / 2
		for _, i := range idx[start:end] {
			if yTrue.AtVec(i) == 1 {
				nPos++
				rankSum += rank
			} else {
				nNeg++
			}
		}
		start = end
	}

	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in yTrue", 0.5))
		return 0.5, nil
	}
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する。複数列の場合は先頭列を使う
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	if yTrue == nil || yScore == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}
	r, c := yTrue.Dims()
	rs, cs := yScore.Dims()
	if r == 0 || c == 0 || rs == 0 || cs == 0 {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}
	if r != rs {
		return 0, errors.NewDimensionError("AUCMatrix", r, rs, 0)
	}
	return AUC(mat.NewVecDense(r, mat.Col(nil, 0, yTrue)), mat.NewVecDense(rs, mat.Col(nil, 0, yScore)))
}

// MulticlassAUC は one-vs-rest のAUCのマクロ平均を計算する
// proba は n×k の確率行列で、列 j がクラス j の確率。k == 2 の場合は二値のAUCになる
func MulticlassAUC(yTrue *mat.VecDense, proba mat.Matrix) (float64, error) {
	if yTrue == nil || proba == nil {
		return 0, errors.NewValueError("MulticlassAUC", "nil input")
	}
	n, k := proba.Dims()
	if yTrue.Len() != n {
		return 0, errors.NewDimensionError("MulticlassAUC", yTrue.Len(), n, 0)
	}
	if k < 2 {
		return 0, errors.NewValueError("MulticlassAUC", "need at least two probability columns")
	}
	if k == 2 {
		return AUC(yTrue, mat.NewVecDense(n, mat.Col(nil, 1, proba)))
	}

	var sum float64
	for j := 0; j < k; j++ {
		auc, err := AUC(oneVsRest(yTrue, j), mat.NewVecDense(n, mat.Col(nil, j, proba)))
		if err != nil {
			return 0, err
		}
		sum += auc
	}
	return sum / float64(k), nil
}

func oneVsRest(y *mat.VecDense, class int) *mat.VecDense {
	out := mat.NewVecDense(y.Len(), nil)
	for i := 0; i < y.Len(); i++ {
		if int(y.AtVec(i)) == class {
			out.SetVec(i, 1)
		}
	}
	return out
}

// ROCCurve はROC曲線の点を返す。先頭は (0, 0)、閾値はスコアの降順
// thresholds[0] は +Inf で、以降の thresholds[i] 以上を陽性と予測した場合の点が (fpr[i], tpr[i])
func ROCCurve(yTrue, yScore *mat.VecDense) (fpr, tpr, thresholds []float64, err error) {
	n, err := checkPair("ROCCurve", yTrue, yScore)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := checkBinary("ROCCurve", yTrue); err != nil {
		return nil, nil, nil, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return yScore.AtVec(idx[a]) > yScore.AtVec(idx[b]) })

	var pos, neg float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return nil, nil, nil, errors.NewValueError("ROCCurve", "ROC curve needs both classes in yTrue")
	}

	fpr = []float64{0}
	tpr = []float64{0}
	thresholds = []float64{math.Inf(1)}
	var tp, fp float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(idx[i]) == 1 {
			tp++
		} else {
			fp++
		}
		s := yScore.AtVec(idx[i])
		if i+1 < n && yScore.AtVec(idx[i+1]) == s {
			continue
		}
		fpr = append(fpr, fp/neg)
		tpr = append(tpr, tp/pos)
		thresholds = append(thresholds, s)
	}
	return fpr, tpr, thresholds, nil
}

// BinaryLogLoss は二値分類の交差エントロピー損失を計算する
// 確率は log(0) を避けるため [1e-15, 1-1e-15] にクリップする
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	const eps = 1e-15
	var sum float64
	for i := 0; i < n; i++ {
		p := math.Min(math.Max(yProb.AtVec(i), eps), 1-eps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// ConfusionMatrix は k×k の混同行列を返す。行が正解、列が予測
func ConfusionMatrix(yTrue, yPred *mat.VecDense, k int) (*mat.Dense, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if k < 1 {
		return nil, errors.NewValidationError("k", "number of classes must be positive", k)
	}
	cm := mat.NewDense(k, k, nil)
	for i := 0; i < n; i++ {
		t, p := int(yTrue.AtVec(i)), int(yPred.AtVec(i))
		if t < 0 || t >= k || p < 0 || p >= k {
			return nil, errors.NewValueError("ConfusionMatrix", "label outside 0..k-1")
		}
		cm.Set(t, p, cm.At(t, p)+1)
	}
	return cm, nil
}

// numClasses は yTrue と yPred に現れる最大ラベル+1を返す (最低2)
func numClasses(yTrue, yPred *mat.VecDense) int {
	k := 2
	for i := 0; i < yTrue.Len(); i++ {
		if c := int(yTrue.AtVec(i)) + 1; c > k {
			k = c
		}
		if c := int(yPred.AtVec(i)) + 1; c > k {
			k = c
		}
	}
	return k
}

// ClassReport はクラスごとの適合率・再現率・F1・サポート
type ClassReport struct {
	Class     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// ClassificationReport はクラスごとの評価指標を計算する
// ゼロ除算になる値は0とし UndefinedMetricWarning を出す
func ClassificationReport(yTrue, yPred *mat.VecDense, k int) ([]ClassReport, error) {
	cm, err := ConfusionMatrix(yTrue, yPred, k)
	if err != nil {
		return nil, err
	}
	return reportFromConfusion(cm), nil
}

func reportFromConfusion(cm *mat.Dense) []ClassReport {
	k, _ := cm.Dims()
	out := make([]ClassReport, k)
	for c := 0; c < k; c++ {
		tp := cm.At(c, c)
		predicted := mat.Sum(cm.ColView(c))
		actual := mat.Sum(cm.RowView(c))

		r := ClassReport{Class: c, Support: int(actual)}
		r.Precision = safeDivide("Precision", tp, predicted)
		r.Recall = safeDivide("Recall", tp, actual)
		if r.Precision+r.Recall > 0 {
			r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
		}
		out[c] = r
	}
	return out
}

func safeDivide(metric string, num, denom float64) float64 {
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(metric, "zero division", 0))
		return 0
	}
	return num / denom
}

// averaged は二値ならクラス1の値、多クラスならサポート加重平均を返す
// k はタスクのクラス数。ラベルが一部のクラスしか含まない場合も k で判定する
func averaged(op string, yTrue, yPred *mat.VecDense, k int, pick func(ClassReport) float64) (float64, error) {
	if _, err := checkPair(op, yTrue, yPred); err != nil {
		return 0, err
	}
	if k <= 0 {
		k = numClasses(yTrue, yPred)
	}
	report, err := ClassificationReport(yTrue, yPred, k)
	if err != nil {
		return 0, err
	}
	if k == 2 {
		return pick(report[1]), nil
	}
	var sum, support float64
	for _, r := range report {
		sum += pick(r) * float64(r.Support)
		support += float64(r.Support)
	}
	return sum / support, nil
}

// Precision は適合率 (二値: 陽性クラス、多クラス: 加重平均) を計算する
// クラス数はラベルから推定する
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	return PrecisionK(yTrue, yPred, 0)
}

// PrecisionK はクラス数 k を明示して適合率を計算する (k<=0 ならラベルから推定)
func PrecisionK(yTrue, yPred *mat.VecDense, k int) (float64, error) {
	return averaged("Precision", yTrue, yPred, k, func(r ClassReport) float64 { return r.Precision })
}

// Recall は再現率 (二値: 陽性クラス、多クラス: 加重平均) を計算する
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	return RecallK(yTrue, yPred, 0)
}

// RecallK はクラス数 k を明示して再現率を計算する
func RecallK(yTrue, yPred *mat.VecDense, k int) (float64, error) {
	return averaged("Recall", yTrue, yPred, k, func(r ClassReport) float64 { return r.Recall })
}

// F1 はF1スコア (二値: 陽性クラス、多クラス: 加重平均) を計算する
func F1(yTrue, yPred *mat.VecDense) (float64, error) {
	return F1K(yTrue, yPred, 0)
}

// F1K はクラス数 k を明示してF1スコアを計算する
func F1K(yTrue, yPred *mat.VecDense, k int) (float64, error) {
	return averaged("F1", yTrue, yPred, k, func(r ClassReport) float64 { return r.F1 })
}

// CohenKappa はCohenのκ係数を計算する
func CohenKappa(yTrue, yPred *mat.VecDense) (float64, error) {
	return CohenKappaK(yTrue, yPred, 0)
}

// CohenKappaK はクラス数 k を明示してκ係数を計算する
func CohenKappaK(yTrue, yPred *mat.VecDense, k int) (float64, error) {
	n, err := checkPair("CohenKappa", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if k <= 0 {
		k = numClasses(yTrue, yPred)
	}
	cm, err := ConfusionMatrix(yTrue, yPred, k)
	if err != nil {
		return 0, err
	}

	total := float64(n)
	var observed, expected float64
	for c := 0; c < k; c++ {
		observed += cm.At(c, c)
		expected += mat.Sum(cm.RowView(c)) * mat.Sum(cm.ColView(c))
	}
	observed /= total
	expected /= total * total
	if expected == 1 {
		errors.Warn(errors.NewUndefinedMetricWarning("CohenKappa", "chance agreement is 1", 0))
		return 0, nil
	}
	return (observed - expected) / (1 - expected), nil
}

// MCC はMatthews相関係数を多クラスに一般化した形で計算する
func MCC(yTrue, yPred *mat.VecDense) (float64, error) {
	return MCCK(yTrue, yPred, 0)
}

// MCCK はクラス数 k を明示してMCCを計算する
func MCCK(yTrue, yPred *mat.VecDense, k int) (float64, error) {
	n, err := checkPair("MCC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if k <= 0 {
		k = numClasses(yTrue, yPred)
	}
	cm, err := ConfusionMatrix(yTrue, yPred, k)
	if err != nil {
		return 0, err
	}

	s := float64(n)
	var c, sumPT, sumP2, sumT2 float64
	for j := 0; j < k; j++ {
		c += cm.At(j, j)
		t := mat.Sum(cm.RowView(j))
		p := mat.Sum(cm.ColView(j))
		sumPT += p * t
		sumP2 += p * p
		sumT2 += t * t
	}
	denom := math.Sqrt((s*s - sumP2) * (s*s - sumT2))
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("MCC", "zero division", 0))
		return 0, nil
	}
	return (c*s - sumPT) / denom, nil
}

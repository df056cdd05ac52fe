package preprocessing

import (
	"strconv"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// LabelEncoder はクラスラベルを 0..k-1 の整数に変換する
// クラスは文字列として辞書順に並べる。数値ラベルは数値順に並べる
type LabelEncoder struct {
	model.BaseEstimator

	Classes []string
}

// NewLabelEncoder は新しいLabelEncoderを作成する
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit は列の非欠損値からクラスを学習する
func (l *LabelEncoder) Fit(c *dataset.Column) error {
	l.Classes = c.Levels()
	if len(l.Classes) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "no labels", errors.ErrEmptyData)
	}
	l.SetFitted()
	return nil
}

// Transform はラベルを整数に変換する。未知のラベルや欠損値はエラー
func (l *LabelEncoder) Transform(c *dataset.Column) ([]int, error) {
	if !l.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	pos := make(map[string]int, len(l.Classes))
	for k, cls := range l.Classes {
		pos[cls] = k
	}
	out := make([]int, c.Len())
	for i := range out {
		k, ok := pos[c.Value(i)]
		if !ok {
			return nil, errors.NewValidationError(c.Name, "label not seen during fit", c.Value(i))
		}
		out[i] = k
	}
	return out, nil
}

// InverseTransform は整数をクラスラベルに戻す
func (l *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	if !l.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}
	out := make([]string, len(codes))
	for i, k := range codes {
		if k < 0 || k >= len(l.Classes) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform", "unknown code "+strconv.Itoa(k))
		}
		out[i] = l.Classes[k]
	}
	return out, nil
}

package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// OneHotEncoder はFrameを数値行列に変換する
// 数値列はそのまま1列、カテゴリ列は学習時の水準ごとに `<列名>_<水準>` の指示変数になる
// 変換時に未知の水準は全て0として扱う
type OneHotEncoder struct {
	model.BaseEstimator

	// Columns は学習時の列名 (出力の順序)
	Columns []string

	// Categories はカテゴリ列ごとの水準 (昇順)
	Categories map[string][]string
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{}
}

// Fit は各カテゴリ列の水準を学習する
func (o *OneHotEncoder) Fit(f *dataset.Frame) error {
	if f.Cols() == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "no columns", errors.ErrEmptyData)
	}
	o.Columns = f.Names()
	o.Categories = make(map[string][]string)
	for _, c := range f.Columns() {
		if c.Kind == dataset.Categorical {
			o.Categories[c.Name] = c.Levels()
		}
	}
	o.SetFitted()
	return nil
}

// FeatureNames は変換後の列名を返す
func (o *OneHotEncoder) FeatureNames() []string {
	var names []string
	for _, col := range o.Columns {
		levels, categorical := o.Categories[col]
		if !categorical {
			names = append(names, col)
			continue
		}
		for _, l := range levels {
			names = append(names, col+"_"+l)
		}
	}
	return names
}

// Transform はFrameを n×FeatureNames() の行列に変換する
// 数値列に欠損値が残っている場合はエラーになる (先にSimpleImputerを通すこと)
func (o *OneHotEncoder) Transform(f *dataset.Frame) (*mat.Dense, error) {
	if !o.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	n := f.Rows()
	if n == 0 {
		return nil, errors.NewModelError("OneHotEncoder.Transform", "empty data", errors.ErrEmptyData)
	}
	width := len(o.FeatureNames())
	if width == 0 {
		return nil, errors.NewModelError("OneHotEncoder.Transform", "no features", errors.ErrEmptyData)
	}
	out := mat.NewDense(n, width, nil)

	j := 0
	for _, name := range o.Columns {
		c, ok := f.Column(name)
		if !ok {
			return nil, errors.NewValidationError("column", "required column missing from data", name)
		}
		levels, categorical := o.Categories[name]
		if !categorical {
			if c.Kind != dataset.Numeric {
				return nil, errors.NewValidationError("column", "expected a numeric column", name)
			}
			for i, v := range c.Num {
				if err := errors.CheckScalar("OneHotEncoder.Transform "+name, v, i); err != nil {
					return nil, err
				}
				out.Set(i, j, v)
			}
			j++
			continue
		}

		pos := make(map[string]int, len(levels))
		for k, l := range levels {
			pos[l] = k
		}
		for i := 0; i < n; i++ {
			if k, seen := pos[c.Value(i)]; seen {
				out.Set(i, j+k, 1)
			}
		}
		j += len(levels)
	}
	return out, nil
}

// FitTransform は学習と変換を同時に行う
func (o *OneHotEncoder) FitTransform(f *dataset.Frame) (*mat.Dense, error) {
	if err := o.Fit(f); err != nil {
		return nil, err
	}
	return o.Transform(f)
}

package preprocessing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// SimpleImputer は欠損値を訓練データの統計量で埋める
// 数値列は平均値、カテゴリ列は最頻値 (同数の場合は辞書順で最小の値) を使う
type SimpleImputer struct {
	model.BaseEstimator

	// Columns は学習時の列名
	Columns []string

	// NumericFill は数値列の補完値
	NumericFill map[string]float64

	// CategoricalFill はカテゴリ列の補完値
	CategoricalFill map[string]string
}

// NewSimpleImputer は新しいSimpleImputerを作成する
func NewSimpleImputer() *SimpleImputer {
	return &SimpleImputer{}
}

// Fit は各列の補完値を学習する
// 全ての値が欠損している数値列は0、カテゴリ列は "missing" で埋める
func (s *SimpleImputer) Fit(f *dataset.Frame) error {
	if f.Rows() == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}

	s.Columns = f.Names()
	s.NumericFill = make(map[string]float64)
	s.CategoricalFill = make(map[string]string)

	for _, c := range f.Columns() {
		if c.Kind == dataset.Numeric {
			present := make([]float64, 0, len(c.Num))
			for _, v := range c.Num {
				if !math.IsNaN(v) {
					present = append(present, v)
				}
			}
			fill := 0.0
			if len(present) > 0 {
				fill = stat.Mean(present, nil)
			}
			s.NumericFill[c.Name] = fill
			continue
		}
		s.CategoricalFill[c.Name] = mode(c.Str)
	}

	s.SetFitted()
	return nil
}

func mode(values []string) string {
	counts := make(map[string]int)
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return "missing"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

// Transform は欠損値を補完した新しいFrameを返す
// 学習時の列は全て存在する必要がある。それ以外の列はそのまま残る
func (s *SimpleImputer) Transform(f *dataset.Frame) (*dataset.Frame, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("SimpleImputer", "Transform")
	}
	for _, name := range s.Columns {
		if !f.Has(name) {
			return nil, errors.NewValidationError("column", "required column missing from data", name)
		}
	}

	out, _ := dataset.NewFrame(f.Name)
	for _, c := range f.Columns() {
		filled := c
		if v, ok := s.NumericFill[c.Name]; ok && c.Kind == dataset.Numeric {
			num := make([]float64, len(c.Num))
			for i, x := range c.Num {
				if math.IsNaN(x) {
					x = v
				}
				num[i] = x
			}
			filled = dataset.NewNumericColumn(c.Name, num)
		} else if v, ok := s.CategoricalFill[c.Name]; ok {
			str := make([]string, c.Len())
			for i := range str {
				str[i] = c.Value(i)
				if str[i] == "" {
					str[i] = v
				}
			}
			filled = dataset.NewCategoricalColumn(c.Name, str)
		} else if _, ok := s.NumericFill[c.Name]; ok {
			return nil, errors.NewValidationError("column", "expected a numeric column", c.Name)
		}
		if err := out.AddColumn(filled); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FitTransform は学習と変換を同時に行う
func (s *SimpleImputer) FitTransform(f *dataset.Frame) (*dataset.Frame, error) {
	if err := s.Fit(f); err != nil {
		return nil, err
	}
	return s.Transform(f)
}

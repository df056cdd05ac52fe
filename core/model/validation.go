package model

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// CheckXY は学習データ X (n×p) と y (n×1) の形状を検証し、n と p を返す
func CheckXY(op string, X, y mat.Matrix) (int, int, error) {
	if X == nil || y == nil {
		return 0, 0, errors.NewValueError(op, "nil input")
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	ry, cy := y.Dims()
	if ry != r {
		return 0, 0, errors.NewDimensionError(op, r, ry, 0)
	}
	if cy != 1 {
		return 0, 0, errors.NewValueError(op, "y must be a column vector")
	}
	return r, c, nil
}

// UniqueClasses は y に含まれるクラスラベルを昇順で返す
// ラベルは非負の整数でなければならない
func UniqueClasses(op string, y mat.Matrix) ([]int, error) {
	r, _ := y.Dims()
	seen := make(map[int]struct{})
	for i := 0; i < r; i++ {
		v := y.At(i, 0)
		if v < 0 || v != math.Trunc(v) {
			return nil, errors.NewValueError(op, "class labels must be non-negative integers")
		}
		seen[int(v)] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes, nil
}

// ClassIndex はクラスラベルから Classes() の列位置への対応を返す
func ClassIndex(classes []int) map[int]int {
	idx := make(map[int]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return idx
}

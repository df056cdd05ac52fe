package dataset

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

var numericStats = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

var categoricalStats = []string{"count", "unique", "top", "freq"}

// Describe summarizes f the way pandas' DataFrame.describe does. Numeric columns get
// count, mean, std (ddof=1), min, quartiles and max; when f has no numeric columns the
// categorical columns get count, unique, top and freq instead. The first column of the
// result holds the statistic names.
func Describe(f *Frame) *Frame {
	var numeric, categorical []*Column
	for _, c := range f.Columns() {
		if c.Kind == Numeric {
			numeric = append(numeric, c)
		} else {
			categorical = append(categorical, c)
		}
	}

	if len(numeric) > 0 {
		out, _ := NewFrame(f.Name+" (describe)", NewCategoricalColumn("", append([]string(nil), numericStats...)))
		for _, c := range numeric {
			_ = out.AddColumn(NewNumericColumn(c.Name, describeNumeric(c.Num)))
		}
		return out
	}

	out, _ := NewFrame(f.Name+" (describe)", NewCategoricalColumn("", append([]string(nil), categoricalStats...)))
	for _, c := range categorical {
		_ = out.AddColumn(NewCategoricalColumn(c.Name, describeCategorical(c.Str)))
	}
	return out
}

func describeNumeric(values []float64) []float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	nan := math.NaN()
	if len(present) == 0 {
		return []float64{0, nan, nan, nan, nan, nan, nan, nan}
	}
	sort.Float64s(present)
	return []float64{
		float64(len(present)),
		stat.Mean(present, nil),
		stat.StdDev(present, nil),
		present[0],
		Quantile(present, 0.25),
		Quantile(present, 0.50),
		Quantile(present, 0.75),
		present[len(present)-1],
	}
}

func describeCategorical(values []string) []string {
	counts := make(map[string]int)
	n := 0
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
		n++
	}
	top, freq := "", 0
	for v, c := range counts {
		if c > freq || (c == freq && v < top) {
			top, freq = v, c
		}
	}
	return []string{strconv.Itoa(n), strconv.Itoa(len(counts)), top, strconv.Itoa(freq)}
}

// Quantile returns the p-quantile of sorted using linear interpolation between the
// closest ranks (position p*(n-1)), which is numpy's and pandas' default.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

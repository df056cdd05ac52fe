// Package tree implements CART decision trees for classification and regression.
//
// Trees are stored as a flat slice of nodes so that a fitted tree can be persisted
// with encoding/gob and embedded in ensembles.
package tree

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Node is one node of a fitted tree. Leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	NSamples  int
	Impurity  float64
	// Value holds class probabilities for classifiers and the mean target for regressors.
	Value []float64
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.Feature < 0 }

// Params are the hyperparameters shared by classifiers and regressors.
type Params struct {
	Criterion       string // "gini" or "entropy" for classifiers, "squared_error" for regressors
	MaxDepth        int    // 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // features examined per split, 0 means all
	RandomState     int64
}

// Option configures a decision tree.
type Option func(*Params)

// WithCriterion sets the impurity criterion.
func WithCriterion(c string) Option { return func(p *Params) { p.Criterion = c } }

// WithMaxDepth limits the depth of the tree. 0 means unlimited.
func WithMaxDepth(d int) Option { return func(p *Params) { p.MaxDepth = d } }

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option { return func(p *Params) { p.MinSamplesSplit = n } }

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option { return func(p *Params) { p.MinSamplesLeaf = n } }

// WithMaxFeatures sets how many randomly chosen features are examined at each split.
func WithMaxFeatures(n int) Option { return func(p *Params) { p.MaxFeatures = n } }

// WithRandomState seeds the feature sampling.
func WithRandomState(seed int64) Option { return func(p *Params) { p.RandomState = seed } }

func newParams(criterion string, opts []Option) Params {
	p := Params{Criterion: criterion, MinSamplesSplit: 2, MinSamplesLeaf: 1}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p Params) validate(classifier bool) error {
	switch {
	case classifier && p.Criterion != "gini" && p.Criterion != "entropy":
		return errors.NewValidationError("criterion", "must be gini or entropy", p.Criterion)
	case !classifier && p.Criterion != "squared_error":
		return errors.NewValidationError("criterion", "must be squared_error", p.Criterion)
	case p.MaxDepth < 0:
		return errors.NewValidationError("max_depth", "must be non-negative", p.MaxDepth)
	case p.MinSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be at least 2", p.MinSamplesSplit)
	case p.MinSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", p.MinSamplesLeaf)
	case p.MaxFeatures < 0:
		return errors.NewValidationError("max_features", "must be non-negative", p.MaxFeatures)
	}
	return nil
}

// splitter grows a tree over the rows of X. target holds class indices (0..k-1)
// for classification and raw values for regression.
type splitter struct {
	params   Params
	X        *mat.Dense
	target   []float64
	k        int // number of classes, 0 for regression
	rng      *rand.Rand
	nodes    []Node
	gains    []float64
	features []int
}

func (s *splitter) classifier() bool { return s.k > 0 }

func (s *splitter) grow(rows []int, depth int) int {
	id := len(s.nodes)
	value, impurity := s.summarize(rows)
	s.nodes = append(s.nodes, Node{Feature: -1, NSamples: len(rows), Impurity: impurity, Value: value})

	if impurity <= 1e-12 ||
		len(rows) < s.params.MinSamplesSplit ||
		len(rows) < 2*s.params.MinSamplesLeaf ||
		(s.params.MaxDepth > 0 && depth >= s.params.MaxDepth) {
		return id
	}

	feature, threshold, childImpurity, ok := s.bestSplit(rows)
	if !ok {
		return id
	}

	var left, right []int
	for _, r := range rows {
		if s.X.At(r, feature) <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	s.gains[feature] += float64(len(rows))*impurity - childImpurity

	l := s.grow(left, depth+1)
	rgt := s.grow(right, depth+1)
	n := &s.nodes[id]
	n.Feature, n.Threshold, n.Left, n.Right = feature, threshold, l, rgt
	return id
}

func (s *splitter) summarize(rows []int) ([]float64, float64) {
	if s.classifier() {
		counts := make([]float64, s.k)
		for _, r := range rows {
			counts[int(s.target[r])]++
		}
		imp := s.impurity(counts, float64(len(rows)))
		for c := range counts {
			counts[c] /= float64(len(rows))
		}
		return counts, imp
	}
	var sum, sq float64
	for _, r := range rows {
		sum += s.target[r]
		sq += s.target[r] * s.target[r]
	}
	n := float64(len(rows))
	mean := sum / n
	return []float64{mean}, math.Max(sq/n-mean*mean, 0)
}

func (s *splitter) impurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	var imp float64
	if s.params.Criterion == "entropy" {
		for _, c := range counts {
			if c > 0 {
				p := c / n
				imp -= p * math.Log2(p)
			}
		}
		return imp
	}
	imp = 1
	for _, c := range counts {
		p := c / n
		imp -= p * p
	}
	return imp
}

// bestSplit returns the split minimizing the weighted child impurity
// (Σ n_child · impurity_child).
func (s *splitter) bestSplit(rows []int) (int, float64, float64, bool) {
	candidates := s.features
	if m := s.params.MaxFeatures; m > 0 && m < len(candidates) {
		s.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
		candidates = append([]int(nil), candidates[:m]...)
		sort.Ints(candidates)
	}

	bestFeature, bestThreshold, bestScore := -1, 0.0, math.Inf(1)
	order := make([]int, len(rows))
	minLeaf := s.params.MinSamplesLeaf
	n := len(rows)

	for _, f := range candidates {
		copy(order, rows)
		sort.SliceStable(order, func(a, b int) bool { return s.X.At(order[a], f) < s.X.At(order[b], f) })

		var (
			leftCounts, rightCounts []float64
			leftSum, leftSq         float64
			rightSum, rightSq       float64
		)
		if s.classifier() {
			leftCounts = make([]float64, s.k)
			rightCounts = make([]float64, s.k)
			for _, r := range order {
				rightCounts[int(s.target[r])]++
			}
		} else {
			for _, r := range order {
				rightSum += s.target[r]
				rightSq += s.target[r] * s.target[r]
			}
		}

		for i := 0; i < n-1; i++ {
			r := order[i]
			t := s.target[r]
			if s.classifier() {
				leftCounts[int(t)]++
				rightCounts[int(t)]--
			} else {
				leftSum += t
				leftSq += t * t
				rightSum -= t
				rightSq -= t * t
			}

			nl, nr := i+1, n-i-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			cur, next := s.X.At(r, f), s.X.At(order[i+1], f)
			if cur == next {
				continue
			}

			var score float64
			if s.classifier() {
				score = float64(nl)*s.impurity(leftCounts, float64(nl)) + float64(nr)*s.impurity(rightCounts, float64(nr))
			} else {
				score = (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			}
			if score < bestScore-1e-12 {
				bestFeature, bestScore = f, score
				bestThreshold = cur + (next-cur)/2
			}
		}
	}
	return bestFeature, bestThreshold, bestScore, bestFeature >= 0
}

// fit grows a tree and returns its nodes and normalized feature importances.
func fit(p Params, X *mat.Dense, target []float64, k int, rows []int) ([]Node, []float64) {
	_, c := X.Dims()
	s := &splitter{
		params:   p,
		X:        X,
		target:   target,
		k:        k,
		rng:      rand.New(rand.NewSource(p.RandomState)),
		gains:    make([]float64, c),
		features: make([]int, c),
	}
	for j := range s.features {
		s.features[j] = j
	}
	s.grow(rows, 0)

	var total float64
	for _, g := range s.gains {
		total += g
	}
	if total > 0 {
		for j := range s.gains {
			s.gains[j] /= total
		}
	}
	return s.nodes, s.gains
}

// leaf walks the tree for one sample and returns the reached leaf.
func leaf(nodes []Node, X mat.Matrix, i int) *Node {
	n := &nodes[0]
	for !n.IsLeaf() {
		if X.At(i, n.Feature) <= n.Threshold {
			n = &nodes[n.Left]
		} else {
			n = &nodes[n.Right]
		}
	}
	return n
}

func depth(nodes []Node, id int) int {
	n := nodes[id]
	if n.IsLeaf() {
		return 0
	}
	return 1 + max(depth(nodes, n.Left), depth(nodes, n.Right))
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

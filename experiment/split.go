package experiment

import (
	"math"
	"math/rand"
	"sort"
)

// groupByClass returns the row indices of every class, classes in ascending order.
func groupByClass(y []float64) [][]int {
	byClass := make(map[int][]int)
	for i, v := range y {
		byClass[int(v)] = append(byClass[int(v)], i)
	}
	keys := make([]int, 0, len(byClass))
	for k := range byClass {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([][]int, len(keys))
	for i, k := range keys {
		out[i] = byClass[k]
	}
	return out
}

// trainTestSplit shuffles rows with the session seed and holds out
// round(n·(1-trainSize)) of them. With stratify every class is split
// separately and keeps at least one training row.
func trainTestSplit(y []float64, trainSize float64, seed int64, stratify bool) (train, test []int) {
	rng := rand.New(rand.NewSource(seed))
	groups := [][]int{allIndices(len(y))}
	if stratify {
		groups = groupByClass(y)
	}
	for _, g := range groups {
		idx := append([]int(nil), g...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(float64(len(idx)) * (1 - trainSize)))
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		train = append(train, idx[nTest:]...)
		test = append(test, idx[:nTest]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

// kFold assigns the rows of y to k folds and returns the held-out rows of
// each fold. With stratify every class is dealt round-robin across folds.
func kFold(y []float64, k int, seed int64, stratify bool) [][]int {
	rng := rand.New(rand.NewSource(seed))
	groups := [][]int{allIndices(len(y))}
	if stratify {
		groups = groupByClass(y)
	}
	folds := make([][]int, k)
	next := 0
	for _, g := range groups {
		idx := append([]int(nil), g...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for _, row := range idx {
			folds[next] = append(folds[next], row)
			next = (next + 1) % k
		}
	}
	for _, f := range folds {
		sort.Ints(f)
	}
	return folds
}

// complement returns the indices in [0, n) that are not in held (sorted).
func complement(n int, held []int) []int {
	out := make([]int, 0, n-len(held))
	j := 0
	for i := 0; i < n; i++ {
		if j < len(held) && held[j] == i {
			j++
			continue
		}
		out = append(out, i)
	}
	return out
}

// effectiveFolds clips the requested fold count to the number of training rows
// and, for classification, to the size of the smallest class.
func effectiveFolds(requested int, y []float64, stratify bool) int {
	k := min(requested, len(y))
	if stratify {
		for _, g := range groupByClass(y) {
			k = min(k, len(g))
		}
	}
	return max(k, 2)
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

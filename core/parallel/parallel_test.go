package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelizeCoversEveryItem(t *testing.T) {
	for _, n := range []int{0, 1, 7, 1000} {
		seen := make([]int32, n)
		Parallelize(n, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, c := range seen {
			assert.Equalf(t, int32(1), c, "item %d of %d visited %d times", i, n, c)
		}
	}
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, 1, calls)
}

func TestForEachKeepsIndexOrder(t *testing.T) {
	out := make([]int, 50)
	ForEach(len(out), 4, func(i int) { out[i] = i * i })
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 1, Workers(0, 8))
	assert.Equal(t, 1, Workers(1, 8))
	assert.LessOrEqual(t, Workers(100, 2), 2)
}

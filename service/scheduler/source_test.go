package scheduler

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/workgrid/model/window"
)

func windows(partitions []window.Partition) []string {
	ret := make([]string, len(partitions))
	for i, p := range partitions {
		ret[i] = p.Window.String()
	}
	return ret
}

func TestStaticPartitions(t *testing.T) {
	testCases := []struct {
		name    string
		window  *window.Window
		axis    int
		workers int
		expect  []string
	}{
		{
			name:    "even split",
			window:  window.MustNew(window.Range(0, 100)),
			workers: 4,
			expect:  []string{"[0,25)", "[25,50)", "[50,75)", "[75,100)"},
		},
		{
			name:    "remainder goes to first workers",
			window:  window.MustNew(window.Range(0, 10)),
			workers: 3,
			expect:  []string{"[0,4)", "[4,7)", "[7,10)"},
		},
		{
			name:    "fewer units than workers",
			window:  window.MustNew(window.Range(5, 7)),
			workers: 4,
			expect:  []string{"[5,6)", "[6,7)"},
		},
		{
			name:    "single worker",
			window:  window.MustNew(window.Range(0, 9)),
			workers: 1,
			expect:  []string{"[0,9)"},
		},
		{
			name:    "second axis keeps first whole",
			window:  window.MustNew(window.Range(0, 4), window.Range(0, 6)),
			axis:    1,
			workers: 3,
			expect:  []string{"[0,4)x[0,2)", "[0,4)x[2,4)", "[0,4)x[4,6)"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			partitions := StaticPartitions(tc.window, tc.axis, tc.workers)
			assert.Equal(t, tc.expect, windows(partitions))
			assert.True(t, window.Covers(tc.window, partitions))
			for i, p := range partitions {
				assert.Equal(t, i, p.ID)
			}
		})
	}
}

func TestStaticPartitions_SizesDifferByAtMostOne(t *testing.T) {
	for length := 1; length <= 64; length++ {
		for workers := 1; workers <= 9; workers++ {
			w := window.MustNew(window.Range(0, length))
			partitions := StaticPartitions(w, 0, workers)
			require.True(t, window.Covers(w, partitions), "length %d workers %d", length, workers)
			smallest, largest := length, 0
			for _, p := range partitions {
				size := p.Window.Size()
				smallest = min(smallest, size)
				largest = max(largest, size)
			}
			assert.LessOrEqual(t, largest-smallest, 1, "length %d workers %d", length, workers)
			assert.Equal(t, min(length, workers), len(partitions))
		}
	}
}

func TestDynamicSource_ConcurrentClaims(t *testing.T) {
	w := window.MustNew(window.Range(3, 103), window.Range(0, 2))
	src := newDynamicSource(w, 0, 8, 7)
	assert.Equal(t, 15, src.planned())
	assert.Equal(t, 8, src.slots())

	var mux sync.Mutex
	var claimed []window.Partition
	var wg sync.WaitGroup
	for slot := 0; slot < 8; slot++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			for {
				p, ok := src.next(slot)
				if !ok {
					return
				}
				mux.Lock()
				claimed = append(claimed, p)
				mux.Unlock()
			}
		}(slot)
	}
	wg.Wait()

	require.Len(t, claimed, 15)
	assert.True(t, window.Covers(w, claimed))
	ids := map[int]bool{}
	for _, p := range claimed {
		assert.False(t, ids[p.ID], "partition %d issued twice", p.ID)
		ids[p.ID] = true
		assert.Equal(t, 3+p.ID*7, p.Window.Dim(0).Start)
	}
}

func TestChunkSize(t *testing.T) {
	assert.Equal(t, 5, chunkSize(5, 100, 4))
	assert.Equal(t, 6, chunkSize(0, 100, 4))
	assert.Equal(t, 1, chunkSize(0, 3, 4))
	assert.Equal(t, 5, chunkSize(math.MaxInt, 5, 4))
	assert.Equal(t, 5, chunkSize(math.MaxInt-1, 5, 1))
}

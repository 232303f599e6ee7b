package scheduler

import (
	"sync/atomic"

	"github.com/viant/workgrid/model/window"
)

// source hands partitions to worker slots. next is called only by the worker
// owning slot, so implementations only synchronize state shared across slots.
type source interface {
	next(slot int) (window.Partition, bool)
	planned() int
	slots() int
}

// staticSource splits the window once; slot i receives partition i.
type staticSource struct {
	partitions []window.Partition
	claimed    []bool
}

func newStaticSource(w *window.Window, axis, workers int) *staticSource {
	partitions := StaticPartitions(w, axis, workers)
	return &staticSource{partitions: partitions, claimed: make([]bool, len(partitions))}
}

func (s *staticSource) next(slot int) (window.Partition, bool) {
	if slot >= len(s.partitions) || s.claimed[slot] {
		return window.Partition{}, false
	}
	s.claimed[slot] = true
	return s.partitions[slot], true
}

func (s *staticSource) planned() int { return len(s.partitions) }

func (s *staticSource) slots() int { return len(s.partitions) }

// StaticPartitions splits w along axis into min(workers, length) parts. Each
// part gets length/parts units and the first length%parts parts one more.
// Other axes are kept whole.
func StaticPartitions(w *window.Window, axis, workers int) []window.Partition {
	dim := w.Dim(axis)
	length := dim.Len()
	parts := min(workers, length)
	if parts < 1 {
		return nil
	}
	base, remainder := length/parts, length%parts
	ret := make([]window.Partition, 0, parts)
	start := dim.Start
	for i := 0; i < parts; i++ {
		size := base
		if i < remainder {
			size++
		}
		sub, _ := w.With(axis, window.Range(start, start+size))
		ret = append(ret, window.Partition{ID: i, Window: sub})
		start += size
	}
	return ret
}

// dynamicSource lets every slot claim the next chunk from a shared cursor.
type dynamicSource struct {
	window  *window.Window
	axis    int
	start   int
	end     int
	chunk   int
	workers int
	cursor  atomic.Int64
}

func newDynamicSource(w *window.Window, axis, workers, granularity int) *dynamicSource {
	dim := w.Dim(axis)
	return &dynamicSource{
		window:  w,
		axis:    axis,
		start:   dim.Start,
		end:     dim.End,
		chunk:   chunkSize(granularity, dim.Len(), workers),
		workers: workers,
	}
}

func (s *dynamicSource) next(int) (window.Partition, bool) {
	offset := int(s.cursor.Add(int64(s.chunk))) - s.chunk
	from := s.start + offset
	if from >= s.end {
		return window.Partition{}, false
	}
	to := from + min(s.chunk, s.end-from)
	sub, _ := s.window.With(s.axis, window.Range(from, to))
	return window.Partition{ID: offset / s.chunk, Window: sub}, true
}

func (s *dynamicSource) planned() int {
	return (s.end - s.start + s.chunk - 1) / s.chunk
}

func (s *dynamicSource) slots() int {
	return min(s.workers, s.planned())
}

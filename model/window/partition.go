package window

import "fmt"

// Partition is the share of a window assigned to a single kernel invocation.
type Partition struct {
	ID     int     `json:"id"`
	Window *Window `json:"window"`
}

func (p Partition) String() string {
	return fmt.Sprintf("#%d %v", p.ID, p.Window)
}

// Covers reports whether partitions are pairwise disjoint and their union is
// exactly w.
func Covers(w *Window, partitions []Partition) bool {
	total := 0
	for i, p := range partitions {
		if p.Window == nil || !w.Contains(p.Window) {
			return false
		}
		for _, other := range partitions[i+1:] {
			if p.Window.Intersects(other.Window) {
				return false
			}
		}
		total += p.Window.Size()
	}
	return total == w.Size()
}

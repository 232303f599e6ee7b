package scheduler

import "sync"

// job runs on a worker goroutine and receives the worker slot.
type job func(slot int)

type worker struct {
	id   int
	jobs chan job
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for fn := range w.jobs {
		fn(w.id)
	}
}

// pool is a fixed set of long lived workers, each with its own inbox so a
// job can target a specific slot.
type pool struct {
	workers []*worker
	wg      sync.WaitGroup
}

func newPool(size int) *pool {
	ret := &pool{}
	for i := 0; i < size; i++ {
		w := &worker{id: i, jobs: make(chan job, 1)}
		ret.workers = append(ret.workers, w)
		ret.wg.Add(1)
		go w.run(&ret.wg)
	}
	return ret
}

func (p *pool) size() int {
	return len(p.workers)
}

// run executes fn once on each of the first n slots and waits for all of them.
func (p *pool) run(n int, fn job) {
	var done sync.WaitGroup
	done.Add(n)
	for slot := 0; slot < n; slot++ {
		p.workers[slot].jobs <- func(slot int) {
			defer done.Done()
			fn(slot)
		}
	}
	done.Wait()
}

// stop closes every inbox and joins the workers.
func (p *pool) stop() {
	for _, w := range p.workers {
		close(w.jobs)
	}
	p.wg.Wait()
	p.workers = nil
}

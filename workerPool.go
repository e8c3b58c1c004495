package htm

import (
	"sync"
)

/*
 Fixed pool of goroutines each fed by its own channel. run splits a column
range into contiguous chunks, one per worker, and waits on the barrier
until all chunks are done. Workers only write to their own chunk.
*/
type workerPool struct {
	chans []chan func()
	wait  sync.WaitGroup
}

func newWorkerPool(n int) *workerPool {
	p := &workerPool{chans: make([]chan func(), n)}
	for i := range p.chans {
		p.chans[i] = make(chan func())
		go p.worker(p.chans[i])
	}
	return p
}

func (p *workerPool) worker(ch chan func()) {
	for fn := range ch {
		fn()
		p.wait.Done()
	}
}

/*
 Runs fn over [0,total) and returns the error of the lowest failing chunk.
A nil pool runs fn on the caller.
*/
func (p *workerPool) run(total int, fn func(start, end int) error) error {
	if p == nil || len(p.chans) < 2 || total < len(p.chans) {
		return fn(0, total)
	}

	n := len(p.chans)
	chunk := (total + n - 1) / n
	errs := make([]error, n)
	for i, ch := range p.chans {
		start := i * chunk
		end := start + chunk
		if end > total {
			end = total
		}
		if start >= end {
			continue
		}
		i := i
		p.wait.Add(1)
		ch <- func() {
			errs[i] = fn(start, end)
		}
	}
	p.wait.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *workerPool) close() {
	if p == nil {
		return
	}
	for _, ch := range p.chans {
		close(ch)
	}
	p.chans = nil
}

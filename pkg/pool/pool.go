// Package pool provides a reusable worker pool for parallelizing
// the hot loops of the protocol: curve multiplications, oblivious
// transfer batches and per-counterparty message handling.
package pool

import (
	"io"
	"runtime"
	"sync"
	"sync/atomic"
)

// task tells an idle worker what to do.
//
// A worker either evaluates f at a single index, or keeps evaluating f
// until it produces a non-nil result (a search).
type task struct {
	search bool
	// remaining counts the results that still need to be produced.
	remaining *int64
	// index to evaluate f at, when not searching.
	i       int
	f       func(int) interface{}
	results []interface{}
}

func searchAlone(f func() interface{}, count int) []interface{} {
	results := make([]interface{}, count)
	for i := 0; i < len(results); i++ {
		for results[i] = f(); results[i] == nil; results[i] = f() {
		}
	}
	return results
}

func parallelizeAlone(f func(int) interface{}, count int) []interface{} {
	results := make([]interface{}, count)
	for i := 0; i < len(results); i++ {
		results[i] = f(i)
	}
	return results
}

// workerSearch keeps querying f while *remaining > 0, decrementing the
// counter for every successful result.
func workerSearch(results []interface{}, done chan<- struct{}, f func(int) interface{}, remaining *int64) {
	for atomic.LoadInt64(remaining) > 0 {
		res := f(0)
		if res == nil {
			continue
		}
		i := atomic.AddInt64(remaining, -1)
		done <- struct{}{}
		if i < 0 {
			break
		}
		results[i] = res
	}
}

func worker(tasks <-chan task, done chan<- struct{}) {
	for t := range tasks {
		if t.search {
			workerSearch(t.results, done, t.f, t.remaining)
		} else {
			t.results[t.i] = t.f(t.i)
			atomic.AddInt64(t.remaining, -1)
			done <- struct{}{}
		}
	}
}

// Pool represents a pool of workers, used for parallelizing functions.
//
// Functions taking a *Pool accept a nil receiver, and then do the
// equivalent work on the current goroutine instead.
type Pool struct {
	// tasks is shared by all workers, making this a work stealing pool.
	tasks chan task
	// done signals a finished task.
	done        chan struct{}
	workerCount int
}

// NewPool creates a new pool with a certain number of workers.
//
// If count <= 0, the number of available CPUs is used instead.
func NewPool(count int) *Pool {
	if count <= 0 {
		count = runtime.NumCPU()
	}

	p := &Pool{
		tasks:       make(chan task),
		done:        make(chan struct{}),
		workerCount: count,
	}
	for i := 0; i < count; i++ {
		go worker(p.tasks, p.done)
	}
	return p
}

// TearDown stops the pool's workers. The pool must not be used afterwards.
func (p *Pool) TearDown() {
	if p == nil {
		return
	}
	close(p.tasks)
}

// Search queries f until count successes are found.
//
// f tries a single candidate, returning nil when that candidate fails.
func (p *Pool) Search(count int, f func() interface{}) []interface{} {
	if p == nil {
		return searchAlone(f, count)
	}

	results := make([]interface{}, count)
	remaining := int64(count)
	t := task{
		search:    true,
		remaining: &remaining,
		f:         func(int) interface{} { return f() },
		results:   results,
	}
	for i := 0; i < p.workerCount; i++ {
		p.tasks <- t
	}
	for atomic.LoadInt64(&remaining) > 0 {
		<-p.done
	}
	return results
}

// Parallelize returns [f(0), f(1), …, f(count-1)], evaluated across the workers.
func (p *Pool) Parallelize(count int, f func(int) interface{}) []interface{} {
	if p == nil {
		return parallelizeAlone(f, count)
	}

	results := make([]interface{}, count)
	remaining := int64(count)
	next := 0
	for next < count {
		t := task{
			i:         next,
			remaining: &remaining,
			f:         f,
			results:   results,
		}
		// Sending all tasks up front would block, so drain completion
		// signals in between to free workers up.
		select {
		case p.tasks <- t:
			next++
		case <-p.done:
		}
	}
	for atomic.LoadInt64(&remaining) > 0 {
		<-p.done
	}
	return results
}

// LockedReader wraps an io.Reader to be safe for concurrent reads.
type LockedReader struct {
	reader io.Reader
	m      sync.Mutex
}

// NewLockedReader creates a LockedReader by wrapping an underlying value.
func NewLockedReader(r io.Reader) *LockedReader {
	return &LockedReader{reader: r}
}

// Read implements io.Reader.
//
// Concurrent callers race for which value they end up reading, but the
// state of the underlying reader stays consistent.
func (r *LockedReader) Read(p []byte) (int, error) {
	r.m.Lock()
	defer r.m.Unlock()
	return r.reader.Read(p)
}

package bridge

import (
	"errors"
	"fmt"
	"sync"
)

// ErrWorkerStopped is returned by Do after Stop.
var ErrWorkerStopped = errors.New("bridge: worker stopped")

// request is a unit of work to run on the interpreter goroutine.
type request struct {
	fn   func(*Interp) (any, error)
	done chan result
}

type result struct {
	value any
	err   error
}

// Worker serializes all access to an interpreter through one goroutine.
// The interpreter is single-threaded; goroutines that share it go through
// the worker instead of taking locks.
type Worker struct {
	interp   *Interp
	requests chan request
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a worker owning i and starts its goroutine.
func NewWorker(i *Interp) *Worker {
	w := &Worker{
		interp:   i,
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn on the interpreter. A panic, such as a stale value
// dereference or an arena misuse, is returned as an error.
func (w *Worker) execute(fn func(*Interp) (any, error)) result {
	var res result
	func() {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok {
					res.err = fmt.Errorf("bridge: worker recovered: %w", err)
				} else {
					res.err = fmt.Errorf("bridge: worker recovered: %v", r)
				}
				log.Errorf("%v", res.err)
			}
		}()
		res.value, res.err = fn(w.interp)
	}()
	return res
}

// Do runs fn on the interpreter goroutine and waits for it to finish.
func (w *Worker) Do(fn func(*Interp) (any, error)) (any, error) {
	req := request{fn: fn, done: make(chan result, 1)}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
}

// DoInArena is Do with fn wrapped in its own checkpoint. Guest values must
// not escape fn; copy what is needed into host values before returning.
func (w *Worker) DoInArena(fn func(*Arena) (any, error)) (any, error) {
	return w.Do(func(i *Interp) (any, error) {
		var value any
		err := i.WithArena(func(a *Arena) error {
			var err error
			value, err = fn(a)
			return err
		})
		return value, err
	})
}

// Stop shuts down the worker goroutine. It does not close the interpreter.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}

// Interp returns the interpreter. Only use it from inside Do.
func (w *Worker) Interp() *Interp {
	return w.interp
}

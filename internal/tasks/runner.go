// Package tasks runs the pipeline's fire-and-forget background work. The
// Runner interface keeps call sites unchanged if a bounded pool or
// cancellation is ever added; today tasks are unbounded and run to
// completion.
package tasks

import (
	"log"
	"sync"
)

type Runner interface {
	Go(name string, fn func())
}

// AsyncRunner launches each task on its own goroutine. Panics are recovered
// and logged so one bad batch cannot take the server down.
type AsyncRunner struct {
	wg sync.WaitGroup
}

func NewAsyncRunner() *AsyncRunner {
	return &AsyncRunner{}
}

func (r *AsyncRunner) Go(name string, fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("task %s panicked: %v", name, rec)
			}
		}()
		fn()
	}()
}

// Wait blocks until every launched task has finished. Used on shutdown.
func (r *AsyncRunner) Wait() {
	r.wg.Wait()
}

// SyncRunner runs tasks inline. Tests use it to make background processing
// deterministic.
type SyncRunner struct{}

func (SyncRunner) Go(name string, fn func()) {
	fn()
}

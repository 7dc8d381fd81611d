// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rseq

import "sync"

// Runner executes a concurrency test body across goroutines,
// iterating until the RNG's decision space is spent or the iteration
// budget runs out.
//
//	runner := rseq.Runner{ThreadCount: 3, MaxIterations: 100000}
//	rng := rseq.NewExhaustiveRNG()
//	iterations := runner.Run(rng, func(iteration int) func(thread int) {
//	    sched := rseq.NewScheduler(3, rng)
//	    // ... per-iteration shared state ...
//	    return func(thread int) {
//	        // ... the body each thread runs ...
//	    }
//	})
type Runner struct {
	// ThreadCount is the number of goroutines per iteration.
	ThreadCount int

	// MaxIterations bounds Run when the RNG's decision space is
	// impractically large. Zero means 1<<16. RunStress does not
	// use it.
	MaxIterations int
}

// IterativeRNG is an RNG whose decision space is enumerated lap by
// lap. ExhaustiveRNG implements it.
type IterativeRNG interface {
	RNG
	Lap()
	Done() bool
}

// Run drives iterations until rng.Done() or the iteration budget is
// hit. prepare is called once per iteration to set up shared state
// and returns the body every thread runs; Run waits for all threads
// before lapping the RNG. Returns the number of iterations executed.
func (r *Runner) Run(rng IterativeRNG, prepare func(iteration int) func(thread int)) int {
	maxIterations := r.MaxIterations
	if maxIterations == 0 {
		maxIterations = 1 << 16
	}
	threadCount := r.ThreadCount
	if threadCount < 1 {
		threadCount = 1
	}

	iteration := 0
	for ; iteration < maxIterations && !rng.Done(); iteration++ {
		body := prepare(iteration)
		var wg sync.WaitGroup
		for thread := 0; thread < threadCount; thread++ {
			wg.Add(1)
			go func(thread int) {
				defer wg.Done()
				body(thread)
			}(thread)
		}
		wg.Wait()
		rng.Lap()
	}
	return iteration
}

// RunStress drives a fixed number of iterations with a non-iterative
// RNG (typically StressRNG).
func (r *Runner) RunStress(iterations int, prepare func(iteration int) func(thread int)) {
	threadCount := r.ThreadCount
	if threadCount < 1 {
		threadCount = 1
	}
	for iteration := 0; iteration < iterations; iteration++ {
		body := prepare(iteration)
		var wg sync.WaitGroup
		for thread := 0; thread < threadCount; thread++ {
			wg.Add(1)
			go func(thread int) {
				defer wg.Done()
				body(thread)
			}(thread)
		}
		wg.Wait()
	}
}

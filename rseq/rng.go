// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rseq

import (
	"math/rand"
	"sync"
)

// RNG supplies the scheduler's preemption decisions. Implementations
// must be safe for concurrent use; the scheduler draws from one RNG
// on every thread.
type RNG interface {
	// NextInt returns a value in [0, maxPlusOne).
	NextInt(maxPlusOne int) int
}

// StressRNG draws pseudo-random decisions from a seeded source.
// Suitable for stress runs: broad coverage, reproducible per seed
// only up to goroutine scheduling.
type StressRNG struct {
	mu  sync.Mutex
	src *rand.Rand
}

// NewStressRNG creates a seeded stress RNG.
func NewStressRNG(seed int64) *StressRNG {
	return &StressRNG{src: rand.New(rand.NewSource(seed))}
}

// NextInt returns a pseudo-random value in [0, maxPlusOne).
func (r *StressRNG) NextInt(maxPlusOne int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(maxPlusOne)
}

// ExhaustiveRNG enumerates every decision sequence depth-first. Each
// iteration replays a prefix of recorded decisions and extends it;
// Lap advances to the next sequence like an odometer, and Done
// reports when the space is exhausted:
//
//	rng := rseq.NewExhaustiveRNG()
//	for !rng.Done() {
//	    runOneIteration(rng)
//	    rng.Lap()
//	}
//
// The enumeration is exact when decisions are drawn in a
// deterministic order (single-threaded bodies, or bodies whose
// cross-thread interleaving does not affect which decisions are
// drawn); otherwise it still terminates but visits a sample of the
// space.
type ExhaustiveRNG struct {
	mu            sync.Mutex
	counters      []int
	counterLimits []int
	counterIndex  int
	done          bool
}

// NewExhaustiveRNG creates an exhaustive RNG positioned at the first
// decision sequence.
func NewExhaustiveRNG() *ExhaustiveRNG {
	return &ExhaustiveRNG{}
}

// NextInt returns the current sequence's value in [0, maxPlusOne) for
// this decision position.
func (r *ExhaustiveRNG) NextInt(maxPlusOne int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counterIndex >= len(r.counters) {
		r.counters = append(r.counters, 0)
	}
	if r.counterIndex >= len(r.counterLimits) {
		r.counterLimits = append(r.counterLimits, maxPlusOne)
	} else {
		r.counterLimits[r.counterIndex] = maxPlusOne
	}
	result := r.counters[r.counterIndex]
	r.counterIndex++
	if result >= maxPlusOne {
		result = maxPlusOne - 1
	}
	return result
}

// NextIntRange returns a value in [min, maxPlusOne).
func (r *ExhaustiveRNG) NextIntRange(min, maxPlusOne int) int {
	return min + r.NextInt(maxPlusOne-min)
}

// Done reports whether every decision sequence has been enumerated.
func (r *ExhaustiveRNG) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Lap advances to the next decision sequence. Call between
// iterations, after all threads of the current iteration finished.
func (r *ExhaustiveRNG) Lap() {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Update the counters from right to left, odometer style.
	i := r.counterIndex
	for {
		if i == 0 {
			r.done = true
			break
		}
		i--
		r.counters[i]++
		if r.counters[i] != r.counterLimits[i] {
			break
		}
		r.counters[i] = 0
	}
	r.counterIndex = 0
}

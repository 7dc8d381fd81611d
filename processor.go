// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

import "runtime"

// NewProcessorIDLookup returns the best processor-id lookup available
// on this platform.
func NewProcessorIDLookup() ProcessorIDLookup {
	return newPlatformProcessorIDLookup()
}

// ThreadHashLookup derives a processor id by hashing the current
// thread id into [0, count). It never matches the real CPU, but the
// ids are dense and stable per thread, which is all the per-processor
// storages require for correctness.
type ThreadHashLookup struct {
	count int
}

// NewThreadHashLookup creates a lookup with runtime.NumCPU() ids.
func NewThreadHashLookup() *ThreadHashLookup {
	return &ThreadHashLookup{count: runtime.NumCPU()}
}

// MaxProcessorID returns the largest id this lookup returns.
func (l *ThreadHashLookup) MaxProcessorID() int { return l.count - 1 }

// CurrentProcessorID returns a stable id for the calling thread.
func (l *ThreadHashLookup) CurrentProcessorID() int {
	id := uint64(CurrentThreadID())
	// Fibonacci hash spreads consecutive tids across ids.
	id *= 0x9e3779b97f4a7c15
	return int(id % uint64(l.count))
}

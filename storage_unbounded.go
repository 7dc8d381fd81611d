// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

import "sync"

// UnboundedStorage keeps every sample in one growable buffer under a
// mutex. Nothing is ever dropped, at the cost of allocation and lock
// contention on the hot path. Intended for tests and low-rate tracing.
type UnboundedStorage struct {
	mu         sync.Mutex
	samples    []threadSample
	remembered threadNameSet
}

// NewUnboundedStorage creates an empty unbounded storage.
func NewUnboundedStorage() *UnboundedStorage {
	return &UnboundedStorage{remembered: newThreadNameSet()}
}

// AddSample records one sample for the current thread.
func (s *UnboundedStorage) AddSample(site *SampleSite, time Timestamp) {
	record := threadSample{site: site, thread: CurrentThreadID(), time: time}
	s.mu.Lock()
	s.samples = append(s.samples, record)
	s.mu.Unlock()
}

// Reset discards all stored samples.
func (s *UnboundedStorage) Reset() {
	s.mu.Lock()
	s.samples = nil
	s.mu.Unlock()
}

// TakeAllSamples drains the buffer into a snapshot.
func (s *UnboundedStorage) TakeAllSamples(clock Clock) *SamplesSnapshot {
	s.mu.Lock()
	raw := s.samples
	s.samples = nil
	names := s.remembered.take()
	s.mu.Unlock()

	samples := make([]snapshotSample, 0, len(raw))
	for _, r := range raw {
		samples = append(samples, makeSnapshotSample(r, clock))
	}
	// Timestamps are sampled before the append lock, so arrival
	// order can invert; restore time order.
	sortSamplesByTime(samples)
	names.resolveSampleThreadNames(samples)
	return newSamplesSnapshot(samples, names)
}

// RememberCurrentThreadNameForNextSnapshot captures the calling
// thread's name.
func (s *UnboundedStorage) RememberCurrentThreadNameForNextSnapshot() {
	id := CurrentThreadID()
	s.mu.Lock()
	s.remembered.rememberNameOfCurrentThread(id)
	s.mu.Unlock()
}

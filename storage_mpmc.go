// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

import "sync"

// BoundedMPMCStorage stores all threads' samples in one shared lossy
// MPMC ring. The oldest samples are overwritten when producers outrun
// snapshots; producer contention is absorbed with bounded backoff.
type BoundedMPMCStorage struct {
	queue *MPMCRingQueue[threadSample]

	namesMu    sync.Mutex
	remembered threadNameSet
}

// NewBoundedMPMCStorage creates a storage holding at most capacity
// samples (rounded up to a power of 2).
func NewBoundedMPMCStorage(capacity int) *BoundedMPMCStorage {
	return &BoundedMPMCStorage{
		queue:      NewMPMCRingQueue[threadSample](capacity),
		remembered: newThreadNameSet(),
	}
}

// AddSample records one sample for the current thread, retrying with
// bounded backoff while other producers hold the reservation.
func (s *BoundedMPMCStorage) AddSample(site *SampleSite, time Timestamp) {
	record := threadSample{site: site, thread: CurrentThreadID(), time: time}
	backoff := retryBackoff{}
	for {
		err := s.queue.TryPush(1, func(h PushHandle[threadSample]) {
			h.Set(0, record)
		})
		if err == nil {
			return
		}
		backoff.wait()
	}
}

// Reset discards all stored samples. Not safe concurrently with
// producers or consumers.
func (s *BoundedMPMCStorage) Reset() {
	s.queue.Reset()
}

// TakeAllSamples drains the ring into a snapshot.
func (s *BoundedMPMCStorage) TakeAllSamples(clock Clock) *SamplesSnapshot {
	var samples []snapshotSample
	s.queue.PopAllInto(newTransformSink(&samples, func(r threadSample) snapshotSample {
		return makeSnapshotSample(r, clock)
	}))
	sortSamplesByTime(samples)

	s.namesMu.Lock()
	names := s.remembered.take()
	s.namesMu.Unlock()
	names.resolveSampleThreadNames(samples)
	return newSamplesSnapshot(samples, names)
}

// RememberCurrentThreadNameForNextSnapshot captures the calling
// thread's name.
func (s *BoundedMPMCStorage) RememberCurrentThreadNameForNextSnapshot() {
	id := CurrentThreadID()
	s.namesMu.Lock()
	s.remembered.rememberNameOfCurrentThread(id)
	s.namesMu.Unlock()
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

import "sync"

// SPMCProcessorLocalStorage keeps one lossy SPSC ring per processor.
// A producer try-locks the slot of the CPU it runs on; on failure it
// backs off and re-queries the lookup, because the failed lock usually
// means the thread migrated or another thread now runs on that CPU.
type SPMCProcessorLocalStorage struct {
	lookup ProcessorIDLookup
	slots  []spmcProcessorSlot

	namesMu    sync.Mutex
	remembered threadNameSet
}

type spmcProcessorSlot struct {
	mu      sync.Mutex
	samples *SPSCRingQueue[threadSample]
	_       pad
}

// NewSPMCProcessorLocalStorage creates a storage with one ring of the
// given capacity per processor id of lookup. A nil lookup selects the
// platform default.
func NewSPMCProcessorLocalStorage(capacityPerProcessor int, lookup ProcessorIDLookup) *SPMCProcessorLocalStorage {
	if lookup == nil {
		lookup = NewProcessorIDLookup()
	}
	slots := make([]spmcProcessorSlot, lookup.MaxProcessorID()+1)
	for i := range slots {
		slots[i].samples = NewSPSCRingQueue[threadSample](capacityPerProcessor)
	}
	return &SPMCProcessorLocalStorage{
		lookup:     lookup,
		slots:      slots,
		remembered: newThreadNameSet(),
	}
}

// AddSample records one sample into the ring of the processor the
// calling thread runs on.
func (s *SPMCProcessorLocalStorage) AddSample(site *SampleSite, time Timestamp) {
	record := threadSample{site: site, thread: CurrentThreadID(), time: time}
	backoff := retryBackoff{}
	for {
		slot := &s.slots[s.lookup.CurrentProcessorID()]
		if slot.mu.TryLock() {
			slot.samples.Push(1, func(h PushHandle[threadSample]) {
				h.Set(0, record)
			})
			slot.mu.Unlock()
			return
		}
		backoff.wait()
	}
}

// Reset discards all stored samples. Not safe concurrently with
// producers or consumers.
func (s *SPMCProcessorLocalStorage) Reset() {
	for i := range s.slots {
		slot := &s.slots[i]
		slot.mu.Lock()
		slot.samples.Reset()
		slot.mu.Unlock()
	}
}

// TakeAllSamples drains each processor's ring and merges the segments
// into one time-ordered snapshot.
func (s *SPMCProcessorLocalStorage) TakeAllSamples(clock Clock) *SamplesSnapshot {
	var samples []snapshotSample
	for i := range s.slots {
		slot := &s.slots[i]
		sizeBefore := len(samples)
		slot.mu.Lock()
		slot.samples.PopAllInto(newTransformSink(&samples, func(r threadSample) snapshotSample {
			return makeSnapshotSample(r, clock)
		}))
		slot.mu.Unlock()
		// A per-processor segment interleaves several threads'
		// samples; order it before merging it in.
		sortSamplesByTime(samples[sizeBefore:])
		mergeSortedByTime(samples, sizeBefore)
	}

	s.namesMu.Lock()
	names := s.remembered.take()
	s.namesMu.Unlock()
	names.resolveSampleThreadNames(samples)
	return newSamplesSnapshot(samples, names)
}

// RememberCurrentThreadNameForNextSnapshot captures the calling
// thread's name.
func (s *SPMCProcessorLocalStorage) RememberCurrentThreadNameForNextSnapshot() {
	id := CurrentThreadID()
	s.namesMu.Lock()
	s.remembered.rememberNameOfCurrentThread(id)
	s.namesMu.Unlock()
}

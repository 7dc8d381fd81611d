// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

import "sync"

// MPSCProcessorLocalStorage keeps one lossy MPSC ring per processor.
// Producers need no slot lock: the ring's reservation CAS rejects the
// loser, which backs off and re-queries the lookup before retrying.
// Snapshots serialize on a single consumer mutex.
type MPSCProcessorLocalStorage struct {
	lookup ProcessorIDLookup
	slots  []mpscProcessorSlot

	popMu sync.Mutex

	namesMu    sync.Mutex
	remembered threadNameSet
}

type mpscProcessorSlot struct {
	samples *MPSCRingQueue[threadSample]
	_       pad
}

// NewMPSCProcessorLocalStorage creates a storage with one ring of the
// given capacity per processor id of lookup. A nil lookup selects the
// platform default.
func NewMPSCProcessorLocalStorage(capacityPerProcessor int, lookup ProcessorIDLookup) *MPSCProcessorLocalStorage {
	if lookup == nil {
		lookup = NewProcessorIDLookup()
	}
	slots := make([]mpscProcessorSlot, lookup.MaxProcessorID()+1)
	for i := range slots {
		slots[i].samples = NewMPSCRingQueue[threadSample](capacityPerProcessor)
	}
	return &MPSCProcessorLocalStorage{
		lookup:     lookup,
		slots:      slots,
		remembered: newThreadNameSet(),
	}
}

// AddSample records one sample into the ring of the processor the
// calling thread runs on.
func (s *MPSCProcessorLocalStorage) AddSample(site *SampleSite, time Timestamp) {
	record := threadSample{site: site, thread: CurrentThreadID(), time: time}
	backoff := retryBackoff{}
	for {
		slot := &s.slots[s.lookup.CurrentProcessorID()]
		err := slot.samples.TryPush(1, func(h PushHandle[threadSample]) {
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
func (s *MPSCProcessorLocalStorage) Reset() {
	for i := range s.slots {
		s.slots[i].samples.Reset()
	}
}

// TakeAllSamples drains each processor's ring and merges the segments
// into one time-ordered snapshot. Segments from different processors
// are ordered by clock sample only, not by real time.
func (s *MPSCProcessorLocalStorage) TakeAllSamples(clock Clock) *SamplesSnapshot {
	var samples []snapshotSample
	s.popMu.Lock()
	for i := range s.slots {
		sizeBefore := len(samples)
		s.slots[i].samples.PopAllInto(newTransformSink(&samples, func(r threadSample) snapshotSample {
			return makeSnapshotSample(r, clock)
		}))
		sortSamplesByTime(samples[sizeBefore:])
		mergeSortedByTime(samples, sizeBefore)
	}
	s.popMu.Unlock()

	s.namesMu.Lock()
	names := s.remembered.take()
	s.namesMu.Unlock()
	names.resolveSampleThreadNames(samples)
	return newSamplesSnapshot(samples, names)
}

// RememberCurrentThreadNameForNextSnapshot captures the calling
// thread's name.
func (s *MPSCProcessorLocalStorage) RememberCurrentThreadNameForNextSnapshot() {
	id := CurrentThreadID()
	s.namesMu.Lock()
	s.remembered.rememberNameOfCurrentThread(id)
	s.namesMu.Unlock()
}

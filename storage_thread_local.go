// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

import "sync"

// ThreadLocalStorage gives each producing thread its own lossy SPSC
// ring, registered in a global list on first use. After registration,
// producers contend only on their own slot mutex; snapshots walk the
// list.
//
// Lock order: acquire the global mutex, then a slot mutex, then
// release the slot mutex, then the global mutex. AddSample takes the
// global mutex alone to register a new thread, and otherwise only the
// slot mutex; TakeAllSamples and DetachCurrentThread follow the full
// order. Violating the order deadlocks against TakeAllSamples.
//
// Go threads have no destructor, so a thread that will exit should
// call DetachCurrentThread first: the slot's unread samples are
// re-parented to a disowned buffer and the thread's name is captured,
// keeping both visible to later snapshots.
type ThreadLocalStorage struct {
	capacityPerThread int

	slots sync.Map // ThreadID -> *threadSlot

	mu              sync.Mutex // the global mutex
	list            []*threadSlot
	disownedSamples []threadSample
	disownedNames   threadNameSet
}

type threadSlot struct {
	mu      sync.Mutex
	id      ThreadID
	samples *SPSCRingQueue[sample]
}

// NewThreadLocalStorage creates a storage with one ring of the given
// capacity per producing thread.
func NewThreadLocalStorage(capacityPerThread int) *ThreadLocalStorage {
	return &ThreadLocalStorage{
		capacityPerThread: capacityPerThread,
		disownedNames:     newThreadNameSet(),
	}
}

func (s *ThreadLocalStorage) slotForCurrentThread() *threadSlot {
	id := CurrentThreadID()
	if slot, ok := s.slots.Load(id); ok {
		return slot.(*threadSlot)
	}
	slot := &threadSlot{id: id, samples: NewSPSCRingQueue[sample](s.capacityPerThread)}
	if existing, loaded := s.slots.LoadOrStore(id, slot); loaded {
		return existing.(*threadSlot)
	}
	s.mu.Lock()
	s.list = append(s.list, slot)
	s.mu.Unlock()
	return slot
}

// AddSample records one sample into the calling thread's ring.
func (s *ThreadLocalStorage) AddSample(site *SampleSite, time Timestamp) {
	slot := s.slotForCurrentThread()
	slot.mu.Lock()
	slot.samples.Push(1, func(h PushHandle[sample]) {
		h.Set(0, sample{site: site, time: time})
	})
	slot.mu.Unlock()
}

// Reset discards all stored samples, live and disowned. Not safe
// concurrently with producers or consumers.
func (s *ThreadLocalStorage) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range s.list {
		slot.mu.Lock()
		slot.samples.Reset()
		slot.mu.Unlock()
	}
	s.disownedSamples = nil
}

// DetachCurrentThread unregisters the calling thread: its unread
// samples move to the disowned buffer and its current name is
// captured for later snapshots. Call before the thread exits.
// AddSample after detach re-registers the thread.
func (s *ThreadLocalStorage) DetachCurrentThread() {
	id := CurrentThreadID()
	loaded, ok := s.slots.LoadAndDelete(id)
	if !ok {
		return
	}
	slot := loaded.(*threadSlot)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, candidate := range s.list {
		if candidate == slot {
			s.list = append(s.list[:i], s.list[i+1:]...)
			break
		}
	}
	slot.mu.Lock()
	slot.samples.PopAllInto(newTransformSink(&s.disownedSamples, func(r sample) threadSample {
		return threadSample{site: r.site, thread: slot.id, time: r.time}
	}))
	slot.mu.Unlock()
	s.disownedNames.rememberNameOfCurrentThread(id)
}

// TakeAllSamples drains every live thread's ring plus the disowned
// buffer into a snapshot.
func (s *ThreadLocalStorage) TakeAllSamples(clock Clock) *SamplesSnapshot {
	var samples []snapshotSample
	var disowned []threadSample
	var liveThreads []ThreadID

	s.mu.Lock()
	disowned = s.disownedSamples
	s.disownedSamples = nil
	names := s.disownedNames.take()
	liveThreads = make([]ThreadID, 0, len(s.list))
	for _, slot := range s.list {
		slot.mu.Lock()
		id := slot.id
		slot.samples.PopAllInto(newTransformSink(&samples, func(r sample) snapshotSample {
			return snapshotSample{site: r.site, thread: id, time: clock.MakeTimePoint(r.time)}
		}))
		slot.mu.Unlock()
		liveThreads = append(liveThreads, id)
	}
	s.mu.Unlock()

	for _, r := range disowned {
		samples = append(samples, makeSnapshotSample(r, clock))
	}
	sortSamplesByTime(samples)

	for _, id := range liveThreads {
		names.rememberNameForID(id)
	}
	return newSamplesSnapshot(samples, names)
}

// RememberCurrentThreadNameForNextSnapshot captures the calling
// thread's name into the disowned name set, where the next snapshot
// picks it up even if the thread exits without detaching.
func (s *ThreadLocalStorage) RememberCurrentThreadNameForNextSnapshot() {
	id := CurrentThreadID()
	s.mu.Lock()
	s.disownedNames.rememberNameOfCurrentThread(id)
	s.mu.Unlock()
}

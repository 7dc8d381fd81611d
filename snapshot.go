// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

import "sort"

// SamplesSnapshot is an immutable, time-ordered collection of samples
// drained from a storage, paired with a resolved thread-name map.
//
// Every thread id present in the snapshot has a name unless the thread
// exited after its queue was drained and before its name could be
// captured.
type SamplesSnapshot struct {
	samples     []snapshotSample
	threadNames map[ThreadID]string
}

func newSamplesSnapshot(samples []snapshotSample, names threadNameSet) *SamplesSnapshot {
	return &SamplesSnapshot{samples: samples, threadNames: names.names}
}

// Size returns the number of samples in the snapshot.
func (s *SamplesSnapshot) Size() int { return len(s.samples) }

// At returns the i-th sample in time order.
func (s *SamplesSnapshot) At(i int) SampleRef {
	return SampleRef{sample: &s.samples[i]}
}

// ThreadName returns the resolved name for a thread id, or "" when the
// name is unknown.
func (s *SamplesSnapshot) ThreadName(id ThreadID) string {
	return s.threadNames[id]
}

// KnownThreadIDs returns the ids with a resolved name, in ascending
// order.
func (s *SamplesSnapshot) KnownThreadIDs() []ThreadID {
	ids := make([]ThreadID, 0, len(s.threadNames))
	for id := range s.threadNames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SampleRef is a read-only view of one snapshot sample.
type SampleRef struct {
	sample *snapshotSample
}

// Category returns the sample site's category.
func (r SampleRef) Category() string { return r.sample.site.Category }

// Name returns the sample site's name.
func (r SampleRef) Name() string { return r.sample.site.Name }

// Kind returns whether the sample is a span enter or exit.
func (r SampleRef) Kind() SampleKind { return r.sample.site.Kind }

// Site returns the sample's site descriptor.
func (r SampleRef) Site() *SampleSite { return r.sample.site }

// ThreadID returns the id of the thread that produced the sample.
func (r SampleRef) ThreadID() ThreadID { return r.sample.thread }

// TimePoint returns the converted sample time.
func (r SampleRef) TimePoint() TimePoint { return r.sample.time }

// threadNameSet accumulates thread id → name resolutions for the next
// snapshot.
type threadNameSet struct {
	names map[ThreadID]string
}

func newThreadNameSet() threadNameSet {
	return threadNameSet{names: make(map[ThreadID]string)}
}

// take moves the set's contents out, leaving it empty.
func (s *threadNameSet) take() threadNameSet {
	taken := *s
	if taken.names == nil {
		taken.names = make(map[ThreadID]string)
	}
	s.names = make(map[ThreadID]string)
	return taken
}

func (s *threadNameSet) merge(other threadNameSet) {
	if s.names == nil {
		s.names = make(map[ThreadID]string)
	}
	for id, name := range other.names {
		s.names[id] = name
	}
}

// rememberNameOfCurrentThread stores the calling thread's own name.
// Must be called from the thread being named.
func (s *threadNameSet) rememberNameOfCurrentThread(id ThreadID) {
	if s.names == nil {
		s.names = make(map[ThreadID]string)
	}
	if name, err := currentThreadName(); err == nil {
		s.names[id] = name
	}
}

// rememberNameForID resolves the current name of a (possibly foreign)
// live thread. A previously remembered name is kept when the thread
// can no longer be queried.
func (s *threadNameSet) rememberNameForID(id ThreadID) {
	if s.names == nil {
		s.names = make(map[ThreadID]string)
	}
	if name, err := threadNameForID(id); err == nil {
		s.names[id] = name
	}
}

// resolveSampleThreadNames resolves a name for every distinct thread
// id appearing in samples.
func (s *threadNameSet) resolveSampleThreadNames(samples []snapshotSample) {
	seen := make(map[ThreadID]struct{})
	for i := range samples {
		id := samples[i].thread
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		s.rememberNameForID(id)
	}
}

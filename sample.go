// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

import "sort"

// sample is the in-queue record for thread-scoped queues. The owning
// queue implies the thread, so the record carries no thread id.
type sample struct {
	site *SampleSite
	time Timestamp
}

// threadSample is the in-queue record for queues shared between
// threads (processor-local, bounded shared, unbounded, disowned).
type threadSample struct {
	site   *SampleSite
	thread ThreadID
	time   Timestamp
}

// snapshotSample is a sample after clock conversion, as stored in a
// snapshot.
type snapshotSample struct {
	site   *SampleSite
	thread ThreadID
	time   TimePoint
}

func makeSnapshotSample(s threadSample, clock Clock) snapshotSample {
	return snapshotSample{
		site:   s.site,
		thread: s.thread,
		time:   clock.MakeTimePoint(s.time),
	}
}

// sortSamplesByTime orders samples by non-decreasing time point,
// stable by original position for equal times.
func sortSamplesByTime(samples []snapshotSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].time.Before(samples[j].time)
	})
}

// mergeSortedByTime merges the two sorted runs samples[:mid] and
// samples[mid:] in place, preserving the relative order of equal
// elements (the first run wins ties).
func mergeSortedByTime(samples []snapshotSample, mid int) {
	if mid == 0 || mid == len(samples) {
		return
	}
	if !samples[mid].time.Before(samples[mid-1].time) {
		return
	}
	merged := make([]snapshotSample, 0, len(samples))
	i, j := 0, mid
	for i < mid && j < len(samples) {
		if samples[j].time.Before(samples[i].time) {
			merged = append(merged, samples[j])
			j++
		} else {
			merged = append(merged, samples[i])
			i++
		}
	}
	merged = append(merged, samples[i:mid]...)
	merged = append(merged, samples[j:]...)
	copy(samples, merged)
}

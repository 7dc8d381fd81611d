// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

// Timestamp is a raw clock sample: an opaque monotonic reading whose
// unit and reference point are defined by the Clock that produced it.
// Timestamps from different Clock instances are not comparable.
type Timestamp uint64

// Clock produces monotonic timestamp samples and converts them to
// comparable time points.
//
// Query must be monotonic per thread. MakeTimePoint may be called long
// after Query, from any thread, including concurrently.
type Clock interface {
	// Query returns the current raw clock sample (non-blocking).
	Query() Timestamp

	// MakeTimePoint converts a raw sample from this clock into a
	// TimePoint.
	MakeTimePoint(sample Timestamp) TimePoint
}

// TimePoint is a point in time with nanosecond resolution, relative to
// an arbitrary per-clock reference. TimePoints from the same clock are
// ordered; TimePoints from different clocks are not comparable.
type TimePoint struct {
	ns int64
}

// NewTimePoint creates a TimePoint from nanoseconds since the
// clock's reference. For Clock implementations outside this package.
func NewTimePoint(nanoseconds int64) TimePoint {
	return TimePoint{ns: nanoseconds}
}

// NanosecondsSinceReference returns the nanoseconds elapsed since the
// clock's arbitrary reference point.
func (t TimePoint) NanosecondsSinceReference() int64 { return t.ns }

// Before reports whether t is earlier than u.
func (t TimePoint) Before(u TimePoint) bool { return t.ns < u.ns }

// Equal reports whether t and u denote the same instant.
func (t TimePoint) Equal(u TimePoint) bool { return t.ns == u.ns }

// ThreadID identifies an OS thread. It is stable for the lifetime of
// the thread. NoThreadID is the distinguished invalid value.
//
// Goroutines migrate between OS threads; callers that need stable
// sample attribution should pin with runtime.LockOSThread.
type ThreadID int64

// NoThreadID marks an empty thread slot.
const NoThreadID ThreadID = 0

// Storage is the common contract of all sample storage policies.
//
// AddSample is safe for concurrent use and never blocks indefinitely;
// contention is recovered internally with bounded backoff. Reset must
// not run concurrently with producers or consumers. TakeAllSamples may
// run concurrently with producers.
type Storage interface {
	// AddSample records one sample for the current thread.
	AddSample(site *SampleSite, time Timestamp)

	// Reset discards all stored samples.
	Reset()

	// TakeAllSamples drains every queue and assembles a snapshot,
	// converting raw clock samples with the given clock.
	TakeAllSamples(clock Clock) *SamplesSnapshot

	// RememberCurrentThreadNameForNextSnapshot captures the calling
	// thread's OS-level name so it appears in later snapshots even
	// after the thread exits. Only the owning thread can read its
	// own name portably, so the thread itself must call this before
	// exiting.
	RememberCurrentThreadNameForNextSnapshot()
}

// ProcessorIDLookup returns an identifier for the CPU executing the
// caller. Identifiers are dense: every returned value lies in
// [0, MaxProcessorID()]. Callers use the id only as an array index.
type ProcessorIDLookup interface {
	// MaxProcessorID returns the largest id CurrentProcessorID can
	// return. Constant for the lifetime of the lookup.
	MaxProcessorID() int

	// CurrentProcessorID returns the id of the CPU currently
	// executing the caller. The thread may migrate at any moment,
	// so the result is advisory by the time the caller uses it.
	CurrentProcessorID() int
}

// QueueSink receives items drained from a ring queue.
//
// PopFrontN discards the first n items appended to the sink during the
// current drain; the queue calls it when a concurrent push may have
// overwritten cells that were already copied out.
type QueueSink[T any] interface {
	Reserve(n int)
	PushBack(v T)
	PopFrontN(n int)
}

// NewSliceSink returns a sink appending drained items to *items.
func NewSliceSink[T any](items *[]T) QueueSink[T] {
	return newSliceSink(items)
}

// sliceSink appends drained items to a slice.
type sliceSink[T any] struct {
	items *[]T
	base  int
}

func newSliceSink[T any](items *[]T) *sliceSink[T] {
	return &sliceSink[T]{items: items, base: len(*items)}
}

func (s *sliceSink[T]) Reserve(n int) {
	if cap(*s.items)-len(*s.items) < n {
		grown := make([]T, len(*s.items), len(*s.items)+n)
		copy(grown, *s.items)
		*s.items = grown
	}
}

func (s *sliceSink[T]) PushBack(v T) { *s.items = append(*s.items, v) }

func (s *sliceSink[T]) PopFrontN(n int) {
	if n == 0 {
		return
	}
	appended := (*s.items)[s.base:]
	copy(appended, appended[n:])
	*s.items = (*s.items)[:len(*s.items)-n]
}

// transformSink converts each drained item before appending it.
type transformSink[T, U any] struct {
	out       *[]U
	base      int
	transform func(T) U
}

func newTransformSink[T, U any](out *[]U, transform func(T) U) *transformSink[T, U] {
	return &transformSink[T, U]{out: out, base: len(*out), transform: transform}
}

func (s *transformSink[T, U]) Reserve(n int) {
	if cap(*s.out)-len(*s.out) < n {
		grown := make([]U, len(*s.out), len(*s.out)+n)
		copy(grown, *s.out)
		*s.out = grown
	}
}

func (s *transformSink[T, U]) PushBack(v T) { *s.out = append(*s.out, s.transform(v)) }

func (s *transformSink[T, U]) PopFrontN(n int) {
	if n == 0 {
		return
	}
	appended := (*s.out)[s.base:]
	copy(appended, appended[n:])
	*s.out = (*s.out)[:len(*s.out)-n]
}

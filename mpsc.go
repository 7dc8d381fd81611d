// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

// MPSCRingQueue is a lossy, bounded MPSC FIFO optimized for
// uncontended writes.
//
// Producers reserve with a compare-and-swap of writeEndVindex; at any
// instant at most one producer holds an outstanding reservation, so
// the committed prefix stays contiguous and the SPSC consumer protocol
// applies unchanged. A losing producer receives ErrWouldBlock and owns
// its own retry policy; the queue never retries internally.
type MPSCRingQueue[T any] struct {
	_ pad
	ringCore[T]
	_ pad
}

// NewMPSCRingQueue creates a queue. Capacity rounds up to the next
// power of 2; panics if capacity < 2.
func NewMPSCRingQueue[T any](capacity int) *MPSCRingQueue[T] {
	q := &MPSCRingQueue[T]{}
	q.init(capacity)
	return q
}

// Capacity returns the queue capacity.
func (q *MPSCRingQueue[T]) Capacity() int { return int(q.capacity()) }

// Reset empties the queue. Not safe concurrently with any other
// operation.
func (q *MPSCRingQueue[T]) Reset() { q.reset() }

// TryPush reserves count cells and invokes write to fill them
// (multiple producers safe). Returns ErrWouldBlock when another
// producer holds a reservation; the caller decides whether to retry.
func (q *MPSCRingQueue[T]) TryPush(count int, write func(PushHandle[T])) error {
	n := q.checkPushCount(count)

	begin := q.writeBeginVindex.Load()
	end := reserve(begin, n)
	// A reservation is outstanding iff writeEndVindex leads
	// writeBeginVindex, so the CAS expects the two to be equal.
	if !q.writeEndVindex.CompareAndSwapAcqRel(begin, end) {
		return ErrWouldBlock
	}
	seqCstFence()

	write(q.pushHandle(begin))

	q.writeBeginVindex.StoreRelease(end)
	return nil
}

// PopAllInto copies the committed region into sink (single consumer
// only). Never blocks.
func (q *MPSCRingQueue[T]) PopAllInto(sink QueueSink[T]) {
	q.popAllInto(sink)
}

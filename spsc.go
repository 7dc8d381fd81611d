// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

// SPSCRingQueue is a lossy, bounded, wait-free SPSC FIFO optimized for
// writes.
//
// Lossy: when the producer outruns the consumer, the oldest committed
// items are silently overwritten.
//
// Bounded: capacity is fixed at construction (rounded up to a power of
// 2); operations never allocate.
//
// SPSC: one thread pushes, one thread pops. The two may be different
// threads and may run concurrently.
//
// Element type T must be a plain value; the queue copies elements and
// never runs finalization on them.
type SPSCRingQueue[T any] struct {
	_ pad
	ringCore[T]
	_ pad
}

// NewSPSCRingQueue creates a queue. Capacity rounds up to the next
// power of 2; panics if capacity < 2.
func NewSPSCRingQueue[T any](capacity int) *SPSCRingQueue[T] {
	q := &SPSCRingQueue[T]{}
	q.init(capacity)
	return q
}

// Capacity returns the queue capacity.
func (q *SPSCRingQueue[T]) Capacity() int { return int(q.capacity()) }

// Reset empties the queue. Not safe concurrently with any other
// operation.
func (q *SPSCRingQueue[T]) Reset() { q.reset() }

// Push reserves count cells and invokes write to fill them (producer
// only). Overwriting older committed items is silent; overflowing the
// virtual index is fatal.
//
// The reservation is published to writeEndVindex before the cells are
// written; a concurrent consumer uses it to detect that these cells
// are in flight.
func (q *SPSCRingQueue[T]) Push(count int, write func(PushHandle[T])) {
	n := q.checkPushCount(count)

	begin := q.writeBeginVindex.LoadRelaxed()
	end := reserve(begin, n)
	q.writeEndVindex.StoreRelaxed(end)
	seqCstFence()

	write(q.pushHandle(begin))

	q.writeBeginVindex.StoreRelease(end)
}

// PopAllInto copies the committed region into sink (consumer only).
// Never blocks: items a producer is still writing are left for the
// next drain.
func (q *SPSCRingQueue[T]) PopAllInto(sink QueueSink[T]) {
	q.popAllInto(sink)
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

import "sync"

// MPMCRingQueue is a lossy, bounded MPMC FIFO. The producer protocol
// is MPSCRingQueue's; consumers additionally serialize on an internal
// mutex, so any thread may drain. Producers are never serialized,
// neither against each other nor against consumers.
type MPMCRingQueue[T any] struct {
	_ pad
	ringCore[T]
	_ pad
	consumerMu sync.Mutex
}

// NewMPMCRingQueue creates a queue. Capacity rounds up to the next
// power of 2; panics if capacity < 2.
func NewMPMCRingQueue[T any](capacity int) *MPMCRingQueue[T] {
	q := &MPMCRingQueue[T]{}
	q.init(capacity)
	return q
}

// Capacity returns the queue capacity.
func (q *MPMCRingQueue[T]) Capacity() int { return int(q.capacity()) }

// Reset empties the queue. Not safe concurrently with any other
// operation.
func (q *MPMCRingQueue[T]) Reset() { q.reset() }

// TryPush reserves count cells and invokes write to fill them
// (multiple producers safe). Returns ErrWouldBlock when another
// producer holds a reservation.
func (q *MPMCRingQueue[T]) TryPush(count int, write func(PushHandle[T])) error {
	n := q.checkPushCount(count)

	begin := q.writeBeginVindex.Load()
	end := reserve(begin, n)
	if !q.writeEndVindex.CompareAndSwapAcqRel(begin, end) {
		return ErrWouldBlock
	}
	seqCstFence()

	write(q.pushHandle(begin))

	q.writeBeginVindex.StoreRelease(end)
	return nil
}

// PopAllInto copies the committed region into sink (multiple consumers
// safe; consumers serialize internally).
func (q *MPMCRingQueue[T]) PopAllInto(sink QueueSink[T]) {
	q.consumerMu.Lock()
	defer q.consumerMu.Unlock()
	q.popAllInto(sink)
}

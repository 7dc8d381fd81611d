// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

import "code.hybscloud.com/atomix"

// ringCore is the storage and consumer protocol shared by the lossy
// ring queues. Producer protocols differ per variant and live in
// spsc.go / mpsc.go / mpmc.go.
//
// Positions are virtual indexes ("vindexes"): monotonically growing
// counters mapped to a cell by masking. Three vindexes describe the
// queue, with the invariant
//
//	readVindex <= writeBeginVindex <= writeEndVindex
//
// [readVindex, writeBeginVindex) is the committed region a consumer
// may copy; [writeBeginVindex, writeEndVindex) is reserved by a
// producer that has not finished writing. When writeEndVindex runs
// more than capacity ahead of readVindex, the oldest committed items
// are silently overwritten.
type ringCore[T any] struct {
	// readVindex is private to the consumer.
	readVindex       uint64
	writeBeginVindex atomix.Uint64
	writeEndVindex   atomix.Uint64
	buffer           []T
	mask             uint64
}

func (q *ringCore[T]) init(capacity int) {
	if capacity < 2 {
		panic("trace: capacity must be >= 2")
	}
	n := uint64(roundToPow2(capacity))
	q.buffer = make([]T, n)
	q.mask = n - 1
}

func (q *ringCore[T]) capacity() uint64 { return q.mask + 1 }

// reset returns all three vindexes to zero. Not safe concurrently with
// any other operation.
func (q *ringCore[T]) reset() {
	q.readVindex = 0
	q.writeBeginVindex.Store(0)
	q.writeEndVindex.Store(0)
}

// PushHandle writes items into the window reserved by a push. Offset i
// addresses the i-th reserved cell.
type PushHandle[T any] struct {
	buffer []T
	mask   uint64
	begin  uint64
}

// Set stores v at offset i within the reserved window.
func (h PushHandle[T]) Set(i int, v T) {
	h.buffer[(h.begin+uint64(i))&h.mask] = v
}

func (q *ringCore[T]) pushHandle(begin uint64) PushHandle[T] {
	return PushHandle[T]{buffer: q.buffer, mask: q.mask, begin: begin}
}

// checkPushCount validates a push size against the queue capacity.
func (q *ringCore[T]) checkPushCount(count int) uint64 {
	if count <= 0 || uint64(count) >= q.capacity() {
		panic("trace: push count must be in [1, capacity)")
	}
	return uint64(count)
}

// reserve computes the end vindex for a push of count items starting
// at begin, aborting on virtual index overflow.
func reserve(begin, count uint64) uint64 {
	end := begin + count
	if end < begin {
		panic("trace: fatal: writer overflowed the virtual index")
	}
	return end
}

// popAllInto copies the committed region into sink and advances the
// consumer. Single-consumer protocol; MPMC serializes callers first.
//
// The fence after the copy pairs with the producer's post-reservation
// fence: re-reading writeEndVindex afterwards bounds which trailing
// sink items a racing push may have overwritten, and those items are
// dropped rather than returned torn.
func (q *ringCore[T]) popAllInto(sink QueueSink[T]) {
	read := q.readVindex
	capacity := q.capacity()

	beginFor := func(writeEnd uint64) uint64 {
		if writeEnd > capacity {
			if lost := writeEnd - capacity; lost > read {
				return lost
			}
		}
		return read
	}

	writeBegin := q.writeBeginVindex.LoadAcquire()
	writeEnd := q.writeEndVindex.LoadAcquire()
	if read > writeEnd || writeBegin > writeEnd {
		panic("trace: ring queue vindex invariant violated")
	}

	begin := beginFor(writeEnd)
	end := writeBegin
	copied := 0
	if end > begin {
		copied = int(end - begin)
		sink.Reserve(copied)
		for i := begin; i < end; i++ {
			sink.PushBack(q.buffer[i&q.mask])
		}
	}

	seqCstFence()

	if newWriteEnd := q.writeEndVindex.LoadRelaxed(); newWriteEnd != writeEnd {
		// A push raced with the copy above; cells below the new
		// loss horizon may have been read torn.
		newBegin := beginFor(newWriteEnd)
		drop := int(newBegin - begin)
		if drop > copied {
			drop = copied
		}
		if drop > 0 {
			sink.PopFrontN(drop)
		}
	}

	if end > read {
		q.readVindex = end
	}
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

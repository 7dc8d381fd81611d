// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

// Options configures storage creation and policy selection.
type Options struct {
	// Partitioning constraints (determine the storage policy)
	perThread    bool
	perProcessor bool

	// Producer hints
	multiProducer bool

	// Growth
	unbounded bool

	// Capacity per queue (rounds up to next power of 2)
	capacity int

	lookup ProcessorIDLookup
}

// Builder creates storages with fluent configuration.
//
// The builder selects the storage policy from partitioning and
// producer constraints:
//
//	s := trace.New(4096).PerThread().Build()                    // → ThreadLocalStorage
//	s := trace.New(4096).PerProcessor().Build()                 // → SPMCProcessorLocalStorage
//	s := trace.New(4096).PerProcessor().MultiProducer().Build() // → MPSCProcessorLocalStorage
//	s := trace.New(4096).Build()                                // → BoundedMPMCStorage
//	s := trace.New(0).Unbounded().Build()                       // → UnboundedStorage
type Builder struct {
	opts Options
}

// New creates a storage builder. capacityPerQueue is the sample
// capacity of each underlying ring (rounded up to the next power of
// 2); it is ignored by Unbounded.
//
// Panics if capacityPerQueue < 2 at Build time unless Unbounded.
func New(capacityPerQueue int) *Builder {
	return &Builder{opts: Options{capacity: capacityPerQueue}}
}

// PerThread partitions samples into one queue per producing thread.
func (b *Builder) PerThread() *Builder {
	b.opts.perThread = true
	return b
}

// PerProcessor partitions samples into one queue per processor.
func (b *Builder) PerProcessor() *Builder {
	b.opts.perProcessor = true
	return b
}

// MultiProducer selects the reservation-based multi-producer queue for
// per-processor partitioning, instead of the try-locked variant.
func (b *Builder) MultiProducer() *Builder {
	b.opts.multiProducer = true
	return b
}

// Unbounded selects the growable, never-lossy storage.
func (b *Builder) Unbounded() *Builder {
	b.opts.unbounded = true
	return b
}

// WithProcessorIDLookup overrides the processor-id lookup used by the
// per-processor policies. Tests wire the rseq emulator here.
func (b *Builder) WithProcessorIDLookup(lookup ProcessorIDLookup) *Builder {
	b.opts.lookup = lookup
	return b
}

// Build creates the storage selected by the configured constraints.
func (b *Builder) Build() Storage {
	if b.opts.perThread && b.opts.perProcessor {
		panic("trace: PerThread and PerProcessor are mutually exclusive")
	}
	if !b.opts.unbounded && b.opts.capacity < 2 {
		panic("trace: capacity must be >= 2")
	}
	switch {
	case b.opts.unbounded:
		return NewUnboundedStorage()
	case b.opts.perThread:
		return NewThreadLocalStorage(b.opts.capacity)
	case b.opts.perProcessor && b.opts.multiProducer:
		return NewMPSCProcessorLocalStorage(b.opts.capacity, b.opts.lookup)
	case b.opts.perProcessor:
		return NewSPMCProcessorLocalStorage(b.opts.capacity, b.opts.lookup)
	default:
		return NewBoundedMPMCStorage(b.opts.capacity)
	}
}

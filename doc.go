// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package trace is a low-overhead, in-process tracing and sampling
// library. Application code wraps regions of interest in spans whose
// entry and exit are recorded with a monotonic timestamp, the
// recording thread, and a category/name pair; the application later
// takes a snapshot of accumulated samples and emits them in the Chrome
// Trace Event format (see the chrometrace package).
//
// Recording never blocks application progress: samples land in lossy
// bounded ring queues that are wait-free on the producer side and
// silently overwrite the oldest samples when a snapshot falls behind.
//
// # Quick Start
//
//	var siteHandle = trace.NewSpanSite("server", "handle request")
//
//	cfg := trace.NewConfig(
//	    trace.New(4096).PerThread().Build(),
//	    trace.NewMonotonicClock(),
//	)
//
//	func handle(req *Request) {
//	    defer trace.StartSpan(cfg, siteHandle).End()
//	    ...
//	}
//
//	// Later, from any thread:
//	snapshot := cfg.Storage().TakeAllSamples(cfg.Clock())
//	chrometrace.NewWriter(os.Stdout).WriteSnapshot(snapshot)
//
// # Storage Policies
//
// Five policies implement the same Storage contract with different
// partitioning and loss behavior:
//
//	New(n).PerThread().Build()                    - one ring per thread
//	New(n).PerProcessor().Build()                 - one try-locked ring per CPU
//	New(n).PerProcessor().MultiProducer().Build() - one MPSC ring per CPU
//	New(n).Build()                                - one shared MPMC ring
//	New(0).Unbounded().Build()                    - growable, never lossy
//
// The bounded policies drop the oldest samples under pressure and
// never block a producer; the unbounded policy never drops but takes a
// mutex and allocates.
//
// # Ring Queues
//
// The storage policies are built on a family of lossy bounded ring
// queues (SPSCRingQueue, MPSCRingQueue, MPMCRingQueue) that track
// position with monotonically growing virtual indexes. The queues are
// exported: they are useful wherever the newest N items matter more
// than completeness.
//
// # Threads
//
// Samples are attributed to OS threads. Goroutines migrate between
// threads, so producers that need stable attribution should pin with
// runtime.LockOSThread. A thread's OS-level name is only readable by
// the thread itself; call RememberCurrentThreadNameForNextSnapshot
// (or ThreadLocalStorage.DetachCurrentThread) before a named thread
// exits so snapshots can still resolve it.
//
// # Disabling
//
// Building with the tracedisabled tag compiles span recording out;
// StartSpan/End become no-ops on a zero Span.
//
// # Race Detection
//
// The lossy queues synchronize through atomic operations on separate
// variables, which Go's race detector cannot track; concurrent queue
// tests are skipped under the detector (see RaceEnabled). Use the
// stress tests and the rseq package's deterministic scheduler for
// algorithm verification instead.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors and
// backoff, [code.hybscloud.com/atomix] for atomic primitives with
// explicit memory ordering, and [code.hybscloud.com/spin] for CPU
// pause instructions.
package trace

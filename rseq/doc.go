// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rseq emulates Linux restartable sequences in userspace so
// that per-processor data structures can be stress-tested
// deterministically, without kernel support.
//
// A restartable sequence is a critical section that either runs to
// its committing tail or, if the thread is preempted, transfers
// control to a registered abort handler — never both, never neither.
// The emulator models preemption as an explicit decision point:
// inside a critical section, AllowPreempt consults the scheduler's
// RNG and either returns or aborts the section.
//
//	sched := rseq.NewScheduler(processorCount, rng)
//
//	outcome := sched.RunPreemptable(func(cs *rseq.CriticalSection) {
//	    id := cs.ProcessorID()
//	    cs.AllowPreempt() // between every modelled instruction
//	    perProcessor[id].prepare()
//	    cs.AllowPreempt()
//	    perProcessor[id].commit() // the committing tail
//	})
//	if outcome == rseq.Preempted {
//	    // the abort path: retry, or give up
//	}
//
// Do not call AllowPreempt between the last state update of the
// critical section and the end of the body: the update would already
// have committed, and a preemption there forgets a valid commit. This
// mirrors the discipline real rseq code needs around its final
// instruction, and the emulator does not enforce it.
//
// The scheduler reserves one emulated processor per critical section
// and implements the per-processor baton handoff: releasing a
// processor performs a sequentially consistent store, acquiring it a
// sequentially consistent load, inducing the happens-before a real
// context switch would provide.
//
// Scheduler implements the processor-id lookup contract of the trace
// package, so per-processor storages can run against the emulator in
// tests and be preempted between "pick processor" and "write to
// queue" — the race the rseq pattern exists to prevent.
//
// Decision sequences come from an injectable RNG: StressRNG draws
// pseudo-random decisions for stress runs; ExhaustiveRNG enumerates
// every decision sequence depth-first, and Runner drives a test body
// until the enumeration is spent.
package rseq

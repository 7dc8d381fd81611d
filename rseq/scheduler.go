// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rseq

import (
	"runtime"
	"sync"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/trace"
)

// Outcome reports how a critical section ended.
type Outcome int

const (
	// Committed: the body ran to completion; the preempt path did
	// not run.
	Committed Outcome = iota
	// Preempted: AllowPreempt aborted the body; the committing
	// tail did not run.
	Preempted
)

// String returns "committed" or "preempted".
func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Preempted:
		return "preempted"
	default:
		return "unknown"
	}
}

// Scheduler emulates the userspace side of Linux restartable
// sequences. Share one Scheduler between all threads of a test
// iteration; create a fresh Scheduler each iteration.
//
// Scheduler implements [trace.ProcessorIDLookup].
type Scheduler struct {
	rng RNG

	// mu protects processor.inUse. runnable is awaited when every
	// processor is in use and signalled when one is released.
	mu         sync.Mutex
	runnable   *sync.Cond
	processors []processor

	statesMu sync.Mutex
	states   map[trace.ThreadID]*threadState
}

// processor is one emulated CPU slot.
type processor struct {
	inUse bool

	// baton models the memory ordering a context switch imposes:
	// when a processor passes from thread X to thread Y, all of
	// X's writes must be visible to Y. release stores the baton
	// seq-cst; the next acquire loads it seq-cst.
	//
	// hasBaton is written only by the thread owning the processor.
	// It is read by the owner, or under mu by a thread picking an
	// unused processor; mu orders the accesses.
	hasBaton bool
	baton    atomix.Bool
}

func (p *processor) maybeAcquireBaton() {
	if p.hasBaton {
		_ = p.baton.Load()
	}
}

func (p *processor) releaseBaton() {
	p.baton.Store(true)
	p.hasBaton = true
}

// threadState is the per-OS-thread critical-section state.
type threadState struct {
	cs *CriticalSection // nil iff not in a critical section
}

// NewScheduler creates a scheduler with processorCount emulated
// processors. Use at least two, and at least one per concurrent
// thread so every thread can enter a critical section without
// blocking. A nil rng selects a seeded StressRNG.
func NewScheduler(processorCount int, rng RNG) *Scheduler {
	if processorCount < 1 {
		panic("rseq: processorCount must be >= 1")
	}
	if rng == nil {
		rng = NewStressRNG(1)
	}
	s := &Scheduler{
		rng:        rng,
		processors: make([]processor, processorCount),
		states:     make(map[trace.ThreadID]*threadState),
	}
	s.runnable = sync.NewCond(&s.mu)
	return s
}

func (s *Scheduler) currentState() *threadState {
	id := trace.CurrentThreadID()
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	state, ok := s.states[id]
	if !ok {
		state = &threadState{}
		s.states[id] = state
	}
	return state
}

// preemptSignal unwinds a preempted critical section body. Private to
// the package: RunPreemptable recovers exactly its own section's
// signal and re-panics anything else.
type preemptSignal struct {
	cs *CriticalSection
}

// CriticalSection is the in-progress state of one RunPreemptable
// call. Its methods may only be called from the body's goroutine.
type CriticalSection struct {
	sched           *Scheduler
	state           *threadState
	processorID     int
	preemptCallback func()
}

// ProcessorID returns the processor reserved for this critical
// section.
func (cs *CriticalSection) ProcessorID() int { return cs.processorID }

// AllowPreempt either does nothing or aborts the critical section:
// the registered preempt callback (if any) runs, the reserved
// processor is released, and RunPreemptable returns Preempted without
// running the rest of the body.
//
// Sprinkle calls throughout the body, ideally between every modelled
// machine instruction. Calling AllowPreempt after the body's final
// state update is an error in the modelled algorithm: the update has
// committed, and preemption there would forget a valid commit.
func (cs *CriticalSection) AllowPreempt() {
	if cs.state.cs != cs {
		panic("rseq: AllowPreempt outside the critical section")
	}
	if cs.sched.rng.NextInt(2) == 1 {
		cs.preempt()
	}
}

func (cs *CriticalSection) preempt() {
	if cs.preemptCallback != nil {
		cs.preemptCallback()
	}
	panic(&preemptSignal{cs: cs})
}

// SetPreemptCallback registers a hook to run immediately before a
// preemption unwinds the body. At most one per critical section. The
// callback must not call back into the scheduler. This exists so
// tests can observe preemption without perturbing the algorithm.
func (cs *CriticalSection) SetPreemptCallback(callback func()) {
	if cs.state.cs != cs {
		panic("rseq: SetPreemptCallback outside the critical section")
	}
	if cs.preemptCallback != nil {
		panic("rseq: preempt callback already set")
	}
	cs.preemptCallback = callback
}

// RunPreemptable runs body as a restartable critical section: either
// the whole body runs and RunPreemptable returns Committed, or an
// AllowPreempt call inside it aborts the body and RunPreemptable
// returns Preempted. Either way the reserved processor is released.
//
// The calling goroutine is pinned to its OS thread for the duration.
// Critical sections do not nest.
func (s *Scheduler) RunPreemptable(body func(cs *CriticalSection)) (outcome Outcome) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	state := s.currentState()
	if state.cs != nil {
		panic("rseq: critical sections cannot be nested")
	}
	cs := &CriticalSection{
		sched:       s,
		state:       state,
		processorID: s.takeUnusedProcessorID(),
	}
	state.cs = cs

	defer func() {
		if r := recover(); r != nil {
			if signal, ok := r.(*preemptSignal); ok && signal.cs == cs {
				s.exitCriticalSection(cs)
				outcome = Preempted
				return
			}
			s.exitCriticalSection(cs)
			panic(r)
		}
	}()

	body(cs)
	s.exitCriticalSection(cs)
	return Committed
}

// AllowPreempt on the scheduler resolves the calling thread's current
// critical section; outside one it does nothing. Wrapped code (a
// processor-id lookup, a storage) can call it without holding a
// *CriticalSection.
func (s *Scheduler) AllowPreempt() {
	state := s.currentState()
	if state.cs == nil {
		return
	}
	if s.rng.NextInt(2) == 1 {
		state.cs.preempt()
	}
}

// InCriticalSection reports whether the calling thread is inside a
// critical section. For assertions only; do not use the result to
// influence the modelled algorithm.
func (s *Scheduler) InCriticalSection() bool {
	return s.currentState().cs != nil
}

func (s *Scheduler) exitCriticalSection(cs *CriticalSection) {
	cs.state.cs = nil
	cs.preemptCallback = nil
	s.markProcessorUnused(cs.processorID)
}

// CurrentProcessorID implements [trace.ProcessorIDLookup]: inside a
// critical section it returns the reserved processor; outside it
// returns an arbitrary unused processor after acquiring its baton.
func (s *Scheduler) CurrentProcessorID() int {
	state := s.currentState()
	if state.cs != nil {
		return state.cs.processorID
	}
	return s.anyUnusedProcessorID()
}

// MaxProcessorID implements [trace.ProcessorIDLookup].
func (s *Scheduler) MaxProcessorID() int {
	return len(s.processors) - 1
}

// takeUnusedProcessorID reserves the first unused processor, waiting
// for a release when every processor is in use.
func (s *Scheduler) takeUnusedProcessorID() int {
	s.mu.Lock()
	for {
		for id := range s.processors {
			p := &s.processors[id]
			if !p.inUse {
				p.inUse = true
				s.mu.Unlock()
				p.maybeAcquireBaton()
				return id
			}
		}
		s.runnable.Wait()
	}
}

// anyUnusedProcessorID picks a random unused processor without
// reserving it. Panics when every processor is in use: a thread
// outside a critical section cannot wait for one, so size the
// scheduler with enough processors for the thread count.
func (s *Scheduler) anyUnusedProcessorID() int {
	s.mu.Lock()
	unused := make([]int, 0, len(s.processors))
	for id := range s.processors {
		if !s.processors[id].inUse {
			unused = append(unused, id)
		}
	}
	if len(unused) == 0 {
		s.mu.Unlock()
		panic("rseq: no unused processor for a thread outside a critical section")
	}
	id := unused[s.rng.NextInt(len(unused))]
	s.processors[id].maybeAcquireBaton()
	s.mu.Unlock()
	return id
}

func (s *Scheduler) markProcessorUnused(id int) {
	p := &s.processors[id]
	p.releaseBaton()
	s.mu.Lock()
	if !p.inUse {
		s.mu.Unlock()
		panic("rseq: releasing a processor that is not in use")
	}
	p.inUse = false
	s.mu.Unlock()
	s.runnable.Signal()
}

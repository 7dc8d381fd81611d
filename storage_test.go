// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace_test

import (
	"runtime"
	"sync"
	"testing"

	"code.hybscloud.com/trace"
)

var (
	siteAlpha = trace.NewSpanSite("test category", "alpha")
	siteBeta  = trace.NewSpanSite("test category", "beta")
)

// storageVariants enumerates every storage policy under test.
func storageVariants() map[string]func() trace.Storage {
	return map[string]func() trace.Storage{
		"Unbounded":          func() trace.Storage { return trace.NewUnboundedStorage() },
		"BoundedMPMC":        func() trace.Storage { return trace.NewBoundedMPMCStorage(1024) },
		"ThreadLocal":        func() trace.Storage { return trace.NewThreadLocalStorage(1024) },
		"SPMCProcessorLocal": func() trace.Storage { return trace.NewSPMCProcessorLocalStorage(1024, nil) },
		"MPSCProcessorLocal": func() trace.Storage { return trace.NewMPSCProcessorLocalStorage(1024, nil) },
	}
}

// =============================================================================
// Storage Policies - Common Contract
// =============================================================================

// TestStorageRoundTrip records samples and reads them back in time
// order from every policy.
func TestStorageRoundTrip(t *testing.T) {
	for name, build := range storageVariants() {
		t.Run(name, func(t *testing.T) {
			storage := build()
			clock := trace.NewFakeClock()

			storage.AddSample(siteAlpha.EnterSite(), clock.Query())
			storage.AddSample(siteAlpha.ExitSite(), clock.Query())

			snapshot := storage.TakeAllSamples(clock)
			if snapshot.Size() != 2 {
				t.Fatalf("Size: got %d, want 2", snapshot.Size())
			}
			first, second := snapshot.At(0), snapshot.At(1)
			if first.Kind() != trace.SampleEnter || second.Kind() != trace.SampleExit {
				t.Fatalf("kinds: got %v,%v, want enter,exit", first.Kind(), second.Kind())
			}
			if first.Name() != "alpha" || first.Category() != "test category" {
				t.Fatalf("site: got %s/%s", first.Category(), first.Name())
			}
			if second.TimePoint().Before(first.TimePoint()) {
				t.Fatalf("samples out of order: %d before %d",
					second.TimePoint().NanosecondsSinceReference(),
					first.TimePoint().NanosecondsSinceReference())
			}
			if first.ThreadID() == trace.NoThreadID {
				t.Fatalf("sample has no thread id")
			}
		})
	}
}

// TestStorageResetDropsSamples: reset then snapshot is empty.
func TestStorageResetDropsSamples(t *testing.T) {
	for name, build := range storageVariants() {
		t.Run(name, func(t *testing.T) {
			storage := build()
			clock := trace.NewFakeClock()
			storage.AddSample(siteAlpha.EnterSite(), clock.Query())
			storage.Reset()
			if n := storage.TakeAllSamples(clock).Size(); n != 0 {
				t.Fatalf("Size after Reset: got %d, want 0", n)
			}
		})
	}
}

// TestStorageDrainIsDestructive: a second snapshot is empty.
func TestStorageDrainIsDestructive(t *testing.T) {
	for name, build := range storageVariants() {
		t.Run(name, func(t *testing.T) {
			storage := build()
			clock := trace.NewFakeClock()
			storage.AddSample(siteAlpha.EnterSite(), clock.Query())
			if n := storage.TakeAllSamples(clock).Size(); n != 1 {
				t.Fatalf("first snapshot: got %d samples, want 1", n)
			}
			if n := storage.TakeAllSamples(clock).Size(); n != 0 {
				t.Fatalf("second snapshot: got %d samples, want 0", n)
			}
		})
	}
}

// TestStoragePerThreadTimestampOrder records from several pinned
// goroutines; per-thread subsequences of the snapshot are in
// non-decreasing time order.
func TestStoragePerThreadTimestampOrder(t *testing.T) {
	for name, build := range storageVariants() {
		t.Run(name, func(t *testing.T) {
			storage := build()
			clock := trace.NewFakeClock()

			const threadCount = 4
			const samplesPerThread = 200
			var wg sync.WaitGroup
			for range threadCount {
				wg.Add(1)
				go func() {
					defer wg.Done()
					runtime.LockOSThread()
					defer runtime.UnlockOSThread()
					for i := range samplesPerThread {
						site := siteAlpha.EnterSite()
						if i%2 == 1 {
							site = siteAlpha.ExitSite()
						}
						storage.AddSample(site, clock.Query())
					}
				}()
			}
			wg.Wait()

			snapshot := storage.TakeAllSamples(clock)
			lastByThread := make(map[trace.ThreadID]trace.TimePoint)
			previous := trace.TimePoint{}
			for i := 0; i < snapshot.Size(); i++ {
				s := snapshot.At(i)
				if s.TimePoint().Before(previous) {
					t.Fatalf("snapshot not time-ordered at %d", i)
				}
				previous = s.TimePoint()
				if last, ok := lastByThread[s.ThreadID()]; ok && s.TimePoint().Before(last) {
					t.Fatalf("thread %d samples out of order at %d", s.ThreadID(), i)
				}
				lastByThread[s.ThreadID()] = s.TimePoint()
			}
		})
	}
}

// =============================================================================
// Thread-Local Storage
// =============================================================================

// TestThreadLocalTwoThreads runs one span on each of two pinned
// threads; the snapshot pairs per thread.
func TestThreadLocalTwoThreads(t *testing.T) {
	storage := trace.NewThreadLocalStorage(1024)
	clock := trace.NewFakeClock()
	cfg := trace.NewConfig(storage, clock)

	ids := make(chan trace.ThreadID, 2)
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			ids <- trace.CurrentThreadID()
			span := trace.StartSpan(cfg, siteAlpha)
			span.End()
		}()
	}
	wg.Wait()
	close(ids)

	want := make(map[trace.ThreadID]int)
	for id := range ids {
		want[id] += 2
	}

	snapshot := storage.TakeAllSamples(clock)
	if snapshot.Size() != 4 {
		t.Fatalf("Size: got %d, want 4", snapshot.Size())
	}
	got := make(map[trace.ThreadID]int)
	enters := make(map[trace.ThreadID]int)
	for i := 0; i < snapshot.Size(); i++ {
		s := snapshot.At(i)
		got[s.ThreadID()]++
		switch s.Kind() {
		case trace.SampleEnter:
			enters[s.ThreadID()]++
		case trace.SampleExit:
			if enters[s.ThreadID()] == 0 {
				t.Fatalf("exit before enter on thread %d", s.ThreadID())
			}
			enters[s.ThreadID()]--
		}
	}
	if len(want) == 2 {
		for id, n := range want {
			if got[id] != n {
				t.Fatalf("thread %d: got %d samples, want %d", id, got[id], n)
			}
		}
	}
}

// TestThreadLocalDetachReparentsSamples: samples of a detached thread
// survive into the next snapshot.
func TestThreadLocalDetachReparentsSamples(t *testing.T) {
	storage := trace.NewThreadLocalStorage(1024)
	clock := trace.NewFakeClock()

	var producerID trace.ThreadID
	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		producerID = trace.CurrentThreadID()
		storage.AddSample(siteBeta.EnterSite(), clock.Query())
		storage.AddSample(siteBeta.ExitSite(), clock.Query())
		storage.DetachCurrentThread()
	}()
	<-done

	snapshot := storage.TakeAllSamples(clock)
	if snapshot.Size() != 2 {
		t.Fatalf("Size: got %d, want 2", snapshot.Size())
	}
	for i := 0; i < snapshot.Size(); i++ {
		if snapshot.At(i).ThreadID() != producerID {
			t.Fatalf("sample %d: thread %d, want %d", i, snapshot.At(i).ThreadID(), producerID)
		}
	}
}

// TestThreadNameCapture renames a live thread after recording; the
// snapshot still resolves the new name.
func TestThreadNameCapture(t *testing.T) {
	storage := trace.NewThreadLocalStorage(1024)
	clock := trace.NewFakeClock()

	var id trace.ThreadID
	nameErr := make(chan error, 1)
	done := make(chan struct{})
	release := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		id = trace.CurrentThreadID()
		storage.AddSample(siteAlpha.EnterSite(), clock.Query())
		nameErr <- trace.SetCurrentThreadName("worker/3")
		<-release
	}()

	if err := <-nameErr; err != nil {
		close(release)
		<-done
		t.Skipf("thread names unsupported: %v", err)
	}

	snapshot := storage.TakeAllSamples(clock)
	close(release)
	<-done

	if got := snapshot.ThreadName(id); got != "worker/3" {
		t.Fatalf("ThreadName(%d): got %q, want %q", id, got, "worker/3")
	}
}

// TestRememberCurrentThreadName makes an exiting thread's name
// visible to a later snapshot.
func TestRememberCurrentThreadName(t *testing.T) {
	storage := trace.NewBoundedMPMCStorage(64)
	clock := trace.NewFakeClock()

	var id trace.ThreadID
	skip := false
	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		id = trace.CurrentThreadID()
		if err := trace.SetCurrentThreadName("short-lived"); err != nil {
			skip = true
			return
		}
		storage.AddSample(siteAlpha.EnterSite(), clock.Query())
		storage.RememberCurrentThreadNameForNextSnapshot()
	}()
	<-done
	if skip {
		t.Skip("thread names unsupported")
	}

	snapshot := storage.TakeAllSamples(clock)
	if got := snapshot.ThreadName(id); got != "short-lived" {
		t.Fatalf("ThreadName(%d): got %q, want %q", id, got, "short-lived")
	}
}

// =============================================================================
// Builder
// =============================================================================

// TestBuilderSelectsPolicies checks the constraint → policy mapping.
func TestBuilderSelectsPolicies(t *testing.T) {
	if _, ok := trace.New(16).Unbounded().Build().(*trace.UnboundedStorage); !ok {
		t.Fatalf("Unbounded: wrong policy")
	}
	if _, ok := trace.New(16).PerThread().Build().(*trace.ThreadLocalStorage); !ok {
		t.Fatalf("PerThread: wrong policy")
	}
	if _, ok := trace.New(16).PerProcessor().Build().(*trace.SPMCProcessorLocalStorage); !ok {
		t.Fatalf("PerProcessor: wrong policy")
	}
	if _, ok := trace.New(16).PerProcessor().MultiProducer().Build().(*trace.MPSCProcessorLocalStorage); !ok {
		t.Fatalf("PerProcessor+MultiProducer: wrong policy")
	}
	if _, ok := trace.New(16).Build().(*trace.BoundedMPMCStorage); !ok {
		t.Fatalf("default: wrong policy")
	}
}

// TestBuilderRejectsConflict: PerThread and PerProcessor together
// panic.
func TestBuilderRejectsConflict(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("Build did not panic")
		}
	}()
	trace.New(16).PerThread().PerProcessor().Build()
}

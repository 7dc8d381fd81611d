// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace_test

import (
	"testing"

	"code.hybscloud.com/trace"
)

func newTestConfig() (*trace.Config, *trace.FakeClock) {
	clock := trace.NewFakeClock()
	return trace.NewConfig(trace.NewUnboundedStorage(), clock), clock
}

// TestSpanRecordsEnterAndExit: a completed span yields a matching
// enter/exit pair on one thread.
func TestSpanRecordsEnterAndExit(t *testing.T) {
	cfg, clock := newTestConfig()

	func() {
		defer trace.StartSpan(cfg, siteAlpha).End()
	}()

	snapshot := cfg.Storage().TakeAllSamples(clock)
	if snapshot.Size() != 2 {
		t.Fatalf("Size: got %d, want 2", snapshot.Size())
	}
	enter, exit := snapshot.At(0), snapshot.At(1)
	if enter.Kind() != trace.SampleEnter || exit.Kind() != trace.SampleExit {
		t.Fatalf("kinds: got %v,%v", enter.Kind(), exit.Kind())
	}
	if enter.Name() != exit.Name() || enter.Category() != exit.Category() {
		t.Fatalf("sites differ: %s/%s vs %s/%s",
			enter.Category(), enter.Name(), exit.Category(), exit.Name())
	}
	if enter.ThreadID() != exit.ThreadID() {
		t.Fatalf("threads differ: %d vs %d", enter.ThreadID(), exit.ThreadID())
	}
	if exit.TimePoint().Before(enter.TimePoint()) {
		t.Fatalf("exit before enter")
	}
}

// TestSpanEndsOnPanic: the exit sample is recorded when the scope
// unwinds through a panic.
func TestSpanEndsOnPanic(t *testing.T) {
	cfg, clock := newTestConfig()

	func() {
		defer func() { _ = recover() }()
		defer trace.StartSpan(cfg, siteAlpha).End()
		panic("unwind")
	}()

	snapshot := cfg.Storage().TakeAllSamples(clock)
	if snapshot.Size() != 2 {
		t.Fatalf("Size: got %d, want 2", snapshot.Size())
	}
	if snapshot.At(1).Kind() != trace.SampleExit {
		t.Fatalf("no exit sample after panic")
	}
}

// TestSpanEndsOnEarlyReturn: every return path records the exit.
func TestSpanEndsOnEarlyReturn(t *testing.T) {
	cfg, clock := newTestConfig()

	run := func(early bool) {
		defer trace.StartSpan(cfg, siteAlpha).End()
		if early {
			return
		}
	}
	run(true)
	run(false)

	snapshot := cfg.Storage().TakeAllSamples(clock)
	if snapshot.Size() != 4 {
		t.Fatalf("Size: got %d, want 4", snapshot.Size())
	}
}

// TestNestedSpans: nesting on one thread yields properly bracketed
// samples.
func TestNestedSpans(t *testing.T) {
	cfg, clock := newTestConfig()

	func() {
		defer trace.StartSpan(cfg, siteAlpha).End()
		func() {
			defer trace.StartSpan(cfg, siteBeta).End()
		}()
	}()

	snapshot := cfg.Storage().TakeAllSamples(clock)
	if snapshot.Size() != 4 {
		t.Fatalf("Size: got %d, want 4", snapshot.Size())
	}
	wantNames := []string{"alpha", "beta", "beta", "alpha"}
	wantKinds := []trace.SampleKind{
		trace.SampleEnter, trace.SampleEnter, trace.SampleExit, trace.SampleExit,
	}
	for i := range wantNames {
		s := snapshot.At(i)
		if s.Name() != wantNames[i] || s.Kind() != wantKinds[i] {
			t.Fatalf("sample %d: got %s/%v, want %s/%v",
				i, s.Name(), s.Kind(), wantNames[i], wantKinds[i])
		}
	}
}

// TestUnmatchedEnterSurvives: a span cut off by the snapshot shows as
// an enter with no exit; the snapshot is still usable.
func TestUnmatchedEnterSurvives(t *testing.T) {
	cfg, clock := newTestConfig()

	span := trace.StartSpan(cfg, siteAlpha)
	snapshot := cfg.Storage().TakeAllSamples(clock)
	span.End()

	if snapshot.Size() != 1 {
		t.Fatalf("Size: got %d, want 1", snapshot.Size())
	}
	if snapshot.At(0).Kind() != trace.SampleEnter {
		t.Fatalf("kind: got %v, want enter", snapshot.At(0).Kind())
	}
}

// TestZeroSpanEndIsNoOp: the zero Span (disabled recording) can be
// ended safely.
func TestZeroSpanEndIsNoOp(t *testing.T) {
	var span trace.Span
	span.End()
}

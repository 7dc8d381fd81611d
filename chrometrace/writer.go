// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package chrometrace renders sample snapshots in the Chrome Trace
// Event JSON format, loadable by chrome://tracing and Perfetto.
//
// A span whose exit immediately follows its enter (no intervening
// samples from the same thread) becomes one complete-phase "X" event;
// interleaved spans become "B"/"E" pairs. Every named thread gets a
// "thread_name" metadata event.
package chrometrace

import (
	"encoding/json"
	"io"
	"os"
	"strconv"

	"code.hybscloud.com/trace"
)

// microseconds serializes a nanosecond count as decimal microseconds
// with up to three fractional digits, no trailing zeros, no locale.
type microseconds int64

// MarshalJSON implements json.Marshaler.
func (m microseconds) MarshalJSON() ([]byte, error) {
	us := int64(m) / 1000
	ns := int64(m) % 1000
	out := strconv.AppendInt(nil, us, 10)
	if ns != 0 {
		frac := []byte{'.',
			byte('0' + ns/100),
			byte('0' + ns/10%10),
			byte('0' + ns%10)}
		for frac[len(frac)-1] == '0' {
			frac = frac[:len(frac)-1]
		}
		out = append(out, frac...)
	}
	return out, nil
}

type completeEvent struct {
	Ph       string       `json:"ph"`
	Category string       `json:"cat"`
	Name     string       `json:"name"`
	Pid      int          `json:"pid"`
	Tid      int64        `json:"tid"`
	Ts       microseconds `json:"ts"`
	Dur      microseconds `json:"dur"`
}

type durationEvent struct {
	Ph       string       `json:"ph"`
	Category string       `json:"cat"`
	Name     string       `json:"name"`
	Pid      int          `json:"pid"`
	Tid      int64        `json:"tid"`
	Ts       microseconds `json:"ts"`
}

type metadataEvent struct {
	Ph   string        `json:"ph"`
	Name string        `json:"name"`
	Pid  int           `json:"pid"`
	Tid  int64         `json:"tid"`
	Args metadataArgs  `json:"args"`
}

type metadataArgs struct {
	Name string `json:"name"`
}

// Writer renders snapshots to an underlying io.Writer.
type Writer struct {
	w   io.Writer
	pid int
	err error
}

// NewWriter creates a writer. Events carry the current process id.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, pid: os.Getpid()}
}

// WriteSnapshot renders one snapshot as a {"traceEvents": [...]}
// object.
func (w *Writer) WriteSnapshot(snapshot *trace.SamplesSnapshot) error {
	if w.err != nil {
		return w.err
	}
	events := w.buildEvents(snapshot)
	encoder := json.NewEncoder(w.w)
	w.err = encoder.Encode(map[string]any{"traceEvents": events})
	return w.err
}

// Close reports any deferred write error. The writer does not own the
// underlying io.Writer and never closes it.
func (w *Writer) Close() error {
	return w.err
}

func (w *Writer) buildEvents(snapshot *trace.SamplesSnapshot) []any {
	events := make([]any, 0, snapshot.Size()+4)

	// pending holds, per thread, an enter sample that may still
	// fold with its exit into one complete event. The fold is only
	// valid while no other sample from that thread intervenes.
	pending := make(map[trace.ThreadID]trace.SampleRef)
	pendingOrder := make([]trace.ThreadID, 0, 8)

	flush := func(tid trace.ThreadID) {
		enter, ok := pending[tid]
		if !ok {
			return
		}
		delete(pending, tid)
		events = append(events, durationEvent{
			Ph:       "B",
			Category: enter.Category(),
			Name:     enter.Name(),
			Pid:      w.pid,
			Tid:      int64(tid),
			Ts:       microseconds(enter.TimePoint().NanosecondsSinceReference()),
		})
	}

	for i := 0; i < snapshot.Size(); i++ {
		s := snapshot.At(i)
		tid := s.ThreadID()

		if enter, ok := pending[tid]; ok {
			if s.Kind() == trace.SampleExit && enter.Category() == s.Category() && enter.Name() == s.Name() {
				delete(pending, tid)
				begin := enter.TimePoint().NanosecondsSinceReference()
				end := s.TimePoint().NanosecondsSinceReference()
				events = append(events, completeEvent{
					Ph:       "X",
					Category: enter.Category(),
					Name:     enter.Name(),
					Pid:      w.pid,
					Tid:      int64(tid),
					Ts:       microseconds(begin),
					Dur:      microseconds(end - begin),
				})
				continue
			}
			flush(tid)
		}

		switch s.Kind() {
		case trace.SampleEnter:
			pending[tid] = s
			pendingOrder = append(pendingOrder, tid)
		case trace.SampleExit:
			events = append(events, durationEvent{
				Ph:       "E",
				Category: s.Category(),
				Name:     s.Name(),
				Pid:      w.pid,
				Tid:      int64(tid),
				Ts:       microseconds(s.TimePoint().NanosecondsSinceReference()),
			})
		}
	}

	// Enters that never saw an exit (process died or snapshot cut
	// mid-span) are emitted as unmatched begins.
	for _, tid := range pendingOrder {
		flush(tid)
	}

	for _, tid := range snapshot.KnownThreadIDs() {
		events = append(events, metadataEvent{
			Ph:   "M",
			Name: "thread_name",
			Pid:  w.pid,
			Tid:  int64(tid),
			Args: metadataArgs{Name: snapshot.ThreadName(tid)},
		})
	}
	return events
}

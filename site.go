// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

// SampleKind distinguishes span entry from span exit.
type SampleKind uint8

const (
	// SampleEnter marks the beginning of a span.
	SampleEnter SampleKind = iota
	// SampleExit marks the end of a span.
	SampleExit
)

// String returns "enter" or "exit".
func (k SampleKind) String() string {
	switch k {
	case SampleEnter:
		return "enter"
	case SampleExit:
		return "exit"
	default:
		return "unknown"
	}
}

// SampleSite is an immutable descriptor of one sample-producing call
// site: a category/name pair plus the sample kind. Sites are created
// once (package-level) and referenced by pointer inside samples, so
// pointer identity doubles as site identity.
type SampleSite struct {
	Category string
	Name     string
	Kind     SampleKind
}

// SpanSite holds the enter and exit descriptors for one span call
// site. Declare one package-level SpanSite per traced region:
//
//	var siteParse = trace.NewSpanSite("parser", "parse document")
//
//	func parse(cfg *trace.Config) {
//	    defer trace.StartSpan(cfg, siteParse).End()
//	    ...
//	}
type SpanSite struct {
	enter SampleSite
	exit  SampleSite
}

// NewSpanSite creates the site descriptors for a span call site.
// Category and name should be literal strings.
func NewSpanSite(category, name string) *SpanSite {
	return &SpanSite{
		enter: SampleSite{Category: category, Name: name, Kind: SampleEnter},
		exit:  SampleSite{Category: category, Name: name, Kind: SampleExit},
	}
}

// EnterSite returns the descriptor recorded when the span begins.
func (s *SpanSite) EnterSite() *SampleSite { return &s.enter }

// ExitSite returns the descriptor recorded when the span ends.
func (s *SpanSite) ExitSite() *SampleSite { return &s.exit }

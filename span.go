// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

// Config pairs a storage with the clock that timestamps its samples.
// One Config is typically shared by a whole program or subsystem.
type Config struct {
	storage Storage
	clock   Clock
}

// NewConfig creates a tracing configuration.
func NewConfig(storage Storage, clock Clock) *Config {
	return &Config{storage: storage, clock: clock}
}

// Storage returns the configured storage.
func (c *Config) Storage() Storage { return c.storage }

// Clock returns the configured clock.
func (c *Config) Clock() Clock { return c.clock }

// RememberCurrentThreadNameForNextSnapshot captures the calling
// thread's OS-level name into the configured storage.
func RememberCurrentThreadNameForNextSnapshot(config *Config) {
	config.storage.RememberCurrentThreadNameForNextSnapshot()
}

// Span is a scope-bound sample producer: StartSpan records the enter
// sample, End records the exit sample. The canonical form is
//
//	defer trace.StartSpan(cfg, site).End()
//
// which records the exit on every scope-exit path, including panic
// unwinding and early returns. Nested spans on the same thread are
// fine. If the process dies mid-span the snapshot holds an enter with
// no matching exit; consumers tolerate that.
type Span struct {
	config *Config
	site   *SpanSite
}

// StartSpan records the enter sample for site and returns the span
// whose End records the exit sample. When span recording is compiled
// out, StartSpan records nothing and End is a no-op.
func StartSpan(config *Config, site *SpanSite) Span {
	if !SpanRecordingEnabled {
		return Span{}
	}
	config.storage.AddSample(&site.enter, config.clock.Query())
	return Span{config: config, site: site}
}

// End records the span's exit sample.
func (s Span) End() {
	if !SpanRecordingEnabled || s.config == nil {
		return
	}
	s.config.storage.AddSample(&s.site.exit, s.config.clock.Query())
}

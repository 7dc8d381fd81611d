// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

import (
	"time"

	"code.hybscloud.com/atomix"
	"github.com/agilira/go-timecache"
)

// MonotonicClock samples the platform monotonic clock. Samples are
// nanoseconds since the clock was constructed, strictly positive.
type MonotonicClock struct {
	base time.Time
}

// NewMonotonicClock creates a monotonic clock anchored at now.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{base: time.Now()}
}

// Query returns the current monotonic reading.
func (c *MonotonicClock) Query() Timestamp {
	return Timestamp(time.Since(c.base).Nanoseconds()) + 1
}

// MakeTimePoint converts a raw sample into a TimePoint.
func (c *MonotonicClock) MakeTimePoint(sample Timestamp) TimePoint {
	return TimePoint{ns: int64(sample)}
}

// FakeClock returns 1, 2, 3, … across all threads. Deterministic, for
// tests.
type FakeClock struct {
	next atomix.Uint64
}

// NewFakeClock creates a fake clock whose first sample is 1.
func NewFakeClock() *FakeClock {
	c := &FakeClock{}
	c.next.Store(1)
	return c
}

// Query returns the next counter value.
func (c *FakeClock) Query() Timestamp {
	return Timestamp(c.next.Add(1) - 1)
}

// MakeTimePoint converts a raw sample into a TimePoint, treating the
// counter value as nanoseconds.
func (c *FakeClock) MakeTimePoint(sample Timestamp) TimePoint {
	return TimePoint{ns: int64(sample)}
}

// CachedClock samples a background-refreshed time cache instead of the
// platform clock on every query. Queries cost a single atomic load.
//
// Resolution is the cache's refresh interval: samples within one
// refresh are equal, so per-thread monotonicity is non-strict. Spans
// shorter than the resolution collapse to zero duration.
type CachedClock struct {
	cache *timecache.TimeCache
	base  time.Time
}

// NewCachedClock creates a cached clock with the given resolution.
func NewCachedClock(resolution time.Duration) *CachedClock {
	cache := timecache.NewWithResolution(resolution)
	return &CachedClock{cache: cache, base: cache.CachedTime()}
}

// Query returns the cached clock reading.
func (c *CachedClock) Query() Timestamp {
	d := c.cache.CachedTime().Sub(c.base).Nanoseconds()
	if d < 0 {
		d = 0
	}
	return Timestamp(d) + 1
}

// MakeTimePoint converts a raw sample into a TimePoint.
func (c *CachedClock) MakeTimePoint(sample Timestamp) TimePoint {
	return TimePoint{ns: int64(sample)}
}

// Close stops the cache's refresher goroutine.
func (c *CachedClock) Close() {
	c.cache.Stop()
}

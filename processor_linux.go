// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package trace

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// GetcpuLookup queries the CPU the caller runs on via getcpu(2).
type GetcpuLookup struct {
	max int
}

// NewGetcpuLookup creates a getcpu-backed lookup.
func NewGetcpuLookup() *GetcpuLookup {
	return &GetcpuLookup{max: runtime.NumCPU() - 1}
}

// MaxProcessorID returns the largest id CurrentProcessorID returns.
func (l *GetcpuLookup) MaxProcessorID() int { return l.max }

// CurrentProcessorID returns the id of the current CPU, clamped into
// [0, MaxProcessorID] so the result always indexes a processor slot.
func (l *GetcpuLookup) CurrentProcessorID() int {
	var cpu, node int
	if err := unix.Getcpu(&cpu, &node); err != nil || cpu < 0 {
		return 0
	}
	if cpu > l.max {
		return l.max
	}
	return cpu
}

func newPlatformProcessorIDLookup() ProcessorIDLookup {
	return NewGetcpuLookup()
}

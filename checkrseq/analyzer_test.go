// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package checkrseq_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/trace/checkrseq"
)

const base = uint64(0x1000)

var signature = []byte{0x53, 0x30, 0x05, 0x53}

// buildFunction assembles a function body from byte chunks.
func buildFunction(chunks ...[]byte) checkrseq.Function {
	var body []byte
	for _, chunk := range chunks {
		body = append(body, chunk...)
	}
	return checkrseq.Function{
		Name:             "rseq_test_function",
		BaseAddress:      base,
		InstructionBytes: body,
	}
}

func problems(a *checkrseq.Analysis) []checkrseq.Problem {
	var all []checkrseq.Problem
	all = append(all, a.FileProblems()...)
	for _, group := range a.ProblemsByCriticalSection() {
		all = append(all, group.Problems...)
	}
	return all
}

func TestValidCriticalSectionHasNoProblems(t *testing.T) {
	// nop; CS{nop; nop}; nop; signature; ret
	f := buildFunction(
		[]byte{0x90},             // 0x1000
		[]byte{0x90, 0x90},       // 0x1001 critical section
		[]byte{0x90},             // 0x1003 post-commit instruction
		signature,                // 0x1004
		[]byte{0xc3},             // 0x1008 abort handler
	)
	analysis := checkrseq.AnalyzeCriticalSection(f, base+1, base+3, base+8)
	require.Empty(t, problems(analysis))
	require.False(t, analysis.HasProblems())
}

func TestInterruptInsideCriticalSection(t *testing.T) {
	// CS contains int $0x10.
	f := buildFunction(
		[]byte{0x90},             // 0x1000
		[]byte{0xcd, 0x10},       // 0x1001 int $0x10 (critical section)
		[]byte{0x90},             // 0x1003 post-commit
		signature,                // 0x1004
		[]byte{0xc3},             // 0x1008
	)
	analysis := checkrseq.AnalyzeCriticalSection(f, base+1, base+3, base+8)

	all := problems(analysis)
	require.Len(t, all, 1)
	interrupt, ok := all[0].(checkrseq.Interrupt)
	require.True(t, ok, "problem kind: %T", all[0])
	require.Equal(t, base+1, interrupt.InstructionAddress)
	require.Contains(t, interrupt.String(), "interrupting instruction")
}

func TestSyscallInsideCriticalSection(t *testing.T) {
	f := buildFunction(
		[]byte{0x90},             // 0x1000
		[]byte{0x0f, 0x05},       // 0x1001 syscall (critical section)
		[]byte{0x90},             // 0x1003 post-commit
		signature,                // 0x1004
		[]byte{0xc3},             // 0x1008
	)
	analysis := checkrseq.AnalyzeCriticalSection(f, base+1, base+3, base+8)

	all := problems(analysis)
	require.Len(t, all, 1)
	require.IsType(t, checkrseq.Interrupt{}, all[0])
}

func TestStackPointerWriteInsideCriticalSection(t *testing.T) {
	// CS contains mov %rax, %rsp.
	f := buildFunction(
		[]byte{0x90},             // 0x1000
		[]byte{0x48, 0x89, 0xc4}, // 0x1001 mov %rax,%rsp (critical section)
		[]byte{0x90},             // 0x1004 post-commit
		signature,                // 0x1005
		[]byte{0xc3},             // 0x1009
	)
	analysis := checkrseq.AnalyzeCriticalSection(f, base+1, base+4, base+9)

	all := problems(analysis)
	require.Len(t, all, 1)
	modified, ok := all[0].(checkrseq.StackPointerModified)
	require.True(t, ok, "problem kind: %T", all[0])
	require.Equal(t, base+1, modified.InstructionAddress)
}

func TestPushInsideCriticalSection(t *testing.T) {
	// push implicitly writes the stack pointer.
	f := buildFunction(
		[]byte{0x90},             // 0x1000
		[]byte{0x50},             // 0x1001 push %rax (critical section)
		[]byte{0x90},             // 0x1002 post-commit
		signature,                // 0x1003
		[]byte{0xc3},             // 0x1007
	)
	analysis := checkrseq.AnalyzeCriticalSection(f, base+1, base+2, base+7)

	all := problems(analysis)
	require.Len(t, all, 1)
	require.IsType(t, checkrseq.StackPointerModified{}, all[0])
}

func TestJumpIntoCriticalSection(t *testing.T) {
	// jmp from outside the critical section to its interior.
	f := buildFunction(
		[]byte{0xeb, 0x02},       // 0x1000 jmp 0x1004
		[]byte{0x90},             // 0x1002
		[]byte{0x90, 0x90},       // 0x1003 critical section (interior at 0x1004)
		[]byte{0x90},             // 0x1005 post-commit
		signature,                // 0x1006
		[]byte{0xc3},             // 0x100a
	)
	analysis := checkrseq.AnalyzeCriticalSection(f, base+3, base+5, base+0xa)

	all := problems(analysis)
	require.Len(t, all, 1)
	jump, ok := all[0].(checkrseq.JumpIntoCriticalSection)
	require.True(t, ok, "problem kind: %T", all[0])
	require.Equal(t, base, jump.JumpAddress)
	require.Equal(t, base+4, jump.TargetAddress)
}

func TestJumpToCriticalSectionStartIsAllowed(t *testing.T) {
	// Jumping to the start label is the restart path, not a
	// problem.
	f := buildFunction(
		[]byte{0xeb, 0x01},       // 0x1000 jmp 0x1003
		[]byte{0x90},             // 0x1002
		[]byte{0x90, 0x90},       // 0x1003 critical section
		[]byte{0x90},             // 0x1005 post-commit
		signature,                // 0x1006
		[]byte{0xc3},             // 0x100a
	)
	analysis := checkrseq.AnalyzeCriticalSection(f, base+3, base+5, base+0xa)
	require.Empty(t, problems(analysis))
}

func TestEmptyCriticalSection(t *testing.T) {
	f := buildFunction(
		[]byte{0x90, 0x90},       // 0x1000
		signature,                // 0x1002
		[]byte{0xc3},             // 0x1006
	)
	analysis := checkrseq.AnalyzeCriticalSection(f, base+1, base+1, base+6)

	all := problems(analysis)
	require.Len(t, all, 1)
	require.IsType(t, checkrseq.EmptyCriticalSection{}, all[0])
}

func TestInvertedCriticalSection(t *testing.T) {
	f := buildFunction(
		[]byte{0x90, 0x90, 0x90}, // 0x1000
		signature,                // 0x1003
		[]byte{0xc3},             // 0x1007
	)
	analysis := checkrseq.AnalyzeCriticalSection(f, base+2, base+1, base+7)

	all := problems(analysis)
	require.Len(t, all, 1)
	inverted, ok := all[0].(checkrseq.InvertedCriticalSection)
	require.True(t, ok, "problem kind: %T", all[0])
	require.Contains(t, inverted.String(), "post-commit comes before start")
}

func TestLabelsOutsideFunction(t *testing.T) {
	f := buildFunction(
		[]byte{0x90, 0x90},       // 0x1000 critical section
		[]byte{0x90},             // 0x1002 post-commit
		signature,                // 0x1003
		[]byte{0xc3},             // 0x1007
	)
	// Abort address far past the function end.
	analysis := checkrseq.AnalyzeCriticalSection(f, base, base+2, base+0x100)

	all := problems(analysis)
	require.Len(t, all, 1)
	label, ok := all[0].(checkrseq.LabelOutsideFunction)
	require.True(t, ok, "problem kind: %T", all[0])
	require.Equal(t, checkrseq.AbortLabel, label.Label)
	require.Equal(t, base+0x100, label.LabelAddress())
}

func TestEmptyFunction(t *testing.T) {
	f := checkrseq.Function{Name: "empty", BaseAddress: base}
	analysis := checkrseq.AnalyzeCriticalSection(f, base, base, base)

	all := problems(analysis)
	require.Len(t, all, 1)
	require.IsType(t, checkrseq.EmptyFunction{}, all[0])
}

func TestInvalidAbortSignature(t *testing.T) {
	f := buildFunction(
		[]byte{0x90},                   // 0x1000
		[]byte{0x90, 0x90},             // 0x1001 critical section
		[]byte{0x90},                   // 0x1003 post-commit
		[]byte{0x90, 0x90, 0x90, 0x90}, // 0x1004 wrong signature
		[]byte{0xc3},                   // 0x1008
	)
	analysis := checkrseq.AnalyzeCriticalSection(f, base+1, base+3, base+8)

	all := problems(analysis)
	require.Len(t, all, 1)
	invalid, ok := all[0].(checkrseq.InvalidAbortSignature)
	require.True(t, ok, "problem kind: %T", all[0])
	require.Equal(t, base+4, invalid.SignatureAddress())
	require.Contains(t, invalid.String(), "expected 53 30 05 53")
	require.Contains(t, invalid.String(), "but got 90 90 90 90")
}

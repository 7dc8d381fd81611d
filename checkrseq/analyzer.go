// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package checkrseq

import (
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// Analysis collects the problems found in one executable, grouped by
// critical section. File-level problems (missing or truncated
// descriptors) are kept separately.
type Analysis struct {
	fileProblems []Problem
	groups       []*ProblemGroup
}

// ProblemGroup is the set of problems found in one critical section.
type ProblemGroup struct {
	CriticalSection CriticalSection
	Problems        []Problem
}

// FileProblems returns the problems not tied to a critical section.
func (a *Analysis) FileProblems() []Problem { return a.fileProblems }

// ProblemsByCriticalSection returns per-critical-section problem
// groups, in descriptor order.
func (a *Analysis) ProblemsByCriticalSection() []*ProblemGroup { return a.groups }

// HasProblems reports whether any problem was found.
func (a *Analysis) HasProblems() bool {
	return len(a.fileProblems) > 0 || len(a.groups) > 0
}

func (a *Analysis) addFileProblem(p Problem) {
	a.fileProblems = append(a.fileProblems, p)
}

func (a *Analysis) addProblem(cs CriticalSection, p Problem) {
	for _, group := range a.groups {
		if group.CriticalSection == cs {
			group.Problems = append(group.Problems, p)
			return
		}
	}
	a.groups = append(a.groups, &ProblemGroup{
		CriticalSection: cs,
		Problems:        []Problem{p},
	})
}

// function is the dissectable body of one ELF function.
type function struct {
	name             string
	baseAddress      uint64
	instructionBytes []byte
}

func (f *function) endAddress() uint64 {
	return f.baseAddress + uint64(len(f.instructionBytes))
}

func (f *function) containsAddress(address uint64) bool {
	return f.baseAddress <= address && address < f.endAddress()
}

// analyzeCriticalSection runs every check of one critical section
// against its containing function.
func analyzeCriticalSection(f *function, cs CriticalSection, analysis *Analysis) {
	if len(f.instructionBytes) == 0 {
		analysis.addProblem(cs, EmptyFunction{CriticalSection: cs})
		return
	}
	analyzeInstructions(f, cs, analysis)
	analyzeAbortSignature(f, cs, analysis)
	analyzeAddressBounds(f, cs, analysis)
}

func analyzeInstructions(f *function, cs CriticalSection, analysis *Analysis) {
	address := f.baseAddress
	for address < f.endAddress() {
		code := f.instructionBytes[address-f.baseAddress:]
		inst, err := x86asm.Decode(code, 64)
		if err != nil || inst.Len == 0 {
			// Undecodable byte; resynchronize one byte later.
			address++
			continue
		}
		analyzeInstruction(f, cs, inst, address, analysis)
		address += uint64(inst.Len)
	}
}

func analyzeInstruction(f *function, cs CriticalSection, inst x86asm.Inst, address uint64, analysis *Analysis) {
	if instructionWithinCriticalSection(cs, address, inst.Len) {
		if modifiesStackPointer(inst) {
			analysis.addProblem(cs, StackPointerModified{
				CriticalSection:    cs,
				InstructionAddress: address,
				Instruction:        x86asm.GNUSyntax(inst, address, nil),
			})
		}
		if interrupts(inst) {
			analysis.addProblem(cs, Interrupt{
				CriticalSection:    cs,
				InstructionAddress: address,
				Instruction:        x86asm.GNUSyntax(inst, address, nil),
			})
		}
	}

	if isJump(inst) {
		if target, ok := jumpTarget(inst, address); ok {
			if addressWithinCriticalSection(cs, target) && target != cs.StartAddress {
				analysis.addProblem(cs, JumpIntoCriticalSection{
					CriticalSection: cs,
					JumpAddress:     address,
					TargetAddress:   target,
					Instruction:     x86asm.GNUSyntax(inst, address, nil),
				})
			}
		}
	}
}

func analyzeAbortSignature(f *function, cs CriticalSection, analysis *Analysis) {
	abort := cs.AbortAddress
	// Skip when neither the abort address nor its signature can
	// overlap the function.
	if abort < f.baseAddress || abort-SignatureSize >= f.endAddress() {
		return
	}

	var actual [SignatureSize]byte
	var known [SignatureSize]bool
	signatureAddress := abort - SignatureSize
	for i := 0; i < SignatureSize; i++ {
		address := signatureAddress + uint64(i)
		if f.containsAddress(address) {
			actual[i] = f.instructionBytes[address-f.baseAddress]
			known[i] = true
		}
	}

	matches := true
	for i := range x86Signature {
		if !known[i] || actual[i] != x86Signature[i] {
			matches = false
			break
		}
	}
	if !matches {
		analysis.addProblem(cs, InvalidAbortSignature{
			CriticalSection: cs,
			Expected:        x86Signature,
			Actual:          actual,
			ActualKnown:     known,
		})
	}
}

func analyzeAddressBounds(f *function, cs CriticalSection, analysis *Analysis) {
	if cs.StartAddress == cs.PostCommitAddress {
		analysis.addProblem(cs, EmptyCriticalSection{CriticalSection: cs})
	}
	if cs.PostCommitAddress < cs.StartAddress {
		analysis.addProblem(cs, InvertedCriticalSection{CriticalSection: cs})
	}
	if !f.containsAddress(cs.StartAddress) {
		analysis.addProblem(cs, LabelOutsideFunction{CriticalSection: cs, Label: StartLabel})
	}
	if !f.containsAddress(cs.PostCommitAddress) {
		analysis.addProblem(cs, LabelOutsideFunction{CriticalSection: cs, Label: PostCommitLabel})
	}
	if !f.containsAddress(cs.AbortAddress) {
		analysis.addProblem(cs, LabelOutsideFunction{CriticalSection: cs, Label: AbortLabel})
	}
}

func addressWithinCriticalSection(cs CriticalSection, address uint64) bool {
	return cs.StartAddress <= address && address < cs.PostCommitAddress
}

// instructionWithinCriticalSection reports whether any byte of the
// instruction lies inside the critical section, so boundary-straddling
// instructions are checked too.
func instructionWithinCriticalSection(cs CriticalSection, address uint64, length int) bool {
	for b := uint64(0); b < uint64(length); b++ {
		if addressWithinCriticalSection(cs, address+b) {
			return true
		}
	}
	return false
}

// spWritingOps implicitly modify the stack pointer.
var spWritingOps = map[x86asm.Op]bool{
	x86asm.PUSH:  true,
	x86asm.POP:   true,
	x86asm.CALL:  true,
	x86asm.LCALL: true,
	x86asm.RET:   true,
	x86asm.LRET:  true,
	x86asm.ENTER: true,
	x86asm.LEAVE: true,
	x86asm.IRET:  true,
	x86asm.IRETD: true,
	x86asm.IRETQ: true,
}

func modifiesStackPointer(inst x86asm.Inst) bool {
	if spWritingOps[inst.Op] {
		return true
	}
	// Explicit write: the destination operand is the stack
	// pointer.
	if reg, ok := inst.Args[0].(x86asm.Reg); ok {
		switch reg {
		case x86asm.RSP, x86asm.ESP, x86asm.SP:
			return true
		}
	}
	return false
}

func interrupts(inst x86asm.Inst) bool {
	switch inst.Op {
	case x86asm.INT, x86asm.INTO, x86asm.SYSCALL, x86asm.SYSENTER:
		return true
	default:
		return false
	}
}

func isJump(inst x86asm.Inst) bool {
	switch inst.Op {
	case x86asm.CALL, x86asm.LCALL, x86asm.JMP, x86asm.LJMP:
		return true
	}
	// Conditional jumps: JA, JBE, JE, JNE, JS, ... all start with
	// 'J' and nothing else in the x86asm op set does.
	return strings.HasPrefix(inst.Op.String(), "J")
}

// jumpTarget resolves an immediate (relative) jump target. Indirect
// targets are unknown.
func jumpTarget(inst x86asm.Inst, address uint64) (uint64, bool) {
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		if rel, ok := arg.(x86asm.Rel); ok {
			return address + uint64(inst.Len) + uint64(int64(rel)), true
		}
	}
	return 0, false
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package checkrseq

import (
	"fmt"
	"strings"
)

// CriticalSection locates one restartable critical section inside a
// function.
type CriticalSection struct {
	FunctionAddress   uint64
	Function          string
	StartAddress      uint64
	PostCommitAddress uint64
	AbortAddress      uint64
}

// SizeInBytes returns the critical section's size, or false when the
// bounds are inverted.
func (cs *CriticalSection) SizeInBytes() (uint64, bool) {
	if cs.PostCommitAddress < cs.StartAddress {
		return 0, false
	}
	return cs.PostCommitAddress - cs.StartAddress, true
}

// Problem is one defect found by the analyzer. The concrete type
// identifies the problem kind and carries its details.
type Problem interface {
	fmt.Stringer
	problem()
}

// EmptyCriticalSection: start and post-commit coincide.
type EmptyCriticalSection struct {
	CriticalSection CriticalSection
}

func (p EmptyCriticalSection) problem() {}

func (p EmptyCriticalSection) String() string {
	return fmt.Sprintf("%s(%#x): critical section contains no instructions",
		p.CriticalSection.Function, p.CriticalSection.StartAddress)
}

// EmptyFunction: the containing function has no instructions.
type EmptyFunction struct {
	CriticalSection CriticalSection
}

func (p EmptyFunction) problem() {}

func (p EmptyFunction) String() string {
	return fmt.Sprintf("%s(%#x): function is empty",
		p.CriticalSection.Function, p.CriticalSection.FunctionAddress)
}

// IncompleteDescriptor: the descriptor section ends mid-record.
type IncompleteDescriptor struct {
	DescriptorAddress uint64
}

func (p IncompleteDescriptor) problem() {}

func (p IncompleteDescriptor) String() string {
	return fmt.Sprintf("%#x: incomplete rseq_cs descriptor (expected %d bytes)",
		p.DescriptorAddress, DescriptorSize)
}

// Interrupt: an interrupting instruction inside the critical section.
type Interrupt struct {
	CriticalSection    CriticalSection
	InstructionAddress uint64
	Instruction        string
}

func (p Interrupt) problem() {}

func (p Interrupt) String() string {
	return fmt.Sprintf("%s(%#x): interrupting instruction: %s",
		p.CriticalSection.Function, p.InstructionAddress, p.Instruction)
}

// InvalidAbortSignature: the bytes before the abort address are not
// the architecture signature.
type InvalidAbortSignature struct {
	CriticalSection CriticalSection
	Expected        [SignatureSize]byte
	Actual          [SignatureSize]byte
	// ActualKnown marks Actual bytes that lie inside the function;
	// bytes outside it are unknown.
	ActualKnown [SignatureSize]bool
}

func (p InvalidAbortSignature) problem() {}

// SignatureAddress returns where the signature should start.
func (p InvalidAbortSignature) SignatureAddress() uint64 {
	return p.CriticalSection.AbortAddress - SignatureSize
}

func (p InvalidAbortSignature) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%#x): invalid abort signature: expected",
		p.CriticalSection.Function, p.SignatureAddress())
	for _, expected := range p.Expected {
		fmt.Fprintf(&b, " %02x", expected)
	}
	b.WriteString(" but got")
	for i, actual := range p.Actual {
		if p.ActualKnown[i] {
			fmt.Fprintf(&b, " %02x", actual)
		} else {
			b.WriteString(" ??")
		}
	}
	return b.String()
}

// InvertedCriticalSection: post-commit comes before start.
type InvertedCriticalSection struct {
	CriticalSection CriticalSection
}

func (p InvertedCriticalSection) problem() {}

func (p InvertedCriticalSection) String() string {
	return fmt.Sprintf("%s(%#x): post-commit comes before start (%#x)",
		p.CriticalSection.Function, p.CriticalSection.PostCommitAddress,
		p.CriticalSection.StartAddress)
}

// JumpIntoCriticalSection: a jump or call targets the critical
// section's interior.
type JumpIntoCriticalSection struct {
	CriticalSection    CriticalSection
	JumpAddress        uint64
	TargetAddress      uint64
	Instruction        string
}

func (p JumpIntoCriticalSection) problem() {}

func (p JumpIntoCriticalSection) String() string {
	return fmt.Sprintf("%s(%#x): jump into critical section: %s",
		p.CriticalSection.Function, p.JumpAddress, p.Instruction)
}

// LabelKind names which critical-section label a problem refers to.
type LabelKind int

const (
	StartLabel LabelKind = iota
	PostCommitLabel
	AbortLabel
)

func (k LabelKind) String() string {
	switch k {
	case StartLabel:
		return "start"
	case PostCommitLabel:
		return "post-commit"
	case AbortLabel:
		return "abort"
	default:
		return "unknown"
	}
}

// LabelOutsideFunction: a critical-section label does not lie inside
// the containing function.
type LabelOutsideFunction struct {
	CriticalSection CriticalSection
	Label           LabelKind
}

func (p LabelOutsideFunction) problem() {}

// LabelAddress returns the offending label's address.
func (p LabelOutsideFunction) LabelAddress() uint64 {
	switch p.Label {
	case StartLabel:
		return p.CriticalSection.StartAddress
	case PostCommitLabel:
		return p.CriticalSection.PostCommitAddress
	default:
		return p.CriticalSection.AbortAddress
	}
}

func (p LabelOutsideFunction) String() string {
	return fmt.Sprintf("%s(%#x): critical section %s is outside function",
		p.CriticalSection.Function, p.LabelAddress(), p.Label)
}

// NoDescriptors: the executable has no descriptor section or the
// section is empty.
type NoDescriptors struct {
	SectionName string
}

func (p NoDescriptors) problem() {}

func (p NoDescriptors) String() string {
	return fmt.Sprintf("no rseq_cs descriptors found in section %s", p.SectionName)
}

// StackPointerModified: an instruction inside the critical section
// writes the stack pointer.
type StackPointerModified struct {
	CriticalSection    CriticalSection
	InstructionAddress uint64
	Instruction        string
}

func (p StackPointerModified) problem() {}

func (p StackPointerModified) String() string {
	return fmt.Sprintf("%s(%#x): stack pointer is modified: %s",
		p.CriticalSection.Function, p.InstructionAddress, p.Instruction)
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package checkrseq validates the rseq_cs descriptors embedded in an
// ELF executable: every descriptor must point at a well-formed
// restartable critical section whose instructions are safe to abort
// at any point.
package checkrseq

import (
	"debug/elf"
	"errors"
	"fmt"
)

// Function is the dissectable body of one ELF function, for analyzing
// critical sections without a full executable (tests assemble these
// directly).
type Function struct {
	Name             string
	BaseAddress      uint64
	InstructionBytes []byte
}

// AnalyzeCriticalSection analyzes one critical section inside f.
func AnalyzeCriticalSection(f Function, startAddress, postCommitAddress, abortAddress uint64) *Analysis {
	cs := CriticalSection{
		FunctionAddress:   f.BaseAddress,
		Function:          f.Name,
		StartAddress:      startAddress,
		PostCommitAddress: postCommitAddress,
		AbortAddress:      abortAddress,
	}
	analysis := &Analysis{}
	analyzeCriticalSection(&function{
		name:             f.Name,
		baseAddress:      f.BaseAddress,
		instructionBytes: f.InstructionBytes,
	}, cs, analysis)
	return analysis
}

// AnalyzeFile analyzes every rseq_cs descriptor in the ELF executable
// at path.
func AnalyzeFile(path string) (*Analysis, error) {
	file, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("checkrseq: %w", err)
	}
	defer file.Close()

	analysis := &Analysis{}
	descriptors, err := fileDescriptors(file)
	if err != nil {
		return nil, err
	}
	if len(descriptors) == 0 {
		analysis.addFileProblem(NoDescriptors{SectionName: DescriptorSectionName})
	}

	for _, descriptor := range descriptors {
		if !descriptor.Complete {
			analysis.addFileProblem(IncompleteDescriptor{
				DescriptorAddress: descriptor.DescriptorAddress,
			})
			continue
		}
		cs := CriticalSection{
			StartAddress:      descriptor.StartIP,
			PostCommitAddress: descriptor.StartIP + descriptor.PostCommitOffset,
			AbortAddress:      descriptor.AbortIP,
		}
		f, err := functionContainingAddress(file, cs.StartAddress)
		if err != nil {
			analysis.addProblem(cs, LabelOutsideFunction{
				CriticalSection: cs,
				Label:           StartLabel,
			})
			continue
		}
		cs.FunctionAddress = f.baseAddress
		cs.Function = f.name
		analyzeCriticalSection(f, cs, analysis)
	}
	return analysis, nil
}

func fileDescriptors(file *elf.File) ([]Descriptor, error) {
	var descriptors []Descriptor
	for _, section := range file.Sections {
		if section.Name != DescriptorSectionName {
			continue
		}
		data, err := section.Data()
		if err != nil {
			return nil, fmt.Errorf("checkrseq: reading %s: %w", section.Name, err)
		}
		descriptors = append(descriptors, ParseDescriptors(data, section.Addr)...)
	}
	return descriptors, nil
}

var errNoFunctionContainingAddress = errors.New("checkrseq: no function contains address")

func functionContainingAddress(file *elf.File, address uint64) (*function, error) {
	symbols, err := file.Symbols()
	if err != nil {
		return nil, err
	}
	for _, symbol := range symbols {
		if elf.ST_TYPE(symbol.Info) != elf.STT_FUNC {
			continue
		}
		if address < symbol.Value || address >= symbol.Value+symbol.Size {
			continue
		}
		if int(symbol.Section) < 0 || int(symbol.Section) >= len(file.Sections) {
			return nil, errNoFunctionContainingAddress
		}
		section := file.Sections[symbol.Section]
		data, err := section.Data()
		if err != nil {
			return nil, err
		}
		if symbol.Value < section.Addr ||
			symbol.Value+symbol.Size > section.Addr+uint64(len(data)) {
			return nil, errNoFunctionContainingAddress
		}
		offset := symbol.Value - section.Addr
		return &function{
			name:             symbol.Name,
			baseAddress:      symbol.Value,
			instructionBytes: data[offset : offset+symbol.Size],
		}, nil
	}
	return nil, errNoFunctionContainingAddress
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package checkrseq

import "encoding/binary"

// DescriptorSectionName is the dedicated executable section holding
// the rseq_cs descriptors.
const DescriptorSectionName = ".data_trace_rseq"

// DescriptorSize is the packed on-disk size of one descriptor:
// {u32 version, u32 flags, u64 start_ip, u64 post_commit_offset,
// u64 abort_ip}, little-endian. Fixed for binary compatibility.
const DescriptorSize = 32

// SignatureSize is the size of the abort signature preceding
// abort_ip.
const SignatureSize = 4

// x86Signature is librseq's default RSEQ_SIG for x86.
var x86Signature = [SignatureSize]byte{0x53, 0x30, 0x05, 0x53}

// Descriptor is one parsed rseq_cs record. Complete is false for a
// truncated trailing record, whose fields are then meaningless.
type Descriptor struct {
	// DescriptorAddress is the record's own address in the
	// executable.
	DescriptorAddress uint64

	Version          uint32
	Flags            uint32
	StartIP          uint64
	PostCommitOffset uint64
	AbortIP          uint64

	Complete bool
}

// ParseDescriptors parses the raw bytes of a descriptor section
// loaded at baseAddress. A trailing partial record yields one
// incomplete Descriptor.
func ParseDescriptors(data []byte, baseAddress uint64) []Descriptor {
	var descriptors []Descriptor
	for offset := 0; offset < len(data); offset += DescriptorSize {
		address := baseAddress + uint64(offset)
		if len(data)-offset < DescriptorSize {
			descriptors = append(descriptors, Descriptor{
				DescriptorAddress: address,
			})
			break
		}
		record := data[offset : offset+DescriptorSize]
		descriptors = append(descriptors, Descriptor{
			DescriptorAddress: address,
			Version:           binary.LittleEndian.Uint32(record[0:4]),
			Flags:             binary.LittleEndian.Uint32(record[4:8]),
			StartIP:           binary.LittleEndian.Uint64(record[8:16]),
			PostCommitOffset:  binary.LittleEndian.Uint64(record[16:24]),
			AbortIP:           binary.LittleEndian.Uint64(record[24:32]),
			Complete:          true,
		})
	}
	return descriptors
}

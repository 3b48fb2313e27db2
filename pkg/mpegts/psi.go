// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/naza/pkg/nazabits"
)

// PsiSection 打包PAT或PMT
//
// ----------------------------------------
// pointer_field            [8b]
// table_id                 [8b]
// section_syntax_indicator [1b]
// '0'                      [1b]
// reserved                 [2b]
// section_length           [12b]
// table_id_extension       [16b] PAT: transport_stream_id, PMT: program_number
// reserved                 [2b]
// version_number           [5b]
// current_next_indicator   [1b]
// section_number           [8b]
// last_section_number      [8b]
// table data               [...]
// CRC_32                   [32b]
// ----------------------------------------
type PsiSection struct {
	tableId          uint8
	tableIdExtension uint16
	versionNumber    uint8

	patData []PatProgramElement
	pmtData PmtSpecificData
}

type PmtSpecificData struct {
	pcrPid uint16
	pes    []PmtProgramElement
}

// PmtProgramElement
//
// 打包时使用 StreamType, Pid, EsInfo，解析时额外填充 Length
type PmtProgramElement struct {
	StreamType uint8
	Pid        uint16
	Length     uint16
	EsInfo     []byte // 原始的descriptor数据，不包含ES_info_length
}

func NewPatSection() *PsiSection {
	return &PsiSection{
		tableId:          TableIdPas,
		tableIdExtension: 1,
		patData: []PatProgramElement{
			{pn: ProgramNumber, pmpid: PidPmt},
		},
	}
}

func NewPmtSection(streams []PmtProgramElement) *PsiSection {
	psi := &PsiSection{
		tableId:          TableIdPms,
		tableIdExtension: ProgramNumber,
	}
	psi.pmtData.pes = streams
	if len(streams) > 0 {
		psi.pmtData.pcrPid = streams[0].Pid
	}
	return psi
}

// Pack
//
// @return 包含pointer_field以及CRC_32，内存块为独立申请
func (psi *PsiSection) Pack() []byte {
	sectionLength := psi.calcSectionLength()
	out := make([]byte, 1+3+int(sectionLength))
	bw := nazabits.NewBitWriter(out)

	bw.WriteBits8(8, 0) // pointer_field
	bw.WriteBits8(8, psi.tableId)
	bw.WriteBit(1)
	bw.WriteBit(0)
	bw.WriteBits8(2, 0xff)
	bw.WriteBits16(12, sectionLength)

	bw.WriteBits16(16, psi.tableIdExtension)
	bw.WriteBits8(2, 0xff)
	bw.WriteBits8(5, psi.versionNumber)
	bw.WriteBit(1)
	bw.WriteBits8(8, 0)
	bw.WriteBits8(8, 0)

	switch psi.tableId {
	case TableIdPas:
		psi.writePatSection(&bw)
	case TableIdPms:
		psi.writePmtSection(&bw)
	}

	crc := CalcCrc32(0xffffffff, out[1:len(out)-4])
	bele.BePutUint32(out[len(out)-4:], crc)
	return out
}

func (psi *PsiSection) calcSectionLength() uint16 {
	// table_id_extension到last_section_number，以及CRC_32
	length := uint16(5 + 4)

	switch psi.tableId {
	case TableIdPas:
		length += uint16(4 * len(psi.patData))
	case TableIdPms:
		// PCR_PID, program_info_length
		length += 4
		for _, pe := range psi.pmtData.pes {
			length += 5 + uint16(len(pe.EsInfo))
		}
	}
	return length
}

func (psi *PsiSection) writePatSection(bw *nazabits.BitWriter) {
	for _, pe := range psi.patData {
		bw.WriteBits16(16, pe.pn)
		bw.WriteBits8(3, 0xff)
		bw.WriteBits16(13, pe.pmpid)
	}
}

func (psi *PsiSection) writePmtSection(bw *nazabits.BitWriter) {
	bw.WriteBits8(3, 0xff)
	bw.WriteBits16(13, psi.pmtData.pcrPid)
	bw.WriteBits8(4, 0xff)
	bw.WriteBits16(12, 0)

	for _, pe := range psi.pmtData.pes {
		bw.WriteBits8(8, pe.StreamType)
		bw.WriteBits8(3, 0xff)
		bw.WriteBits16(13, pe.Pid)
		bw.WriteBits8(4, 0xff)
		bw.WriteBits16(12, uint16(len(pe.EsInfo)))
		for _, b := range pe.EsInfo {
			bw.WriteBits8(8, b)
		}
	}
}

// ---------------------------------------------------------------------------------------------------------------------

// PackPat 一个完整的188字节TS packet
func PackPat(cc uint8) []byte {
	return packPsiPacket(PidPat, cc, NewPatSection().Pack())
}

// PackPmt 一个完整的188字节TS packet
//
// @param streams: 第一个流同时作为PCR_PID
func PackPmt(cc uint8, streams []PmtProgramElement) []byte {
	return packPsiPacket(PidPmt, cc, NewPmtSection(streams).Pack())
}

// PackMpegh3dAudioDescriptor
//
// ------------------------------------
// descriptor_tag                 [8b] 0x3f
// descriptor_length              [8b]
// descriptor_tag_extension       [8b] 0x08
// mpegh3daProfileLevelIndication [8b]
// interactivityEnabled           [1b]
// reserved                       [1b]
// referenceChannelLayout         [6b]
// ------------------------------------
func PackMpegh3dAudioDescriptor(profileLevelIndication uint8, interactivityEnabled bool, referenceChannelLayout uint8) []byte {
	out := make([]byte, 5)
	out[0] = DescriptorTagExtension
	out[1] = 3
	out[2] = DescriptorTagExtensionMpegh3dAudio
	out[3] = profileLevelIndication
	out[4] = 0x40 | (referenceChannelLayout & 0x3f)
	if interactivityEnabled {
		out[4] |= 0x80
	}
	return out
}

// packPsiPacket section后面的空间使用0xFF填充
func packPsiPacket(pid uint16, cc uint8, section []byte) []byte {
	packet := make([]byte, PacketSize)
	packet[0] = syncByte
	packet[1] = 0x40 | uint8((pid>>8)&0x1F) // payload_unit_start_indicator
	packet[2] = uint8(pid & 0xFF)
	packet[3] = 0x10 | (cc & 0x0f) // 无adaptation
	n := copy(packet[4:], section)
	for i := 4 + n; i < PacketSize; i++ {
		packet[i] = 0xFF
	}
	return packet
}

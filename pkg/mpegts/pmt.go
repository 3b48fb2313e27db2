// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/naza/pkg/nazabits"
)

// Pmt
//
// ----------------------------------------
// Program Map Table
// <iso13818-1.pdf> <2.4.4.8> <page 64/174>
// table_id                 [8b]  *
// section_syntax_indicator [1b]
// 0                        [1b]
// reserved                 [2b]
// section_length           [12b] **
// program_number           [16b] **
// reserved                 [2b]
// version_number           [5b]
// current_next_indicator   [1b]  *
// section_number           [8b]  *
// last_section_number      [8b]  *
// reserved                 [3b]
// PCR_PID                  [13b] **
// reserved                 [4b]
// program_info_length      [12b] **
// -----loop-----
// stream_type              [8b]  *
// reserved                 [3b]
// elementary_PID           [13b] **
// reserved                 [4b]
// ES_info_length           [12b] **
// --------------
// CRC32                    [32b] ****
// ----------------------------------------
type Pmt struct {
	tid             uint8
	ssi             uint8
	sl              uint16
	pn              uint16
	vn              uint8
	cni             uint8
	sn              uint8
	lsn             uint8
	PcrPid          uint16
	pil             uint16
	ProgramElements []PmtProgramElement
	crc32           uint32
}

// ParsePmt
//
// @param b: 从table_id开始，也即跳过了pointer_field
func ParsePmt(b []byte) (pmt Pmt, err error) {
	if len(b) < 16 {
		return pmt, base.NewErrMpegtsShortBuffer(16, len(b))
	}

	br := nazabits.NewBitReader(b)
	pmt.tid, _ = br.ReadBits8(8)
	pmt.ssi, _ = br.ReadBits8(1)
	_, _ = br.ReadBits8(3)
	pmt.sl, _ = br.ReadBits16(12)
	if len(b) < 3+int(pmt.sl) || pmt.sl < 13 {
		return pmt, base.NewErrMpegtsShortBuffer(3+int(pmt.sl), len(b))
	}
	if pmt.tid != TableIdPms {
		return pmt, base.NewErrMpegts("not a pmt. table_id=%d", pmt.tid)
	}

	pmt.pn, _ = br.ReadBits16(16)
	_, _ = br.ReadBits8(2)
	pmt.vn, _ = br.ReadBits8(5)
	pmt.cni, _ = br.ReadBits8(1)
	pmt.sn, _ = br.ReadBits8(8)
	pmt.lsn, _ = br.ReadBits8(8)
	_, _ = br.ReadBits8(3)
	pmt.PcrPid, _ = br.ReadBits16(13)
	_, _ = br.ReadBits8(4)
	pmt.pil, _ = br.ReadBits16(12)
	if int(pmt.pil) > int(pmt.sl)-13 {
		return pmt, base.NewErrMpegts("invalid program_info_length. pil=%d, sl=%d", pmt.pil, pmt.sl)
	}
	if pmt.pil != 0 {
		Log.Debugf("skip program info. length=%d", pmt.pil)
		_, _ = br.ReadBytes(uint(pmt.pil))
	}

	// 从第一个elementary stream到CRC_32之前
	pos := 12 + int(pmt.pil)
	end := 3 + int(pmt.sl) - 4
	for pos+5 <= end {
		var ppe PmtProgramElement
		ppe.StreamType, _ = br.ReadBits8(8)
		_, _ = br.ReadBits8(3)
		ppe.Pid, _ = br.ReadBits16(13)
		_, _ = br.ReadBits8(4)
		ppe.Length, _ = br.ReadBits16(12)
		pos += 5
		if pos+int(ppe.Length) > end {
			return pmt, base.NewErrMpegts("invalid ES_info_length. length=%d, remain=%d", ppe.Length, end-pos)
		}
		if ppe.Length != 0 {
			ppe.EsInfo, _ = br.ReadBytes(uint(ppe.Length))
			pos += int(ppe.Length)
		}
		pmt.ProgramElements = append(pmt.ProgramElements, ppe)
	}

	pmt.crc32 = bele.BeUint32(b[end:])
	if crc := CalcCrc32(0xffffffff, b[:end]); crc != pmt.crc32 {
		return pmt, base.NewErrMpegts("pmt crc mismatch. expected=%08x, actual=%08x", crc, pmt.crc32)
	}
	return
}

func (pmt *Pmt) SearchPid(pid uint16) *PmtProgramElement {
	for i := range pmt.ProgramElements {
		if pmt.ProgramElements[i].Pid == pid {
			return &pmt.ProgramElements[i]
		}
	}
	return nil
}

// Mpegh3dAudioDescriptor PackMpegh3dAudioDescriptor 的逆过程
type Mpegh3dAudioDescriptor struct {
	ProfileLevelIndication uint8
	InteractivityEnabled   bool
	ReferenceChannelLayout uint8
}

// FindMpegh3dAudioDescriptor 在ES_info中查找MPEG-H 3D audio descriptor
func FindMpegh3dAudioDescriptor(esInfo []byte) (d Mpegh3dAudioDescriptor, ok bool) {
	for len(esInfo) >= 2 {
		tag, length := esInfo[0], int(esInfo[1])
		if len(esInfo) < 2+length {
			return
		}
		body := esInfo[2 : 2+length]
		if tag == DescriptorTagExtension && length >= 3 && body[0] == DescriptorTagExtensionMpegh3dAudio {
			d.ProfileLevelIndication = body[1]
			d.InteractivityEnabled = body[2]&0x80 != 0
			d.ReferenceChannelLayout = body[2] & 0x3f
			return d, true
		}
		esInfo = esInfo[2+length:]
	}
	return
}

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
	"github.com/q191201771/naza/pkg/nazabits"
)

// -----------------------------------------------------------
// <iso13818-1.pdf>
// <2.4.3.6 PES packet> <page 49/174>
// <Table E.1 - PES packet header example> <page 142/174>
// <F.0.2 PES packet> <page 144/174>
// packet_start_code_prefix  [24b] *** always 0x00, 0x00, 0x01
// stream_id                 [8b]  *
// PES_packet_length         [16b] **
// '10'                      [2b]
// PES_scrambling_control    [2b]
// PES_priority              [1b]
// data_alignment_indicator  [1b]
// copyright                 [1b]
// original_or_copy          [1b]  *
// PTS_DTS_flags             [2b]
// ESCR_flag                 [1b]
// ES_rate_flag              [1b]
// DSM_trick_mode_flag       [1b]
// additional_copy_info_flag [1b]
// PES_CRC_flag              [1b]
// PES_extension_flag        [1b]  *
// PES_header_data_length    [8b]  *
// -----------------------------------------------------------
type Pes struct {
	pscp       uint32
	Sid        uint8
	Ppl        uint16
	pad1       uint8
	Dai        bool // data_alignment_indicator
	ptsDtsFlag uint8
	pad2       uint8
	phdl       uint8
	Pts        uint64 // 不存在时为0，通过 HasPts 判断
	Dts        uint64
}

func (pes *Pes) HasPts() bool {
	return pes.ptsDtsFlag&0x2 != 0
}

// ParsePes
//
// @return length: PES header的长度，也即payload的起始位置
func ParsePes(b []byte) (pes Pes, length int, err error) {
	if len(b) < 9 {
		return pes, 0, base.NewErrMpegtsShortBuffer(9, len(b))
	}

	br := nazabits.NewBitReader(b)
	pes.pscp, _ = br.ReadBits32(24)
	if pes.pscp != 1 {
		return pes, 0, base.NewErrMpegts("invalid packet_start_code_prefix. pscp=%d", pes.pscp)
	}
	pes.Sid, _ = br.ReadBits8(8)
	pes.Ppl, _ = br.ReadBits16(16)

	pes.pad1, _ = br.ReadBits8(8)
	pes.Dai = pes.pad1&0x04 != 0
	pes.ptsDtsFlag, _ = br.ReadBits8(2)
	pes.pad2, _ = br.ReadBits8(6)
	pes.phdl, _ = br.ReadBits8(8)

	length = 9 + int(pes.phdl)
	if len(b) < length {
		return pes, 0, base.NewErrMpegtsShortBuffer(length, len(b))
	}

	if pes.ptsDtsFlag&0x2 != 0 {
		if pes.phdl < 5 {
			return pes, 0, base.NewErrMpegts("pts flag set but header too short. phdl=%d", pes.phdl)
		}
		_, pes.Pts = readPts(b[9:])
	}
	if pes.ptsDtsFlag&0x1 != 0 {
		if pes.phdl < 10 {
			return pes, 0, base.NewErrMpegts("dts flag set but header too short. phdl=%d", pes.phdl)
		}
		_, pes.Dts = readPts(b[14:])
	} else {
		pes.Dts = pes.Pts
	}
	return
}

// read pts or dts
func readPts(b []byte) (fb uint8, pts uint64) {
	fb = b[0] >> 4
	pts |= uint64((b[0]>>1)&0x07) << 30
	pts |= (uint64(b[1])<<8 | uint64(b[2])) >> 1 << 15
	pts |= (uint64(b[3])<<8 | uint64(b[4])) >> 1
	return
}

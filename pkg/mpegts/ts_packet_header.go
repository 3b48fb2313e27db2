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

// ------------------------------------------------
// <iso13818-1.pdf> <2.4.3.2> <page 36/174>
// sync_byte                    [8b]  * always 0x47
// transport_error_indicator    [1b]
// payload_unit_start_indicator [1b]
// transport_priority           [1b]
// PID                          [13b] **
// transport_scrambling_control [2b]
// adaptation_field_control     [2b]
// continuity_counter           [4b]  *
// ------------------------------------------------
type TsPacketHeader struct {
	Sync             uint8
	Err              uint8
	PayloadUnitStart uint8
	Prio             uint8
	Pid              uint16
	Scra             uint8
	Adaptation       uint8
	Cc               uint8
}

func (h TsPacketHeader) HasAdaptation() bool {
	return h.Adaptation&0x2 != 0
}

func (h TsPacketHeader) HasPayload() bool {
	return h.Adaptation&0x1 != 0
}

// ----------------------------------------------------------
// <iso13818-1.pdf> <Table 2-6> <page 40/174>
// adaptation_field_length              [8b] * 不包括自己这1字节
// discontinuity_indicator              [1b]
// random_access_indicator              [1b]
// elementary_stream_priority_indicator [1b]
// PCR_flag                             [1b]
// OPCR_flag                            [1b]
// splicing_point_flag                  [1b]
// transport_private_data_flag          [1b]
// adaptation_field_extension_flag      [1b] *
// -----if PCR_flag == 1-----
// program_clock_reference_base         [33b]
// reserved                             [6b]
// program_clock_reference_extension    [9b] ******
// ----------------------------------------------------------
type TsPacketAdaptation struct {
	Length        uint8
	Discontinuity bool
	RandomAccess  bool
	HasPcr        bool
	PcrBase       uint64
}

// ParseTsPacketHeader 解析4字节TS Packet header
func ParseTsPacketHeader(b []byte) (h TsPacketHeader, err error) {
	if len(b) < 4 {
		return h, base.NewErrMpegtsShortBuffer(4, len(b))
	}
	br := nazabits.NewBitReader(b)
	h.Sync, _ = br.ReadBits8(8)
	if h.Sync != syncByte {
		return h, base.NewErrMpegts("invalid sync byte. sync=%02x", h.Sync)
	}
	h.Err, _ = br.ReadBits8(1)
	h.PayloadUnitStart, _ = br.ReadBits8(1)
	h.Prio, _ = br.ReadBits8(1)
	h.Pid, _ = br.ReadBits16(13)
	h.Scra, _ = br.ReadBits8(2)
	h.Adaptation, _ = br.ReadBits8(2)
	h.Cc, _ = br.ReadBits8(4)
	return
}

// ParseTsPacketAdaptation
//
// @param b: 从adaptation_field_length开始
func ParseTsPacketAdaptation(b []byte) (f TsPacketAdaptation, err error) {
	if len(b) < 1 {
		return f, base.NewErrMpegtsShortBuffer(1, len(b))
	}
	f.Length = b[0]
	if f.Length == 0 {
		return
	}
	if len(b) < 1+int(f.Length) {
		return f, base.NewErrMpegtsShortBuffer(1+int(f.Length), len(b))
	}

	br := nazabits.NewBitReader(b[1:])
	flag, _ := br.ReadBits8(1)
	f.Discontinuity = flag == 1
	flag, _ = br.ReadBits8(1)
	f.RandomAccess = flag == 1
	_, _ = br.ReadBits8(1)
	flag, _ = br.ReadBits8(1)
	f.HasPcr = flag == 1
	_, _ = br.ReadBits8(4)
	if f.HasPcr {
		if f.Length < 7 {
			return f, base.NewErrMpegts("pcr flag set but adaptation too short. length=%d", f.Length)
		}
		hi, _ := br.ReadBits32(32)
		lo, _ := br.ReadBits8(1)
		f.PcrBase = uint64(hi)<<1 | uint64(lo)
	}
	return
}

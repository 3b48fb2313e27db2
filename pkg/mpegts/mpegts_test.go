// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/lalmpegh/pkg/mpegts"
	"github.com/q191201771/naza/pkg/assert"
)

// nginx rtmp module中固定的PAT以及PMT(h264+aac)
var (
	goldenPat = []byte{
		0x47, 0x40, 0x00, 0x10, 0x00,
		0x00, 0xb0, 0x0d, 0x00, 0x01, 0xc1, 0x00, 0x00,
		0x00, 0x01, 0xf0, 0x01,
		0x2e, 0x70, 0x19, 0x05,
	}
	goldenPmt = []byte{
		0x47, 0x50, 0x01, 0x10, 0x00,
		0x02, 0xb0, 0x17, 0x00, 0x01, 0xc1, 0x00, 0x00,
		0xe1, 0x00,
		0xf0, 0x00,
		0x1b, 0xe1, 0x00, 0xf0, 0x00,
		0x0f, 0xe1, 0x01, 0xf0, 0x00,
		0x2f, 0x44, 0xb9, 0x9b,
	}
)

func TestCalcCrc32(t *testing.T) {
	assert.Equal(t, uint32(0x0376E6E7), mpegts.CalcCrc32(0xffffffff, []byte("123456789")))
}

func TestPackPat(t *testing.T) {
	packet := mpegts.PackPat(0)
	assert.Equal(t, mpegts.PacketSize, len(packet))
	assert.Equal(t, goldenPat, packet[:len(goldenPat)])
	assert.Equal(t, bytes.Repeat([]byte{0xff}, mpegts.PacketSize-len(goldenPat)), packet[len(goldenPat):])

	h, err := mpegts.ParseTsPacketHeader(packet)
	assert.Equal(t, nil, err)
	assert.Equal(t, mpegts.PidPat, h.Pid)
	assert.Equal(t, uint8(1), h.PayloadUnitStart)

	pat, err := mpegts.ParsePat(packet[5:])
	assert.Equal(t, nil, err)
	assert.Equal(t, true, pat.SearchPid(mpegts.PidPmt))
	assert.Equal(t, false, pat.SearchPid(mpegts.PidAudio))

	packet = mpegts.PackPat(5)
	assert.Equal(t, uint8(0x15), packet[3])
}

func TestPackPmt(t *testing.T) {
	packet := mpegts.PackPmt(0, []mpegts.PmtProgramElement{
		{StreamType: 0x1b, Pid: 0x100},
		{StreamType: 0x0f, Pid: 0x101},
	})
	assert.Equal(t, goldenPmt, packet[:len(goldenPmt)])

	pmt, err := mpegts.ParsePmt(packet[5:])
	assert.Equal(t, nil, err)
	assert.Equal(t, uint16(0x100), pmt.PcrPid)
	assert.Equal(t, 2, len(pmt.ProgramElements))
	assert.Equal(t, uint8(0x0f), pmt.SearchPid(0x101).StreamType)
	assert.Equal(t, true, pmt.SearchPid(0x102) == nil)
}

func TestPackPmt_Mpegh(t *testing.T) {
	desc := mpegts.PackMpegh3dAudioDescriptor(0x0d, false, 2)
	packet := mpegts.PackPmt(3, []mpegts.PmtProgramElement{
		{StreamType: mpegts.StreamTypeMpeghMain, Pid: mpegts.PidAudio, EsInfo: desc},
	})

	h, err := mpegts.ParseTsPacketHeader(packet)
	assert.Equal(t, nil, err)
	assert.Equal(t, mpegts.PidPmt, h.Pid)
	assert.Equal(t, uint8(3), h.Cc)

	pmt, err := mpegts.ParsePmt(packet[5:])
	assert.Equal(t, nil, err)
	ppe := pmt.SearchPid(mpegts.PidAudio)
	assert.IsNotNil(t, ppe)
	assert.Equal(t, mpegts.StreamTypeMpeghMain, ppe.StreamType)
	assert.Equal(t, uint16(len(desc)), ppe.Length)
	assert.Equal(t, desc, ppe.EsInfo)

	d, ok := mpegts.FindMpegh3dAudioDescriptor(ppe.EsInfo)
	assert.Equal(t, true, ok)
	assert.Equal(t, uint8(0x0d), d.ProfileLevelIndication)
	assert.Equal(t, false, d.InteractivityEnabled)
	assert.Equal(t, uint8(2), d.ReferenceChannelLayout)

	// crc错误
	packet[20] ^= 0xff
	_, err = mpegts.ParsePmt(packet[5:])
	assert.Equal(t, true, errors.Is(err, base.ErrMpegts))
}

func TestParse_ShortBuffer(t *testing.T) {
	_, err := mpegts.ParseTsPacketHeader([]byte{0x47, 0x40})
	assert.Equal(t, true, errors.Is(err, base.ErrShortBuffer))
	_, err = mpegts.ParseTsPacketHeader([]byte{0x48, 0x40, 0x00, 0x10})
	assert.Equal(t, true, errors.Is(err, base.ErrMpegts))
	_, _, err = mpegts.ParsePes([]byte{0, 0, 1, 0xc0})
	assert.Equal(t, true, errors.Is(err, base.ErrShortBuffer))
	_, err = mpegts.ParsePat(goldenPat[5:10])
	assert.Equal(t, true, errors.Is(err, base.ErrShortBuffer))
}

func TestFramePack(t *testing.T) {
	for _, key := range []bool{true, false} {
		for size := 1; size < 600; size++ {
			raw := make([]byte, size)
			for i := range raw {
				raw[i] = uint8(i)
			}
			frame := mpegts.Frame{
				Pts: 90 * 1000,
				Dts: 90 * 1000,
				Pid: mpegts.PidAudio,
				Sid: mpegts.StreamIdAudio,
				Key: key,
				Raw: raw,
			}
			out := frame.Pack()
			assert.Equal(t, 0, len(out)%mpegts.PacketSize)
			assert.Equal(t, uint8(len(out)/mpegts.PacketSize), frame.Cc)

			pes, rai := depacketize(t, out, mpegts.PidAudio)
			assert.Equal(t, key, rai)

			h, length, err := mpegts.ParsePes(pes)
			assert.Equal(t, nil, err)
			assert.Equal(t, mpegts.StreamIdAudio, h.Sid)
			assert.Equal(t, true, h.Dai)
			assert.Equal(t, true, h.HasPts())
			assert.Equal(t, uint64(90*1000+700*90), h.Pts)
			assert.Equal(t, int(h.Ppl), len(pes)-6)
			assert.Equal(t, raw, pes[length:])
		}
	}
}

func TestParseTsPacketAdaptation(t *testing.T) {
	frame := mpegts.Frame{
		Pts: 12345,
		Dts: 12345,
		Pid: mpegts.PidAudio,
		Sid: mpegts.StreamIdAudio,
		Key: true,
		Raw: make([]byte, 1000),
	}
	out := frame.Pack()
	h, err := mpegts.ParseTsPacketHeader(out)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, h.HasAdaptation())
	assert.Equal(t, true, h.HasPayload())
	assert.Equal(t, uint8(1), h.Cc)

	a, err := mpegts.ParseTsPacketAdaptation(out[4:])
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(7), a.Length)
	assert.Equal(t, true, a.RandomAccess)
	assert.Equal(t, false, a.Discontinuity)
	assert.Equal(t, true, a.HasPcr)
	assert.Equal(t, uint64(12345), a.PcrBase)

	// 第二个packet没有adaptation
	h, err = mpegts.ParseTsPacketHeader(out[mpegts.PacketSize:])
	assert.Equal(t, nil, err)
	assert.Equal(t, false, h.HasAdaptation())
	assert.Equal(t, uint8(0), h.PayloadUnitStart)
	assert.Equal(t, uint8(2), h.Cc)
}

// depacketize 把同一个PES的TS packet拼接起来
func depacketize(t *testing.T, b []byte, pid uint16) (pes []byte, rai bool) {
	for i := 0; i+mpegts.PacketSize <= len(b); i += mpegts.PacketSize {
		packet := b[i : i+mpegts.PacketSize]
		h, err := mpegts.ParseTsPacketHeader(packet)
		assert.Equal(t, nil, err)
		assert.Equal(t, pid, h.Pid)
		assert.Equal(t, i == 0, h.PayloadUnitStart == 1)

		pos := 4
		if h.HasAdaptation() {
			a, err := mpegts.ParseTsPacketAdaptation(packet[4:])
			assert.Equal(t, nil, err)
			if i == 0 {
				rai = a.RandomAccess
			}
			pos += 1 + int(a.Length)
		}
		pes = append(pes, packet[pos:]...)
	}
	return
}

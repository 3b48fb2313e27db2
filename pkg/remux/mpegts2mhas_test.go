// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package remux

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/lalmpegh/pkg/mpegh"
	"github.com/q191201771/lalmpegh/pkg/mpegts"
	"github.com/q191201771/naza/pkg/assert"
)

// PES中的PTS比输入的时间戳多了700毫秒，见 mpegts.Frame.Pack
const testPesDelay90k = 700 * 90

type mhasRecorder struct {
	formats []mpegh.Format
	pids    []uint16
	pkts    []base.AvPacket
}

func (o *mhasRecorder) onFormat(pid uint16, format mpegh.Format) {
	o.formats = append(o.formats, format)
}

func (o *mhasRecorder) onAvPacket(pid uint16, pkt base.AvPacket) {
	o.pids = append(o.pids, pid)
	o.pkts = append(o.pkts, pkt)
}

func newRecordedRemuxer(modOptions ...ModMpegts2MhasRemuxerOption) (*Mpegts2MhasRemuxer, *mhasRecorder) {
	o := &mhasRecorder{}
	r := NewMpegts2MhasRemuxer(modOptions...).WithOnFormat(o.onFormat).WithOnAvPacket(o.onAvPacket)
	return r, o
}

func genTestAccessUnits(t *testing.T) []base.AvPacket {
	aus, err := mpegh.GenMhasAccessUnits(20, func(option *mpegh.MhasGeneratorOption) {
		option.ConfigInterval = 4
		option.FramePayloadSize = 300
		option.LastFrameTruncation = 100
	})
	assert.Equal(t, nil, err)
	return aus
}

func pesFlags(key bool) int {
	flags := mpegh.FlagPayloadUnitStartIndicator | mpegh.FlagDataAlignmentIndicator
	if key {
		flags |= mpegh.FlagRandomAccessIndicator
	}
	return flags
}

func TestMpegts2MhasRemuxer_FeedPes(t *testing.T) {
	aus := genTestAccessUnits(t)

	for _, chunkSize := range []int{0, 1, 7, 188} {
		r, o := newRecordedRemuxer(func(option *Mpegts2MhasRemuxerOption) {
			option.ConsumeChunkSize = chunkSize
		})
		r.AddPid(mpegts.PidAudio)
		for _, au := range aus {
			err := r.FeedPes(mpegts.PidAudio, au.Pts, pesFlags(au.Key), au.Payload)
			assert.Equal(t, nil, err)
		}
		r.Dispose()

		assert.Equal(t, 1, len(o.formats))
		assert.Equal(t, "1/257", o.formats[0].Id)
		assert.Equal(t, "mhm1.0D", o.formats[0].Codecs)
		assert.Equal(t, 48000, o.formats[0].SampleRate)

		assert.Equal(t, aus, o.pkts)
		for _, pid := range o.pids {
			assert.Equal(t, mpegts.PidAudio, pid)
		}
	}
}

func TestMpegts2MhasRemuxer_RapGating(t *testing.T) {
	aus := genTestAccessUnits(t)

	// 从第二个access unit开始输入，直到下一个携带CONFIG的access unit之前都被丢弃
	r, o := newRecordedRemuxer()
	r.AddPid(mpegts.PidAudio)
	for _, au := range aus[1:] {
		err := r.FeedPes(mpegts.PidAudio, au.Pts, pesFlags(au.Key), au.Payload)
		assert.Equal(t, nil, err)
	}
	assert.Equal(t, aus[4:], o.pkts)
}

func TestMpegts2MhasRemuxer_Error(t *testing.T) {
	aus := genTestAccessUnits(t)

	r, o := newRecordedRemuxer()
	err := r.FeedPes(mpegts.PidAudio, 0, pesFlags(true), aus[0].Payload)
	assert.Equal(t, true, errors.Is(err, base.ErrRemuxUnknownPid))

	r.AddPid(mpegts.PidAudio)
	for _, au := range aus[:2] {
		err = r.FeedPes(mpegts.PidAudio, au.Pts, pesFlags(au.Key), au.Payload)
		assert.Equal(t, nil, err)
	}

	// label为0的frame
	bad := append(mpegh.PackMhasSyncPacket(), mpegh.PackMhasPacket(mpegh.PacTypMpegh3daFrame, 0, make([]byte, 32))...)
	err = r.FeedPes(mpegts.PidAudio, aus[2].Pts, pesFlags(false), bad)
	assert.Equal(t, true, errors.Is(err, base.ErrMpegh))

	// seek之后，从下一个关键帧恢复
	for _, au := range aus[3:] {
		err = r.FeedPes(mpegts.PidAudio, au.Pts, pesFlags(au.Key), au.Payload)
		assert.Equal(t, nil, err)
	}
	expected := append([]base.AvPacket{}, aus[:2]...)
	expected = append(expected, aus[4:]...)
	assert.Equal(t, expected, o.pkts)

	// seek之后重新声明格式
	assert.Equal(t, 2, len(o.formats))
}

func TestMpegts2MhasRemuxer_MaxPayloadLength(t *testing.T) {
	aus := genTestAccessUnits(t)

	r, o := newRecordedRemuxer()
	assert.Equal(t, 1024*1024, r.option.MaxPayloadLength)
	r.AddPid(mpegts.PidAudio)

	// 包头声明了32MB的CONFIG，在申请payload暂存区之前就被拒绝
	header := mpegh.PackMhasPacketHeader(mpegh.PacTypMpegh3daCfg, 1, 32*1024*1024)
	bad := make([]byte, mpegh.MaxMhasPacketHeaderSize)
	copy(bad, header)
	err := r.FeedPes(mpegts.PidAudio, 0, pesFlags(true), bad)
	assert.Equal(t, true, errors.Is(err, base.ErrMpeghUnsupported))

	for _, au := range aus {
		err = r.FeedPes(mpegts.PidAudio, au.Pts, pesFlags(au.Key), au.Payload)
		assert.Equal(t, nil, err)
	}
	assert.Equal(t, aus, o.pkts)
}

type tsRecorder struct {
	buf        bytes.Buffer
	patPmtNum  int
	boundaries []bool
}

func (o *tsRecorder) OnPatPmt(b []byte) {
	o.patPmtNum++
	o.buf.Write(b)
}

func (o *tsRecorder) OnTsPackets(tsPackets []byte, frame *mpegts.Frame, boundary bool) {
	o.boundaries = append(o.boundaries, boundary)
	o.buf.Write(tsPackets)
}

func TestMpegts2MhasRemuxer_Run(t *testing.T) {
	aus := genTestAccessUnits(t)

	tso := &tsRecorder{}
	muxer := NewAvPacket2MpegtsRemuxer(tso)
	for _, au := range aus {
		muxer.FeedAvPacket(au)
	}
	assert.Equal(t, 5, tso.patPmtNum)
	assert.Equal(t, 0, tso.buf.Len()%mpegts.PacketSize)

	r, o := newRecordedRemuxer(func(option *Mpegts2MhasRemuxerOption) {
		option.ConsumeChunkSize = 100
	})
	err := r.Run(context.Background(), bytes.NewReader(tso.buf.Bytes()))
	assert.Equal(t, nil, err)

	assert.Equal(t, 1, len(o.formats))
	assert.Equal(t, len(aus), len(o.pkts))
	for i := range aus {
		pts := Pts90kToUs(int64(UsToPts90k(aus[i].Pts)) + testPesDelay90k)
		assert.Equal(t, aus[i].Payload, o.pkts[i].Payload)
		assert.Equal(t, aus[i].Key, o.pkts[i].Key)
		assert.Equal(t, pts, o.pkts[i].Pts)
		assert.Equal(t, pts/1000, o.pkts[i].Timestamp)
		assert.Equal(t, mpegts.PidAudio, o.pids[i])
	}

	// 和直接输入PES的结果一致
	direct, do := newRecordedRemuxer()
	direct.AddPid(mpegts.PidAudio)
	for _, au := range aus {
		pts := Pts90kToUs(int64(UsToPts90k(au.Pts)) + testPesDelay90k)
		err = direct.FeedPes(mpegts.PidAudio, pts, pesFlags(au.Key), au.Payload)
		assert.Equal(t, nil, err)
	}
	assert.Equal(t, do.pkts, o.pkts)
	assert.Equal(t, do.formats, o.formats)
}

func TestMpegts2MhasRemuxer_RunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, _ := newRecordedRemuxer()
	err := r.Run(ctx, bytes.NewReader(mpegts.PackPat(0)))
	assert.Equal(t, true, errors.Is(err, context.Canceled))
}

func TestAvPacket2MpegtsRemuxer(t *testing.T) {
	aus := genTestAccessUnits(t)

	tso := &tsRecorder{}
	muxer := NewAvPacket2MpegtsRemuxer(tso).WithFormat(mpegh.Format{Codecs: "mhm1.0D"})
	for _, au := range aus {
		muxer.FeedAvPacket(au)
	}
	muxer.FeedAvPacket(base.AvPacket{PayloadType: base.AvPacketPtUnknown, Payload: []byte{1}})

	assert.Equal(t, len(aus), len(tso.boundaries))
	for i := range aus {
		assert.Equal(t, aus[i].Key, tso.boundaries[i])
	}

	// 逐个检查TS packet的continuity_counter以及PMT中的descriptor
	ccs := make(map[uint16]uint8)
	b := tso.buf.Bytes()
	for i := 0; i+mpegts.PacketSize <= len(b); i += mpegts.PacketSize {
		h, err := mpegts.ParseTsPacketHeader(b[i:])
		assert.Equal(t, nil, err)
		if cc, ok := ccs[h.Pid]; ok {
			assert.Equal(t, (cc+1)&0x0f, h.Cc)
		}
		ccs[h.Pid] = h.Cc

		if h.Pid == mpegts.PidPmt {
			pmt, err := mpegts.ParsePmt(b[i+5:])
			assert.Equal(t, nil, err)
			ppe := pmt.SearchPid(mpegts.PidAudio)
			assert.IsNotNil(t, ppe)
			d, ok := mpegts.FindMpegh3dAudioDescriptor(ppe.EsInfo)
			assert.Equal(t, true, ok)
			assert.Equal(t, uint8(0x0D), d.ProfileLevelIndication)
		}
	}
	assert.Equal(t, 3, len(ccs))
}

// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package remux

import (
	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/lalmpegh/pkg/mpegh"
	"github.com/q191201771/lalmpegh/pkg/mpegts"
)

type IAvPacket2MpegtsRemuxerObserver interface {
	// OnPatPmt
	//
	// 每个关键帧之前回调一次
	//
	// @param b: 两个188字节的TS packet，PAT+PMT。回调结束后，内部不再使用这块内存块
	//
	OnPatPmt(b []byte)

	// OnTsPackets
	//
	// @param tsPackets:
	//  - mpegts数据，有一个或多个188字节的ts数据组成
	//  - 回调结束后，remux.AvPacket2MpegtsRemuxer 不再使用这块内存块
	//
	// @param frame: 各字段含义见 mpegts.Frame 结构体定义
	//
	// @param boundary: 是否到达边界处，也即关键帧，根据该字段，上层可判断诸如：
	//  - 是否允许开启新的ts文件切片
	//  - 新的ts播放流从该位置开始播放
	//
	OnTsPackets(tsPackets []byte, frame *mpegts.Frame, boundary bool)
}

// AvPacket2MpegtsRemuxer 输入MHAS access unit，输出mpegts流
//
// 一个access unit打包成一个PES。和aac不同，这里不合并多个access unit，
// 因为每个PES都需要以同步字开始，并且关键帧需要单独设置random_access_indicator
type AvPacket2MpegtsRemuxer struct {
	UniqueKey string

	observer IAvPacket2MpegtsRemuxerObserver

	// profileLevelIndication 写入PMT的MPEG-H 3D audio descriptor，-1表示不写descriptor
	profileLevelIndication int

	filter  MpegtsTimestampFilter
	audioCc uint8
	patCc   uint8
	pmtCc   uint8
}

func NewAvPacket2MpegtsRemuxer(observer IAvPacket2MpegtsRemuxerObserver) *AvPacket2MpegtsRemuxer {
	uk := base.GenUkMpegtsMhasMuxer()
	r := &AvPacket2MpegtsRemuxer{
		UniqueKey:              uk,
		observer:               observer,
		profileLevelIndication: -1,
	}
	r.filter.Init(uk)
	Log.Debugf("[%s] lifecycle new avpacket2mpegts remuxer.", uk)
	return r
}

// WithFormat 使用reader输出的 mpegh.Format 补充PMT中的descriptor，不调用时PMT中不写descriptor
func (s *AvPacket2MpegtsRemuxer) WithFormat(format mpegh.Format) *AvPacket2MpegtsRemuxer {
	if pli, ok := mpegh.ProfileLevelIndicationOfCodecs(format.Codecs); ok {
		s.profileLevelIndication = pli
	}
	return s
}

// FeedAvPacket
//
// @param pkt: 各字段含义见 MhasAccessUnitCollector 。pkt.Payload 调用结束后，函数内部不会持有这块内存
func (s *AvPacket2MpegtsRemuxer) FeedAvPacket(pkt base.AvPacket) {
	if pkt.PayloadType != base.AvPacketPtMpeghMhm1 {
		Log.Warnf("[%s] invalid payload type, ignore. pkt=%s", s.UniqueKey, pkt.DebugString())
		return
	}

	pts := UsToPts90k(pkt.Pts)

	var frame mpegts.Frame
	frame.Cc = s.audioCc
	frame.Dts = pts
	frame.Pts = pts
	frame.Key = pkt.Key
	frame.Raw = pkt.Payload
	frame.Pid = mpegts.PidAudio
	frame.Sid = mpegts.StreamIdAudio

	s.onFrame(&frame)
	s.audioCc = frame.Cc
}

// ---------------------------------------------------------------------------------------------------------------------

func (s *AvPacket2MpegtsRemuxer) onFrame(frame *mpegts.Frame) {
	s.filter.Do(frame)

	boundary := frame.Key
	if boundary {
		s.observer.OnPatPmt(s.packPatPmt())
	}

	packets := frame.Pack()
	s.observer.OnTsPackets(packets, frame, boundary)
}

func (s *AvPacket2MpegtsRemuxer) packPatPmt() []byte {
	var esInfo []byte
	if s.profileLevelIndication >= 0 {
		// referenceChannelLayout未知时填0
		esInfo = mpegts.PackMpegh3dAudioDescriptor(uint8(s.profileLevelIndication), false, 0)
	}

	out := make([]byte, 0, 2*mpegts.PacketSize)
	out = append(out, mpegts.PackPat(s.patCc)...)
	out = append(out, mpegts.PackPmt(s.pmtCc, []mpegts.PmtProgramElement{
		{StreamType: mpegts.StreamTypeMpeghMain, Pid: mpegts.PidAudio, EsInfo: esInfo},
	})...)
	s.patCc++
	s.pmtCc++
	return out
}

// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package remux

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	ts "github.com/asticode/go-astits"
	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/lalmpegh/pkg/mpegh"
	"github.com/q191201771/lalmpegh/pkg/mpegts"
)

type Mpegts2MhasRemuxerOption struct {
	// ConsumeChunkSize 大于0时，把PES payload按该大小切分后多次调用 mpegh.MhasReader.Consume
	ConsumeChunkSize int

	// MaxPendingPesNum 收到PMT之前最多缓存的PES个数
	MaxPendingPesNum int

	// MaxPayloadLength 透传给 mpegh.MhasReaderOption ，小于等于0时不限制
	MaxPayloadLength int

	// DumpFilename 不为空时，把 FeedPes 的输入录制到该文件，可使用 FeedDumpFile 重放
	DumpFilename string
}

var defaultMpegts2MhasRemuxerOption = Mpegts2MhasRemuxerOption{
	ConsumeChunkSize: 0,
	MaxPendingPesNum: 256,
	MaxPayloadLength: 1024 * 1024,
	DumpFilename:     "",
}

type ModMpegts2MhasRemuxerOption func(option *Mpegts2MhasRemuxerOption)

type (
	OnMhasFormat   func(pid uint16, format mpegh.Format)
	OnMhasAvPacket func(pid uint16, pkt base.AvPacket)
)

// Mpegts2MhasRemuxer 输入mpegts流，输出MHAS access unit
//
// 每个stream_type为0x2d的PID对应一个 mpegh.MhasReader
//
// 非协程安全
type Mpegts2MhasRemuxer struct {
	UniqueKey string

	option     Mpegts2MhasRemuxerOption
	onFormat   OnMhasFormat
	onAvPacket OnMhasAvPacket

	filter  *mpegts2MhasFilter
	streams map[uint16]*mhasStream
	dump    *base.DumpFile
}

type mhasStream struct {
	pid       uint16
	reader    *mpegh.MhasReader
	collector *MhasAccessUnitCollector

	pesCount int
	auCount  int
	errCount int
}

func NewMpegts2MhasRemuxer(modOptions ...ModMpegts2MhasRemuxerOption) *Mpegts2MhasRemuxer {
	option := defaultMpegts2MhasRemuxerOption
	for _, fn := range modOptions {
		fn(&option)
	}
	if option.MaxPendingPesNum <= 0 {
		option.MaxPendingPesNum = 1
	}

	uk := base.GenUkMpegts2Mhas()
	r := &Mpegts2MhasRemuxer{
		UniqueKey: uk,
		option:    option,
		streams:   make(map[uint16]*mhasStream),
	}
	r.filter = newMpegts2MhasFilter(option.MaxPendingPesNum, r)
	if option.DumpFilename != "" {
		r.dump = base.NewDumpFile()
		if err := r.dump.OpenToWrite(option.DumpFilename); err != nil {
			Log.Errorf("[%s] open dump file failed. filename=%s, err=%+v", uk, option.DumpFilename, err)
			r.dump = nil
		}
	}
	Log.Debugf("[%s] lifecycle new mpegts2mhas remuxer. option=%+v", uk, option)
	return r
}

func (r *Mpegts2MhasRemuxer) WithOnFormat(onFormat OnMhasFormat) *Mpegts2MhasRemuxer {
	r.onFormat = onFormat
	return r
}

func (r *Mpegts2MhasRemuxer) WithOnAvPacket(onAvPacket OnMhasAvPacket) *Mpegts2MhasRemuxer {
	r.onAvPacket = onAvPacket
	return r
}

// Run 阻塞直到输入结束，或者`ctx`取消，或者读取出错
//
// @return 输入正常结束时返回nil，`ctx`取消时返回`ctx.Err()`。
//         这两种情况内部已经调用过 Dispose ，读取出错时由调用方决定是否调用 Dispose
func (r *Mpegts2MhasRemuxer) Run(ctx context.Context, rd io.Reader) error {
	dmx := ts.NewDemuxer(ctx, bufio.NewReader(rd))
	for {
		select {
		case <-ctx.Done():
			r.Dispose()
			return ctx.Err()
		default:
		}

		d, err := dmx.NextData()
		if err != nil {
			if errors.Is(err, ts.ErrNoMorePackets) {
				r.Dispose()
				return nil
			}
			if ctx.Err() != nil {
				r.Dispose()
				return ctx.Err()
			}
			return err
		}

		if d.PMT != nil {
			r.onPmt(d.PMT)
			continue
		}

		if d.PES != nil && d.FirstPacket != nil {
			r.filter.Push(r.toPesItem(d))
		}
	}
}

// AddPid 添加一路MHAS流
//
// 使用 Run 时，由PMT触发，不需要手动调用。直接使用 FeedPes 时，需要先调用 AddPid
func (r *Mpegts2MhasRemuxer) AddPid(pid uint16) {
	if _, ok := r.streams[pid]; ok {
		return
	}

	s := &mhasStream{pid: pid}
	s.collector = NewMhasAccessUnitCollector(func(format mpegh.Format) {
		if r.onFormat != nil {
			r.onFormat(pid, format)
		}
	}, func(pkt base.AvPacket) {
		s.auCount++
		if r.onAvPacket != nil {
			r.onAvPacket(pid, pkt)
		}
	})
	s.reader = mpegh.NewMhasReader(func(option *mpegh.MhasReaderOption) {
		option.FormatId = fmt.Sprintf("%d/%d", mpegts.ProgramNumber, pid)
		option.MaxPayloadLength = r.option.MaxPayloadLength
	}).WithObserver(s.collector)

	r.streams[pid] = s
	Log.Infof("[%s] add mhas stream. pid=%d, reader=%s", r.UniqueKey, pid, s.reader.UniqueKey())
}

// FeedPes 输入一个完整的PES payload
//
// @param ptsUs: 微秒，PES中没有PTS时传入 base.TimeUnset
// @param flags: mpegh.FlagPayloadUnitStartIndicator 等
// @param data:  函数调用结束后，内部不持有该内存块
//
// @return err: 码流格式错误时，内部已经对该PID执行了Seek，后续可以继续输入
func (r *Mpegts2MhasRemuxer) FeedPes(pid uint16, ptsUs int64, flags int, data []byte) error {
	s, ok := r.streams[pid]
	if !ok {
		return base.NewErrRemuxUnknownPid(pid)
	}
	s.pesCount++

	if r.dump != nil {
		if err := r.dump.WriteWithType(PackPesDump(pid, ptsUs, flags, data), base.DumpTypeMpegtsPes); err != nil {
			Log.Errorf("[%s] write dump file failed. err=%+v", r.UniqueKey, err)
		}
	}

	s.reader.PacketStarted(ptsUs, flags)
	chunkSize := r.option.ConsumeChunkSize
	if chunkSize <= 0 {
		chunkSize = len(data)
	}
	for len(data) > 0 {
		n := chunkSize
		if n > len(data) {
			n = len(data)
		}
		if err := s.reader.Consume(data[:n]); err != nil {
			s.errCount++
			Log.Warnf("[%s] consume failed, seek. pid=%d, err=%+v", r.UniqueKey, pid, err)
			s.reader.Seek()
			s.collector.Reset()
			return err
		}
		data = data[n:]
	}
	s.reader.PacketFinished(false)
	return nil
}

// Dispose 输入结束
func (r *Mpegts2MhasRemuxer) Dispose() {
	r.filter.Drain()

	pids := make([]int, 0, len(r.streams))
	for pid := range r.streams {
		pids = append(pids, int(pid))
	}
	sort.Ints(pids)
	for _, pid := range pids {
		s := r.streams[uint16(pid)]
		s.reader.PacketFinished(true)
		Log.Infof("[%s] stream finished. pid=%d, pes=%d, au=%d, err=%d", r.UniqueKey, s.pid, s.pesCount, s.auCount, s.errCount)
	}

	if r.dump != nil {
		_ = r.dump.Close()
		r.dump = nil
	}
}

// ----- implement of iMpegts2MhasFilterObserver -----------------------------------------------------------------------

func (r *Mpegts2MhasRemuxer) onPop(item pesItem) {
	if _, ok := r.streams[item.pid]; !ok {
		return
	}
	_ = r.FeedPes(item.pid, item.ptsUs, item.flags, item.data)
}

// ---------------------------------------------------------------------------------------------------------------------

func (r *Mpegts2MhasRemuxer) onPmt(pmt *ts.PMTData) {
	for _, es := range pmt.ElementaryStreams {
		switch uint8(es.StreamType) {
		case mpegts.StreamTypeMpeghMain:
			r.AddPid(es.ElementaryPID)
		case mpegts.StreamTypeMpeghAux:
			Log.Warnf("[%s] mpeg-h auxiliary stream not supported, ignore. pid=%d", r.UniqueKey, es.ElementaryPID)
		}
	}
	r.filter.Drain()
}

func (r *Mpegts2MhasRemuxer) toPesItem(d *ts.DemuxerData) pesItem {
	item := pesItem{
		pid:   d.FirstPacket.Header.PID,
		ptsUs: base.TimeUnset,
		flags: mpegh.FlagPayloadUnitStartIndicator,
		data:  d.PES.Data,
	}

	if d.FirstPacket.Header.HasAdaptationField && d.FirstPacket.AdaptationField != nil &&
		d.FirstPacket.AdaptationField.RandomAccessIndicator {
		item.flags |= mpegh.FlagRandomAccessIndicator
	}

	if d.PES.Header != nil && d.PES.Header.OptionalHeader != nil {
		oh := d.PES.Header.OptionalHeader
		if oh.DataAlignmentIndicator {
			item.flags |= mpegh.FlagDataAlignmentIndicator
		}
		if oh.PTS != nil {
			item.ptsUs = Pts90kToUs(oh.PTS.Base)
		}
	}
	return item
}

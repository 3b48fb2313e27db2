// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package innertest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/lalmpegh/pkg/mpegh"
	"github.com/q191201771/lalmpegh/pkg/mpegts"
	"github.com/q191201771/lalmpegh/pkg/remux"
	"github.com/q191201771/naza/pkg/assert"
	"github.com/q191201771/naza/pkg/nazaatomic"
	"github.com/q191201771/naza/pkg/nazalog"
	"github.com/q191201771/naza/pkg/nazamd5"
)

// 生成MHAS access unit，并写入.mhas文件
// 使用 remux.AvPacket2MpegtsRemuxer 打包成TS，TS数据一份写入文件，一份通过io.Pipe按TS packet实时输出
// 分别从TS文件以及io.Pipe中，使用 remux.Mpegts2MhasRemuxer 解封装
// 对比两路解封装的结果，看是否完全一致，并且和生成的access unit一致
// 将TS文件解封装的结果写入.mhas文件，对比两个.mhas文件的md5

var (
	tt *testing.T

	frameNum = 300

	tsFileName     = "innertest.ts"
	rMhasFileName  = "innertest.mhas"
	wMhasFileName  = "innertest_remux.mhas"
	pipeAuCount    nazaatomic.Uint32
	fileAuCount    nazaatomic.Uint32
	pipeFormatName string
)

type tsSink struct {
	fw mpegts.FileWriter
	pw *io.PipeWriter

	boundaryCount int
}

func (s *tsSink) OnPatPmt(b []byte) {
	s.write(b)
}

func (s *tsSink) OnTsPackets(tsPackets []byte, frame *mpegts.Frame, boundary bool) {
	if boundary {
		s.boundaryCount++
	}
	s.write(tsPackets)
}

func (s *tsSink) write(b []byte) {
	err := s.fw.Write(b)
	assert.Equal(tt, nil, err)
	for i := 0; i < len(b); i += mpegts.PacketSize {
		_, err = s.pw.Write(b[i : i+mpegts.PacketSize])
		assert.Equal(tt, nil, err)
	}
}

func InnerTestEntry(t *testing.T) {
	tt = t

	dir := t.TempDir()
	tsFileName = filepath.Join(dir, tsFileName)
	rMhasFileName = filepath.Join(dir, rMhasFileName)
	wMhasFileName = filepath.Join(dir, wMhasFileName)

	aus, err := mpegh.GenMhasAccessUnits(frameNum, func(option *mpegh.MhasGeneratorOption) {
		option.SamplingRate = 44100
		option.ConfigInterval = 32
		option.FramePayloadSize = 700
		option.LastFrameTruncation = 256
	})
	assert.Equal(t, nil, err)

	// 实时解封装
	pr, pw := io.Pipe()
	var pipeResult []base.AvPacket
	done := make(chan error, 1)
	go func() {
		r := remux.NewMpegts2MhasRemuxer().WithOnFormat(func(pid uint16, format mpegh.Format) {
			pipeFormatName = format.Codecs
		}).WithOnAvPacket(func(pid uint16, pkt base.AvPacket) {
			pipeResult = append(pipeResult, pkt)
			pipeAuCount.Increment()
		})
		err := r.Run(context.Background(), pr)
		// 出错时保证写端不会阻塞
		_ = pr.CloseWithError(err)
		done <- err
	}()

	// 打包
	sink := &tsSink{pw: pw}
	err = sink.fw.Create(tsFileName)
	assert.Equal(t, nil, err)
	var mhasWriter mpegts.FileWriter
	err = mhasWriter.Create(rMhasFileName)
	assert.Equal(t, nil, err)

	muxer := remux.NewAvPacket2MpegtsRemuxer(sink).WithFormat(mpegh.Format{
		Codecs: mpegh.Mpegh3daConfig{ProfileLevelIndication: 0x0D}.Codecs(),
	})
	for _, au := range aus {
		muxer.FeedAvPacket(au)
		err = mhasWriter.Write(au.Payload)
		assert.Equal(t, nil, err)
	}
	err = sink.fw.Dispose()
	assert.Equal(t, nil, err)
	err = mhasWriter.Dispose()
	assert.Equal(t, nil, err)
	_ = pw.Close()

	err = <-done
	assert.Equal(t, nil, err)
	assert.Equal(t, frameNum/32+1, sink.boundaryCount)
	assert.Equal(t, "mhm1.0D", pipeFormatName)
	compareAccessUnits(aus, pipeResult)

	// 从文件解封装
	var fileResult []base.AvPacket
	err = mhasWriter.Create(wMhasFileName)
	assert.Equal(t, nil, err)
	fp, err := os.Open(tsFileName)
	assert.Equal(t, nil, err)
	err = remux.NewMpegts2MhasRemuxer(func(option *remux.Mpegts2MhasRemuxerOption) {
		option.ConsumeChunkSize = mpegts.PacketSize
	}).WithOnAvPacket(func(pid uint16, pkt base.AvPacket) {
		fileResult = append(fileResult, pkt)
		fileAuCount.Increment()
		err := mhasWriter.Write(pkt.Payload)
		assert.Equal(t, nil, err)
	}).Run(context.Background(), fp)
	assert.Equal(t, nil, err)
	_ = fp.Close()
	err = mhasWriter.Dispose()
	assert.Equal(t, nil, err)

	nazalog.Debugf("count. %d %d %d", len(aus), pipeAuCount.Load(), fileAuCount.Load())
	assert.Equal(t, pipeResult, fileResult)
	compareFile()
}

// compareAccessUnits 经过TS的90kHz时间戳往返之后，时间戳有精度损失，并且多了PES的固定延时
func compareAccessUnits(expected, actual []base.AvPacket) {
	assert.Equal(tt, len(expected), len(actual))
	for i := range expected {
		pts := remux.Pts90kToUs(int64(remux.UsToPts90k(expected[i].Pts)) + 700*90)
		assert.Equal(tt, pts, actual[i].Pts)
		assert.Equal(tt, pts/1000, actual[i].Timestamp)
		assert.Equal(tt, expected[i].Key, actual[i].Key)
		assert.Equal(tt, expected[i].PayloadType, actual[i].PayloadType)
		assert.Equal(tt, expected[i].Payload, actual[i].Payload)
	}
}

func compareFile() {
	r, err := os.ReadFile(rMhasFileName)
	assert.Equal(tt, nil, err)
	nazalog.Debugf("%s filesize:%d", rMhasFileName, len(r))

	w, err := os.ReadFile(wMhasFileName)
	assert.Equal(tt, nil, err)
	nazalog.Debugf("%s filesize:%d", wMhasFileName, len(w))
	assert.Equal(tt, nazamd5.Md5(r), nazamd5.Md5(w))

	ts, err := os.ReadFile(tsFileName)
	assert.Equal(tt, nil, err)
	assert.Equal(tt, 0, len(ts)%mpegts.PacketSize)
	h, err := mpegts.ParseTsPacketHeader(ts)
	assert.Equal(tt, nil, err)
	assert.Equal(tt, mpegts.PidPat, h.Pid)
}

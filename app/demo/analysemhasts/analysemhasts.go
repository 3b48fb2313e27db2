// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/lalmpegh/pkg/mpegh"
	"github.com/q191201771/lalmpegh/pkg/mpegts"
	"github.com/q191201771/lalmpegh/pkg/remux"
	"github.com/q191201771/naza/pkg/nazalog"
)

// 分析TS文件中的MHAS流
//
// 不经过PES重组，每个TS packet的payload直接喂给 mpegh.MhasReader ，
// 用于检查PAT/PMT、CC连续性、关键帧位置以及access unit的时间戳

// mhasremux的ts_dump_filename录制的文件
const tsDumpFileSuffix = ".tsdump"

var (
	pat        mpegts.Pat
	hasPat     bool
	pid2stream map[uint16]*Stream
)

type Stream struct {
	pid    uint16
	reader *mpegh.MhasReader

	hasCc  bool
	lastCc uint8

	pesCount int
	auCount  int
	keyCount int
	ccErr    int
	mhasErr  int
	auBytes  int
	lastUs   int64
}

func NewStream(pid uint16) *Stream {
	s := &Stream{
		pid:    pid,
		lastUs: base.TimeUnset,
	}
	s.reader = mpegh.NewMhasReader(func(option *mpegh.MhasReaderOption) {
		option.FormatId = fmt.Sprintf("%d", pid)
	}).WithCallbackFunc(s.onFormat, s.onSampleData, s.onSampleMetadata)
	return s
}

func (s *Stream) onFormat(format mpegh.Format) {
	nazalog.Infof("format. %s", format.DebugString())
}

func (s *Stream) onSampleData(b []byte) {
	s.auBytes += len(b)
}

func (s *Stream) onSampleMetadata(timeUs int64, flags int, size int) {
	s.auCount++
	if flags&mpegh.SampleFlagKeyFrame != 0 {
		s.keyCount++
	}
	if s.lastUs != base.TimeUnset && timeUs <= s.lastUs {
		nazalog.Warnf("time not increasing. pid=%d, last=%d, curr=%d", s.pid, s.lastUs, timeUs)
	}
	s.lastUs = timeUs
	nazalog.Debugf("au. pid=%d, time=%d, flags=%d, size=%d", s.pid, timeUs, flags, size)
}

func (s *Stream) checkCc(h mpegts.TsPacketHeader) {
	if !h.HasPayload() {
		return
	}
	if s.hasCc && h.Cc != (s.lastCc+1)&0xF {
		s.ccErr++
		nazalog.Warnf("cc not continuous. pid=%d, last=%d, curr=%d", s.pid, s.lastCc, h.Cc)
	}
	s.hasCc = true
	s.lastCc = h.Cc
}

func handlePacket(packet []byte) {
	h, err := mpegts.ParseTsPacketHeader(packet)
	if err != nil {
		nazalog.Warnf("parse ts header failed. err=%+v", err)
		return
	}
	index := 4

	flags := 0
	if h.HasAdaptation() {
		adaptation, err := mpegts.ParseTsPacketAdaptation(packet[4:])
		if err != nil {
			nazalog.Warnf("parse adaptation failed. pid=%d, err=%+v", h.Pid, err)
			return
		}
		if adaptation.RandomAccess {
			flags |= mpegh.FlagRandomAccessIndicator
		}
		index += 1 + int(adaptation.Length)
	}
	if !h.HasPayload() || index >= mpegts.PacketSize {
		return
	}

	if h.Pid == mpegts.PidPat {
		if h.PayloadUnitStart == 1 {
			index += 1 + int(packet[index])
		}
		if pat, err = mpegts.ParsePat(packet[index:]); err != nil {
			nazalog.Warnf("parse pat failed. err=%+v", err)
			return
		}
		hasPat = true
		nazalog.Debugf("%+v", pat)
		return
	}

	if hasPat && pat.SearchPid(h.Pid) {
		if h.PayloadUnitStart == 1 {
			index += 1 + int(packet[index])
		}
		pmt, err := mpegts.ParsePmt(packet[index:])
		if err != nil {
			nazalog.Warnf("parse pmt failed. err=%+v", err)
			return
		}
		for _, ele := range pmt.ProgramElements {
			if ele.StreamType != mpegts.StreamTypeMpeghMain {
				continue
			}
			if _, ok := pid2stream[ele.Pid]; ok {
				continue
			}
			d, ok := mpegts.FindMpegh3dAudioDescriptor(ele.EsInfo)
			nazalog.Infof("mhas stream. pid=%d, descriptor=%t, %+v", ele.Pid, ok, d)
			pid2stream[ele.Pid] = NewStream(ele.Pid)
		}
		return
	}

	s, ok := pid2stream[h.Pid]
	if !ok {
		return
	}
	s.checkCc(h)

	if h.PayloadUnitStart == 1 {
		if s.pesCount > 0 {
			s.reader.PacketFinished(false)
		}
		pes, length, err := mpegts.ParsePes(packet[index:])
		if err != nil {
			nazalog.Warnf("parse pes failed. pid=%d, err=%+v", h.Pid, err)
			return
		}
		s.pesCount++

		timeUs := base.TimeUnset
		if pes.HasPts() {
			timeUs = remux.Pts90kToUs(int64(pes.Pts))
		}
		flags |= mpegh.FlagPayloadUnitStartIndicator
		if pes.Dai {
			flags |= mpegh.FlagDataAlignmentIndicator
		}
		s.reader.PacketStarted(timeUs, flags)
		index += length
	}
	if s.pesCount == 0 || index >= mpegts.PacketSize {
		return
	}

	if err := s.reader.Consume(packet[index:]); err != nil {
		s.mhasErr++
		nazalog.Warnf("consume failed, seek. pid=%d, err=%+v", h.Pid, err)
		s.reader.Seek()
	}
}

func main() {
	_ = nazalog.Init(func(option *nazalog.Option) {
		option.AssertBehavior = nazalog.AssertFatal
	})
	defer nazalog.Sync()

	filename := parseFlag()

	pid2stream = make(map[uint16]*Stream)

	var content []byte
	var err error
	if strings.HasSuffix(filename, tsDumpFileSuffix) {
		content, err = mpegts.ReadDumpFileData(filename)
	} else {
		content, err = os.ReadFile(filename)
	}
	nazalog.Assert(nil, err)
	if len(content)%mpegts.PacketSize != 0 {
		nazalog.Warnf("file size is not a multiple of %d. size=%d", mpegts.PacketSize, len(content))
	}

	for i := 0; i+mpegts.PacketSize <= len(content); i += mpegts.PacketSize {
		handlePacket(content[i : i+mpegts.PacketSize])
	}

	pids := make([]int, 0, len(pid2stream))
	for pid := range pid2stream {
		pids = append(pids, int(pid))
	}
	sort.Ints(pids)
	for _, pid := range pids {
		s := pid2stream[uint16(pid)]
		s.reader.PacketFinished(true)
		nazalog.Infof("pid=%d, pes=%d, au=%d, key=%d, bytes=%d, cc err=%d, mhas err=%d",
			s.pid, s.pesCount, s.auCount, s.keyCount, s.auBytes, s.ccErr, s.mhasErr)
	}
}

func parseFlag() string {
	i := flag.String("i", "", "specify ts file, or .tsdump file")
	flag.Parse()
	if *i == "" {
		base.UsageWithExample(`  ./bin/analysemhasts -i /tmp/mhas.ts
  ./bin/analysemhasts -i /tmp/record.tsdump
`)
	}
	return *i
}

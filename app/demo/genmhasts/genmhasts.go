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
	"os"

	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/lalmpegh/pkg/mpegh"
	"github.com/q191201771/lalmpegh/pkg/mpegts"
	"github.com/q191201771/lalmpegh/pkg/remux"
	"github.com/q191201771/naza/pkg/nazalog"
)

// 生成只包含一路MHAS音频的TS文件，用于测试mhasremux以及播放器的解封装
//
// 注意，frame的payload是填充数据，不能真正解码出声音

type tsFileSink struct {
	fw mpegts.FileWriter
}

func (s *tsFileSink) OnPatPmt(b []byte) {
	s.write(b)
}

func (s *tsFileSink) OnTsPackets(tsPackets []byte, frame *mpegts.Frame, boundary bool) {
	s.write(tsPackets)
}

func (s *tsFileSink) write(b []byte) {
	err := s.fw.Write(b)
	nazalog.Assert(nil, err)
}

func main() {
	_ = nazalog.Init(func(option *nazalog.Option) {
		option.AssertBehavior = nazalog.AssertFatal
	})
	defer nazalog.Sync()
	base.LogoutStartInfo()

	o, mhasFilename, frameNum, modOption := parseFlag()

	aus, err := mpegh.GenMhasAccessUnits(frameNum, modOption)
	nazalog.Assert(nil, err)

	sink := &tsFileSink{}
	err = sink.fw.Create(o)
	nazalog.Assert(nil, err)
	defer sink.fw.Dispose()

	var mhasFile *mpegts.FileWriter
	if mhasFilename != "" {
		mhasFile = &mpegts.FileWriter{}
		err = mhasFile.Create(mhasFilename)
		nazalog.Assert(nil, err)
		defer mhasFile.Dispose()
	}

	// 和真实的reader输出一致，PMT中携带descriptor
	var option mpegh.MhasGeneratorOption
	modOption(&option)
	format := mpegh.Format{
		Codecs: mpegh.Mpegh3daConfig{ProfileLevelIndication: option.ProfileLevelIndication}.Codecs(),
	}

	muxer := remux.NewAvPacket2MpegtsRemuxer(sink).WithFormat(format)
	size := 0
	for _, au := range aus {
		muxer.FeedAvPacket(au)
		if mhasFile != nil {
			err = mhasFile.Write(au.Payload)
			nazalog.Assert(nil, err)
		}
		size += len(au.Payload)
	}
	nazalog.Infof("gen done. file=%s, au=%d, mhas size=%d", o, len(aus), size)
}

func parseFlag() (string, string, int, mpegh.ModMhasGeneratorOption) {
	o := flag.String("o", "", "specify output ts file")
	m := flag.String("m", "", "specify output mhas file, optional")
	n := flag.Int("n", 500, "number of access unit")
	r := flag.Int("r", 48000, "sampling rate")
	l := flag.Int("l", 1024, "frame length, samples per access unit")
	g := flag.Int("g", 16, "config interval, in access unit")
	s := flag.Int("s", 256, "frame payload size")
	p := flag.Int("p", 0x0D, "mpegh3daProfileLevelIndication")
	t := flag.Int("t", 0, "truncated samples of the last access unit")
	flag.Parse()
	if *o == "" {
		base.UsageWithExample(`  ./bin/genmhasts -o /tmp/mhas.ts
  ./bin/genmhasts -o /tmp/mhas.ts -m /tmp/mhas.mhas -n 1000 -r 44100 -g 32 -t 100
`)
		os.Exit(1)
	}
	return *o, *m, *n, func(option *mpegh.MhasGeneratorOption) {
		option.SamplingRate = *r
		option.FrameLength = *l
		option.ConfigInterval = *g
		option.FramePayloadSize = *s
		option.ProfileLevelIndication = *p
		option.Label = 1
		option.LastFrameTruncation = *t
	}
}

// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/haivision/srtgo"
	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/lalmpegh/pkg/mpegh"
	"github.com/q191201771/lalmpegh/pkg/mpegts"
	"github.com/q191201771/lalmpegh/pkg/remux"
	"github.com/q191201771/naza/pkg/nazalog"
)

// 从mpegts文件或者SRT流中提取MPEG-H 3D audio(MHAS)
//
// - 按access unit写入 .mhas 文件，也即MHAS裸流
// - 重新打包成只包含MHAS的 .ts 文件，每个关键帧前携带PAT/PMT
//
// 同一个输入中有多个MHAS PID时，只输出第一个收到format的PID

const dumpFileSuffix = ".mhasdump"

type flagItems struct {
	confFile   string
	input      string
	mhasOutput string
	tsOutput   string
}

func main() {
	defer func() {
		nazalog.Sync()
	}()

	items := parseFlag()
	config := loadConf(items)
	initLog(config.Log)
	base.LogoutStartInfo()
	nazalog.Infof("conf. %+v", config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go base.RunSignalHandler(cancel)

	if err := run(ctx, config); err != nil {
		nazalog.Errorf("mhasremux failed. err=%+v", err)
		nazalog.Sync()
		base.OsExitAndWaitPressIfWindows(1)
	}
}

func run(ctx context.Context, config *Config) error {
	s, err := newMhasSink(config.MhasOutput, config.TsOutput)
	if err != nil {
		return err
	}
	defer s.Dispose()

	remuxer := remux.NewMpegts2MhasRemuxer(func(option *remux.Mpegts2MhasRemuxerOption) {
		option.ConsumeChunkSize = config.Remux.ConsumeChunkSize
		option.MaxPendingPesNum = config.Remux.MaxPendingPesNum
		option.MaxPayloadLength = config.Remux.MaxPayloadLength
		option.DumpFilename = config.Remux.DumpFilename
	}).WithOnFormat(s.onFormat).WithOnAvPacket(s.onAvPacket)

	if strings.HasSuffix(config.Input, dumpFileSuffix) {
		err = remuxer.FeedDumpFile(config.Input)
		remuxer.Dispose()
		nazalog.Infof("mhasremux done. %s", s.StatString())
		return err
	}

	in, err := openInput(ctx, config.Input, config.Srt)
	if err != nil {
		remuxer.Dispose()
		return err
	}
	defer in.Close()

	var rd io.Reader = in
	if config.Remux.TsDumpFilename != "" {
		df := base.NewDumpFile()
		if err := df.OpenToWrite(config.Remux.TsDumpFilename); err != nil {
			nazalog.Errorf("open ts dump file failed. filename=%s, err=%+v", config.Remux.TsDumpFilename, err)
		} else {
			defer df.Close()
			rd = mpegts.NewDumpReader(in, df)
		}
	}

	// 正常结束和ctx取消时，Run内部已经调用了Dispose
	err = remuxer.Run(ctx, rd)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		err = nil
	case errors.Is(err, srtgo.EConnLost):
		nazalog.Warnf("srt connection lost, treat as end of input.")
		remuxer.Dispose()
		err = nil
	default:
		remuxer.Dispose()
	}
	nazalog.Infof("mhasremux done. %s", s.StatString())
	return err
}

// mhasSink 把access unit写入.mhas以及.ts文件
type mhasSink struct {
	pid    uint16
	hasPid bool

	mhasFile *mpegts.FileWriter
	tsFile   *mpegts.FileWriter
	muxer    *remux.AvPacket2MpegtsRemuxer

	auCount      int
	keyCount     int
	droppedCount int
}

func newMhasSink(mhasOutput, tsOutput string) (*mhasSink, error) {
	s := &mhasSink{}
	if mhasOutput != "" {
		s.mhasFile = &mpegts.FileWriter{}
		if err := s.mhasFile.Create(mhasOutput); err != nil {
			return nil, err
		}
	}
	if tsOutput != "" {
		s.tsFile = &mpegts.FileWriter{}
		if err := s.tsFile.Create(tsOutput); err != nil {
			s.Dispose()
			return nil, err
		}
		s.muxer = remux.NewAvPacket2MpegtsRemuxer(s)
	}
	return s, nil
}

func (s *mhasSink) onFormat(pid uint16, format mpegh.Format) {
	nazalog.Infof("format. pid=%d, %s", pid, format.DebugString())
	if !s.hasPid {
		s.pid = pid
		s.hasPid = true
	}
	if pid != s.pid {
		return
	}
	if s.muxer != nil {
		s.muxer.WithFormat(format)
	}
}

func (s *mhasSink) onAvPacket(pid uint16, pkt base.AvPacket) {
	if !s.hasPid || pid != s.pid {
		s.droppedCount++
		return
	}
	s.auCount++
	if pkt.Key {
		s.keyCount++
	}
	if s.mhasFile != nil {
		if err := s.mhasFile.Write(pkt.Payload); err != nil {
			nazalog.Errorf("write mhas file failed. err=%+v", err)
		}
	}
	if s.muxer != nil {
		s.muxer.FeedAvPacket(pkt)
	}
}

func (s *mhasSink) OnPatPmt(b []byte) {
	s.writeTs(b)
}

func (s *mhasSink) OnTsPackets(tsPackets []byte, frame *mpegts.Frame, boundary bool) {
	s.writeTs(tsPackets)
}

func (s *mhasSink) writeTs(b []byte) {
	if err := s.tsFile.Write(b); err != nil {
		nazalog.Errorf("write ts file failed. err=%+v", err)
	}
}

func (s *mhasSink) StatString() string {
	return fmt.Sprintf("pid=%d, au=%d, key=%d, dropped=%d", s.pid, s.auCount, s.keyCount, s.droppedCount)
}

func (s *mhasSink) Dispose() {
	if s.mhasFile != nil {
		_ = s.mhasFile.Dispose()
	}
	if s.tsFile != nil {
		_ = s.tsFile.Dispose()
	}
}

func parseFlag() flagItems {
	binInfoFlag := flag.Bool("v", false, "show bin info")
	cf := flag.String("c", "", "specify conf file, optional")
	i := flag.String("i", "", "specify input, mpegts file or srt url")
	o := flag.String("o", "", "specify output mhas file")
	t := flag.String("t", "", "specify output ts file")
	flag.Parse()

	base.PrintBinInfoAndExitIfNeeded(*binInfoFlag)

	return flagItems{
		confFile:   *cf,
		input:      *i,
		mhasOutput: *o,
		tsOutput:   *t,
	}
}

func loadConf(items flagItems) *Config {
	config, err := LoadConf(base.WrapReadConfigFile(items.confFile))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load conf failed. file=%s err=%+v\n", items.confFile, err)
		base.OsExitAndWaitPressIfWindows(1)
	}

	// 命令行参数优先
	if items.input != "" {
		config.Input = items.input
	}
	if items.mhasOutput != "" {
		config.MhasOutput = items.mhasOutput
	}
	if items.tsOutput != "" {
		config.TsOutput = items.tsOutput
	}

	if config.Input == "" || (config.MhasOutput == "" && config.TsOutput == "") {
		base.UsageWithExample(`  ./bin/mhasremux -i /tmp/in.ts -o /tmp/out.mhas
  ./bin/mhasremux -i /tmp/in.ts -o /tmp/out.mhas -t /tmp/out.ts
  ./bin/mhasremux -i "srt://127.0.0.1:6001?streamid=#!::r=live/test,m=request" -t /tmp/out.ts
  ./bin/mhasremux -i /tmp/record.mhasdump -o /tmp/out.mhas
  ./bin/mhasremux -c ./conf/mhasremux.conf.json
`)
	}
	return config
}

func initLog(opt nazalog.Option) {
	if err := nazalog.Init(func(option *nazalog.Option) {
		*option = opt
	}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "initial log failed. err=%+v\n", err)
		base.OsExitAndWaitPressIfWindows(1)
	}
	nazalog.Info("initial log succ.")
}

// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package remux

import (
	"errors"
	"io"

	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
)

// base.DumpTypeMpegtsPes 消息的Body格式:
//
//   pid   [2B]
//   flags [4B]
//   ptsUs [8B] 补码，base.TimeUnset 原样保存
//   data  [...]
//
const pesDumpHeaderSize = 14

func PackPesDump(pid uint16, ptsUs int64, flags int, data []byte) []byte {
	out := make([]byte, pesDumpHeaderSize+len(data))
	bele.BePutUint16(out, pid)
	bele.BePutUint32(out[2:], uint32(flags))
	bele.BePutUint64(out[6:], uint64(ptsUs))
	copy(out[pesDumpHeaderSize:], data)
	return out
}

// UnpackPesDump
//
// @return data: 引用`b`的内存块
func UnpackPesDump(b []byte) (pid uint16, ptsUs int64, flags int, data []byte, err error) {
	if len(b) < pesDumpHeaderSize {
		err = base.NewErrMpegtsShortBuffer(pesDumpHeaderSize, len(b))
		return
	}
	pid = bele.BeUint16(b)
	flags = int(bele.BeUint32(b[2:]))
	ptsUs = int64(bele.BeUint64(b[6:]))
	data = b[pesDumpHeaderSize:]
	return
}

// FeedDumpFile 重放 Mpegts2MhasRemuxerOption.DumpFilename 录制的PES，用于线下排查问题
//
// 文件中的PID自动添加，码流格式错误只打印日志，继续重放
//
// @return 重放结束时返回nil，注意，内部不调用 Dispose
func (r *Mpegts2MhasRemuxer) FeedDumpFile(filename string) error {
	df := base.NewDumpFile()
	if err := df.OpenToRead(filename); err != nil {
		return err
	}
	defer df.Close()

	for {
		m, err := df.ReadOneMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if m.Typ != base.DumpTypeMpegtsPes {
			Log.Warnf("[%s] skip dump message. %s", r.UniqueKey, m.DebugString())
			continue
		}
		pid, ptsUs, flags, data, err := UnpackPesDump(m.Body)
		if err != nil {
			return err
		}
		r.AddPid(pid)
		_ = r.FeedPes(pid, ptsUs, flags, data)
	}
}

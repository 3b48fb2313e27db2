// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"errors"
	"io"

	"github.com/q191201771/lalmpegh/pkg/base"
)

// DumpReader 透传读取到的原始TS数据，同时按 base.DumpTypeMpegtsData 录制到dump文件
//
// 用于录制srt等网络输入，之后可以使用 ReadDumpFileData 取出，离线分析
type DumpReader struct {
	r  io.Reader
	df *base.DumpFile
}

func NewDumpReader(r io.Reader, df *base.DumpFile) *DumpReader {
	return &DumpReader{
		r:  r,
		df: df,
	}
}

func (d *DumpReader) Read(b []byte) (int, error) {
	n, err := d.r.Read(b)
	if n > 0 {
		if werr := d.df.WriteWithType(b[:n], base.DumpTypeMpegtsData); werr != nil {
			Log.Warnf("write dump file failed. err=%+v", werr)
		}
	}
	return n, err
}

// ReadDumpFileData 读取dump文件中所有 base.DumpTypeMpegtsData 消息，按顺序拼接
//
// 其他类型的消息被跳过
func ReadDumpFileData(filename string) ([]byte, error) {
	df := base.NewDumpFile()
	if err := df.OpenToRead(filename); err != nil {
		return nil, err
	}
	defer df.Close()

	var out []byte
	for {
		m, err := df.ReadOneMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		if m.Typ != base.DumpTypeMpegtsData {
			continue
		}
		out = append(out, m.Body...)
	}
}

// Copyright 2019, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)


package mpegts

import (
	"net"
	"os"

	"github.com/q191201771/lalmpegh/pkg/base"
)

const fileWriterMergeSize = 64 * PacketSize

// FileWriter TS文件以及MHAS裸流文件的写入
//
// 小块数据先由 base.MergeWriter 合并，达到阈值后再写入文件。写文件失败后，后续的 Write 以及 Dispose 都返回该错误
type FileWriter struct {
	fp  *os.File
	mw  *base.MergeWriter
	err error
}

func (fw *FileWriter) Create(filename string) (err error) {
	fw.fp, err = os.Create(filename)
	if err != nil {
		return
	}
	fw.err = nil
	fw.mw = base.NewMergeWriter(fw.onWritev, fileWriterMergeSize)
	return
}

// Write
//
// 注意，`b`在写入文件之前被内部持有，调用方不能修改
func (fw *FileWriter) Write(b []byte) (err error) {
	if fw.fp == nil {
		return base.ErrMpegts
	}
	if fw.err != nil {
		return fw.err
	}
	fw.mw.Write(b)
	return fw.err
}

func (fw *FileWriter) Dispose() error {
	if fw.fp == nil {
		return base.ErrMpegts
	}
	fw.mw.Flush()
	err := fw.fp.Close()
	if fw.err != nil {
		return fw.err
	}
	return err
}

func (fw *FileWriter) Name() string {
	if fw.fp == nil {
		return ""
	}
	return fw.fp.Name()
}

func (fw *FileWriter) onWritev(bs net.Buffers) {
	if fw.err != nil {
		return
	}
	_, fw.err = bs.WriteTo(fw.fp)
}

// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"net"
)

// MergeWriter 合并多个内存块，达到阈值后一次性将内存块数组返回给上层
//
// 比如每个TS packet只有188字节，合并之后再写文件
//
// 注意，输入时的单个内存块，回调时不会出现拆分切割的情况
type MergeWriter struct {
	onWritev OnWritev
	size     int

	currSize int
	bs       net.Buffers
}

type OnWritev func(bs net.Buffers)

// NewMergeWriter
//
// @param onWritev: 回调缓存的1~n个内存块
// @param size:     回调阈值，字节
func NewMergeWriter(onWritev OnWritev, size int) *MergeWriter {
	return &MergeWriter{
		onWritev: onWritev,
		size:     size,
	}
}

// Write
//
// 注意，函数调用结束后，`b`内存块会被内部持有，直到下次回调
func (w *MergeWriter) Write(b []byte) {
	w.bs = append(w.bs, b)
	w.currSize += len(b)
	if w.currSize >= w.size {
		w.flush()
	}
}

// Flush 强制将内部缓冲的数据全部回调排空
func (w *MergeWriter) Flush() {
	if w.currSize > 0 {
		w.flush()
	}
}

// Size 当前缓存的字节数
func (w *MergeWriter) Size() int {
	return w.currSize
}

func (w *MergeWriter) flush() {
	Log.Tracef("[%p] MergeWriter::flush. num=%d, len=%d", w, len(w.bs), w.currSize)
	w.onWritev(w.bs)
	w.currSize = 0
	w.bs = nil
}

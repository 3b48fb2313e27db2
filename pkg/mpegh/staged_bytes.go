// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegh

// stagedBytes 一块带读写位置的内存
//
// 包头暂存区会被读两次: 第一次按最大包头长度整体解析包头，第二次把包头之后多读的部分当作payload继续输出，
// 所以和输入数据使用同一种结构，统一用 pos 和 limit 来记账
type stagedBytes struct {
	data  []byte
	pos   int
	limit int
}

func newStagedBytes(capacity int) stagedBytes {
	return stagedBytes{
		data:  make([]byte, capacity),
		limit: capacity,
	}
}

// wrapStagedBytes 不拷贝，直接引用`b`
func wrapStagedBytes(b []byte) stagedBytes {
	return stagedBytes{
		data:  b,
		limit: len(b),
	}
}

func (s *stagedBytes) bytesLeft() int {
	return s.limit - s.pos
}

// unread 读位置之后、limit之前的数据
func (s *stagedBytes) unread() []byte {
	return s.data[s.pos:s.limit]
}

// reset 容量至少为`n`，并且 pos 归零，limit 设置为`n`
func (s *stagedBytes) reset(n int) {
	if cap(s.data) < n {
		s.data = make([]byte, n)
	}
	s.data = s.data[:cap(s.data)]
	s.pos = 0
	s.limit = n
}

// take 读出`n`字节，返回的内存块引用内部数据
func (s *stagedBytes) take(n int) []byte {
	b := s.data[s.pos : s.pos+n]
	s.pos += n
	return b
}

// compact 把未读数据移动到头部，并把写位置设置到未读数据之后
//
// 用于包头暂存区，此时 limit 固定为容量
func (s *stagedBytes) compact() {
	n := copy(s.data, s.data[s.pos:s.limit])
	s.pos = n
}

// continueRead 从`source`读取数据追加到`target`，直到`target`的位置达到`targetLength`
//
// @return 是否已经达到`targetLength`
func continueRead(source, target *stagedBytes, targetLength int) bool {
	n := copy(target.data[target.pos:targetLength], source.unread())
	source.pos += n
	target.pos += n
	return target.pos == targetLength
}

// copyData 和 continueRead 相同，但是不移动`source`的读位置
func copyData(source, target *stagedBytes, targetLength int) {
	n := copy(target.data[target.pos:targetLength], source.unread())
	target.pos += n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

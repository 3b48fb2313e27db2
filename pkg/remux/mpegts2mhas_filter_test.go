// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package remux

import (
	"testing"

	"github.com/q191201771/naza/pkg/assert"
)

type qo struct {
	poped []pesItem
}

func (q *qo) onPop(item pesItem) {
	q.poped = append(q.poped, item)
}

func TestMpegts2MhasFilter(t *testing.T) {
	goldenItems := []pesItem{
		{pid: 0x101, ptsUs: 0, flags: 7, data: []byte{0xC0, 0x01, 0xA5}},
		{pid: 0x100, ptsUs: 100, flags: 1, data: []byte{0x00, 0x00, 0x01}},
		{pid: 0x101, ptsUs: 200, flags: 5, data: []byte{0x08}},
	}

	q := &qo{}
	f := newMpegts2MhasFilter(8, q)
	for i := range goldenItems {
		f.Push(goldenItems[i])
	}
	assert.Equal(t, 0, len(q.poped))
	assert.Equal(t, false, f.Done())

	// 缓存的是拷贝
	goldenItems[0].data[0] = 0xFF

	f.Drain()
	assert.Equal(t, true, f.Done())
	assert.Equal(t, 3, len(q.poped))
	assert.Equal(t, []byte{0xC0, 0x01, 0xA5}, q.poped[0].data)
	assert.Equal(t, goldenItems[1], q.poped[1])
	assert.Equal(t, goldenItems[2], q.poped[2])

	// 直进直出
	item := pesItem{pid: 0x101, ptsUs: 300, flags: 5, data: []byte{0x09}}
	f.Push(item)
	assert.Equal(t, 4, len(q.poped))
	assert.Equal(t, item, q.poped[3])

	f.Drain()
	assert.Equal(t, 4, len(q.poped))
}

func TestMpegts2MhasFilter_Limit(t *testing.T) {
	q := &qo{}
	f := newMpegts2MhasFilter(2, q)
	for i := 0; i < 5; i++ {
		f.Push(pesItem{pid: 0x101, ptsUs: int64(i), data: []byte{uint8(i)}})
	}
	f.Drain()
	assert.Equal(t, 2, len(q.poped))
	assert.Equal(t, int64(3), q.poped[0].ptsUs)
	assert.Equal(t, int64(4), q.poped[1].ptsUs)
}

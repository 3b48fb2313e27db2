// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package remux

// pesItem 一个完整的PES payload，以及从TS packet、PES header中得到的信息
type pesItem struct {
	pid   uint16
	ptsUs int64
	flags int
	data  []byte
}

type iMpegts2MhasFilterObserver interface {
	onPop(item pesItem)
}

// mpegts2MhasFilter
//
// 缓存PMT之前的PES。收到PMT之后才知道哪些PID是MPEG-H流，此时将缓存按顺序吐出
//
// 一旦收到PMT，该队列变成直进直出，不再有实际缓存
type mpegts2MhasFilter struct {
	maxPesNum int
	data      []pesItem
	observer  iMpegts2MhasFilterObserver

	done bool
}

// newMpegts2MhasFilter
//
// @param maxPesNum: 最大缓存多少个PES，超过时丢弃最早的
func newMpegts2MhasFilter(maxPesNum int, observer iMpegts2MhasFilterObserver) *mpegts2MhasFilter {
	return &mpegts2MhasFilter{
		maxPesNum: maxPesNum,
		data:      make([]pesItem, 0, maxPesNum),
		observer:  observer,
		done:      false,
	}
}

// Push
//
// @param item: item.data 函数调用结束后，内部不持有该内存块
func (q *mpegts2MhasFilter) Push(item pesItem) {
	if q.done {
		q.observer.onPop(item)
		return
	}

	if len(q.data) >= q.maxPesNum {
		Log.Warnf("pes before pmt exceeds limit, drop. pid=%d, size=%d", q.data[0].pid, len(q.data[0].data))
		q.data = q.data[1:]
	}

	data := make([]byte, len(item.data))
	copy(data, item.data)
	item.data = data
	q.data = append(q.data, item)
}

// Drain 收到PMT时调用
func (q *mpegts2MhasFilter) Drain() {
	if q.done {
		return
	}
	q.done = true

	for i := range q.data {
		q.observer.onPop(q.data[i])
	}
	q.data = nil
}

func (q *mpegts2MhasFilter) Done() bool {
	return q.done
}

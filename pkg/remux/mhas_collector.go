// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package remux

import (
	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/lalmpegh/pkg/mpegh"
	"github.com/q191201771/naza/pkg/nazabytes"
)

// MhasAccessUnitCollector 实现 mpegh.IMhasReaderObserver
//
// 把reader分多次输出的字节拼接成完整的access unit，以 base.AvPacket 的形式回调
//
// base.AvPacket 各字段含义:
//   PayloadType: base.AvPacketPtMpeghMhm1
//   Timestamp:   毫秒
//   Pts:         微秒
//   Key:         access unit包含MPEGH3DACFG
//   Payload:     若干个完整的MHAS包
type MhasAccessUnitCollector struct {
	UniqueKey string

	onFormat   func(format mpegh.Format)
	onAvPacket func(pkt base.AvPacket)

	buf *nazabytes.Buffer
}

var _ mpegh.IMhasReaderObserver = &MhasAccessUnitCollector{}

func NewMhasAccessUnitCollector(onFormat func(format mpegh.Format), onAvPacket func(pkt base.AvPacket)) *MhasAccessUnitCollector {
	return &MhasAccessUnitCollector{
		UniqueKey:  base.GenUkMhasCollector(),
		onFormat:   onFormat,
		onAvPacket: onAvPacket,
		buf:        nazabytes.NewBuffer(4096),
	}
}

func (c *MhasAccessUnitCollector) OnFormat(format mpegh.Format) {
	Log.Infof("[%s] format. %s", c.UniqueKey, format.DebugString())
	if c.onFormat != nil {
		c.onFormat(format)
	}
}

func (c *MhasAccessUnitCollector) OnSampleData(b []byte) {
	c.buf.Write(b)
}

func (c *MhasAccessUnitCollector) OnSampleMetadata(timeUs int64, flags int, size int) {
	if size != c.buf.Len() {
		Log.Warnf("[%s] access unit size mismatch. size=%d, buffered=%d", c.UniqueKey, size, c.buf.Len())
	}

	payload := make([]byte, c.buf.Len())
	copy(payload, c.buf.Bytes())
	c.buf.Reset()

	pkt := base.AvPacket{
		PayloadType: base.AvPacketPtMpeghMhm1,
		Timestamp:   timeUs / 1000,
		Pts:         timeUs,
		Key:         flags&mpegh.SampleFlagKeyFrame != 0,
		Payload:     payload,
	}
	if c.onAvPacket != nil {
		c.onAvPacket(pkt)
	}
}

// Reset 丢弃未完成的access unit，和 mpegh.MhasReader.Seek 配合使用
func (c *MhasAccessUnitCollector) Reset() {
	c.buf.Reset()
}

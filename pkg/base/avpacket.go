// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "fmt"

type AvPacketPt int

const (
	AvPacketPtUnknown   AvPacketPt = -1
	AvPacketPtMpeghMhm1 AvPacketPt = 0x2d // 与mpegts中MHAS主流的stream type取值一致
)

// AvPacket 一个完整的access unit
//
// 不同场景使用时，字段含义可能不同，使用AvPacket的地方，应注明各字段的含义。
type AvPacket struct {
	PayloadType AvPacketPt
	Timestamp   int64 // 毫秒
	Pts         int64 // 微秒，保留MHAS reader输出的精度
	Key         bool

	// MHAS格式，也即若干个完整的MHAS包(包头+payload)，最后一个为MPEGH3DAFRAME
	Payload []byte
}

func (a AvPacketPt) ReadableString() string {
	switch a {
	case AvPacketPtUnknown:
		return "unknown"
	case AvPacketPtMpeghMhm1:
		return "mhm1"
	}
	return ""
}

func (packet AvPacket) DebugString() string {
	return fmt.Sprintf("type=%s, timestamp=%d, pts=%d, key=%t, len=%d, payload=%s",
		packet.PayloadType.ReadableString(), packet.Timestamp, packet.Pts, packet.Key, len(packet.Payload), HexPrefix(packet.Payload, 8))
}

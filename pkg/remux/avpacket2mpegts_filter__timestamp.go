// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package remux

import (
	"math"

	"github.com/q191201771/lalmpegh/pkg/mpegts"
)

// MpegtsTimestampFilter 将音频帧的时间戳转换为从零开始的时间戳
//
// MHAS没有B帧，dts和pts相同
type MpegtsTimestampFilter struct {
	uk string

	basicPts uint64
}

func (f *MpegtsTimestampFilter) Init(uk string) {
	f.uk = uk
	f.basicPts = math.MaxUint64
}

// Do
//
// @param frame: 直接修改frame中的dts和pts。小于第一帧的时间戳被修改为0
func (f *MpegtsTimestampFilter) Do(frame *mpegts.Frame) {
	if f.basicPts == math.MaxUint64 {
		f.basicPts = frame.Pts
	}
	if frame.Pts < f.basicPts {
		Log.Warnf("[%s] pts invalid. pts=%d, base=%d, frame=%s", f.uk, frame.Pts, f.basicPts, frame.DebugString())
		frame.Pts = 0
	} else {
		frame.Pts -= f.basicPts
	}
	frame.Dts = frame.Pts
}

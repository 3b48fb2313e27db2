// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package remux

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

// Pts90kToUs 90kHz时间戳转换为微秒
func Pts90kToUs(pts int64) int64 {
	return pts * 100 / 9
}

// UsToPts90k 微秒转换为90kHz时间戳
func UsToPts90k(us int64) uint64 {
	if us < 0 {
		return 0
	}
	return uint64(us) * 9 / 100
}

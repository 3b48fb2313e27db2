// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"math"

	"github.com/q191201771/naza/pkg/nazalog"
)

var Log = nazalog.GetGlobalLogger()

// ----- time --------------------
const (
	// TimeUnset 时间戳未设置，比如PES中不携带PTS
	TimeUnset int64 = math.MinInt64

	MicrosPerSecond = 1000000
)

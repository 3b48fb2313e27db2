// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package remux

import (
	"testing"

	"github.com/q191201771/lalmpegh/pkg/mpegts"
	"github.com/q191201771/naza/pkg/assert"
)

func TestMpegtsTimestampFilter_Do(t *testing.T) {
	var f MpegtsTimestampFilter
	f.Init("test")
	in := []*mpegts.Frame{
		{Sid: mpegts.StreamIdAudio, Dts: 1920, Pts: 1920},
		{Sid: mpegts.StreamIdAudio, Dts: 3840, Pts: 3840},
		{Sid: mpegts.StreamIdAudio, Dts: 0, Pts: 5760},
		{Sid: mpegts.StreamIdAudio, Dts: 960, Pts: 960},
		{Sid: mpegts.StreamIdAudio, Dts: 7680, Pts: 7680},
	}
	expected := []uint64{0, 1920, 3840, 0, 5760}

	for i := range in {
		f.Do(in[i])
		assert.Equal(t, expected[i], in[i].Pts)
		assert.Equal(t, expected[i], in[i].Dts)
	}
}

// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegh

import (
	"errors"
	"testing"

	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/naza/pkg/assert"
)

func TestGenMhasAccessUnits(t *testing.T) {
	aus, err := GenMhasAccessUnits(10, func(option *MhasGeneratorOption) {
		option.ConfigInterval = 3
		option.FramePayloadSize = 40
		option.LastFrameTruncation = 200
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, 10, len(aus))

	var stream []byte
	for i, au := range aus {
		assert.Equal(t, base.AvPacketPtMpeghMhm1, au.PayloadType)
		assert.Equal(t, i%3 == 0, au.Key)
		assert.Equal(t, int64(i)*1024*1000000/48000, au.Pts)
		assert.Equal(t, PackMhasSyncPacket(), au.Payload[:MhasSyncWordLength])
		stream = append(stream, au.Payload...)
	}

	r, rec := newRecordedReader()
	feed(t, r, 0, FlagRandomAccessIndicator|FlagDataAlignmentIndicator, stream, wholeSlice)

	assert.Equal(t, 1, len(rec.formats))
	assert.Equal(t, "mhm1.0D", rec.formats[0].Codecs)
	assert.Equal(t, stream, rec.data)
	assert.Equal(t, len(aus), len(rec.metas))
	for i, au := range aus {
		assert.Equal(t, len(au.Payload), rec.metas[i].size)
		if au.Key {
			assert.Equal(t, SampleFlagKeyFrame, rec.metas[i].flags)
		} else {
			assert.Equal(t, 0, rec.metas[i].flags)
		}
	}
	assert.Equal(t, int64(0), rec.metas[0].timeUs)
}

func TestGenMhasAccessUnits_Invalid(t *testing.T) {
	_, err := GenMhasAccessUnits(1, func(option *MhasGeneratorOption) {
		option.FramePayloadSize = 0
	})
	assert.Equal(t, true, errors.Is(err, base.ErrMpeghUnsupported))

	_, err = GenMhasAccessUnits(1, func(option *MhasGeneratorOption) {
		option.SamplingRate = 12345
	})
	assert.Equal(t, true, errors.Is(err, base.ErrMpeghUnsupported))
}

// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegh

import "github.com/q191201771/lalmpegh/pkg/base"

// MhasGeneratorOption 生成测试用的MHAS流，frame的payload为填充数据，不能解码
type MhasGeneratorOption struct {
	SamplingRate           int
	FrameLength            int
	ProfileLevelIndication int
	Label                  uint64

	// ConfigInterval 每隔多少个access unit插入一次MPEGH3DACFG，小于等于0时只有第一个access unit携带
	ConfigInterval int

	FramePayloadSize int

	// LastFrameTruncation 大于0时，最后一个access unit携带AUDIOTRUNCATION，从尾部截掉的sample数
	LastFrameTruncation int
}

var defaultMhasGeneratorOption = MhasGeneratorOption{
	SamplingRate:           48000,
	FrameLength:            1024,
	ProfileLevelIndication: 0x0D,
	Label:                  1,
	ConfigInterval:         16,
	FramePayloadSize:       256,
	LastFrameTruncation:    0,
}

type ModMhasGeneratorOption func(option *MhasGeneratorOption)

// GenMhasAccessUnits
//
// 每个access unit的格式为: SYNC [MPEGH3DACFG] [AUDIOTRUNCATION] MPEGH3DAFRAME
//
// @return 各字段含义见 base.AvPacket ，Pts从0开始
func GenMhasAccessUnits(frameNum int, modOptions ...ModMhasGeneratorOption) ([]base.AvPacket, error) {
	option := defaultMhasGeneratorOption
	for _, fn := range modOptions {
		fn(&option)
	}
	if option.FramePayloadSize < 1 {
		return nil, base.NewErrMpeghUnsupported("invalid frame payload size. size=%d", option.FramePayloadSize)
	}

	config := Mpegh3daConfig{
		ProfileLevelIndication: option.ProfileLevelIndication,
		SamplingFrequency:      option.SamplingRate,
		StandardFrameSamples:   option.FrameLength,
	}
	configPayload, err := config.Pack()
	if err != nil {
		return nil, err
	}
	sync := PackMhasSyncPacket()
	configPacket := PackMhasPacket(PacTypMpegh3daCfg, option.Label, configPayload)

	out := make([]base.AvPacket, 0, frameNum)
	for i := 0; i < frameNum; i++ {
		key := i == 0 || (option.ConfigInterval > 0 && i%option.ConfigInterval == 0)

		var payload []byte
		payload = append(payload, sync...)
		if key {
			payload = append(payload, configPacket...)
		}
		if i == frameNum-1 && option.LastFrameTruncation > 0 {
			payload = append(payload, PackMhasPacket(PacTypAudioTruncation, option.Label,
				PackAudioTruncationInfo(true, false, option.LastFrameTruncation))...)
		}
		payload = append(payload, PackMhasPacket(PacTypMpegh3daFrame, option.Label, fillerPayload(option.FramePayloadSize, i))...)

		pts := int64(i) * int64(option.FrameLength) * base.MicrosPerSecond / int64(option.SamplingRate)
		out = append(out, base.AvPacket{
			PayloadType: base.AvPacketPtMpeghMhm1,
			Timestamp:   pts / 1000,
			Pts:         pts,
			Key:         key,
			Payload:     payload,
		})
	}
	return out, nil
}

func fillerPayload(n int, seed int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = uint8(i*7 + seed)
	}
	return b
}

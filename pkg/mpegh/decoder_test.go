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
	"github.com/q191201771/naza/pkg/nazabits"
)

func decodeHeader(b []byte) (MhasPacketHeader, error) {
	br := nazabits.NewBitReader(b)
	return DefaultMhasBitstreamDecoder.DecodeHeader(&br)
}

func decodeConfig(b []byte) (Mpegh3daConfig, error) {
	br := nazabits.NewBitReader(b)
	return DefaultMhasBitstreamDecoder.DecodeConfig(&br)
}

func TestEscapedValue(t *testing.T) {
	golden := []struct {
		nBits1, nBits2, nBits3 uint
		v                      uint64
		bits                   uint
	}{
		{3, 8, 8, 0, 3},
		{3, 8, 8, 6, 3},
		{3, 8, 8, 7, 11},
		{3, 8, 8, 7 + 254, 11},
		{3, 8, 8, 7 + 255, 19},
		{3, 8, 8, 7 + 255 + 255, 19},
		{2, 8, 32, 2, 2},
		{2, 8, 32, 3, 10},
		{2, 8, 32, 3 + 255 + 100000, 42},
		{11, 24, 24, 2046, 11},
		{11, 24, 24, 2047, 35},
		{11, 24, 24, 2047 + 16777215 + 1, 59},
		{8, 16, 0, 255 + 65535, 24},
	}
	for _, item := range golden {
		s := newBitSink(16)
		s.writeEscapedValue(item.v, item.nBits1, item.nBits2, item.nBits3)
		assert.Equal(t, item.bits, s.written)

		br := nazabits.NewBitReader(s.buf)
		c := newBitCursor(&br)
		v, err := c.readEscapedValue(item.nBits1, item.nBits2, item.nBits3)
		assert.Equal(t, nil, err)
		assert.Equal(t, item.v, v)
		assert.Equal(t, item.bits, c.bitsRead())
	}
}

func TestDecodeHeader(t *testing.T) {
	// 同步字本身就是一个完整的SYNC包
	h, err := decodeHeader([]byte{0xC0, 0x01, 0xA5})
	assert.Equal(t, nil, err)
	assert.Equal(t, MhasPacketHeader{PacketType: PacTypSync, PacketLabel: 0, PacketLength: 1, HeaderLength: 2}, h)
	assert.Equal(t, []byte{0xC0, 0x01, 0xA5}, PackMhasSyncPacket())

	golden := []struct {
		packetType   MhasPacketType
		label        uint64
		length       int
		headerLength int
	}{
		{PacTypMpegh3daCfg, 1, 20, 2},
		{PacTypMpegh3daFrame, 1, 2046, 2},
		{PacTypMpegh3daFrame, 2, 2047, 5},
		{PacTypMpegh3daFrame, 16, 5000, 6},
		{PacTypAudioTruncation, 3, 2, 3},
		{PacTypLoudness, 0, 0, 3},
		{MhasPacketType(300), 16, 2047 + 16777215 + 1, 11},
	}
	for _, item := range golden {
		b := PackMhasPacketHeader(item.packetType, item.label, item.length)
		assert.Equal(t, item.headerLength, len(b))

		// reader中总是按最大包头长度解析，后面跟着payload
		padded := make([]byte, MaxMhasPacketHeaderSize)
		copy(padded, b)
		h, err := decodeHeader(padded)
		assert.Equal(t, nil, err)
		assert.Equal(t, item.packetType, h.PacketType)
		assert.Equal(t, item.label, h.PacketLabel)
		assert.Equal(t, item.length, h.PacketLength)
		assert.Equal(t, item.headerLength, h.HeaderLength)
	}
}

func TestDecodeHeader_InvalidLabel(t *testing.T) {
	_, err := decodeHeader(PackMhasPacketHeader(PacTypMpegh3daFrame, 17, 10))
	assert.Equal(t, true, errors.Is(err, base.ErrMpeghUnsupported))

	for _, typ := range []MhasPacketType{PacTypMpegh3daCfg, PacTypMpegh3daFrame, PacTypAudioTruncation} {
		_, err = decodeHeader(PackMhasPacketHeader(typ, 0, 10))
		assert.Equal(t, true, errors.Is(err, base.ErrMpegh))
	}

	// 其他类型允许label为0
	_, err = decodeHeader(PackMhasPacketHeader(PacTypFillData, 0, 10))
	assert.Equal(t, nil, err)

	// 长度不够
	_, err = decodeHeader([]byte{0xE0})
	assert.Equal(t, true, errors.Is(err, base.ErrMpegh))
}

func TestDecodeConfig(t *testing.T) {
	golden := []Mpegh3daConfig{
		{ProfileLevelIndication: 0x0D, SamplingFrequency: 48000, StandardFrameSamples: 1024},
		{ProfileLevelIndication: 0x0B, SamplingFrequency: 44100, StandardFrameSamples: 768},
		{ProfileLevelIndication: 0x0D, SamplingFrequency: 96000, StandardFrameSamples: 4096},
		{ProfileLevelIndication: 0x0C, SamplingFrequency: 48000, StandardFrameSamples: 2048},
		{ProfileLevelIndication: 0x0D, SamplingFrequency: 48000, StandardFrameSamples: 1024, CompatibleProfileLevelSet: []byte{0x0B, 0x0C}},
		{ProfileLevelIndication: 0x0D, SamplingFrequency: 48000, StandardFrameSamples: 1024,
			CompatibleProfileLevelSet: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}},
	}
	for _, item := range golden {
		b, err := item.Pack()
		assert.Equal(t, nil, err)
		config, err := decodeConfig(b)
		assert.Equal(t, nil, err)
		assert.Equal(t, item, config)
	}

	config := Mpegh3daConfig{ProfileLevelIndication: 0x0D, SamplingFrequency: 48000, StandardFrameSamples: 1000}
	_, err := config.Pack()
	assert.Equal(t, true, errors.Is(err, base.ErrMpeghUnsupported))
}

func TestDecodeConfig_ResamplingRatio(t *testing.T) {
	golden := []struct {
		usacSamplingFrequencyIndex int
		usacSamplingFrequency      int
		coreSbrFrameLengthIndex    int
		samplingFrequency          int
		standardFrameSamples       int
	}{
		{3, 0, 1, 48000, 1024}, // 48000 x1
		{5, 0, 1, 48000, 1536}, // 32000 x1.5
		{2, 0, 0, 96000, 1152}, // 64000 x1.5
		{6, 0, 1, 48000, 2048}, // 24000 x2
		{7, 0, 3, 44100, 4096}, // 22050 x2
		{8, 0, 1, 48000, 3072}, // 16000 x3
		{0x1f, 44100, 1, 44100, 1024},
		{0x1f, 58800, 1, 88200, 1536},
	}
	for _, item := range golden {
		b, err := packMpegh3daConfig(0x0D, item.usacSamplingFrequencyIndex, item.usacSamplingFrequency, item.coreSbrFrameLengthIndex, nil)
		assert.Equal(t, nil, err)
		config, err := decodeConfig(b)
		assert.Equal(t, nil, err)
		assert.Equal(t, item.samplingFrequency, config.SamplingFrequency)
		assert.Equal(t, item.standardFrameSamples, config.StandardFrameSamples)
	}
}

func TestDecodeConfig_Unsupported(t *testing.T) {
	golden := []struct {
		usacSamplingFrequencyIndex int
		usacSamplingFrequency      int
		coreSbrFrameLengthIndex    int
	}{
		{9, 0, 1},        // 12000 没有对应的resampling ratio
		{13, 0, 1},       // 保留
		{3, 0, 5},        // coreSbrFrameLengthIndex 保留
		{0x1f, 12345, 1}, // 自定义采样率
	}
	for _, item := range golden {
		b, err := packMpegh3daConfig(0x0D, item.usacSamplingFrequencyIndex, item.usacSamplingFrequency, item.coreSbrFrameLengthIndex, nil)
		assert.Equal(t, nil, err)
		_, err = decodeConfig(b)
		assert.Equal(t, true, errors.Is(err, base.ErrMpeghUnsupported))
	}

	// 截断
	config := Mpegh3daConfig{ProfileLevelIndication: 0x0D, SamplingFrequency: 48000, StandardFrameSamples: 1024, CompatibleProfileLevelSet: []byte{0x0B}}
	b, err := config.Pack()
	assert.Equal(t, nil, err)
	_, err = decodeConfig(b[:len(b)-2])
	assert.Equal(t, true, errors.Is(err, base.ErrMpegh))
}

// 手工构造包含flexible speaker config、SCE/CPE/EXT/LFE元素以及多个扩展的mpegh3daConfig
func TestDecodeConfig_Full(t *testing.T) {
	s := newBitSink(128)
	s.writeBits(8, 0x0E)
	s.writeBits(5, 4) // 44100
	s.writeBits(3, 1) // 1024
	s.writeBits(2, 0)

	// SpeakerConfig3d: flexible，3个扬声器
	s.writeBits(2, 2)
	s.writeEscapedValue(2, 5, 8, 16)
	s.writeFlag(false) // angularPrecision
	// speaker 0: CICP
	s.writeFlag(true)
	s.writeBits(7, 3)
	// speaker 1: elevationClass=3 elevation=10度 azimuth=30度，并且添加对称的speaker 2
	s.writeFlag(false)
	s.writeBits(2, 3)
	s.writeBits(5, 2)
	s.writeFlag(true)
	s.writeBits(6, 6)
	s.writeFlag(false)
	s.writeFlag(false) // isLFE
	s.writeFlag(true)  // alsoAddSymmetricPair

	// Signals3d: 2个group，第一个为channels，并且布局与参考布局不同
	s.writeBits(5, 1)
	s.writeBits(3, 0)
	s.writeEscapedValue(1, 5, 8, 16)
	s.writeFlag(true)
	s.writeBits(2, 1)
	s.writeEscapedValue(1, 5, 8, 16)
	s.writeBits(14, 0)
	// 第二个为object
	s.writeBits(3, 1)
	s.writeEscapedValue(40, 5, 8, 16)

	// mpegh3daDecoderConfig: SCE, EXT, CPE, LFE
	s.writeEscapedValue(3, 4, 8, 16)
	s.writeFlag(false)
	// SCE, enhancedNoiseFilling
	s.writeBits(2, usacElementTypeSce)
	s.writeBits(3, 0)
	s.writeFlag(true)
	s.writeBits(13, 0x1FFF)
	// EXT
	s.writeBits(2, usacElementTypeExt)
	s.writeEscapedValue(5, 4, 8, 16)
	s.writeEscapedValue(2, 4, 8, 16)
	s.writeFlag(true)
	s.writeEscapedValue(3, 8, 16, 0)
	s.writeFlag(false)
	s.writeBits(16, 0xFFFF)
	// CPE, qceIndex=1, 两个shiftIndex都存在，信号数为43，所以nBits=6
	s.writeBits(2, usacElementTypeCpe)
	s.writeBits(4, 0)
	s.writeBits(2, 1)
	s.writeFlag(true)
	s.writeBits(6, 0x3F)
	s.writeFlag(true)
	s.writeBits(6, 0x3F)
	// LFE
	s.writeBits(2, 2)

	// mpegh3daConfigExtension: 2个扩展，第一个跳过
	s.writeFlag(true)
	s.writeEscapedValue(1, 2, 4, 8)
	s.writeEscapedValue(3, 4, 8, 16)
	s.writeEscapedValue(2, 4, 8, 16)
	s.writeBits(16, 0xABCD)
	s.writeEscapedValue(configExtTypeCompatibleProfileLevelSet, 4, 8, 16)
	s.writeEscapedValue(4, 4, 8, 16)
	s.writeBits(4, 2)
	s.writeBits(4, 0)
	s.writeBits(8, 0x0B)
	s.writeBits(8, 0x0C)
	s.writeBits(8, 0x0D)

	config, err := decodeConfig(s.bytes())
	assert.Equal(t, nil, err)
	assert.Equal(t, Mpegh3daConfig{
		ProfileLevelIndication:    0x0E,
		SamplingFrequency:         44100,
		StandardFrameSamples:      1024,
		CompatibleProfileLevelSet: []byte{0x0B, 0x0C, 0x0D},
	}, config)
	assert.Equal(t, "mhm1.0E", config.Codecs())
}

func TestDecodeTruncation(t *testing.T) {
	br := nazabits.NewBitReader(PackAudioTruncationInfo(true, false, 100))
	n, err := DefaultMhasBitstreamDecoder.DecodeTruncation(&br)
	assert.Equal(t, nil, err)
	assert.Equal(t, 100, n)

	br = nazabits.NewBitReader(PackAudioTruncationInfo(true, true, 0x1FFF))
	n, err = DefaultMhasBitstreamDecoder.DecodeTruncation(&br)
	assert.Equal(t, nil, err)
	assert.Equal(t, 0x1FFF, n)

	br = nazabits.NewBitReader(PackAudioTruncationInfo(false, false, 100))
	n, err = DefaultMhasBitstreamDecoder.DecodeTruncation(&br)
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, n)

	br = nazabits.NewBitReader([]byte{0x80})
	_, err = DefaultMhasBitstreamDecoder.DecodeTruncation(&br)
	assert.Equal(t, true, errors.Is(err, base.ErrMpegh))
}

func TestMpegh3daConfig_Codecs(t *testing.T) {
	assert.Equal(t, "mhm1", Mpegh3daConfig{ProfileLevelIndication: -1}.Codecs())
	assert.Equal(t, "mhm1.00", Mpegh3daConfig{ProfileLevelIndication: 0}.Codecs())
	assert.Equal(t, "mhm1.0D", Mpegh3daConfig{ProfileLevelIndication: 0x0D}.Codecs())
}

func TestProfileLevelIndicationOfCodecs(t *testing.T) {
	pli, ok := ProfileLevelIndicationOfCodecs("mhm1.0D")
	assert.Equal(t, true, ok)
	assert.Equal(t, 0x0D, pli)

	pli, ok = ProfileLevelIndicationOfCodecs(Mpegh3daConfig{ProfileLevelIndication: 0x11}.Codecs())
	assert.Equal(t, true, ok)
	assert.Equal(t, 0x11, pli)

	_, ok = ProfileLevelIndicationOfCodecs("mhm1")
	assert.Equal(t, false, ok)
	_, ok = ProfileLevelIndicationOfCodecs("mhm1.XY")
	assert.Equal(t, false, ok)
	_, ok = ProfileLevelIndicationOfCodecs("mp4a.40.2")
	assert.Equal(t, false, ok)
}

// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegh

import (
	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/naza/pkg/nazabits"
)

// 与 decoder.go 对应的打包函数，用于生成测试流以及单元测试
//
// 生成的mpegh3daConfig只使用最小的布局：
// CICP参考布局(stereo)，一个包含2个信号的channel signal group，一个CPE元素，可选的CompatibleProfileLevelSet扩展

const maxPackedConfigSize = 64

// PackMhasPacketHeader
//
// @return 内存块为独立新申请
func PackMhasPacketHeader(packetType MhasPacketType, packetLabel uint64, packetLength int) []byte {
	s := newBitSink(MaxMhasPacketHeaderSize)
	s.writeEscapedValue(uint64(packetType), 3, 8, 8)
	s.writeEscapedValue(packetLabel, 2, 8, 32)
	s.writeEscapedValue(uint64(packetLength), 11, 24, 24)
	return s.bytes()
}

// PackMhasPacket 包头+payload
func PackMhasPacket(packetType MhasPacketType, packetLabel uint64, payload []byte) []byte {
	h := PackMhasPacketHeader(packetType, packetLabel, len(payload))
	out := make([]byte, len(h)+len(payload))
	copy(out, h)
	copy(out[len(h):], payload)
	return out
}

// PackMhasSyncPacket 也即3字节的同步字
func PackMhasSyncPacket() []byte {
	return PackMhasPacket(PacTypSync, 0, []byte{MhasSyncPayload})
}

// PackAudioTruncationInfo
//
// @param nTruncSamples: 低13位有效
func PackAudioTruncationInfo(isActive bool, truncFromBegin bool, nTruncSamples int) []byte {
	s := newBitSink(2)
	s.writeFlag(isActive)
	s.writeBits(1, 0)
	s.writeFlag(truncFromBegin)
	s.writeBits(13, uint32(nTruncSamples)&0x1FFF)
	return s.bytes()
}

// Pack 根据 SamplingFrequency 和 StandardFrameSamples 反查usacSamplingFrequencyIndex以及coreSbrFrameLengthIndex
//
// 优先选择resampling ratio为1的组合
//
// @return 内存块为独立新申请
func (c *Mpegh3daConfig) Pack() ([]byte, error) {
	for index, usacSamplingFrequency := range usacSamplingFrequencyTable {
		if usacSamplingFrequency < 0 {
			continue
		}
		ratio, err := resamplingRatioOf(usacSamplingFrequency)
		if err != nil || int(float64(usacSamplingFrequency)*ratio) != c.SamplingFrequency {
			continue
		}
		for _, coreSbrFrameLengthIndex := range []int{1, 0, 2, 4} {
			outputFrameLength, _ := outputFrameLengthOfIndex(coreSbrFrameLengthIndex)
			if int(float64(outputFrameLength)*ratio) == c.StandardFrameSamples {
				return packMpegh3daConfig(c.ProfileLevelIndication, index, 0, coreSbrFrameLengthIndex, c.CompatibleProfileLevelSet)
			}
		}
	}
	return nil, base.NewErrMpeghUnsupported("no matching sampling frequency and frame length. rate=%d, samples=%d",
		c.SamplingFrequency, c.StandardFrameSamples)
}

// packMpegh3daConfig
//
// @param usacSamplingFrequency: 仅当 usacSamplingFrequencyIndex 为0x1f时有效
func packMpegh3daConfig(profileLevelIndication int, usacSamplingFrequencyIndex int, usacSamplingFrequency int,
	coreSbrFrameLengthIndex int, compatibleProfileLevelSet []byte) ([]byte, error) {

	if len(compatibleProfileLevelSet) > 16 {
		return nil, base.NewErrMpeghUnsupported("too many compatible sets. num=%d", len(compatibleProfileLevelSet))
	}
	if profileLevelIndication < 0 {
		profileLevelIndication = 0
	}

	s := newBitSink(maxPackedConfigSize)
	s.writeBits(8, uint32(profileLevelIndication))
	s.writeBits(5, uint32(usacSamplingFrequencyIndex))
	if usacSamplingFrequencyIndex == 0x1f {
		s.writeBits(24, uint32(usacSamplingFrequency))
	}
	s.writeBits(3, uint32(coreSbrFrameLengthIndex))
	// cfg_reserved, receiverDelayCompensation
	s.writeBits(2, 0)

	// SpeakerConfig3d: speakerLayoutType=0, CICPspeakerLayoutIdx=2
	s.writeBits(2, 0)
	s.writeBits(6, 2)

	// Signals3d: 1个channel group，2个信号，与参考布局一致
	s.writeBits(5, 0)
	s.writeBits(3, signalGroupTypeChannels)
	s.writeEscapedValue(1, 5, 8, 16)
	s.writeFlag(false)

	// mpegh3daDecoderConfig: 1个CPE
	s.writeEscapedValue(0, 4, 8, 16)
	s.writeFlag(false)
	s.writeBits(2, usacElementTypeCpe)
	// mpegh3daCoreConfig, enhancedNoiseFilling=0
	s.writeBits(4, 0)
	sbrRatioIndex := sbrRatioIndexOfIndex(coreSbrFrameLengthIndex)
	if sbrRatioIndex > 0 {
		// SbrConfig，无dflt_header_extra
		s.writeBits(13, 0)
		// stereoConfigIndex
		s.writeBits(2, 0)
	}
	// qceIndex, shiftIndex1
	s.writeBits(2, 0)
	s.writeFlag(false)
	if sbrRatioIndex == 0 {
		// lpdStereoIndex
		s.writeFlag(false)
	}

	// mpegh3daConfigExtension
	if len(compatibleProfileLevelSet) == 0 {
		s.writeFlag(false)
		return s.bytes(), nil
	}
	s.writeFlag(true)
	s.writeEscapedValue(0, 2, 4, 8)
	s.writeEscapedValue(configExtTypeCompatibleProfileLevelSet, 4, 8, 16)
	s.writeEscapedValue(uint64(1+len(compatibleProfileLevelSet)), 4, 8, 16)
	s.writeBits(4, uint32(len(compatibleProfileLevelSet)-1))
	s.writeBits(4, 0)
	for _, b := range compatibleProfileLevelSet {
		s.writeBits(8, uint32(b))
	}
	return s.bytes(), nil
}

// ----- bitSink -------------------------------------------------------------------------------------------------------

// bitSink 在 nazabits.BitWriter 的基础上统计写入的bit数，最终按字节向上取整截断
type bitSink struct {
	buf     []byte
	bw      nazabits.BitWriter
	written uint
}

func newBitSink(capacity int) *bitSink {
	buf := make([]byte, capacity)
	return &bitSink{
		buf: buf,
		bw:  nazabits.NewBitWriter(buf),
	}
}

func (s *bitSink) writeBits(n uint, v uint32) {
	for n > 0 {
		m := n
		if m > 16 {
			m = 16
		}
		n -= m
		s.bw.WriteBits16(m, uint16((v>>n)&(1<<m-1)))
		s.written += m
	}
}

func (s *bitSink) writeFlag(b bool) {
	if b {
		s.writeBits(1, 1)
	} else {
		s.writeBits(1, 0)
	}
}

// writeEscapedValue 与 bitCursor.readEscapedValue 对应
func (s *bitSink) writeEscapedValue(v uint64, nBits1, nBits2, nBits3 uint) {
	max1 := uint64(1)<<nBits1 - 1
	if v < max1 {
		s.writeBits(nBits1, uint32(v))
		return
	}
	s.writeBits(nBits1, uint32(max1))
	v -= max1

	max2 := uint64(1)<<nBits2 - 1
	if v < max2 || nBits3 == 0 {
		s.writeBits(nBits2, uint32(v))
		return
	}
	s.writeBits(nBits2, uint32(max2))
	s.writeBits(nBits3, uint32(v-max2))
}

func (s *bitSink) bytes() []byte {
	return s.buf[:(s.written+7)/8]
}

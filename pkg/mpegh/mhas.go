// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegh

import "fmt"

// MHAS(MPEG-H 3D Audio Stream)
// keywords: mhm1, mpegh3daConfig, mpegh3daFrame
// e.g. mpegts stream_type=0x2d
//
// <ISO_IEC_23008-3.pdf>
// <14.2 Syntax>, <Table 219 - Syntax of MHASPacketInfo()>
// ------------------------------------------------------
// MHASPacketType   escapedValue(3, 8, 8)
// MHASPacketLabel  escapedValue(2, 8, 32)
// MHASPacketLength escapedValue(11, 24, 24)
// MHASPacketPayload(MHASPacketType) [MHASPacketLength bytes]

const (
	// MaxMhasPacketHeaderSize 包头三个字段都使用最长的escapedValue编码时的字节数: (3+8+8)+(2+8+32)+(11+24+24) = 120 bits
	MaxMhasPacketHeaderSize = 15

	// MhasSyncWordLength PACTYP_SYNC包(type=6, label=0, length=1, payload=0xA5)整体作为同步字
	MhasSyncWordLength = 3

	MhasSyncWord     = 0xC001A5
	MhasSyncWordMask = 0xFFFFFF

	// MhasSyncPayload PACTYP_SYNC包的payload
	MhasSyncPayload = 0xA5

	// MaxMhasPacketLabel 超过该值的label属于不支持的子流
	MaxMhasPacketLabel = 0x10
)

// MhasPacketType
//
// <ISO_IEC_23008-3.pdf> <Table 220 - Value of MHASPacketType>
type MhasPacketType uint32

const (
	PacTypFillData        MhasPacketType = 0
	PacTypMpegh3daCfg     MhasPacketType = 1
	PacTypMpegh3daFrame   MhasPacketType = 2
	PacTypAudioSceneInfo  MhasPacketType = 3
	PacTypSync            MhasPacketType = 6
	PacTypSyncGap         MhasPacketType = 7
	PacTypMarker          MhasPacketType = 8
	PacTypCrc16           MhasPacketType = 9
	PacTypCrc32           MhasPacketType = 10
	PacTypDescriptor      MhasPacketType = 11
	PacTypUserInteraction MhasPacketType = 12
	PacTypLoudnessDrc     MhasPacketType = 13
	PacTypBufferInfo      MhasPacketType = 14
	PacTypGlobalCrc16     MhasPacketType = 15
	PacTypGlobalCrc32     MhasPacketType = 16
	PacTypAudioTruncation MhasPacketType = 17
	PacTypGenData         MhasPacketType = 18
	PacTypEarcon          MhasPacketType = 19
	PacTypPcmConfig       MhasPacketType = 20
	PacTypPcmData         MhasPacketType = 21
	PacTypLoudness        MhasPacketType = 22
)

var mhasPacketTypeMapping = map[MhasPacketType]string{
	PacTypFillData:        "FILLDATA",
	PacTypMpegh3daCfg:     "MPEGH3DACFG",
	PacTypMpegh3daFrame:   "MPEGH3DAFRAME",
	PacTypAudioSceneInfo:  "AUDIOSCENEINFO",
	PacTypSync:            "SYNC",
	PacTypSyncGap:         "SYNCGAP",
	PacTypMarker:          "MARKER",
	PacTypCrc16:           "CRC16",
	PacTypCrc32:           "CRC32",
	PacTypDescriptor:      "DESCRIPTOR",
	PacTypUserInteraction: "USERINTERACTION",
	PacTypLoudnessDrc:     "LOUDNESS_DRC",
	PacTypBufferInfo:      "BUFFERINFO",
	PacTypGlobalCrc16:     "GLOBAL_CRC16",
	PacTypGlobalCrc32:     "GLOBAL_CRC32",
	PacTypAudioTruncation: "AUDIOTRUNCATION",
	PacTypGenData:         "GENDATA",
	PacTypEarcon:          "EARCON",
	PacTypPcmConfig:       "PCMCONFIG",
	PacTypPcmData:         "PCMDATA",
	PacTypLoudness:        "LOUDNESS",
}

func (t MhasPacketType) ReadableString() string {
	s, ok := mhasPacketTypeMapping[t]
	if !ok {
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
	return s
}

// MhasPacketKind reader关心的包类型，其他类型的包只透传
type MhasPacketKind int

const (
	MhasPacketKindOther MhasPacketKind = iota
	MhasPacketKindConfig
	MhasPacketKindAudioTruncation
	MhasPacketKindAudioFrame
)

func (t MhasPacketType) Kind() MhasPacketKind {
	switch t {
	case PacTypMpegh3daCfg:
		return MhasPacketKindConfig
	case PacTypAudioTruncation:
		return MhasPacketKindAudioTruncation
	case PacTypMpegh3daFrame:
		return MhasPacketKindAudioFrame
	}
	return MhasPacketKindOther
}

// needsPayloadScratch payload需要完整缓存后才能解析
func (k MhasPacketKind) needsPayloadScratch() bool {
	return k == MhasPacketKindConfig || k == MhasPacketKindAudioTruncation
}

type MhasPacketHeader struct {
	PacketType   MhasPacketType
	PacketLabel  uint64
	PacketLength int // payload的长度，不包含包头
	HeaderLength int // 包头自身的长度
}

func (h MhasPacketHeader) DebugString() string {
	return fmt.Sprintf("type=%s, label=%d, length=%d, headerLength=%d",
		h.PacketType.ReadableString(), h.PacketLabel, h.PacketLength, h.HeaderLength)
}

// IsMhasSyncWord
//
// @param word: 低24位有效
func IsMhasSyncWord(word uint32) bool {
	return word&MhasSyncWordMask == MhasSyncWord
}

// ----- reader flags --------------------------------------------------------------------------------------------------

// 由上层的容器解析(比如mpegts的PES以及adaptation field)得到，通过 MhasReader.PacketStarted 传入
const (
	FlagPayloadUnitStartIndicator = 1
	FlagRandomAccessIndicator     = 2
	FlagDataAlignmentIndicator    = 4
)

// 通过 IMhasReaderObserver.OnSampleMetadata 传出
const (
	SampleFlagKeyFrame = 1
)

// ----- output format -------------------------------------------------------------------------------------------------

const (
	MimeTypeAudioMpeghMhm1 = "audio/mhm1"
	CodecsMhm1             = "mhm1"
)

type Format struct {
	Id             string
	SampleMimeType string
	SampleRate     int
	Codecs         string // e.g. mhm1.0D

	// 为nil，或者为两个元素，第一个元素为空(为audio specific config预留)，第二个元素为CompatibleProfileLevelSet
	InitializationData [][]byte
}

func (f Format) DebugString() string {
	return fmt.Sprintf("id=%s, mime=%s, rate=%d, codecs=%s, init=%d",
		f.Id, f.SampleMimeType, f.SampleRate, f.Codecs, len(f.InitializationData))
}

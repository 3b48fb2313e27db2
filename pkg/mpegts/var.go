// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

// 只打包、解析包含一路MPEG-H音频的单节目TS流
const (
	PacketSize = 188

	syncByte uint8 = 0x47

	PidPat   uint16 = 0
	PidPmt   uint16 = 0x1001
	PidAudio uint16 = 0x101

	ProgramNumber uint16 = 1

	TableIdPas uint8 = 0x00 // program_association_section
	TableIdPms uint8 = 0x02 // TS_program_map_section
)

// <iso13818-1.pdf> <Table 2-34 - Stream type assignments>
const (
	StreamTypeMpeghMain uint8 = 0x2d // ISO/IEC 23008-3 Audio with MHAS transport syntax - main stream
	StreamTypeMpeghAux  uint8 = 0x2e // ISO/IEC 23008-3 Audio with MHAS transport syntax - auxiliary stream
)

const (
	StreamIdAudio uint8 = 0xc0
)

// <iso13818-1.pdf> <Table 2-45 - Program and program element descriptors>
// <Table 2-103bis - Extension descriptor tag values>
const (
	DescriptorTagExtension             uint8 = 0x3f
	DescriptorTagExtensionMpegh3dAudio uint8 = 0x08
)

// delay PCR比PTS提前的量，单位(毫秒*90)
const delay uint64 = 700 * 90

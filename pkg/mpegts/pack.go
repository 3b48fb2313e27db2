// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import "fmt"

// Frame 一个MHAS access unit，用于打包成mpegts格式的数据
type Frame struct {
	Pts uint64 // =(毫秒 * 90)，写入PES时会加上 delay
	Dts uint64 // 音频和Pts相同
	Cc  uint8  // continuity_counter of TS Header

	// PID of TS Header, mpegts.PidAudio
	Pid uint16

	// stream_id of PES Header, mpegts.StreamIdAudio
	Sid uint8

	// 包含MPEGH3DACFG的access unit为true，打包时在adaptation中设置random_access_indicator
	Key bool

	// 若干个完整的MHAS包
	Raw []byte
}

func (frame *Frame) DebugString() string {
	return fmt.Sprintf("pts=%d, dts=%d, cc=%d, pid=%d, sid=%d, key=%t, len=%d",
		frame.Pts, frame.Dts, frame.Cc, frame.Pid, frame.Sid, frame.Key, len(frame.Raw))
}

// Pack 将frame切割成多个TS packet
//
// 每个frame对应一个PES，PES header中设置data_alignment_indicator
//
// 注意，内部会增加 Frame.Cc 的值.
//
// @return: 内存块为独立申请，调用结束后，内部不再持有
func (frame *Frame) Pack() []byte {
	// 预估packet个数，首个packet头部最多占用 4+8+19 字节
	n := (len(frame.Raw)+31)/(PacketSize-4) + 1
	buf := make([]byte, n*PacketSize)

	lpos := 0              // 当前输入帧的处理位置
	rpos := len(frame.Raw) // 当前输入帧大小
	first := true          // 是否为帧的首个packet
	packetPosAtBuf := 0    // 当前输出packet相对于整个输出内存块的位置

	for lpos != rpos {
		if packetPosAtBuf+PacketSize > len(buf) {
			Log.Warnf("buffer too short. frame size=%d, buf=%d, packetPosAtBuf=%d", len(frame.Raw), len(buf), packetPosAtBuf)
			newBuf := make([]byte, packetPosAtBuf+PacketSize)
			copy(newBuf, buf)
			buf = newBuf
		}

		packet := buf[packetPosAtBuf : packetPosAtBuf+PacketSize]
		packetPosAtBuf += PacketSize

		frame.Cc++
		wpos := frame.writeTsHeader(packet, first)

		if first {
			if frame.Key {
				wpos += frame.writeKeyAdaptation(packet)
			}
			wpos += frame.writePesHeader(packet[wpos:], rpos)
			first = false
		}

		bodySize := PacketSize - wpos // 当前TS packet，可写入大小
		inSize := rpos - lpos         // 整个帧剩余待打包大小

		if bodySize <= inSize {
			copy(packet[wpos:], frame.Raw[lpos:lpos+bodySize])
			lpos += bodySize
			continue
		}

		// 最后一个packet写不满，在adaptation中填充0xFF，数据挪到packet尾部
		wpos = stuff(packet, wpos, bodySize-inSize)
		copy(packet[wpos:], frame.Raw[lpos:])
		lpos = rpos
	}

	return buf[:packetPosAtBuf]
}

// -----TS Header----------------
// sync_byte
// transport_error_indicator    0
// payload_unit_start_indicator
// transport_priority           0
// PID
// transport_scrambling_control 0
// adaptation_field_control     先设置成无adaptation
// continuity_counter
// ------------------------------
func (frame *Frame) writeTsHeader(packet []byte, first bool) int {
	packet[0] = syncByte
	packet[1] = 0x0
	if first {
		packet[1] = 0x40
	}
	packet[1] |= uint8((frame.Pid >> 8) & 0x1F)
	packet[2] = uint8(frame.Pid & 0xFF)
	packet[3] = 0x10 | (frame.Cc & 0x0f)
	return 4
}

// -----Adaptation-----------------------
// adaptation_field_length
// discontinuity_indicator              0
// random_access_indicator              1
// elementary_stream_priority_indicator 0
// PCR_flag                             1
// OPCR_flag                            0
// splicing_point_flag                  0
// transport_private_data_flag          0
// adaptation_field_extension_flag      0
// program_clock_reference_base
// reserved
// program_clock_reference_extension
// --------------------------------------
func (frame *Frame) writeKeyAdaptation(packet []byte) int {
	packet[3] |= 0x20
	packet[4] = 7
	packet[5] = 0x50
	packPcr(packet[6:], frame.Dts)
	return 8
}

// -----PES Header------------
// packet_start_code_prefix
// stream_id
// PES_packet_length
// '10'
// PES_scrambling_control    0
// PES_priority              0
// data_alignment_indicator  1
// copyright                 0
// original_or_copy          0
// PTS_DTS_flags
// ESCR_flag                 0
// ES_rate_flag              0
// DSM_trick_mode_flag       0
// additional_copy_info_flag 0
// PES_CRC_flag              0
// PES_extension_flag        0
// PES_header_data_length
// ---------------------------
func (frame *Frame) writePesHeader(out []byte, rawSize int) int {
	out[0] = 0x00
	out[1] = 0x00
	out[2] = 0x01
	out[3] = frame.Sid

	headerSize := uint8(5)
	flags := uint8(0x80)
	if frame.Dts != frame.Pts {
		headerSize += 5
		flags |= 0x40
	}

	// PES Header剩余3字节 + PTS/DTS长度 + 整个帧的长度
	pesSize := rawSize + int(headerSize) + 3
	if pesSize > 0xFFFF {
		pesSize = 0
	}
	out[4] = uint8(pesSize >> 8)
	out[5] = uint8(pesSize & 0xFF)
	out[6] = 0x84
	out[7] = flags
	out[8] = headerSize

	packPts(out[9:], flags>>6, frame.Pts+delay)
	if flags&0x40 != 0 {
		packPts(out[14:], 1, frame.Dts+delay)
	}
	return 9 + int(headerSize)
}

// ----- private -------------------------------------------------------------------------------------------------------

// stuff 在TS header之后插入(或扩展)adaptation，把已写入的头部数据后移stuffSize字节
//
// @return 新的写入位置
func stuff(packet []byte, wpos int, stuffSize int) int {
	if packet[3]&0x20 != 0 {
		// 已有adaptation，比如关键帧
		base := int(4 + 1 + packet[4])
		if wpos > base {
			copy(packet[base+stuffSize:], packet[base:wpos])
		}
		packet[4] += uint8(stuffSize)
		for i := 0; i < stuffSize; i++ {
			packet[base+i] = 0xFF
		}
		return wpos + stuffSize
	}

	packet[3] |= 0x20
	if wpos > 4 {
		copy(packet[4+stuffSize:], packet[4:wpos])
	}
	// 只需要1字节时，adaptation_field_length为0
	packet[4] = uint8(stuffSize - 1)
	if stuffSize >= 2 {
		packet[5] = 0
		for i := 0; i < stuffSize-2; i++ {
			packet[6+i] = 0xFF
		}
	}
	return wpos + stuffSize
}

func packPcr(out []byte, pcr uint64) {
	out[0] = uint8(pcr >> 25)
	out[1] = uint8(pcr >> 17)
	out[2] = uint8(pcr >> 9)
	out[3] = uint8(pcr >> 1)
	out[4] = uint8(pcr<<7) | 0x7e
	out[5] = 0
}

// 注意，除PTS外，DTS也使用这个函数打包
func packPts(out []byte, fb uint8, pts uint64) {
	var val uint64
	out[0] = (fb << 4) | (uint8(pts>>30) & 0x07) | 1

	val = (((pts >> 15) & 0x7FFF) << 1) | 1
	out[1] = uint8(val >> 8)
	out[2] = uint8(val)

	val = ((pts & 0x7FFF) << 1) | 1
	out[3] = uint8(val >> 8)
	out[4] = uint8(val)
}

// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

// CRC-32/MPEG-2: poly 0x04C11DB7，不反转输入输出，初始值0xFFFFFFFF，结果不取反
//
// 注意，hash/crc32只支持反转形式的多项式，所以这里自己生成表

var crc32Table [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		c := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if c&0x80000000 != 0 {
				c = (c << 1) ^ 0x04C11DB7
			} else {
				c <<= 1
			}
		}
		crc32Table[i] = c
	}
}

// CalcCrc32
//
// @param crc: 首次调用传入0xFFFFFFFF
func CalcCrc32(crc uint32, buffer []byte) uint32 {
	for _, b := range buffer {
		crc = (crc << 8) ^ crc32Table[byte(crc>>24)^b]
	}
	return crc
}

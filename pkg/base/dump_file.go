// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/q191201771/naza/pkg/bele"
)

// DumpFile 录制输入数据，用于线下重放排查问题
//
// 每条消息的格式:
//
//   Ver       [4B]
//   Typ       [4B]
//   Len       [4B]
//   Timestamp [4B] 写入时的unix时间，秒
//   Body      [Len]
//
type DumpFile struct {
	file *os.File
	br   *bufio.Reader
}

const (
	dumpFileVersion = 1

	dumpFileMessageHeaderSize = 16
)

const (
	DumpTypeDefault    uint32 = 1
	DumpTypeMpegtsPes  uint32 = 2 // Body的格式见 remux.PackPesDump
	DumpTypeMpegtsData uint32 = 3 // Body为原始的TS数据，见 mpegts.DumpReader
)

type DumpFileMessage struct {
	Ver       uint32
	Typ       uint32
	Len       uint32
	Timestamp uint32
	Body      []byte
}

func NewDumpFile() *DumpFile {
	return &DumpFile{}
}

func (d *DumpFile) OpenToWrite(filename string) (err error) {
	dir := filepath.Dir(filename)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	d.file, err = os.Create(filename)
	return
}

func (d *DumpFile) OpenToRead(filename string) (err error) {
	d.file, err = os.Open(filename)
	if err != nil {
		return err
	}
	d.br = bufio.NewReader(d.file)
	return nil
}

func (d *DumpFile) Write(b []byte) error {
	return d.WriteWithType(b, DumpTypeDefault)
}

func (d *DumpFile) WriteWithType(b []byte, typ uint32) error {
	if d.file == nil {
		return ErrFileNotExist
	}
	_, err := d.file.Write(d.pack(b, typ))
	return err
}

// ReadOneMessage
//
// @return err: 读取结束时返回io.EOF，最后一条消息不完整时返回io.ErrUnexpectedEOF
func (d *DumpFile) ReadOneMessage() (m DumpFileMessage, err error) {
	if d.br == nil {
		return m, ErrFileNotExist
	}

	header := make([]byte, dumpFileMessageHeaderSize)
	if _, err = io.ReadFull(d.br, header); err != nil {
		return
	}
	m.Ver = bele.BeUint32(header)
	m.Typ = bele.BeUint32(header[4:])
	m.Len = bele.BeUint32(header[8:])
	m.Timestamp = bele.BeUint32(header[12:])
	if m.Ver != dumpFileVersion {
		return m, fmt.Errorf("%w. invalid dump file version. ver=%d", ErrDumpFile, m.Ver)
	}

	m.Body = make([]byte, m.Len)
	if _, err = io.ReadFull(d.br, m.Body); err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return
}

func (d *DumpFile) Close() error {
	if d.file == nil {
		return nil
	}
	return d.file.Close()
}

// ---------------------------------------------------------------------------------------------------------------------

func (m *DumpFileMessage) DebugString() string {
	return fmt.Sprintf("ver: %d, typ: %d, len: %d, timestamp: %d, hex: %s",
		m.Ver, m.Typ, m.Len, m.Timestamp, HexPrefix(m.Body, 16))
}

// ---------------------------------------------------------------------------------------------------------------------

func (d *DumpFile) pack(b []byte, typ uint32) []byte {
	ret := make([]byte, len(b)+dumpFileMessageHeaderSize)
	bele.BePutUint32(ret, dumpFileVersion)
	bele.BePutUint32(ret[4:], typ)
	bele.BePutUint32(ret[8:], uint32(len(b)))
	bele.BePutUint32(ret[12:], uint32(time.Now().Unix()))
	copy(ret[16:], b)
	return ret
}

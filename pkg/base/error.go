// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"errors"
	"fmt"
)

// ----- 通用的 ---------------------------------------------------------------------------------------------------------

var (
	ErrShortBuffer  = errors.New("lal: buffer too short")
	ErrFileNotExist = errors.New("lal: file not exist")
	ErrDumpFile     = errors.New("lal: malformed dump file")
	ErrInvalidUrl   = errors.New("lal.base: invalid url")
)

// ----- pkg/mpegh -----------------------------------------------------------------------------------------------------

var (
	// ErrMpegh 码流格式错误，包括MHAS包头、mpegh3daConfig、AudioTruncationInfo解析失败
	ErrMpegh = errors.New("lal.mpegh: malformed mhas bitstream")

	// ErrMpeghUnsupported 码流合法，但是包含了不支持的特性，比如采样率、子流label
	ErrMpeghUnsupported = errors.New("lal.mpegh: unsupported mhas feature")

	// ErrMpeghNotBound 调用 Consume 之前没有绑定 observer
	ErrMpeghNotBound = errors.New("lal.mpegh: reader has no observer bound")
)

func NewErrMpegh(format string, v ...interface{}) error {
	return fmt.Errorf("%w. %s", ErrMpegh, fmt.Sprintf(format, v...))
}

func NewErrMpeghUnsupported(format string, v ...interface{}) error {
	return fmt.Errorf("%w. %s", ErrMpeghUnsupported, fmt.Sprintf(format, v...))
}

// ----- pkg/mpegts ----------------------------------------------------------------------------------------------------

var ErrMpegts = errors.New("lal.mpegts: fxxk")

func NewErrMpegts(format string, v ...interface{}) error {
	return fmt.Errorf("%w. %s", ErrMpegts, fmt.Sprintf(format, v...))
}

func NewErrMpegtsShortBuffer(need, actual int) error {
	return fmt.Errorf("%w. need=%d, actual=%d", ErrShortBuffer, need, actual)
}

// ----- pkg/remux -----------------------------------------------------------------------------------------------------

var (
	ErrRemux = errors.New("lal.remux: fxxk")

	ErrRemuxUnknownPid = errors.New("lal.remux: pid is not a mpeg-h stream")
)

func NewErrRemuxUnknownPid(pid uint16) error {
	return fmt.Errorf("%w. pid=%d", ErrRemuxUnknownPid, pid)
}

// ---------------------------------------------------------------------------------------------------------------------

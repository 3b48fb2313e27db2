// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "github.com/q191201771/naza/pkg/unique"

const (
	UkPreMhasReader      = "MHASREADER"
	UkPreMpegts2Mhas     = "TS2MHAS"
	UkPreMhasCollector   = "MHASCOLLECTOR"
	UkPreMpegtsMhasMuxer = "MHAS2TS"
)

func GenUkMhasReader() string {
	return siUkMhasReader.GenUniqueKey()
}

func GenUkMpegts2Mhas() string {
	return siUkMpegts2Mhas.GenUniqueKey()
}

func GenUkMhasCollector() string {
	return siUkMhasCollector.GenUniqueKey()
}

func GenUkMpegtsMhasMuxer() string {
	return siUkMpegtsMhasMuxer.GenUniqueKey()
}

var (
	siUkMhasReader      *unique.SingleGenerator
	siUkMpegts2Mhas     *unique.SingleGenerator
	siUkMhasCollector   *unique.SingleGenerator
	siUkMpegtsMhasMuxer *unique.SingleGenerator
)

func init() {
	siUkMhasReader = unique.NewSingleGenerator(UkPreMhasReader)
	siUkMpegts2Mhas = unique.NewSingleGenerator(UkPreMpegts2Mhas)
	siUkMhasCollector = unique.NewSingleGenerator(UkPreMhasCollector)
	siUkMpegtsMhasMuxer = unique.NewSingleGenerator(UkPreMpegtsMhasMuxer)
}

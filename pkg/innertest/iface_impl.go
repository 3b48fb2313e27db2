// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package innertest

import (
	"github.com/q191201771/lalmpegh/pkg/mpegh"
	"github.com/q191201771/lalmpegh/pkg/remux"
)

// | 接口                                  | 实现                             | 使用方                        |
// | -                                     | -                                | -                             |
// | mpegh.IMhasReaderObserver             | remux.MhasAccessUnitCollector    | remux.Mpegts2MhasRemuxer      |
// | mpegh.IMhasBitstreamDecoder           | mpegh.MhasBitstreamDecoder       | mpegh.MhasReader              |
// | remux.IAvPacket2MpegtsRemuxerObserver | 上层，比如写文件                 | remux.AvPacket2MpegtsRemuxer  |

var (
	_ mpegh.IMhasReaderObserver   = &remux.MhasAccessUnitCollector{}
	_ mpegh.IMhasBitstreamDecoder = mpegh.MhasBitstreamDecoder{}
	_ mpegh.IMhasBitstreamDecoder = mpegh.DefaultMhasBitstreamDecoder

	_ remux.IAvPacket2MpegtsRemuxerObserver = &tsSink{}
)

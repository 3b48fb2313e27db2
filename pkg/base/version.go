// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

// 版本信息相关
// 一部分版本信息使用了naza.bininfo，另外一些信息在本文件提供，并打入可执行文件以及日志中

// LalMpeghVersion 版本，该变量由外部脚本修改维护
const LalMpeghVersion = "v0.1.0"

var (
	LalMpeghLibraryName = "lalmpegh"
	LalMpeghGithubRepo  = "github.com/q191201771/lalmpegh"
	LalMpeghGithubSite  = "https://github.com/q191201771/lalmpegh"

	// LalMpeghFullInfo e.g. lalmpegh v0.1.0 (github.com/q191201771/lalmpegh)
	LalMpeghFullInfo = LalMpeghLibraryName + " " + LalMpeghVersion + " (" + LalMpeghGithubRepo + ")"
)

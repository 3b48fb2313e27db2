// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

// Package base 提供被其他多个package依赖的基础内容，自身不依赖任何同项目package
package base

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/q191201771/naza/pkg/bininfo"
)

var startTime string

var readableTimeLayout = "2006-01-02 15:04:05.999 Z0700 MST"

// ReadableNowTime 当前时间，可读字符串形式
func ReadableNowTime() string {
	return time.Now().Format(readableTimeLayout)
}

func GetWd() string {
	dir, _ := os.Getwd()
	return dir
}

func LogoutStartInfo() {
	Log.Infof("     start: %s", startTime)
	Log.Infof("        wd: %s", GetWd())
	Log.Infof("      args: %s", strings.Join(os.Args, " "))
	Log.Infof("   bininfo: %s", bininfo.StringifySingleLine())
	Log.Infof("   version: %s", LalMpeghFullInfo)
	Log.Infof("    github: %s", LalMpeghGithubSite)
}

// WrapReadConfigFile 读取配置文件
//
// 注意，和lalserver不同，配置文件是可选的，没有指定时返回nil，由调用方使用默认配置
func WrapReadConfigFile(theConfigFile string) []byte {
	if theConfigFile == "" {
		return nil
	}

	rawContent, err := os.ReadFile(theConfigFile)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "read conf file failed. file=%s err=%+v", theConfigFile, err)
		OsExitAndWaitPressIfWindows(1)
	}
	return rawContent
}

func PrintBinInfoAndExitIfNeeded(binInfoFlag bool) {
	if !binInfoFlag {
		return
	}
	_, _ = fmt.Fprint(os.Stderr, bininfo.StringifyMultiLine())
	_, _ = fmt.Fprintln(os.Stderr, LalMpeghFullInfo)
	os.Exit(0)
}

func OsExitAndWaitPressIfWindows(code int) {
	if runtime.GOOS == "windows" {
		_, _ = fmt.Fprintf(os.Stderr, "Press Enter to exit...")
		r := bufio.NewReader(os.Stdin)
		_, _ = r.ReadByte()
	}
	os.Exit(code)
}

// UsageWithExample 打印flag的默认帮助信息，并追加使用示例，然后退出
func UsageWithExample(example string) {
	flag.Usage()
	_, _ = fmt.Fprintf(os.Stderr, "Example:\n%s", example)
	OsExitAndWaitPressIfWindows(1)
}

func init() {
	startTime = ReadableNowTime()
}

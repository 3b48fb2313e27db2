// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// 见单元测试

type UrlContext struct {
	Url string

	Scheme       string
	StdHost      string // host or host:port
	HostWithPort string
	Host         string
	Port         int

	Path     string
	RawQuery string // 参数，注意，url中`#`之后的内容也算作参数，见 ParseSrtUrl

	query url.Values
}

// QueryValue 参数不存在时返回空字符串
func (u *UrlContext) QueryValue(key string) string {
	if u.query == nil {
		u.query, _ = url.ParseQuery(u.RawQuery)
	}
	return u.query.Get(key)
}

// ---------------------------------------------------------------------------------------------------------------------

// ParseUrl
//
// @param defaultPort: 注意，如果rawUrl中显示指定了端口，则该参数不生效
//                     注意，如果设置为-1，并且rawUrl中没有端口，则Port为0
//
func ParseUrl(rawUrl string, defaultPort int) (ctx UrlContext, err error) {
	ctx.Url = rawUrl

	stdUrl, err := url.Parse(rawUrl)
	if err != nil {
		return ctx, err
	}
	if stdUrl.Scheme == "" {
		return ctx, fmt.Errorf("%w. url=%s", ErrInvalidUrl, rawUrl)
	}

	ctx.Scheme = stdUrl.Scheme
	ctx.StdHost = stdUrl.Host

	h, p, err := net.SplitHostPort(stdUrl.Host)
	if err != nil {
		// url中端口不存在

		ctx.Host = stdUrl.Host
		if defaultPort == -1 {
			ctx.HostWithPort = stdUrl.Host
		} else {
			ctx.HostWithPort = net.JoinHostPort(stdUrl.Host, fmt.Sprintf("%d", defaultPort))
			ctx.Port = defaultPort
		}
	} else {
		// 端口存在

		ctx.Port, err = strconv.Atoi(p)
		if err != nil {
			return ctx, err
		}
		ctx.Host = h
		ctx.HostWithPort = stdUrl.Host
	}

	ctx.Path = stdUrl.Path
	ctx.RawQuery = stdUrl.RawQuery
	return ctx, nil
}

// ParseSrtUrl e.g. srt://127.0.0.1:6001?streamid=#!::r=live/test,m=request
//
// SRT Access Control的streamid以`#`开头，通常不会被转义，标准库会把`#`之后的内容解析为fragment，这里拼接回参数中
//
// 端口必须显示指定
func ParseSrtUrl(rawUrl string) (ctx UrlContext, err error) {
	ctx, err = ParseUrl(rawUrl, -1)
	if err != nil {
		return
	}
	if ctx.Scheme != "srt" || ctx.Host == "" || ctx.Port <= 0 || ctx.Port > 65535 {
		return ctx, fmt.Errorf("%w. url=%s", ErrInvalidUrl, rawUrl)
	}

	stdUrl, _ := url.Parse(rawUrl)
	if stdUrl.Fragment != "" {
		ctx.RawQuery += "#" + stdUrl.Fragment
	}
	return
}

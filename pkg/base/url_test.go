// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base_test

import (
	"errors"
	"testing"

	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/naza/pkg/assert"
)

func TestParseUrl(t *testing.T) {
	// 非法url
	_, err := base.ParseUrl("invalidurl", -1)
	assert.IsNotNil(t, err)

	ctx, err := base.ParseUrl("srt://127.0.0.1/live?a=1", 9000)
	assert.Equal(t, nil, err)
	assert.Equal(t, "srt", ctx.Scheme)
	assert.Equal(t, "127.0.0.1", ctx.StdHost)
	assert.Equal(t, "127.0.0.1:9000", ctx.HostWithPort)
	assert.Equal(t, "127.0.0.1", ctx.Host)
	assert.Equal(t, 9000, ctx.Port)
	assert.Equal(t, "/live", ctx.Path)
	assert.Equal(t, "a=1", ctx.RawQuery)
	assert.Equal(t, "1", ctx.QueryValue("a"))
	assert.Equal(t, "", ctx.QueryValue("b"))

	ctx, err = base.ParseUrl("srt://localhost", -1)
	assert.Equal(t, nil, err)
	assert.Equal(t, "localhost", ctx.HostWithPort)
	assert.Equal(t, 0, ctx.Port)
}

func TestParseSrtUrl(t *testing.T) {
	ctx, err := base.ParseSrtUrl("srt://127.0.0.1:6001?streamid=#!::r=live/test,m=request&latency=200")
	assert.Equal(t, nil, err)
	assert.Equal(t, "127.0.0.1", ctx.Host)
	assert.Equal(t, 6001, ctx.Port)
	assert.Equal(t, "127.0.0.1:6001", ctx.HostWithPort)
	assert.Equal(t, "#!::r=live/test,m=request", ctx.QueryValue("streamid"))
	assert.Equal(t, "200", ctx.QueryValue("latency"))

	// 转义过的streamid
	ctx, err = base.ParseSrtUrl("srt://127.0.0.1:6001?streamid=%23%21%3A%3Ar%3Dlive%2Ftest")
	assert.Equal(t, nil, err)
	assert.Equal(t, "#!::r=live/test", ctx.QueryValue("streamid"))

	ctx, err = base.ParseSrtUrl("srt://example.com:6001")
	assert.Equal(t, nil, err)
	assert.Equal(t, "", ctx.QueryValue("streamid"))

	for _, rawUrl := range []string{
		"srt://127.0.0.1",
		"srt://127.0.0.1:70000",
		"rtmp://127.0.0.1:1935/live/test",
		"srt://:6001",
	} {
		_, err = base.ParseSrtUrl(rawUrl)
		assert.Equal(t, true, errors.Is(err, base.ErrInvalidUrl))
	}
}

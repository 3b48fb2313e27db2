// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/haivision/srtgo"
	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/naza/pkg/nazalog"
)

// srtInput 以caller模式连接SRT listener，读取mpegts
type srtInput struct {
	sck *srtgo.SrtSocket
}

func (in *srtInput) Read(b []byte) (int, error) {
	return in.sck.Read(b)
}

func (in *srtInput) Close() error {
	in.sck.Close()
	return nil
}

// openInput
//
// @param input: 本地文件路径，或者 srt://host:port?streamid=#!::r=live/test,m=request
func openInput(ctx context.Context, input string, config SrtConfig) (io.ReadCloser, error) {
	if !strings.HasPrefix(input, "srt://") {
		return os.Open(input)
	}
	return dialSrt(ctx, input, config)
}

func dialSrt(ctx context.Context, rawUrl string, config SrtConfig) (io.ReadCloser, error) {
	urlCtx, err := base.ParseSrtUrl(rawUrl)
	if err != nil {
		return nil, err
	}
	addr, err := net.ResolveIPAddr("ip", urlCtx.Host)
	if err != nil {
		return nil, err
	}
	port := uint16(urlCtx.Port)

	options := make(map[string]string)
	options["transtype"] = "live"
	options["mode"] = "caller"
	options["latency"] = strconv.Itoa(config.LatencyMs)
	if config.Passphrase != "" {
		options["passphrase"] = config.Passphrase
	}
	if streamId := urlCtx.QueryValue("streamid"); streamId != "" {
		id, err := ParseStreamId(streamId)
		if err != nil {
			return nil, err
		}
		nazalog.Infof("srt streamid. %+v", id)
		options["streamid"] = streamId
	}

	sck := srtgo.NewSrtSocket(addr.String(), port, options)
	if sck == nil {
		return nil, fmt.Errorf("create srt socket failed. url=%s", rawUrl)
	}

	// Connect是阻塞的，超时或者ctx取消时关闭socket
	ch := make(chan error, 1)
	go func() {
		ch <- sck.Connect()
	}()

	timer := time.NewTimer(time.Duration(config.ConnectTimeout) * time.Millisecond)
	defer timer.Stop()

	select {
	case err = <-ch:
		if err != nil {
			sck.Close()
			return nil, err
		}
		nazalog.Infof("srt connected. addr=%s:%d", addr.String(), port)
		return &srtInput{sck: sck}, nil
	case <-timer.C:
		sck.Close()
		return nil, fmt.Errorf("srt connect timeout. url=%s", rawUrl)
	case <-ctx.Done():
		sck.Close()
		return nil, ctx.Err()
	}
}

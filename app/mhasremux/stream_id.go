// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"errors"
	"strings"
)

var errInvalidStreamId = errors.New("mhasremux: invalid srt streamid")

// StreamId SRT Access Control的streamid，格式 `#!::r=live/test,m=request`
//
// 拉流时m必须为空或者request
type StreamId struct {
	User     string
	Host     string
	Resource string
	Session  string
	Type     string
	Mode     string
}

func ParseStreamId(streamId string) (*StreamId, error) {
	if !strings.HasPrefix(streamId, "#!::") {
		return nil, errInvalidStreamId
	}

	id := &StreamId{}
	for _, item := range strings.Split(strings.TrimPrefix(streamId, "#!::"), ",") {
		if item == "" {
			continue
		}
		kv := strings.SplitN(item, "=", 2)
		if len(kv) != 2 {
			return nil, errInvalidStreamId
		}
		switch kv[0] {
		case "u":
			id.User = kv[1]
		case "h":
			id.Host = kv[1]
		case "r":
			id.Resource = kv[1]
		case "s":
			id.Session = kv[1]
		case "t":
			id.Type = kv[1]
		case "m":
			id.Mode = kv[1]
		}
	}
	if id.Mode != "" && id.Mode != "request" {
		return nil, errInvalidStreamId
	}
	return id, nil
}

// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"encoding/json"

	"github.com/q191201771/naza/pkg/nazajson"
	"github.com/q191201771/naza/pkg/nazalog"
)

type Config struct {
	Input      string `json:"input"`       // ts文件路径，srt://host:port?streamid=xxx，或者.mhasdump文件
	MhasOutput string `json:"mhas_output"` // 为空则不输出
	TsOutput   string `json:"ts_output"`   // 为空则不输出

	Remux RemuxConfig    `json:"remux"`
	Srt   SrtConfig      `json:"srt"`
	Log   nazalog.Option `json:"log"`
}

type RemuxConfig struct {
	ConsumeChunkSize int    `json:"consume_chunk_size"`
	MaxPendingPesNum int    `json:"max_pending_pes_num"`
	MaxPayloadLength int    `json:"max_payload_length"`
	DumpFilename     string `json:"dump_filename"`    // 录制PES，用于重放
	TsDumpFilename   string `json:"ts_dump_filename"` // 录制原始TS输入，可以使用analysemhasts分析
}

type SrtConfig struct {
	LatencyMs      int    `json:"latency_ms"`
	Passphrase     string `json:"passphrase"`
	ConnectTimeout int    `json:"connect_timeout_ms"`
}

// LoadConf
//
// @param rawContent: 为nil时，全部使用默认值
func LoadConf(rawContent []byte) (*Config, error) {
	if rawContent == nil {
		rawContent = []byte("{}")
	}

	var config Config
	if err := json.Unmarshal(rawContent, &config); err != nil {
		return nil, err
	}

	j, err := nazajson.New(rawContent)
	if err != nil {
		return nil, err
	}

	// 配置不存在时，设置默认值
	if !j.Exist("remux.max_pending_pes_num") {
		config.Remux.MaxPendingPesNum = 256
	}
	if !j.Exist("remux.max_payload_length") {
		config.Remux.MaxPayloadLength = 1024 * 1024
	}
	if !j.Exist("srt.latency_ms") {
		config.Srt.LatencyMs = 120
	}
	if !j.Exist("srt.connect_timeout_ms") {
		config.Srt.ConnectTimeout = 10000
	}
	if !j.Exist("log.level") {
		config.Log.Level = nazalog.LevelInfo
	}
	if !j.Exist("log.filename") {
		config.Log.Filename = "./logs/mhasremux.log"
	}
	if !j.Exist("log.is_to_stdout") {
		config.Log.IsToStdout = true
	}
	if !j.Exist("log.is_rotate_daily") {
		config.Log.IsRotateDaily = true
	}
	if !j.Exist("log.short_file_flag") {
		config.Log.ShortFileFlag = true
	}
	if !j.Exist("log.assert_behavior") {
		config.Log.AssertBehavior = nazalog.AssertError
	}

	return &config, nil
}

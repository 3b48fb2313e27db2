// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/lalmpegh/pkg/mpegts"
	"github.com/q191201771/naza/pkg/assert"
)

func TestFileWriter(t *testing.T) {
	var fw mpegts.FileWriter
	assert.Equal(t, base.ErrMpegts, fw.Write([]byte{1}))
	assert.Equal(t, base.ErrMpegts, fw.Dispose())
	assert.Equal(t, "", fw.Name())

	filename := filepath.Join(t.TempDir(), "test.ts")
	err := fw.Create(filename)
	assert.Equal(t, nil, err)
	assert.Equal(t, filename, fw.Name())

	// 超过合并阈值的部分在Write时就写入文件，剩余部分在Dispose时写入
	var expected []byte
	for i := 0; i < 100; i++ {
		packet := bytes.Repeat([]byte{uint8(i)}, mpegts.PacketSize)
		expected = append(expected, packet...)
		err = fw.Write(packet)
		assert.Equal(t, nil, err)
	}
	err = fw.Dispose()
	assert.Equal(t, nil, err)

	actual, err := os.ReadFile(filename)
	assert.Equal(t, nil, err)
	assert.Equal(t, expected, actual)
}

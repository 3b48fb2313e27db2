// Copyright 2022, Chef.  All rights reserved.
// https://github.com/q191201771/lalmpegh
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/q191201771/lalmpegh/pkg/base"
	"github.com/q191201771/naza/pkg/assert"
)

func TestDumpFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "sub", "test.laldump")

	df := base.NewDumpFile()
	err := df.OpenToWrite(filename)
	assert.Equal(t, nil, err)
	err = df.WriteWithType([]byte("hello"), base.DumpTypeMpegtsPes)
	assert.Equal(t, nil, err)
	err = df.Write(nil)
	assert.Equal(t, nil, err)
	err = df.Close()
	assert.Equal(t, nil, err)

	df = base.NewDumpFile()
	err = df.OpenToRead(filename)
	assert.Equal(t, nil, err)
	m, err := df.ReadOneMessage()
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(1), m.Ver)
	assert.Equal(t, base.DumpTypeMpegtsPes, m.Typ)
	assert.Equal(t, uint32(5), m.Len)
	assert.Equal(t, []byte("hello"), m.Body)
	m, err = df.ReadOneMessage()
	assert.Equal(t, nil, err)
	assert.Equal(t, base.DumpTypeDefault, m.Typ)
	assert.Equal(t, 0, len(m.Body))
	_, err = df.ReadOneMessage()
	assert.Equal(t, io.EOF, err)
	_ = df.Close()

	// 截断最后一条消息
	content, err := os.ReadFile(filename)
	assert.Equal(t, nil, err)
	err = os.WriteFile(filename, content[:16+3], 0644)
	assert.Equal(t, nil, err)
	df = base.NewDumpFile()
	err = df.OpenToRead(filename)
	assert.Equal(t, nil, err)
	_, err = df.ReadOneMessage()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
	_ = df.Close()

	// 版本不对
	content[3] = 9
	err = os.WriteFile(filename, content, 0644)
	assert.Equal(t, nil, err)
	df = base.NewDumpFile()
	err = df.OpenToRead(filename)
	assert.Equal(t, nil, err)
	_, err = df.ReadOneMessage()
	assert.Equal(t, true, errors.Is(err, base.ErrDumpFile))
	_ = df.Close()
}

func TestDumpFile_NotOpen(t *testing.T) {
	df := base.NewDumpFile()
	assert.Equal(t, base.ErrFileNotExist, df.Write([]byte{1}))
	_, err := df.ReadOneMessage()
	assert.Equal(t, base.ErrFileNotExist, err)
	assert.Equal(t, nil, df.Close())
}

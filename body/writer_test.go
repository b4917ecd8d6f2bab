// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package body

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterContentLengthHappyPath(t *testing.T) {
	w := NewWriter()
	w.WithContentLengthWrite(10)

	var buf bytes.Buffer
	n, ok, err := w.WriteBody(&buf, []byte("hello"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, n)
	assert.False(t, w.Finished())

	n2, ok2, err2 := w.WriteBody(&buf, []byte("world"))
	require.NoError(t, err2)
	assert.True(t, ok2)
	assert.Equal(t, 5, n2)
	assert.True(t, w.Finished())

	written, ok3, err3 := w.Finish(&buf)
	require.NoError(t, err3)
	assert.True(t, ok3)
	assert.Equal(t, 10, written)
	assert.Equal(t, "helloworld", buf.String())
}

func TestWriterContentLengthTruncatesOverlongWrite(t *testing.T) {
	w := NewWriter()
	w.WithContentLengthWrite(3)

	var buf bytes.Buffer
	n, ok, err := w.WriteBody(&buf, []byte("hello"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Equal(t, "hel", buf.String())
	assert.True(t, w.Finished())
}

func TestWriterContentLengthFinishBeforeFullWriteErrors(t *testing.T) {
	w := NewWriter()
	w.WithContentLengthWrite(10)

	var buf bytes.Buffer
	_, _, err := w.WriteBody(&buf, []byte("hi"))
	require.NoError(t, err)

	_, ok, err := w.Finish(&buf)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrPrematureBody)
}

func TestWriterChunkedEncodesFrames(t *testing.T) {
	w := NewWriter()
	w.WithChunkedEncodingWrite()

	var buf bytes.Buffer
	n, ok, err := w.WriteBody(&buf, []byte("hello"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, n)
	assert.Equal(t, "5\r\nhello\r\n", buf.String())

	_, ok2, err2 := w.Finish(&buf)
	require.NoError(t, err2)
	assert.True(t, ok2)
	assert.Equal(t, "5\r\nhello\r\n0\r\n\r\n", buf.String())
}

func TestWriterUntilClosedWritesThrough(t *testing.T) {
	w := NewWriter()
	w.WithUntilClosedWrite()

	var buf bytes.Buffer
	n, ok, err := w.WriteBody(&buf, []byte("abc"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	written, ok2, err2 := w.Finish(&buf)
	require.NoError(t, err2)
	assert.True(t, ok2)
	assert.Equal(t, 3, written)
	assert.Equal(t, "abc", buf.String())
}

func TestWriterCompletedIgnoresFurtherWrites(t *testing.T) {
	w := NewWriter()
	w.WithContentLengthWrite(3)

	var buf bytes.Buffer
	_, _, err := w.WriteBody(&buf, []byte("abc"))
	require.NoError(t, err)
	_, _, err = w.Finish(&buf)
	require.NoError(t, err)

	n, ok, err := w.WriteBody(&buf, []byte("more"))
	assert.Equal(t, 0, n)
	assert.False(t, ok)
	assert.NoError(t, err)
}

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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseChunkSizeComplete(t *testing.T) {
	status, payloadIndex, size, err := parseChunkSize([]byte("1a\r\nrest"))
	assert.NoError(t, err)
	assert.Equal(t, chunkComplete, status)
	assert.Equal(t, 4, payloadIndex)
	assert.Equal(t, uint64(0x1a), size)
}

func TestParseChunkSizeWithExtension(t *testing.T) {
	status, payloadIndex, size, err := parseChunkSize([]byte("4;ignored=ext\r\ndata"))
	assert.NoError(t, err)
	assert.Equal(t, chunkComplete, status)
	assert.Equal(t, 15, payloadIndex)
	assert.Equal(t, uint64(4), size)
}

func TestParseChunkSizeTerminating(t *testing.T) {
	status, payloadIndex, size, err := parseChunkSize([]byte("0\r\n\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, chunkComplete, status)
	assert.Equal(t, 3, payloadIndex)
	assert.Equal(t, uint64(0), size)
}

func TestParseChunkSizePartialNoCRLF(t *testing.T) {
	status, _, _, err := parseChunkSize([]byte("1a"))
	assert.NoError(t, err)
	assert.Equal(t, chunkPartial, status)
}

func TestParseChunkSizeEmptyBuf(t *testing.T) {
	status, _, _, err := parseChunkSize(nil)
	assert.NoError(t, err)
	assert.Equal(t, chunkPartial, status)
}

func TestParseChunkSizeInvalidLeadingChar(t *testing.T) {
	_, _, _, err := parseChunkSize([]byte("zz\r\n"))
	assert.ErrorIs(t, err, ErrInvalidChunk)
}

func TestParseChunkSizeOverflow(t *testing.T) {
	_, _, _, err := parseChunkSize([]byte("ffffffffffffffff1\r\n"))
	assert.ErrorIs(t, err, ErrInvalidChunk)
}

func TestParseChunkSizeRawCRInExtension(t *testing.T) {
	_, _, _, err := parseChunkSize([]byte("4;a\rb\r\n"))
	assert.ErrorIs(t, err, ErrInvalidChunk)
}

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

package offset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffsetSlice(t *testing.T) {
	buf := []byte("hello world")
	o := New(6, 5)
	assert.Equal(t, "world", string(o.Slice(buf)))
	assert.Equal(t, 5, o.Len())
	assert.False(t, o.Empty())
}

func TestOffsetEmpty(t *testing.T) {
	o := New(3, 0)
	assert.True(t, o.Empty())
	assert.Equal(t, 0, o.Len())
}

func TestOffsetValid(t *testing.T) {
	buf := make([]byte, 10)
	assert.True(t, New(0, 10).Valid(len(buf)))
	assert.True(t, New(5, 5).Valid(len(buf)))
	assert.False(t, New(5, 6).Valid(len(buf)))
	assert.False(t, Offset{Start: -1, End: 2}.Valid(len(buf)))
}

func TestOffsetSlicePanicsOutOfRange(t *testing.T) {
	buf := []byte("abc")
	assert.Panics(t, func() {
		New(1, 10).Slice(buf)
	})
}

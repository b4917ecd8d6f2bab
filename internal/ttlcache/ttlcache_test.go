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

package ttlcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetAddAndHas(t *testing.T) {
	s := NewSet[string](50 * time.Millisecond)
	defer s.Close()

	s.Add("a")
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("b"))
	assert.Equal(t, 1, s.Count())
}

func TestSetExpires(t *testing.T) {
	s := NewSet[string](20 * time.Millisecond)
	defer s.Close()

	s.Add("a")
	time.Sleep(40 * time.Millisecond)
	assert.False(t, s.Has("a"))
}

func TestFixedWindowIncrCountsWithinWindow(t *testing.T) {
	fw := NewFixedWindow[string](time.Minute)
	defer fw.Close()

	c1, reset1 := fw.Incr("client-a")
	c2, reset2 := fw.Incr("client-a")
	c3, _ := fw.Incr("client-b")

	assert.Equal(t, 1, c1)
	assert.Equal(t, 2, c2)
	assert.Equal(t, 1, c3)
	assert.LessOrEqual(t, reset2, reset1)
	assert.Greater(t, reset1, time.Duration(0))
}

func TestFixedWindowResetsAfterWindowElapses(t *testing.T) {
	fw := NewFixedWindow[string](20 * time.Millisecond)
	defer fw.Close()

	c1, _ := fw.Incr("client-a")
	assert.Equal(t, 1, c1)

	time.Sleep(30 * time.Millisecond)

	c2, _ := fw.Incr("client-a")
	assert.Equal(t, 1, c2)
}

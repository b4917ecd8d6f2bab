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

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeepaliveOff(t *testing.T) {
	s := KeepaliveOff()
	assert.True(t, s.IsOff())
	_, ok := s.Timeout()
	assert.False(t, ok)
}

func TestKeepaliveInfinite(t *testing.T) {
	s := KeepaliveInfinite()
	assert.False(t, s.IsOff())
	_, ok := s.Timeout()
	assert.False(t, ok)
}

func TestKeepaliveTimeout(t *testing.T) {
	s := KeepaliveTimeout(30 * time.Second)
	assert.False(t, s.IsOff())
	d, ok := s.Timeout()
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, d)
}

func TestKeepaliveFromSecondsOff(t *testing.T) {
	s := keepaliveFromSeconds(0, false)
	assert.True(t, s.IsOff())
}

func TestKeepaliveFromSecondsZeroIsInfinite(t *testing.T) {
	s := keepaliveFromSeconds(0, true)
	assert.False(t, s.IsOff())
	_, ok := s.Timeout()
	assert.False(t, ok)
}

func TestKeepaliveFromSecondsPositive(t *testing.T) {
	s := keepaliveFromSeconds(5, true)
	d, ok := s.Timeout()
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, d)
}

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

package cluster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/gatewayd/header"
)

func buildTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := Build([]Config{
		{Name: "svc1", Host: "svc1.local", Prefix: "/svc1", Upstream: []string{"10.0.0.1:80"}},
		{Name: "svc2", Host: "svc2.local", Prefix: "/svc2", Upstream: []string{"10.0.0.2:80"}},
	})
	require.NoError(t, err)
	return registry
}

func TestSelectRewritesForwardedPath(t *testing.T) {
	registry := buildTestRegistry(t)
	req := &header.RequestHead{RawTarget: []byte("/svc1/users/1")}

	idx, err := registry.Select(req)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "/users/1", string(req.RawTarget))
}

func TestSelectEmptyRemainderBecomesRoot(t *testing.T) {
	registry := buildTestRegistry(t)
	req := &header.RequestHead{RawTarget: []byte("/svc2")}

	idx, err := registry.Select(req)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "/", string(req.RawTarget))
}

func TestSelectPreservesQueryString(t *testing.T) {
	registry := buildTestRegistry(t)
	req := &header.RequestHead{RawTarget: []byte("/svc1/search?q=abc")}

	_, err := registry.Select(req)
	require.NoError(t, err)
	assert.Equal(t, "/search?q=abc", string(req.RawTarget))
}

func TestSelectUnknownPrefixReturnsNoMatch(t *testing.T) {
	registry := buildTestRegistry(t)
	req := &header.RequestHead{RawTarget: []byte("/unknown/path")}

	_, err := registry.Select(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoMatchingPrefix))
}

func TestSelectInvalidTargetReturnsInvalid(t *testing.T) {
	registry := buildTestRegistry(t)
	req := &header.RequestHead{RawTarget: []byte("://not a uri")}

	_, err := registry.Select(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTarget))
}

func TestSelectRootPathWithNoSegments(t *testing.T) {
	registry, err := Build([]Config{
		{Name: "root", Host: "root.local", Prefix: "/root", Upstream: []string{"10.0.0.1:80"}},
	})
	require.NoError(t, err)
	req := &header.RequestHead{RawTarget: []byte("/")}

	_, err = registry.Select(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoMatchingPrefix))
}

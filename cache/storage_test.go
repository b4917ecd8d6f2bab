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

package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoStorageAlwaysMisses(t *testing.T) {
	var s Storage = NoStorage{}

	_, _, ok, err := s.Lookup(context.Background(), Key{ClusterIndex: 0, Method: "GET", Path: "/x"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoStorageStoreAndPurgeAreNoops(t *testing.T) {
	var s Storage = NoStorage{}

	require.NoError(t, s.Store(context.Background(), Key{}, Meta{StatusCode: 200}, []byte("body")))

	purged, err := s.Purge(context.Background(), Key{})
	require.NoError(t, err)
	assert.False(t, purged)
}

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

package admission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/gatewayd/cluster"
)

func buildTestPipeline(t *testing.T, configs []cluster.Config) *Pipeline {
	t.Helper()
	registry, err := cluster.Build(configs)
	require.NoError(t, err)
	return NewPipeline(registry, nil)
}

func TestPipelineUnknownPrefixReturns404(t *testing.T) {
	p := buildTestPipeline(t, []cluster.Config{
		{Name: "svc1", Host: "svc1.local", Prefix: "/svc1", Upstream: []string{"10.0.0.1:80"}},
	})
	d, server := newTestDownstream(t, "GET /unknown HTTP/1.1\r\nHost: x\r\n\r\n")
	defer server.Close()
	drainResponses(server)

	ctx, handled, err := p.Run(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Nil(t, ctx)
}

func TestPipelineSelectsClusterAndPassesThrough(t *testing.T) {
	p := buildTestPipeline(t, []cluster.Config{
		{Name: "svc1", Host: "svc1.local", Prefix: "/svc1", Upstream: []string{"10.0.0.1:80"}},
	})
	d, server := newTestDownstream(t, "GET /svc1/users/1 HTTP/1.1\r\nHost: x\r\n\r\n")
	defer server.Close()
	drainResponses(server)

	ctx, handled, err := p.Run(context.Background(), d)
	require.NoError(t, err)
	assert.False(t, handled)
	require.NotNil(t, ctx)
	assert.Equal(t, 0, ctx.ClusterIndex)
	assert.Equal(t, "svc1", ctx.ClusterIdentity)
	assert.Equal(t, "/users/1", string(d.Request().RawTarget))
}

func TestPipelineMethodNotAllowedReturns405(t *testing.T) {
	p := buildTestPipeline(t, []cluster.Config{
		{
			Name: "svc1", Host: "svc1.local", Prefix: "/svc1", Upstream: []string{"10.0.0.1:80"},
			Routes: []cluster.RouteConfig{{Name: "users", Paths: []string{"/users"}, Methods: []string{"GET"}}},
		},
	})
	d, server := newTestDownstream(t, "DELETE /svc1/users/1 HTTP/1.1\r\nHost: x\r\n\r\n")
	defer server.Close()
	drainResponses(server)

	_, handled, err := p.Run(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, handled)
}

func TestPipelineAuthFailureShortCircuits(t *testing.T) {
	p := buildTestPipeline(t, []cluster.Config{
		{
			Name: "svc1", Host: "svc1.local", Prefix: "/svc1", Upstream: []string{"10.0.0.1:80"},
			Auth: &cluster.AuthConfig{Key: &cluster.KeyAuthConfig{Allowed: []string{"secret"}}},
		},
	})
	d, server := newTestDownstream(t, "GET /svc1/users/1 HTTP/1.1\r\nHost: x\r\n\r\n")
	defer server.Close()
	drainResponses(server)

	_, handled, err := p.Run(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, handled)
}

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
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/gatewayd/cluster"
)

func TestCheckAuthNoConfigPassesThrough(t *testing.T) {
	ctx := &Context{Cluster: &cluster.Cluster{Config: cluster.Config{}}}
	d, server := newTestDownstream(t, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	defer server.Close()
	drainResponses(server)

	handled, err := checkAuth(ctx, d)
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestCheckKeyAuthMissingHeaderIsForbidden(t *testing.T) {
	ctx := &Context{Cluster: &cluster.Cluster{Config: cluster.Config{
		Auth: &cluster.AuthConfig{Key: &cluster.KeyAuthConfig{Allowed: []string{"secret"}}},
	}}}
	d, server := newTestDownstream(t, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	defer server.Close()
	drainResponses(server)

	handled, err := checkAuth(ctx, d)
	require.NoError(t, err)
	assert.True(t, handled)
}

func TestCheckKeyAuthAllowedKeyPasses(t *testing.T) {
	ctx := &Context{Cluster: &cluster.Cluster{Config: cluster.Config{
		Auth: &cluster.AuthConfig{Key: &cluster.KeyAuthConfig{Allowed: []string{"secret"}}},
	}}}
	d, server := newTestDownstream(t, "GET / HTTP/1.1\r\nHost: x\r\nAuthorization: Bearer secret\r\n\r\n")
	defer server.Close()
	drainResponses(server)

	handled, err := checkAuth(ctx, d)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Equal(t, "secret", ctx.ClientCredentials)
}

func TestCheckKeyAuthRejectsUnknownKey(t *testing.T) {
	ctx := &Context{Cluster: &cluster.Cluster{Config: cluster.Config{
		Auth: &cluster.AuthConfig{Key: &cluster.KeyAuthConfig{Allowed: []string{"secret"}}},
	}}}
	d, server := newTestDownstream(t, "GET / HTTP/1.1\r\nHost: x\r\nAuthorization: Bearer wrong\r\n\r\n")
	defer server.Close()
	drainResponses(server)

	handled, err := checkAuth(ctx, d)
	require.NoError(t, err)
	assert.True(t, handled)
}

func signedJWT(t *testing.T, secret, consumer string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Consumer:         consumer,
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestCheckJWTAuthNoConsumersConfiguredPasses(t *testing.T) {
	ctx := &Context{Cluster: &cluster.Cluster{Config: cluster.Config{
		Auth: &cluster.AuthConfig{JWT: &cluster.JWTAuthConfig{Secret: "shh"}},
	}}}
	token := signedJWT(t, "shh", "acme")
	d, server := newTestDownstream(t, "GET / HTTP/1.1\r\nHost: x\r\nAuthorization: Bearer "+token+"\r\n\r\n")
	defer server.Close()
	drainResponses(server)

	handled, err := checkAuth(ctx, d)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Equal(t, "acme", ctx.ClientCredentials)
}

func TestCheckJWTAuthConsumerMustBeAllowed(t *testing.T) {
	ctx := &Context{Cluster: &cluster.Cluster{Config: cluster.Config{
		Auth:      &cluster.AuthConfig{JWT: &cluster.JWTAuthConfig{Secret: "shh"}},
		Consumers: []cluster.ConsumerConfig{{Name: "acme", ACL: []string{"read"}}},
	}}}
	token := signedJWT(t, "shh", "other")
	d, server := newTestDownstream(t, "GET / HTTP/1.1\r\nHost: x\r\nAuthorization: Bearer "+token+"\r\n\r\n")
	defer server.Close()
	drainResponses(server)

	handled, err := checkAuth(ctx, d)
	require.NoError(t, err)
	assert.True(t, handled)
}

func TestCheckJWTAuthRejectsBadSignature(t *testing.T) {
	ctx := &Context{Cluster: &cluster.Cluster{Config: cluster.Config{
		Auth: &cluster.AuthConfig{JWT: &cluster.JWTAuthConfig{Secret: "shh"}},
	}}}
	token := signedJWT(t, "wrong-secret", "acme")
	d, server := newTestDownstream(t, "GET / HTTP/1.1\r\nHost: x\r\nAuthorization: Bearer "+token+"\r\n\r\n")
	defer server.Close()
	drainResponses(server)

	handled, err := checkAuth(ctx, d)
	require.NoError(t, err)
	assert.True(t, handled)
}

func TestRouteAuthOverridesClusterAuth(t *testing.T) {
	ctx := &Context{
		Cluster: &cluster.Cluster{Config: cluster.Config{
			Auth: &cluster.AuthConfig{Key: &cluster.KeyAuthConfig{Allowed: []string{"cluster-key"}}},
		}},
		Route: &cluster.RouteConfig{Auth: &cluster.AuthConfig{Key: &cluster.KeyAuthConfig{Allowed: []string{"route-key"}}}},
	}
	d, server := newTestDownstream(t, "GET / HTTP/1.1\r\nHost: x\r\nAuthorization: Bearer route-key\r\n\r\n")
	defer server.Close()
	drainResponses(server)

	handled, err := checkAuth(ctx, d)
	require.NoError(t, err)
	assert.False(t, handled)
}

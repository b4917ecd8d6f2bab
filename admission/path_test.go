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

	"github.com/stretchr/testify/assert"

	"github.com/packetd/gatewayd/cluster"
)

func TestMatchRouteNoRoutesConfiguredAllowsAny(t *testing.T) {
	cfg := &cluster.Config{}
	route, ok := matchRoute(cfg, "/users/1")
	assert.True(t, ok)
	assert.Nil(t, route)
}

func TestMatchRouteFindsPrefixMatch(t *testing.T) {
	cfg := &cluster.Config{Routes: []cluster.RouteConfig{
		{Name: "users", Paths: []string{"/users"}},
		{Name: "orders", Paths: []string{"/orders"}},
	}}
	route, ok := matchRoute(cfg, "/orders/42")
	assert.True(t, ok)
	assert.Equal(t, "orders", route.Name)
}

func TestMatchRouteNoMatchIsRejected(t *testing.T) {
	cfg := &cluster.Config{Routes: []cluster.RouteConfig{{Name: "users", Paths: []string{"/users"}}}}
	route, ok := matchRoute(cfg, "/orders/42")
	assert.False(t, ok)
	assert.Nil(t, route)
}

func TestMethodAllowedNoRestriction(t *testing.T) {
	assert.True(t, methodAllowed(nil, "DELETE"))
	assert.True(t, methodAllowed(&cluster.RouteConfig{}, "DELETE"))
}

func TestMethodAllowedRestricted(t *testing.T) {
	route := &cluster.RouteConfig{Methods: []string{"GET", "HEAD"}}
	assert.True(t, methodAllowed(route, "get"))
	assert.False(t, methodAllowed(route, "POST"))
}

func TestIPAllowedNoRestriction(t *testing.T) {
	assert.True(t, ipAllowed(nil, "10.1.1.1:5000"))
}

func TestIPAllowedCIDRMatch(t *testing.T) {
	route := &cluster.RouteConfig{AllowedCIDRs: []string{"10.0.0.0/8"}}
	assert.True(t, ipAllowed(route, "10.1.1.1:5000"))
	assert.False(t, ipAllowed(route, "192.168.1.1:5000"))
}

func TestIPAllowedInvalidAddress(t *testing.T) {
	route := &cluster.RouteConfig{AllowedCIDRs: []string{"10.0.0.0/8"}}
	assert.False(t, ipAllowed(route, "not-an-address"))
}

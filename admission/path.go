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
	"net"
	"strings"

	"github.com/packetd/gatewayd/cluster"
	"github.com/packetd/gatewayd/session"
)

// matchRoute 在集群配置的路由列表中找到第一个路径前缀匹配 forwardedPath 的路由
//
// 未配置任何路由时返回 (nil, true)：整个集群共享同一套鉴权/限流策略 不做按路由区分。
// 配置了路由但一个都没匹配上时返回 (nil, false)：调用方应当以 404 短路。
func matchRoute(cfg *cluster.Config, forwardedPath string) (*cluster.RouteConfig, bool) {
	if len(cfg.Routes) == 0 {
		return nil, true
	}
	for i := range cfg.Routes {
		route := &cfg.Routes[i]
		for _, p := range route.Paths {
			if strings.HasPrefix(forwardedPath, p) {
				return route, true
			}
		}
	}
	return nil, false
}

// methodAllowed 判断 method 是否在路由的方法白名单内 路由未配置白名单视为放行所有方法
func methodAllowed(route *cluster.RouteConfig, method string) bool {
	if route == nil || len(route.Methods) == 0 {
		return true
	}
	for _, m := range route.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// ipAllowed 判断 clientAddr 是否落在路由的 CIDR 白名单内 路由未配置白名单视为放行所有地址
func ipAllowed(route *cluster.RouteConfig, clientAddr string) bool {
	if route == nil || len(route.AllowedCIDRs) == 0 {
		return true
	}
	host := clientAddr
	if h, _, err := net.SplitHostPort(clientAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, cidr := range route.AllowedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// checkPathACL 是准入流水线的第一步：解析出请求匹配的路由 (若有) 再校验方法
// 和来源地址是否在白名单内。handled 为 true 表示已经向下游写出响应 调用方应当
// 停止流水线。
func checkPathACL(ctx *Context, d *session.Downstream, forwardedPath, method string) (handled bool, err error) {
	route, ok := matchRoute(&ctx.Cluster.Config, forwardedPath)
	if !ok {
		if werr := writeErrorResponse(d, 404, "Path does not exist", nil); werr != nil {
			return true, werr
		}
		return true, nil
	}
	ctx.Route = route

	if !methodAllowed(route, method) {
		if werr := writeErrorResponse(d, 405, "Method not allowed", nil); werr != nil {
			return true, werr
		}
		return true, nil
	}

	if !ipAllowed(route, ctx.ClientAddress) {
		if werr := writeErrorResponse(d, 403, "Client address not allowed", nil); werr != nil {
			return true, werr
		}
		return true, nil
	}

	return false, nil
}

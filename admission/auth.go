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
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/packetd/gatewayd/cluster"
	"github.com/packetd/gatewayd/session"
)

// effectiveAuth 返回本次请求应当生效的认证配置：路由级配置覆盖集群级配置
func effectiveAuth(ctx *Context) *cluster.AuthConfig {
	if ctx.Route != nil && ctx.Route.Auth != nil {
		return ctx.Route.Auth
	}
	return ctx.Cluster.Config.Auth
}

// bearerToken 从 Authorization 头里取出 "Bearer " 前缀之后的凭证 未携带该头时 ok 为 false
func bearerToken(d *session.Downstream) (string, bool) {
	value, ok := d.Request().Header.Get("Authorization")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(value, "Bearer ")), true
}

// checkAuth 是准入流水线的认证步骤：按配置选择 key 或 jwt 校验方式 未配置认证时直接放行
func checkAuth(ctx *Context, d *session.Downstream) (handled bool, err error) {
	cfg := effectiveAuth(ctx)
	if cfg == nil {
		return false, nil
	}
	if cfg.Key != nil {
		return checkKeyAuth(ctx, d, cfg.Key)
	}
	if cfg.JWT != nil {
		return checkJWTAuth(ctx, d, cfg.JWT)
	}
	return false, nil
}

// checkKeyAuth 对应 original_source 的 AuthProvider::basic_key：
// Authorization 头里的 Bearer 凭证必须出现在 allowed 列表内
func checkKeyAuth(ctx *Context, d *session.Downstream, key *cluster.KeyAuthConfig) (bool, error) {
	token, ok := bearerToken(d)
	if !ok {
		return true, writeErrorResponse(d, 403, "Key is required", nil)
	}
	for _, allowed := range key.Allowed {
		if token == allowed {
			ctx.ClientCredentials = token
			return false, nil
		}
	}
	return true, writeErrorResponse(d, 403, "Invalid API Key", nil)
}

// jwtClaims 对应 original_source 的 Claims { exp, consumer }
type jwtClaims struct {
	jwt.RegisteredClaims
	Consumer string `json:"consumer"`
}

// checkJWTAuth 对应 AuthProvider::basic_jwt：解出 consumer 声明之后 在生效的消费者
// 列表内做成员校验 (路由级列表覆盖集群级列表)；未配置消费者列表时解码成功即放行。
func checkJWTAuth(ctx *Context, d *session.Downstream, cfg *cluster.JWTAuthConfig) (bool, error) {
	tokenStr, ok := bearerToken(d)
	if !ok {
		return true, writeErrorResponse(d, 403, "Token is required", nil)
	}

	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return true, writeErrorResponse(d, 403, fmt.Sprintf("Invalid Token: %v", err), nil)
	}

	consumers := ctx.Cluster.Config.Consumers
	if ctx.Route != nil && len(ctx.Route.Consumers) > 0 {
		consumers = ctx.Route.Consumers
	}
	if len(consumers) == 0 {
		ctx.ClientCredentials = claims.Consumer
		return false, nil
	}
	for _, c := range consumers {
		if c.Name == claims.Consumer {
			ctx.ClientCredentials = claims.Consumer
			return false, nil
		}
	}
	return true, writeErrorResponse(d, 403, "Unauthorized consumer", nil)
}

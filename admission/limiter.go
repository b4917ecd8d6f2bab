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
	"strconv"
	"sync"
	"time"

	"github.com/packetd/gatewayd/cluster"
	"github.com/packetd/gatewayd/internal/ttlcache"
	"github.com/packetd/gatewayd/session"
)

// defaultRateLimitWindow 对应 original_source 的 RATE_LIMITER 固定 60s 刷新周期
const defaultRateLimitWindow = 60 * time.Second

// Limiter 是准入流水线的固定窗口限流器 底层按窗口长度分桶复用 ttlcache.FixedWindow
//
// original_source 用单个 pingora_limits::rate::Rate 实例同时服务全局/客户端两级限流
// 这里同样按窗口长度共享实例 不同集群配置相同窗口长度时自然共享同一张计数表
type Limiter struct {
	mu      sync.Mutex
	windows map[time.Duration]*ttlcache.FixedWindow[string]
}

// NewLimiter 创建一个空的 Limiter
func NewLimiter() *Limiter {
	return &Limiter{windows: make(map[time.Duration]*ttlcache.FixedWindow[string])}
}

func (l *Limiter) windowFor(d time.Duration) *ttlcache.FixedWindow[string] {
	l.mu.Lock()
	defer l.mu.Unlock()

	if fw, ok := l.windows[d]; ok {
		return fw
	}
	fw := ttlcache.NewFixedWindow[string](d)
	l.windows[d] = fw
	return fw
}

// incr 按 cfg 的窗口长度 (未配置时落回 defaultRateLimitWindow) 对 key 计数一次
// exceeded 为 true 表示本次计数超过了 cfg.Limit
func (l *Limiter) incr(cfg *cluster.BasicLimiterConfig, key string) (exceeded bool, resetAfter time.Duration) {
	window := cfg.Window
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	count, resetAfter := l.windowFor(window).Incr(key)
	return count > cfg.Limit, resetAfter
}

// rateLimitHeaders 对应 limiter.rs 里附加在 429 响应上的 X-Rate-Limit-* 三件套
//
// X-Rate-Limit-Reset 固定为 "1"(limiter.rs 硬编码 "1" 而非窗口剩余秒数)。
func rateLimitHeaders(limit int) map[string]string {
	return map[string]string{
		"X-Rate-Limit-Limit":     strconv.Itoa(limit),
		"X-Rate-Limit-Remaining": "0",
		"X-Rate-Limit-Reset":     "1",
	}
}

// checkGlobalRateLimit 对应 LimiterProvider::global_limiter：按集群身份计数 与来源
// 客户端无关 未配置全局限流时直接放行。
func (l *Limiter) checkGlobalRateLimit(ctx *Context, d *session.Downstream) (bool, error) {
	cfg := ctx.Cluster.Config.RateLimit
	if cfg == nil || cfg.Global == nil || cfg.Global.Limit <= 0 {
		return false, nil
	}
	exceeded, _ := l.incr(cfg.Global, ctx.ClusterIdentity)
	if !exceeded {
		return false, nil
	}
	return true, writeErrorResponse(d, 429, "Too many requests.", rateLimitHeaders(cfg.Global.Limit))
}

// checkClientRateLimit 对应 LimiterProvider::client_limiter：优先按已认证凭证计数
// 未认证请求落回客户端地址 未配置客户端限流时直接放行。
func (l *Limiter) checkClientRateLimit(ctx *Context, d *session.Downstream) (bool, error) {
	cfg := ctx.Cluster.Config.RateLimit
	if cfg == nil || cfg.Client == nil || cfg.Client.Limit <= 0 {
		return false, nil
	}
	key := ctx.CredentialsOrAddress()
	if key == "" {
		return false, nil
	}
	exceeded, _ := l.incr(cfg.Client, key)
	if !exceeded {
		return false, nil
	}
	return true, writeErrorResponse(d, 429, "Too many requests.", rateLimitHeaders(cfg.Client.Limit))
}

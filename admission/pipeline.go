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
	"errors"
	"net/url"

	"github.com/packetd/gatewayd/cache"
	"github.com/packetd/gatewayd/cluster"
	"github.com/packetd/gatewayd/session"
)

// Pipeline 是准入流水线的入口 串起集群选择/路径 ACL/认证/限流/缓存探测五步
//
// 对应 original_source 里散落在 ResolverProvider/AuthProvider/LimiterProvider 三个
// provider 里、由 ProxyRouter 的各个 Pingora 钩子依次调用的短路步骤
type Pipeline struct {
	registry *cluster.Registry
	limiter  *Limiter
	storage  cache.Storage
}

// NewPipeline 创建一个绑定到给定集群表的准入流水线 storage 为 nil 时落回 cache.NoStorage
func NewPipeline(registry *cluster.Registry, storage cache.Storage) *Pipeline {
	if storage == nil {
		storage = cache.NoStorage{}
	}
	return &Pipeline{
		registry: registry,
		limiter:  NewLimiter(),
		storage:  storage,
	}
}

// Run 依次执行准入流水线的每一步 handled 为 true 表示已经向下游写出了响应
// (成功的缓存命中 或任意一步的短路错误响应)：调用方不应再进入转发阶段。
func (p *Pipeline) Run(goCtx context.Context, d *session.Downstream) (*Context, bool, error) {
	req := d.Request()

	idx, err := p.registry.Select(req)
	if err != nil {
		status := 404
		if errors.Is(err, cluster.ErrInvalidTarget) {
			status = 400
		}
		if werr := writeErrorResponse(d, status, "Path does not exist", nil); werr != nil {
			return nil, true, werr
		}
		return nil, true, nil
	}

	cl := p.registry.Cluster(idx)
	ctx := &Context{
		ClusterIndex:    idx,
		Cluster:         cl,
		ClusterIdentity: cl.Name,
		ClientAddress:   d.Conn.RemoteAddr().String(),
	}

	forwarded, perr := url.ParseRequestURI(string(req.RawTarget))
	forwardedPath := "/"
	if perr == nil {
		forwardedPath = forwarded.Path
	}

	if handled, err := checkPathACL(ctx, d, forwardedPath, req.Method); handled || err != nil {
		return ctx, handled, err
	}
	if handled, err := checkAuth(ctx, d); handled || err != nil {
		return ctx, handled, err
	}
	if handled, err := p.limiter.checkGlobalRateLimit(ctx, d); handled || err != nil {
		return ctx, handled, err
	}
	if handled, err := p.limiter.checkClientRateLimit(ctx, d); handled || err != nil {
		return ctx, handled, err
	}
	if handled, err := checkCacheProbe(goCtx, ctx, d, p.storage, req.Method, forwardedPath); handled || err != nil {
		return ctx, handled, err
	}

	return ctx, false, nil
}

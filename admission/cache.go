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
	"time"

	"github.com/packetd/gatewayd/cache"
	"github.com/packetd/gatewayd/header"
	"github.com/packetd/gatewayd/session"
)

// checkCacheProbe 是准入流水线的最后一步：若集群配置了缓存 且 storage 里有一条未过期
// 的命中记录 直接把缓存内容回放给下游 跳过转发阶段。storage 查找失败时不阻塞请求
// 退化为未命中 交给后续的转发阶段照常处理。
func checkCacheProbe(goCtx context.Context, ctx *Context, d *session.Downstream, storage cache.Storage, method, path string) (handled bool, err error) {
	if ctx.Cluster.Config.Cache == nil {
		return false, nil
	}

	key := cache.Key{ClusterIndex: ctx.ClusterIndex, Method: method, Path: path}
	meta, body, ok, err := storage.Lookup(goCtx, key)
	if err != nil || !ok {
		return false, nil
	}
	if !meta.FreshUntil.IsZero() && time.Now().After(meta.FreshUntil) {
		return false, nil
	}

	respHeader := meta.Header
	if respHeader == nil {
		respHeader = header.New()
	}
	resp := &header.ResponseHead{
		Version:    header.Version11,
		StatusCode: meta.StatusCode,
		Reason:     meta.Reason,
		Header:     respHeader,
	}
	if werr := d.WriteResponseHeaders(resp); werr != nil {
		return true, werr
	}
	d.SetResponseBodyWriter(resp)
	if _, _, werr := d.WriteResponseBody(body); werr != nil {
		return true, werr
	}
	if _, _, werr := d.FinishWritingResponseBody(); werr != nil {
		return true, werr
	}
	d.ApplySessionKeepalive()
	return true, nil
}

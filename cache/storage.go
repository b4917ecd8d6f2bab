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

// Package cache 定义准入流水线缓存探测阶段所依赖的 Storage 接口
//
// 响应缓存的具体存储实现不在本仓库范围内 (per Non-goals)；这里只固定接口形状，
// 让 admission 的缓存探测步骤可以针对任意后端编译，默认落回 NoStorage（总是未命中）
package cache

import (
	"context"
	"time"

	"github.com/packetd/gatewayd/header"
)

// Key 标识一条可缓存的响应 字段取自规整后的请求 (集群选择之后的转发路径)
type Key struct {
	ClusterIndex int
	Method       string
	Path         string
}

// Meta 是缓存命中时需要回放给下游的响应元数据
type Meta struct {
	StatusCode int
	Reason     string
	Header     *header.Header
	FreshUntil time.Time
}

// Storage 是响应缓存后端的存取接口
//
// 对应 original_source 里 pingora::cache::Storage trait 的 lookup/get_miss_handler/purge
// 三个核心操作 在这里收敛成三个方法：不可流式写入 (与原始实现的 MemoryStorage 一致，
// support_streaming_partial_write 恒为 false)，整包写入/整包读取
type Storage interface {
	// Lookup 查找 key 对应的缓存项；ok=false 表示未命中或已过期
	Lookup(ctx context.Context, key Key) (meta Meta, body []byte, ok bool, err error)
	// Store 写入一条新的缓存项 覆盖已存在的同 key 项
	Store(ctx context.Context, key Key, meta Meta, body []byte) error
	// Purge 移除一条缓存项 返回是否确实存在过
	Purge(ctx context.Context, key Key) (bool, error)
}

// NoStorage 是一个总是未命中且拒绝写入的 Storage 实现 用作未配置缓存时的默认值
type NoStorage struct{}

var _ Storage = NoStorage{}

// Lookup 总是报告未命中
func (NoStorage) Lookup(_ context.Context, _ Key) (Meta, []byte, bool, error) {
	return Meta{}, nil, false, nil
}

// Store 是一个空操作 没有缓存可写入
func (NoStorage) Store(_ context.Context, _ Key, _ Meta, _ []byte) error {
	return nil
}

// Purge 没有任何条目可清除
func (NoStorage) Purge(_ context.Context, _ Key) (bool, error) {
	return false, nil
}

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

// Package discovery 定义可插拔的上游发现接口 以及静态与 consul 两种实现
//
// 发现结果始终是 peer.Peer 列表 与 cluster 包静态配置的上游地址共用同一种拨号抽象
package discovery

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/packetd/gatewayd/logger"
	"github.com/packetd/gatewayd/peer"
)

// defaultUpdateInterval 是未显式配置刷新周期时的默认发现轮询间隔
const defaultUpdateInterval = 10 * time.Second

func newError(format string, args ...any) error {
	format = "discovery: " + format
	return errors.Errorf(format, args...)
}

// Discoverer 解析一个逻辑服务名为当前存活的上游端点列表
type Discoverer interface {
	// Resolve 返回当前已知的端点快照 调用方负责把结果原子地替换进集群的路由表
	Resolve(ctx context.Context) ([]peer.Peer, error)
}

// Watcher 在后台周期性调用 Discoverer 并把最新结果推送给 apply 回调
//
// 对应 original_source 中 DiscoveryBackgroundService::start 的 select! 轮询循环；
// 这里用 time.Ticker 加 ctx.Done 的 for-select 表达同样的取消/周期语义
type Watcher struct {
	discoverer Discoverer
	interval   time.Duration
	apply      func([]peer.Peer)
}

// NewWatcher 构造一个后台发现更新器 interval<=0 时回退到 10 秒默认值 与原始实现一致
func NewWatcher(d Discoverer, interval time.Duration, apply func([]peer.Peer)) *Watcher {
	if interval <= 0 {
		interval = defaultUpdateInterval
	}
	return &Watcher{discoverer: d, interval: interval, apply: apply}
}

// Run 阻塞轮询直至 ctx 被取消 每次成功的 Resolve 结果都会被转发给 apply
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			peers, err := w.discoverer.Resolve(ctx)
			if err != nil {
				logger.Warnf("discovery resolve failed: %v", err)
				continue
			}
			w.apply(peers)
		}
	}
}

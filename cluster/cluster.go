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

package cluster

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/packetd/gatewayd/peer"
)

// defaultRetryMethods 是未显式配置 retry_methods 时允许重试的方法集合
//
// 限定为幂等且不带请求体的方法 与已发送的请求体字节数为零一起作为重试前提
var defaultRetryMethods = []string{"GET", "HEAD", "OPTIONS"}

// Cluster 是由 Config 构建出的运行态集群描述 索引在 Registry 中保持稳定
type Cluster struct {
	Index  int
	Name   string
	Host   string
	TLS    bool
	Prefix string

	Config Config

	peers atomic.Pointer[[]peer.Peer]
}

// Peers 返回此集群当前的上游端点快照：静态配置的列表 或者最近一次
// discovery.Watcher 刷新写入的结果
func (c *Cluster) Peers() []peer.Peer {
	if p := c.peers.Load(); p != nil {
		return *p
	}
	return nil
}

// ApplyPeers 原子替换此集群的上游端点快照 供 discovery.Watcher 的刷新回调调用
func (c *Cluster) ApplyPeers(peers []peer.Peer) {
	c.peers.Store(&peers)
}

// RetryMethods 返回此集群允许重试的方法集合 未显式配置时落回默认集合
func (c *Cluster) RetryMethods() []string {
	if len(c.Config.RetryMethods) > 0 {
		return c.Config.RetryMethods
	}
	return defaultRetryMethods
}

// CanRetry 判断一次失败的上游请求是否允许重试
//
// 重试被限制在幂等方法且尚未发送请求体字节 per spec.md §9 的推荐做法
func (c *Cluster) CanRetry(method string, requestBodyBytesSent int) bool {
	if requestBodyBytesSent != 0 {
		return false
	}
	for _, m := range c.RetryMethods() {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// Timeout 返回此集群的上游请求超时 零值表示不设置超时
func (c *Cluster) Timeout() time.Duration {
	return c.Config.Timeout
}

// buildPeers 把静态 upstream 地址列表转换为可拨号的 peer.Peer 值
func buildPeers(cfg Config) []peer.Peer {
	if cfg.Discovery != nil {
		return nil
	}
	peers := make([]peer.Peer, 0, len(cfg.Upstream))
	for _, addr := range cfg.Upstream {
		peers = append(peers, peer.Peer{
			Name:    cfg.Name,
			Service: cfg.Name,
			Network: "tcp",
			Address: addr,
		})
	}
	return peers
}

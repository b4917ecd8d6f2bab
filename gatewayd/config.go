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

package gatewayd

import (
	"time"

	"github.com/packetd/gatewayd/cluster"
	"github.com/packetd/gatewayd/listener"
	"github.com/packetd/gatewayd/pool"
)

// Config 是 gatewayd 顶层配置 由 confengine 从 "gateway" 节点反序列化得到
type Config struct {
	// Listeners 本进程需要绑定的监听地址列表 每个地址独立运行一个 accept 循环
	Listeners []listener.Config `config:"listeners"`

	// Clusters 集群配置表 交给 cluster.Build 校验并构建
	Clusters []cluster.Config `config:"clusters"`

	// Pool 空闲上游连接池参数 零值时退回 pool.DefaultConfig
	Pool pool.Config `config:"pool"`

	// DiscoveryInterval 后台刷新动态上游列表的周期 零值退回 10s
	// (对应 original_source discovery.rs 里 DiscoveryBackgroundService::start 的 update_interval)
	DiscoveryInterval time.Duration `config:"discoveryInterval"`

	// Consul 所有集群共用的一个 consul 客户端连接参数
	Consul ConsulConfig `config:"consul"`

	// GraceTimeout 优雅停机时等待 in-flight 连接自然结束的最长时间
	GraceTimeout time.Duration `config:"graceTimeout"`
}

// ConsulConfig 描述共享的 consul 连接信息 对应 original_source 里 Discovery 结构体
// 持有的唯一一个 Arc<Consul> 连接 (同一进程内所有集群的 consul 发现共用一个客户端)
type ConsulConfig struct {
	Address string `config:"address"`
	Token   string `config:"token"`
}

func (c Config) discoveryInterval() time.Duration {
	if c.DiscoveryInterval <= 0 {
		return 10 * time.Second
	}
	return c.DiscoveryInterval
}

func (c Config) graceTimeout() time.Duration {
	if c.GraceTimeout <= 0 {
		return 30 * time.Second
	}
	return c.GraceTimeout
}

func (c Config) poolConfig() pool.Config {
	if c.Pool.LRUShards <= 0 && c.Pool.LRUCapacityPerShard <= 0 && c.Pool.IdleTimeout <= 0 {
		return pool.DefaultConfig()
	}
	return c.Pool
}

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

import "time"

// Config 是单个集群的原始 YAML 配置 由 confengine 反序列化得到
//
// name/prefix/host 三项是集群身份的强制字段 由 validateConfig 校验 其余字段 (含 tls) 均可选
type Config struct {
	Name   string `config:"name"`
	Prefix string `config:"prefix"`
	Host   string `config:"host"`
	TLS    bool   `config:"tls"`

	// Discovery 提供时 Upstream 字段被忽略 由 discovery 包负责动态解析上游地址
	Discovery *DiscoveryConfig `config:"discovery"`
	// Upstream 是静态上游地址列表 格式为 "host:port"
	Upstream []string `config:"upstream"`

	RateLimit *RateLimitConfig `config:"rate_limit"`
	Cache     *CacheConfig     `config:"cache"`
	Auth      *AuthConfig      `config:"auth"`

	Retry        int           `config:"retry"`
	RetryMethods []string      `config:"retry_methods"`
	Timeout      time.Duration `config:"timeout"`

	Consumers []ConsumerConfig `config:"consumers"`
	Routes    []RouteConfig    `config:"routes"`
}

// DiscoveryConfig 选择上游发现策略 目前只有 static 与 consul 两种取值
type DiscoveryConfig struct {
	Consul *ConsulDiscoveryConfig `config:"consul"`
}

// ConsulDiscoveryConfig 描述一次 consul 服务发现查询
type ConsulDiscoveryConfig struct {
	Name    string `config:"name"`
	Passing bool   `config:"passing"`
}

// RateLimitConfig 对应 §4.9 的全局/客户端两级限流配置
type RateLimitConfig struct {
	Global *BasicLimiterConfig `config:"global"`
	Client *BasicLimiterConfig `config:"client"`
}

// BasicLimiterConfig 是固定窗口限流的参数 Window 为零时使用 60s 默认值
type BasicLimiterConfig struct {
	Limit  int           `config:"limit"`
	Window time.Duration `config:"window"`
}

// CacheConfig 选择缓存探测策略 当前只定义内存型的 TTL/容量参数
// 对应的 Storage 接口实现留空 属于 Non-goal
type CacheConfig struct {
	Memory *MemoryCacheConfig `config:"memory"`
}

// MemoryCacheConfig 描述内存缓存的容量与锁等待参数
type MemoryCacheConfig struct {
	TTL         time.Duration `config:"ttl"`
	MaxSize     int           `config:"max_size"`
	MaxEntries  int           `config:"max_entries"`
	LockTimeout time.Duration `config:"lock_timeout"`
}

// AuthConfig 是集群或路由级别的鉴权策略 Key 与 JWT 互斥
type AuthConfig struct {
	Key *KeyAuthConfig `config:"key"`
	JWT *JWTAuthConfig `config:"jwt"`
}

// KeyAuthConfig 是 Bearer API key 鉴权的允许列表
type KeyAuthConfig struct {
	Allowed []string `config:"allowed"`
}

// JWTAuthConfig 是 Bearer JWT 鉴权的签名密钥 HS256
type JWTAuthConfig struct {
	Secret string `config:"secret"`
}

// ConsumerConfig 是受信任调用方的身份声明 JWT 鉴权通过后只按 name 匹配 ACL 字段不参与校验
type ConsumerConfig struct {
	Name string   `config:"name"`
	ACL  []string `config:"acl"`
}

// RouteConfig 是集群内的一条路由 对应 §4.9 准入流水线的路径解析阶段
//
// Methods/AllowedCIDRs 为空表示不限制 Auth 覆盖集群级 Auth
type RouteConfig struct {
	Name         string           `config:"name"`
	Paths        []string         `config:"paths"`
	Methods      []string         `config:"methods"`
	AllowedCIDRs []string         `config:"allowed_cidrs"`
	Auth         *AuthConfig      `config:"auth"`
	Consumers    []ConsumerConfig `config:"consumers"`
}

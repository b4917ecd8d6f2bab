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

import "strings"

// Registry 持有全部已构建的集群 以及用于 §4.8 路径前缀选择的只读映射
//
// Registry 一旦通过 Build 构建完成即不可变 运行期的前缀查找与重写不持有任何锁
type Registry struct {
	clusters []*Cluster
	prefixes map[string]int
}

// Build 校验并构建一组集群配置 前缀重复或必填字段缺失时在启动期直接报错
//
// 对应 original_source 中 validate_cluster_config/validate_duplicated_prefix 在启动阶段
// 的强校验 这里用返回 error 取代 panic 以便 cmd 包决定如何汇报
func Build(configs []Config) (*Registry, error) {
	prefixes := make(map[string]int, len(configs))
	clusters := make([]*Cluster, 0, len(configs))

	for idx, cfg := range configs {
		if err := validateConfig(cfg); err != nil {
			return nil, err
		}
		if existing, dup := prefixes[cfg.Prefix]; dup {
			return nil, newError("duplicate prefix %q shared by clusters %d and %d", cfg.Prefix, existing, idx)
		}

		cl := &Cluster{
			Index:  idx,
			Name:   cfg.Name,
			Host:   cfg.Host,
			TLS:    cfg.TLS,
			Prefix: cfg.Prefix,
			Config: cfg,
		}
		cl.ApplyPeers(buildPeers(cfg))
		clusters = append(clusters, cl)
		prefixes[cfg.Prefix] = idx
	}

	return &Registry{clusters: clusters, prefixes: prefixes}, nil
}

// validateConfig 校验单个集群配置的强制字段与前缀格式
func validateConfig(cfg Config) error {
	if cfg.Name == "" || cfg.Host == "" {
		return newError("cluster identity missing: name and host are mandatory")
	}
	if cfg.Prefix == "" || !strings.HasPrefix(cfg.Prefix, "/") || strings.HasSuffix(cfg.Prefix, "/") {
		return newError("cluster %q: prefix must start with %q and must not end with it, got %q", cfg.Name, "/", cfg.Prefix)
	}
	if cfg.Discovery == nil {
		for _, upstream := range cfg.Upstream {
			if upstream == "" {
				return newError("cluster %q: empty upstream address", cfg.Name)
			}
		}
	}
	return nil
}

// Len 返回已注册的集群数量
func (r *Registry) Len() int {
	return len(r.clusters)
}

// Cluster 按索引返回集群 索引越界时返回 nil
func (r *Registry) Cluster(idx int) *Cluster {
	if idx < 0 || idx >= len(r.clusters) {
		return nil
	}
	return r.clusters[idx]
}

// Clusters 返回全部已注册集群的只读视图
func (r *Registry) Clusters() []*Cluster {
	return r.clusters
}

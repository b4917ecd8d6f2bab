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

package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/packetd/gatewayd/peer"
)

// defaultConsulAddress 复现 original_source 里硬编码的本地 consul 地址
// 仅作为开发环境默认值；生产配置应当通过 NewConsul 的参数覆盖
const defaultConsulAddress = "http://localhost:8500"

// Consul 通过 HTTP catalog/health API 查询一个服务名下当前存活的节点
//
// 对应 original_source 的 rs_consul 客户端用法；这里直接用 net/http 打 consul 的
// REST 接口 因为 pack 中没有任何仓库依赖一个 consul 客户端库可以复用
type Consul struct {
	address    string
	token      string
	httpClient *http.Client
}

// NewConsul 构造一个 consul 发现客户端 address 为空时使用 http://localhost:8500
func NewConsul(address, token string) *Consul {
	if address == "" {
		address = defaultConsulAddress
	}
	return &Consul{
		address:    address,
		token:      token,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// consulServiceEntry 对应 /v1/health/service/<name> 响应里每个节点关心的字段
type consulServiceEntry struct {
	Service struct {
		Address string `json:"Address"`
		Port    int    `json:"Port"`
	} `json:"Service"`
}

// Resolve 查询 service 下 passing (健康检查通过) 的节点 转换为拨号用的 peer.Peer
//
// localhost 地址被特判为 127.0.0.1 与原始实现的 ipv4 转换逻辑保持一致
func (c *Consul) Resolve(ctx context.Context, service string, passing bool) ([]peer.Peer, error) {
	reqURL := fmt.Sprintf("%s/v1/health/service/%s", c.address, url.PathEscape(service))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build consul request")
	}
	q := req.URL.Query()
	if passing {
		q.Set("passing", "true")
	}
	req.URL.RawQuery = q.Encode()
	if c.token != "" {
		req.Header.Set("X-Consul-Token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "query consul")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newError("consul returned status %d for service %q", resp.StatusCode, service)
	}

	var entries []consulServiceEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, errors.Wrap(err, "decode consul response")
	}

	peers := make([]peer.Peer, 0, len(entries))
	for _, entry := range entries {
		address := entry.Service.Address
		if address == "localhost" {
			address = "127.0.0.1"
		}
		peers = append(peers, peer.Peer{
			Name:    service,
			Service: service,
			Network: "tcp",
			Address: fmt.Sprintf("%s:%d", address, entry.Service.Port),
		})
	}
	return peers, nil
}

// ServiceDiscoverer adapts Consul's Resolve to the Discoverer interface for a single
// fixed service name, matching the per-cluster binding original_source builds via
// ConsulServiceDiscovery.
type ServiceDiscoverer struct {
	consul  *Consul
	service string
	passing bool
}

// NewServiceDiscoverer binds a Consul client to one service name/passing filter.
func NewServiceDiscoverer(c *Consul, service string, passing bool) *ServiceDiscoverer {
	return &ServiceDiscoverer{consul: c, service: service, passing: passing}
}

// Resolve implements Discoverer by delegating to Consul.Resolve with the bound service.
func (s *ServiceDiscoverer) Resolve(ctx context.Context) ([]peer.Peer, error) {
	return s.consul.Resolve(ctx, s.service, s.passing)
}

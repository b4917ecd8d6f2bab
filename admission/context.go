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

// Package admission 实现请求进入转发阶段前的准入流水线：
// 路径/ACL 校验 -> 身份认证 -> 限流 -> 缓存探测，每一步都可以短路并直接
// 向下游写出响应。
package admission

import "github.com/packetd/gatewayd/cluster"

// Context 携带准入流水线各步骤之间传递的请求态 对应 original_source 里
// glaive 的 RouterCtx：cluster_address/cluster_identity/client_credentials/
// client_address 四个字段在这里都保留了下来。
type Context struct {
	// ClusterIndex 是 cluster.Registry.Select 选出的集群下标
	ClusterIndex int

	// Cluster 是 ClusterIndex 对应的集群 Select 成功后由调用方填入
	Cluster *cluster.Cluster

	// ClusterIdentity 用作全局限流的哈希键 取集群名
	ClusterIdentity string

	// ClientCredentials 是从 Authorization 头中提取出的调用方凭证
	// (API key 或 JWT consumer 名) 未认证的请求留空
	ClientCredentials string

	// ClientAddress 是下游连接的远端地址 路由的 CIDR 白名单直接按它判定
	// 它也是 ClientCredentials 缺省时客户端限流的兜底键
	ClientAddress string

	// Route 是匹配到的路由配置 未匹配到具体路由时为 nil
	Route *cluster.RouteConfig
}

// CredentialsOrAddress 返回客户端限流应使用的客户端标识：
// 优先 ClientCredentials 不存在时退回 ClientAddress
func (c *Context) CredentialsOrAddress() string {
	if c.ClientCredentials != "" {
		return c.ClientCredentials
	}
	return c.ClientAddress
}

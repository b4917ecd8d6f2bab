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

// Package peer 描述一个可拨号的上游端点及其连接池分组身份
package peer

import (
	"github.com/cespare/xxhash/v2"
	"github.com/valyala/bytebufferpool"
)

// GroupID 标识连接池中共享空闲连接的一组上游端点
//
// 两个 Peer 只要 logical name、service 与 address 相同就映射到同一个 GroupID 从而共用
// 同一个连接池节点
type GroupID uint64

var sep = []byte{'\xff'}

// Peer 描述一次拨号所需的全部信息
type Peer struct {
	// Name 集群配置中的逻辑名称 用于区分同一地址下的不同业务用途
	Name string

	// Service 上游服务标识 通常对应发现系统中的服务名
	Service string

	// Network 拨号网络 "tcp" 或 "unix"
	Network string

	// Address 拨号地址：tcp 下为 "host:port" unix 下为 socket 文件路径
	Address string
}

// GroupID 返回此 Peer 所属的连接池分组 ID
func (p Peer) GroupID() GroupID {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(p.Name)
	buf.Write(sep)
	buf.WriteString(p.Service)
	buf.Write(sep)
	buf.WriteString(p.Network)
	buf.Write(sep)
	buf.WriteString(p.Address)

	return GroupID(xxhash.Sum64(buf.Bytes()))
}

// String 返回便于日志输出的 Peer 描述
func (p Peer) String() string {
	return p.Network + "://" + p.Address
}

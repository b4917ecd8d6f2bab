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

package stream

import (
	"time"
)

// Preset 是监听 accept 或拨号成功后应用到一条连接上的一组 TCP 调优参数
type Preset string

const (
	// PresetServer 面向监听端 accept 到的下游连接：关闭 Nagle 算法 保活探测用较短周期
	PresetServer Preset = "server"

	// PresetInteractiveClient 面向拨往上游的小包/低延迟连接：关闭 Nagle 算法 保活周期与 PresetServer 一致
	PresetInteractiveClient Preset = "interactive-client"

	// PresetBulkTransferClient 面向拨往上游的大 body 转发连接：不强求关闭 Nagle 保活周期放宽
	PresetBulkTransferClient Preset = "bulk-transfer-client"
)

const (
	serverKeepalivePeriod             = 30 * time.Second
	interactiveClientKeepalivePeriod  = 30 * time.Second
	bulkTransferClientKeepalivePeriod = 2 * time.Minute
)

// ApplyPreset 按命名预设对一条连接应用 TCP_NODELAY / SO_KEEPALIVE 调优
//
// 非 TCP 连接 (例如 Unix domain socket) 直接忽略 与 SetNoDelay/SetKeepalive 的语义一致。
func (c *Conn) ApplyPreset(preset Preset) {
	switch preset {
	case PresetServer:
		c.SetNoDelay()
		c.SetKeepalive(serverKeepalivePeriod)
	case PresetInteractiveClient:
		c.SetNoDelay()
		c.SetKeepalive(interactiveClientKeepalivePeriod)
	case PresetBulkTransferClient:
		c.SetKeepalive(bulkTransferClientKeepalivePeriod)
	}
	applyQuickAck(c.Conn)
}

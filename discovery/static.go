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

	"github.com/packetd/gatewayd/peer"
)

// Static 是一个不变的发现结果 用于直接在集群配置里硬编码上游地址的场景
//
// 这是 §4.8 以外集群不声明 discovery 时的隐式行为：cluster.Build 直接把
// Config.Upstream 转成 peer.Peer 切片 不需要经过 Watcher 轮询
type Static struct {
	peers []peer.Peer
}

// NewStatic 用一份固定的端点列表构造一个 Discoverer
func NewStatic(peers []peer.Peer) *Static {
	return &Static{peers: peers}
}

// Resolve 总是返回构造时给定的端点列表 不产生任何 I/O
func (s *Static) Resolve(_ context.Context) ([]peer.Peer, error) {
	return s.peers, nil
}

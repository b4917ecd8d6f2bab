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
	"context"
	"net"

	"github.com/packetd/gatewayd/peer"
)

// Dial 按 peer 描述的网络类型拨号建立一条新的上游连接
//
// 仅支持 "tcp" 与 "unix" 两种网络类型 与 peer.Peer.Network 的取值保持一致。
func Dial(ctx context.Context, p peer.Peer) (*Conn, error) {
	switch p.Network {
	case "tcp", "unix":
	default:
		return nil, ErrUnsupportedNetwork
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, p.Network, p.Address)
	if err != nil {
		return nil, newError("dial %s %s: %v", p.Network, p.Address, err)
	}

	c := New(conn)
	c.SetNoDelay()
	return c, nil
}

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

package admission

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/packetd/gatewayd/session"
	"github.com/packetd/gatewayd/stream"
)

// newTestDownstream 通过 net.Pipe 构造一个已经读完请求行+header 的 Downstream
// server 是测试用例用来观察下游收到的响应字节的一端；由于 net.Pipe 是无缓冲的
// 同步管道 调用方若不关心响应内容 应当先调用 drainResponses(server) 防止写端阻塞。
func newTestDownstream(t *testing.T, rawRequest string) (*session.Downstream, net.Conn) {
	t.Helper()

	server, client := net.Pipe()
	d := session.NewDownstream(stream.New(client))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = server.Write([]byte(rawRequest))
	}()

	ok, err := d.ReadRequest()
	require.NoError(t, err)
	require.True(t, ok)
	<-done

	return d, server
}

// drainResponses 在后台持续读空 conn 直到对端关闭 供不检查响应内容的测试用例使用
func drainResponses(conn net.Conn) {
	go func() { _, _ = io.Copy(io.Discard, conn) }()
}

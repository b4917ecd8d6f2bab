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

package session

import (
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/gatewayd/header"
	"github.com/packetd/gatewayd/stream"
)

func newPipedDownstream() (*Downstream, net.Conn) {
	server, client := net.Pipe()
	return NewDownstream(stream.New(client)), server
}

func TestDownstreamReadRequestWithContentLength(t *testing.T) {
	d, server := newPipedDownstream()
	defer server.Close()

	go func() {
		_, _ = server.Write([]byte("POST /upload HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello"))
	}()

	ok, err := d.ReadRequest()
	require.NoError(t, err)
	require.True(t, ok)

	req := d.Request()
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "/upload", string(req.RawTarget))
	assert.Equal(t, header.Version11, req.Version)

	body, ok, err := d.ReadRequestBodyBytes()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", string(body))
	assert.True(t, d.IsReadingRequestBodyFinished())
}

func TestDownstreamReadRequestHTTP10DefaultsUntilClosed(t *testing.T) {
	d, server := newPipedDownstream()

	go func() {
		_, _ = server.Write([]byte("GET / HTTP/1.0\r\n\r\n"))
		server.Close()
	}()

	ok, err := d.ReadRequest()
	require.NoError(t, err)
	require.True(t, ok)

	d.SetRequestBodyReader()
	_, bodyOk, err := d.ReadRequestBody()
	require.NoError(t, err)
	assert.False(t, bodyOk)
	assert.True(t, d.IsReadingRequestBodyFinished())
}

func TestDownstreamReadRequestHTTP11DefaultsEmptyBody(t *testing.T) {
	d, server := newPipedDownstream()
	defer server.Close()

	go func() {
		_, _ = server.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	}()

	ok, err := d.ReadRequest()
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, d.IsRequestBodyEmpty())
	assert.True(t, d.IsReadingRequestBodyFinished())
}

func TestDownstreamReadRequestEmptyConnectionIsNotOK(t *testing.T) {
	d, server := newPipedDownstream()
	server.Close()

	ok, err := d.ReadRequest()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDownstreamReadRequestResetsBodyReaderAcrossKeepalive(t *testing.T) {
	d, server := newPipedDownstream()
	defer server.Close()

	go func() {
		_, _ = server.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	}()
	ok, err := d.ReadRequest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, d.IsReadingRequestBodyFinished())

	go func() {
		_, _ = server.Write([]byte("POST /upload HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello"))
	}()
	ok, err = d.ReadRequest()
	require.NoError(t, err)
	require.True(t, ok)

	// 复用同一个 Downstream 的第二个请求带 body：如果 bodyReader 没有在 ReadRequest
	// 里复位 它还停留在上一个请求的 Completed 状态 这里会被误判为已经读完。
	assert.False(t, d.IsReadingRequestBodyFinished())
	body, bodyOk, err := d.ReadRequestBodyBytes()
	require.NoError(t, err)
	require.True(t, bodyOk)
	assert.Equal(t, "hello", string(body))
	assert.True(t, d.IsReadingRequestBodyFinished())
}

func TestDownstreamRequestPanicsBeforeRead(t *testing.T) {
	d, server := newPipedDownstream()
	defer server.Close()

	assert.Panics(t, func() { d.Request() })
}

func TestDownstreamWriteResponseHeadersThenBody(t *testing.T) {
	d, server := newPipedDownstream()
	defer server.Close()

	go func() {
		_, _ = server.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	}()
	ok, err := d.ReadRequest()
	require.NoError(t, err)
	require.True(t, ok)

	received := make(chan []byte, 1)
	go func() {
		buf, _ := io.ReadAll(server)
		received <- buf
	}()

	resp := &header.ResponseHead{Version: header.Version11, StatusCode: 200, Header: header.New()}
	resp.Header.Set("Content-Length", "2")
	require.NoError(t, d.WriteResponseHeaders(resp))

	d.SetResponseBodyWriter(resp)
	_, ok, err = d.WriteResponseBody([]byte("ok"))
	require.NoError(t, err)
	require.True(t, ok)
	_, _, err = d.FinishWritingResponseBody()
	require.NoError(t, err)
	require.NoError(t, d.Close())

	got := <-received
	text := string(got)
	assert.Contains(t, text, "HTTP/1.1 200 OK")
	assert.Contains(t, text, "Content-Length: 2")
	assert.True(t, strings.HasSuffix(text, "ok"))
}

func TestDownstreamSetRequestBodyReaderUpgradeReadsUntilClosed(t *testing.T) {
	d, server := newPipedDownstream()

	go func() {
		_, _ = server.Write([]byte("GET /ws HTTP/1.1\r\nHost: x\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n\r\n"))
	}()
	ok, err := d.ReadRequest()
	require.NoError(t, err)
	require.True(t, ok)

	// 握手请求本身没有 body 但升级请求不应被当成 content-length 为 0 的空 body 立即
	// 读完：还要继续从连接里读后续字节 直到客户端关闭为止。
	assert.False(t, d.IsReadingRequestBodyFinished())
	assert.True(t, d.IsUpgrade())

	done := make(chan struct{})
	go func() {
		_, _ = server.Write([]byte("frame-bytes"))
		server.Close()
		close(done)
	}()

	body, ok, err := d.ReadRequestBodyBytes()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "frame-bytes", string(body))
	<-done

	_, ok, err = d.ReadRequestBodyBytes()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, d.IsReadingRequestBodyFinished())
}

func TestDownstreamApplySessionKeepaliveOffAfterUpgrade(t *testing.T) {
	d, server := newPipedDownstream()
	defer server.Close()

	go func() {
		_, _ = server.Write([]byte("GET /ws HTTP/1.1\r\nHost: x\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n\r\n"))
	}()
	ok, err := d.ReadRequest()
	require.NoError(t, err)
	require.True(t, ok)
	d.SetRequestBodyReader()

	resp := &header.ResponseHead{Version: header.Version11, StatusCode: 101, Header: header.New()}
	resp.Header.Set("Connection", "Upgrade")
	require.NoError(t, d.WriteResponseHeaders(resp))

	d.ApplySessionKeepalive()
	assert.True(t, d.KeepaliveTimeout().IsOff())
}

func TestDownstreamSetResponseBodyWriterHeadHasNoBody(t *testing.T) {
	d, server := newPipedDownstream()
	defer server.Close()

	go func() {
		_, _ = server.Write([]byte("HEAD / HTTP/1.1\r\nHost: x\r\n\r\n"))
	}()
	ok, err := d.ReadRequest()
	require.NoError(t, err)
	require.True(t, ok)

	resp := &header.ResponseHead{Version: header.Version11, StatusCode: 200, Header: header.New()}
	d.SetResponseBodyWriter(resp)
	assert.True(t, d.bodyWriter.Finished())
}

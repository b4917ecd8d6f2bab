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
	"bytes"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/gatewayd/header"
	"github.com/packetd/gatewayd/stream"
)

func newPipedUpstream() (*Upstream, net.Conn) {
	server, client := net.Pipe()
	return NewUpstream(stream.New(client)), server
}

func TestUpstreamReadUpstreamResponseDrivesTaskSequence(t *testing.T) {
	u, server := newPipedUpstream()
	defer server.Close()
	u.SetRequest(&header.RequestHead{Method: "GET", Version: header.Version11, Header: header.New()})

	go func() {
		_, _ = server.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"))
	}()

	task, err := u.ReadUpstreamResponse()
	require.NoError(t, err)
	require.False(t, task.IsFailed())
	assert.Equal(t, 200, task.Header().StatusCode)
	assert.False(t, task.IsEnd())

	task, err = u.ReadUpstreamResponse()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(task.Body()))
	assert.True(t, task.IsEnd())

	task, err = u.ReadUpstreamResponse()
	require.NoError(t, err)
	assert.True(t, task.IsDone())
}

func TestUpstreamSetResponseBodyReaderHeadIsContentLengthZero(t *testing.T) {
	u, server := newPipedUpstream()
	defer server.Close()
	u.SetRequest(&header.RequestHead{Method: "HEAD", Version: header.Version11, Header: header.New()})

	go func() {
		_, _ = server.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n"))
	}()

	ok, err := u.ReadResponse()
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, u.IsReadingResponseBodyFinished())
}

func TestUpstreamSetResponseBodyReader204HasNoBody(t *testing.T) {
	u, server := newPipedUpstream()
	defer server.Close()
	u.SetRequest(&header.RequestHead{Method: "GET", Version: header.Version11, Header: header.New()})

	go func() {
		_, _ = server.Write([]byte("HTTP/1.1 204 No Content\r\n\r\n"))
	}()

	ok, err := u.ReadResponse()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, u.IsReadingResponseBodyFinished())
}

func TestUpstreamSetResponseBodyReader101SwitchesToUntilClosedAndForceClose(t *testing.T) {
	u, server := newPipedUpstream()
	defer server.Close()

	reqHeader := header.New()
	reqHeader.Set("Upgrade", "websocket")
	u.SetRequest(&header.RequestHead{Method: "GET", Version: header.Version11, Header: reqHeader})

	go func() {
		_, _ = server.Write([]byte("HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n\r\n"))
	}()

	ok, err := u.ReadResponse()
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, u.IsReadingResponseBodyFinished())

	// 101 之后 u.upgrade 必须落地到位 才能让 ForceCloseResponseBodyReader 在请求体
	// 写完时把仍在 until-closed 模式里等待的 response body reader 强制标记为完成。
	u.ForceCloseResponseBodyReader()
	assert.True(t, u.IsReadingResponseBodyFinished())
}

func TestUpstreamApplySessionKeepaliveHTTP11DefaultsOn(t *testing.T) {
	u, server := newPipedUpstream()
	defer server.Close()
	u.SetRequest(&header.RequestHead{Method: "GET", Version: header.Version11, Header: header.New()})

	go func() {
		_, _ = server.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"))
	}()

	ok, err := u.ReadResponse()
	require.NoError(t, err)
	require.True(t, ok)

	u.ApplySessionKeepalive()
	assert.True(t, u.IsSessionKeepalive())
	_, ok = u.KeepaliveTimeout().Timeout()
	assert.False(t, ok)
}

func TestUpstreamApplySessionKeepaliveHonorsConnectionClose(t *testing.T) {
	u, server := newPipedUpstream()
	defer server.Close()
	u.SetRequest(&header.RequestHead{Method: "GET", Version: header.Version11, Header: header.New()})

	go func() {
		_, _ = server.Write([]byte("HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 0\r\n\r\n"))
	}()

	ok, err := u.ReadResponse()
	require.NoError(t, err)
	require.True(t, ok)

	u.ApplySessionKeepalive()
	assert.False(t, u.IsSessionKeepalive())
}

func TestUpstreamApplySessionKeepaliveHonorsExplicitTimeout(t *testing.T) {
	u, server := newPipedUpstream()
	defer server.Close()
	u.SetRequest(&header.RequestHead{Method: "GET", Version: header.Version11, Header: header.New()})

	go func() {
		_, _ = server.Write([]byte("HTTP/1.1 200 OK\r\nConnection: keep-alive\r\nKeep-Alive: timeout=30\r\nContent-Length: 0\r\n\r\n"))
	}()

	ok, err := u.ReadResponse()
	require.NoError(t, err)
	require.True(t, ok)

	u.ApplySessionKeepalive()
	assert.True(t, u.IsSessionKeepalive())
	d, ok := u.KeepaliveTimeout().Timeout()
	require.True(t, ok)
	assert.Equal(t, 30e9, float64(d))
}

func TestUpstreamApplySessionKeepaliveHTTP10DefaultsOff(t *testing.T) {
	u, server := newPipedUpstream()
	defer server.Close()
	u.SetRequest(&header.RequestHead{Method: "GET", Version: header.Version10, Header: header.New()})

	go func() {
		_, _ = server.Write([]byte("HTTP/1.0 200 OK\r\nContent-Length: 0\r\n\r\n"))
	}()

	ok, err := u.ReadResponse()
	require.NoError(t, err)
	require.True(t, ok)

	u.ApplySessionKeepalive()
	assert.False(t, u.IsSessionKeepalive())
}

func TestUpstreamWriteRequestHeaderThenBody(t *testing.T) {
	u, server := newPipedUpstream()
	defer server.Close()

	received := make(chan []byte, 1)
	go func() {
		buf, _ := io.ReadAll(server)
		received <- buf
	}()

	req := &header.RequestHead{Method: "POST", RawTarget: []byte("/x"), Version: header.Version11, Header: header.New()}
	req.Header.Set("Content-Length", "2")
	require.NoError(t, u.WriteRequestHeader(req))

	_, ok, err := u.WriteRequestBody([]byte("hi"))
	require.NoError(t, err)
	require.True(t, ok)
	_, _, err = u.FinishWritingRequestBody()
	require.NoError(t, err)
	require.NoError(t, u.Close())

	got := string(<-received)
	assert.Contains(t, got, "POST /x HTTP/1.1")
	assert.True(t, strings.HasSuffix(got, "hi"))
}

func TestUpstreamRequestUpgradeSelectsUntilClosedWrite(t *testing.T) {
	u, server := newPipedUpstream()
	defer server.Close()

	req := &header.RequestHead{Method: "GET", RawTarget: []byte("/ws"), Version: header.Version11, Header: header.New()}
	req.Header.Set("Upgrade", "websocket")
	u.SetRequestBodyWriter(req)

	var buf bytes.Buffer
	n, ok, err := u.bodyWriter.WriteBody(&buf, []byte("raw-bytes"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, len("raw-bytes"), n)
	assert.Equal(t, "raw-bytes", buf.String())
	assert.False(t, u.bodyWriter.Finished())
}

func TestUpstreamWriteUpstreamRequestPanicsOnNonBodyTask(t *testing.T) {
	u, _ := newPipedUpstream()
	assert.Panics(t, func() {
		_, _ = u.WriteUpstreamRequest(DoneTask())
	})
}

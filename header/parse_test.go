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

package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRequestHeadComplete(t *testing.T) {
	raw := "GET /hello?a=1 HTTP/1.1\r\nHost: example.com\r\nAccept: */*\r\n\r\nleftover"

	h, n, err := ParseRequestHead([]byte(raw))
	assert.NoError(t, err)
	assert.Equal(t, "GET", h.Method)
	assert.Equal(t, "/hello?a=1", string(h.RawTarget))
	assert.Equal(t, Version11, h.Version)

	host, ok := h.Header.Get("Host")
	assert.True(t, ok)
	assert.Equal(t, "example.com", host)

	assert.Equal(t, len(raw)-len("leftover"), n)
}

func TestParseRequestHeadIncomplete(t *testing.T) {
	_, _, err := ParseRequestHead([]byte("GET / HTTP/1.1\r\nHost: example.com\r\n"))
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestParseRequestHeadMalformedStartLine(t *testing.T) {
	_, _, err := ParseRequestHead([]byte("GET\r\n\r\n"))
	assert.ErrorIs(t, err, ErrMalformedStartLine)
}

func TestParseRequestHeadTooManyHeaders(t *testing.T) {
	raw := "GET / HTTP/1.1\r\n"
	for i := 0; i < 300; i++ {
		raw += "X-A: 1\r\n"
	}
	raw += "\r\n"

	_, _, err := ParseRequestHead([]byte(raw))
	assert.ErrorIs(t, err, ErrTooManyHeaders)
}

func TestParseRequestHeadTooLarge(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Big: " + string(make([]byte, 9*1024)) + "\r\n\r\n"
	_, _, err := ParseRequestHead([]byte(raw))
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestParseResponseHeadComplete(t *testing.T) {
	raw := "HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n"

	h, n, err := ParseResponseHead([]byte(raw))
	assert.NoError(t, err)
	assert.Equal(t, 404, h.StatusCode)
	assert.Equal(t, "Not Found", h.Reason)
	assert.Equal(t, Version11, h.Version)
	assert.Equal(t, len(raw), n)
}

func TestParseResponseHeadNoReason(t *testing.T) {
	h, _, err := ParseResponseHead([]byte("HTTP/1.1 204\r\n\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, 204, h.StatusCode)
	assert.Equal(t, "", h.Reason)
	assert.Equal(t, "No Content", h.ReasonOrDefault())
}

func TestParseResponseHeadObsoleteFolding(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nX-Multi: first\r\n second\r\n\r\n"

	h, _, err := ParseResponseHead([]byte(raw))
	assert.NoError(t, err)

	v, ok := h.Header.Get("X-Multi")
	assert.True(t, ok)
	assert.Equal(t, "first second", v)
}

func TestParseResponseHeadTrailingWhitespaceInName(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nX-Name \t: value\r\n\r\n"

	h, _, err := ParseResponseHead([]byte(raw))
	assert.NoError(t, err)

	v, ok := h.Header.Get("X-Name")
	assert.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestContentLength(t *testing.T) {
	h := New()
	h.Set("Content-Length", "42")

	n, ok, err := ContentLength(h)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 42, n)
}

func TestContentLengthNegativeIsError(t *testing.T) {
	h := New()
	h.Set("Content-Length", "-1")

	_, ok, err := ContentLength(h)
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestIsChunkedTransferEncoding(t *testing.T) {
	h := New()
	h.Set("Transfer-Encoding", "CHUNKED")
	assert.True(t, IsChunkedTransferEncoding(h))

	h2 := New()
	h2.Set("Transfer-Encoding", "gzip, chunked")
	assert.False(t, IsChunkedTransferEncoding(h2))
}

func TestParseConnectionHeader(t *testing.T) {
	h := New()
	h.Set("Connection", "Keep-Alive, Upgrade")

	tokens := ParseConnectionHeader(h)
	assert.True(t, tokens.KeepAlive)
	assert.True(t, tokens.Upgrade)
	assert.False(t, tokens.Close)
}

func TestKeepAliveTimeout(t *testing.T) {
	h := New()
	h.Set("Keep-Alive", "timeout=5, max=100")

	secs, ok := KeepAliveTimeout(h)
	assert.True(t, ok)
	assert.Equal(t, 5, secs)
}

func TestKeepAliveTimeoutMissing(t *testing.T) {
	h := New()
	_, ok := KeepAliveTimeout(h)
	assert.False(t, ok)
}

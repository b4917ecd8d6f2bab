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
	"github.com/valyala/bytebufferpool"
)

func TestMarshalRequestRoundTrip(t *testing.T) {
	h := &RequestHead{
		Method:    "GET",
		RawTarget: []byte("/hello"),
		Version:   Version11,
		Header:    New(),
	}
	h.Header.Set("Host", "example.com")

	buf := MarshalRequest(h)
	defer bytebufferpool.Put(buf)

	parsed, n, err := ParseRequestHead(buf.B)
	assert.NoError(t, err)
	assert.Equal(t, buf.Len(), n)
	assert.Equal(t, "GET", parsed.Method)
	assert.Equal(t, "/hello", string(parsed.RawTarget))

	host, ok := parsed.Header.Get("Host")
	assert.True(t, ok)
	assert.Equal(t, "example.com", host)
}

func TestMarshalResponseRoundTrip(t *testing.T) {
	h := &ResponseHead{
		Version:    Version11,
		StatusCode: 200,
		Header:     New(),
	}
	h.Header.Set("Content-Length", "0")

	buf := MarshalResponse(h)
	defer bytebufferpool.Put(buf)

	assert.Contains(t, buf.String(), "HTTP/1.1 200 OK\r\n")

	parsed, _, err := ParseResponseHead(buf.B)
	assert.NoError(t, err)
	assert.Equal(t, 200, parsed.StatusCode)
	assert.Equal(t, "OK", parsed.Reason)
}

func TestWriteStatusLineOmitsEmptyReason(t *testing.T) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	WriteStatusLine(buf, Version11, 204, "")
	assert.Equal(t, "HTTP/1.1 204\r\n", buf.String())
}

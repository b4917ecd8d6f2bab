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
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// WriteRequestLine 将请求行写入 buf
func WriteRequestLine(buf *bytebufferpool.ByteBuffer, method string, target []byte, version Version) {
	buf.WriteString(method)
	buf.WriteString(" ")
	buf.Write(target)
	buf.WriteString(" ")
	buf.WriteString(version.String())
	buf.WriteString("\r\n")
}

// WriteStatusLine 将状态行写入 buf reason 为空时省略
func WriteStatusLine(buf *bytebufferpool.ByteBuffer, version Version, code int, reason string) {
	buf.WriteString(version.String())
	buf.WriteString(" ")
	buf.WriteString(strconv.Itoa(code))
	if reason != "" {
		buf.WriteString(" ")
		buf.WriteString(reason)
	}
	buf.WriteString("\r\n")
}

// WriteFields 按插入顺序写出所有 header 字段 并以终止空行结束 header 块
//
// 值原样输出 不做任何折叠
func WriteFields(buf *bytebufferpool.ByteBuffer, h *Header) {
	h.Range(func(name, value string) {
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	})
	buf.WriteString("\r\n")
}

// MarshalRequest 将请求行 + header 序列化为 wire 字节
//
// 调用方负责在写出完成后调用 bytebufferpool.Put 归还返回的 buffer
func MarshalRequest(h *RequestHead) *bytebufferpool.ByteBuffer {
	buf := bytebufferpool.Get()
	WriteRequestLine(buf, h.Method, h.RawTarget, h.Version)
	WriteFields(buf, h.Header)
	return buf
}

// MarshalResponse 将状态行 + header 序列化为 wire 字节
//
// 调用方负责在写出完成后调用 bytebufferpool.Put 归还返回的 buffer
func MarshalResponse(h *ResponseHead) *bytebufferpool.ByteBuffer {
	buf := bytebufferpool.Get()
	WriteStatusLine(buf, h.Version, h.StatusCode, h.ReasonOrDefault())
	WriteFields(buf, h.Header)
	return buf
}

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
	"net/http"
	"strconv"
	"strings"
)

// RequestHead 是请求行加 header 块的解析结果
type RequestHead struct {
	Method    string
	RawTarget []byte // 原始请求目标字节 尚未做 URI 解析
	Version   Version
	Header    *Header
}

// ResponseHead 是状态行加 header 块的解析结果
type ResponseHead struct {
	Version    Version
	StatusCode int
	Reason     string // 显式设置的 reason phrase 为空时退回标准短语
	Header     *Header
}

// ReasonOrDefault 返回显式设置的 reason phrase 否则返回状态码对应的标准短语
func (h *ResponseHead) ReasonOrDefault() string {
	if h.Reason != "" {
		return h.Reason
	}
	return http.StatusText(h.StatusCode)
}

// ContentLength 解析 Content-Length header 值 负数视为非法
func ContentLength(h *Header) (n int64, ok bool, err error) {
	v, has := h.Get("Content-Length")
	if !has {
		return 0, false, nil
	}
	n, perr := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if perr != nil || n < 0 {
		return 0, true, newError("invalid content-length value %q", v)
	}
	return n, true, nil
}

// IsChunkedTransferEncoding 判断 Transfer-Encoding 是否精确匹配 chunked (大小写不敏感)
func IsChunkedTransferEncoding(h *Header) bool {
	v, ok := h.Get("Transfer-Encoding")
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(v), "chunked")
}

// ConnectionTokens 记录 Connection header 中识别到的 token
type ConnectionTokens struct {
	Close     bool
	KeepAlive bool
	Upgrade   bool
}

// ParseConnectionHeader 对 Connection header 做不区分大小写的逐 token 扫描
func ParseConnectionHeader(h *Header) ConnectionTokens {
	v, ok := h.Get("Connection")
	if !ok {
		return ConnectionTokens{}
	}

	var out ConnectionTokens
	for _, tok := range strings.Split(v, ",") {
		tok = strings.TrimSpace(tok)
		switch {
		case strings.EqualFold(tok, "close"):
			out.Close = true
		case strings.EqualFold(tok, "keep-alive"):
			out.KeepAlive = true
		case strings.EqualFold(tok, "upgrade"):
			out.Upgrade = true
		}
	}
	return out
}

// KeepAliveTimeout 解析 `Keep-Alive: timeout=<sec>[, max=<n>]`
//
// ok 为 false 表示未设置或无法解析 此时应当视为 "无限" 超时
func KeepAliveTimeout(h *Header) (secs int, ok bool) {
	v, has := h.Get("Keep-Alive")
	if !has {
		return 0, false
	}

	for _, part := range strings.Split(v, ",") {
		name, val, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "timeout") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}

// IsRequestUpgrade 判断请求是否满足协议升级条件 (HTTP/1.1 且携带 Upgrade header)
func IsRequestUpgrade(h *RequestHead) bool {
	return h.Version == Version11 && h.Header.Has("Upgrade")
}

// IsResponseUpgrade 判断响应是否为协议升级响应 (HTTP/1.1 101)
func IsResponseUpgrade(h *ResponseHead) bool {
	return h.Version == Version11 && h.StatusCode == 101
}

// IsRequestExpectContinue 判断请求是否为 `Expect: 100-continue`
func IsRequestExpectContinue(h *RequestHead) bool {
	if h.Version != Version11 {
		return false
	}
	v, ok := h.Header.Get("Expect")
	return ok && strings.EqualFold(strings.TrimSpace(v), "100-continue")
}

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

// Package header 实现保序、大小写保留的 HTTP header 多重映射及其 wire 编解码
package header

import "strings"

// field 是一个已解析的 header 键值对 保留原始大小写
type field struct {
	name  string // wire 上原样输出的大小写
	lower string // 小写形式 用于不区分大小写的查找
	value string
}

// Header 是保序、大小写保留的 header 多重映射
//
// 每个字段按加入时的大小写原样输出 同名 header 的各个字段也各自保留自己的大小写；
// Add 使用调用方提供的大小写 Set 按规范大小写表改写名称
type Header struct {
	fields []field
}

// New 创建一个空的 Header
func New() *Header {
	return &Header{}
}

// canonicalCasing 为标准化名称提供规范大小写 仅在以良好定义的标识符插入时替换调用方的大小写
var canonicalCasing = map[string]string{
	"age":                    "Age",
	"cache-control":          "Cache-Control",
	"connection":             "Connection",
	"content-type":           "Content-Type",
	"content-encoding":       "Content-Encoding",
	"content-length":         "Content-Length",
	"content-disposition":    "Content-Disposition",
	"content-range":          "Content-Range",
	"date":                   "Date",
	"transfer-encoding":      "Transfer-Encoding",
	"host":                   "Host",
	"server":                 "Server",
	"set-cookie":             "Set-Cookie",
	"cookie":                 "Cookie",
	"upgrade":                "Upgrade",
	"keep-alive":             "Keep-Alive",
	"location":               "Location",
	"etag":                   "ETag",
	"expires":                "Expires",
	"last-modified":          "Last-Modified",
	"retry-after":            "Retry-After",
	"vary":                   "Vary",
	"www-authenticate":       "WWW-Authenticate",
	"authorization":          "Authorization",
	"accept":                 "Accept",
	"accept-encoding":        "Accept-Encoding",
	"user-agent":             "User-Agent",
	"x-forwarded-for":        "X-Forwarded-For",
	"x-forwarded-proto":      "X-Forwarded-Proto",
	"x-request-id":           "X-Request-Id",
	"x-rate-limit-limit":     "X-Rate-Limit-Limit",
	"x-rate-limit-remaining": "X-Rate-Limit-Remaining",
	"x-rate-limit-reset":     "X-Rate-Limit-Reset",
}

// CanonicalName 返回 name 的规范大小写形式 未命中内置表时原样返回
func CanonicalName(name string) string {
	if canon, ok := canonicalCasing[strings.ToLower(name)]; ok {
		return canon
	}
	return name
}

// Add 追加一个 header 不替换已有同名 header
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, field{name: name, lower: strings.ToLower(name), value: value})
}

// Set 插入一个 header 并替换所有已有同名 header
//
// 写入时对 name 应用内置规范大小写表
func (h *Header) Set(name, value string) {
	h.Del(name)
	h.Add(CanonicalName(name), value)
}

// Get 返回第一个匹配 name 的 header 值 不区分大小写
func (h *Header) Get(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, f := range h.fields {
		if f.lower == lower {
			return f.value, true
		}
	}
	return "", false
}

// Values 返回所有匹配 name 的 header 值 不区分大小写 保留插入顺序
func (h *Header) Values(name string) []string {
	lower := strings.ToLower(name)
	var out []string
	for _, f := range h.fields {
		if f.lower == lower {
			out = append(out, f.value)
		}
	}
	return out
}

// Del 删除所有匹配 name 的 header 不区分大小写
func (h *Header) Del(name string) {
	lower := strings.ToLower(name)
	out := h.fields[:0]
	for _, f := range h.fields {
		if f.lower != lower {
			out = append(out, f)
		}
	}
	h.fields = out
}

// Has 判断是否存在匹配 name 的 header
func (h *Header) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Len 返回 header 字段的数量
func (h *Header) Len() int {
	return len(h.fields)
}

// Range 按插入顺序遍历所有 header 字段
func (h *Header) Range(fn func(name, value string)) {
	for _, f := range h.fields {
		fn(f.name, f.value)
	}
}

// Clone 返回 h 的一份深拷贝
func (h *Header) Clone() *Header {
	if h == nil {
		return New()
	}
	out := &Header{fields: make([]field, len(h.fields))}
	copy(out.fields, h.fields)
	return out
}

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

// Version 表示请求行/状态行中的 HTTP 协议版本
type Version uint8

const (
	// Version09 未识别的版本号归并到此
	Version09 Version = iota
	Version10
	Version11
)

// String 返回版本号的 wire 表示形式
func (v Version) String() string {
	switch v {
	case Version11:
		return "HTTP/1.1"
	case Version10:
		return "HTTP/1.0"
	default:
		return "HTTP/0.9"
	}
}

// ParseVersion 解析 wire 上的版本字符串 未识别的版本归并为 Version09
func ParseVersion(b []byte) Version {
	switch string(b) {
	case "HTTP/1.1":
		return Version11
	case "HTTP/1.0":
		return Version10
	default:
		return Version09
	}
}

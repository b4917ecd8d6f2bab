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

package body

type writeKind uint8

const (
	writeStart writeKind = iota
	writeCompleted
	writeContentLength
	writeChunked
	writeHTTP10
)

// writeState 是 body writer 的状态机值
//
//	writeCompleted:     a = 已写入总字节数
//	writeContentLength: a = 声明的总长度 b = 已写入字节数
//	writeChunked:       a = 已写入字节数 (不含 chunk 框架开销)
//	writeHTTP10:        a = 已写入字节数
type writeState struct {
	kind writeKind
	a, b int
}

func (s writeState) isFinished() bool {
	switch s.kind {
	case writeCompleted:
		return true
	case writeContentLength:
		return s.b >= s.a
	default:
		return false
	}
}

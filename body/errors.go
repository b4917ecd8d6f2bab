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

// Package body 实现请求/响应 body 的读写状态机：content-length、chunked 与
// 读到连接关闭为止 (http10) 三种成帧模式，均以 internal/offset 描述零拷贝切片。
package body

import "github.com/pkg/errors"

func newError(format string, args ...any) error {
	format = "body: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrConnectionClosed 在期望更多 body 字节时遭遇 EOF
	ErrConnectionClosed = errors.New("body: connection closed")

	// ErrChunkOverLimit 单个 chunk-size 行超过了允许的未完成字节数上限
	ErrChunkOverLimit = errors.New("body: chunk is over limit")

	// ErrInvalidChunk chunk-size 行格式非法
	ErrInvalidChunk = errors.New("body: invalid chunk encoding")

	// ErrPrematureBody finish 时已写字节数小于声明的 Content-Length
	ErrPrematureBody = errors.New("body: premature body")

	// ErrWriterClosed 在 writer 已经 Completed 之后继续写入
	ErrWriterClosed = errors.New("body: writer already finished")
)

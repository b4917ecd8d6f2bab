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

// Package stream 包装已建立的 TCP/Unix 连接：带缓冲读写 可选的 rewind 缓冲区
// (供探测性读取把多读到的字节交还给后续的 body 解析器) 以及少量 socket 调优。
package stream

import "github.com/pkg/errors"

func newError(format string, args ...any) error {
	format = "stream: " + format
	return errors.Errorf(format, args...)
}

// ErrUnsupportedNetwork 在 Dial 收到既非 tcp 也非 unix 的网络类型时返回
var ErrUnsupportedNetwork = errors.New("stream: unsupported network")

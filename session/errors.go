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

// Package session 维护一条 http/1.x 连接上下游两侧的会话状态：起始行/header 的
// 增量解析、body 读写模式的选择，以及为转发引擎准备的 Task 单元与保活决策。
package session

import "github.com/pkg/errors"

func newError(format string, args ...any) error {
	format = "session: " + format
	return errors.Errorf(format, args...)
}

// ErrConnectionClosed 在起始行/header 尚未读完整就观察到 EOF 时返回
var ErrConnectionClosed = errors.New("session: connection closed")

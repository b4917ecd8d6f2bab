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

package session

import "time"

// keepaliveKind 标识一条连接的空闲保活策略
type keepaliveKind uint8

const (
	keepaliveOff keepaliveKind = iota
	keepaliveInfinite
	keepaliveTimeout
)

// KeepaliveStatus 描述一条上下游连接的空闲保活策略
//
// Off 表示用完即关；Infinite 表示保活但没有已知的空闲超时；Timeout 携带一个具体时长。
type KeepaliveStatus struct {
	kind    keepaliveKind
	timeout time.Duration
}

// KeepaliveOff 返回一个用完即关的保活状态
func KeepaliveOff() KeepaliveStatus { return KeepaliveStatus{kind: keepaliveOff} }

// KeepaliveInfinite 返回一个保活但超时未知的状态
func KeepaliveInfinite() KeepaliveStatus { return KeepaliveStatus{kind: keepaliveInfinite} }

// KeepaliveTimeout 返回一个带有具体空闲超时时长的保活状态
func KeepaliveTimeout(d time.Duration) KeepaliveStatus {
	return KeepaliveStatus{kind: keepaliveTimeout, timeout: d}
}

// IsOff 判断连接是否应当用完即关
func (s KeepaliveStatus) IsOff() bool { return s.kind == keepaliveOff }

// Timeout 返回显式的空闲超时时长 ok 为 false 表示保活但超时未知 (或 Off)
func (s KeepaliveStatus) Timeout() (d time.Duration, ok bool) {
	if s.kind != keepaliveTimeout {
		return 0, false
	}
	return s.timeout, true
}

// keepaliveFromSeconds 镜像 apply_session_keepalive 中 set_keepalive 的取值规则：
// has 为 false 对应 Off；secs == 0 对应 "保活但超时未知"
func keepaliveFromSeconds(secs int, has bool) KeepaliveStatus {
	if !has {
		return KeepaliveOff()
	}
	if secs > 0 {
		return KeepaliveTimeout(time.Duration(secs) * time.Second)
	}
	return KeepaliveInfinite()
}

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

package stream

import (
	"sync/atomic"
	"time"
)

// ioStopwatch 累计一条连接花在阻塞 read/write 系统调用上的总时长
//
// Rust 原版以 poll_read/poll_write 返回 Pending 的次数来量化等待时间；Go 的
// net.Conn 是同步阻塞的 没有 poll 的概念 因此直接测量每次 Read/Write 调用本身
// 的墙钟耗时 达到同样的可观测目的。
type ioStopwatch struct {
	totalNanos int64
}

func (s *ioStopwatch) track(fn func() (int, error)) (int, error) {
	start := time.Now()
	n, err := fn()
	atomic.AddInt64(&s.totalNanos, int64(time.Since(start)))
	return n, err
}

// Total 返回累计耗时
func (s *ioStopwatch) Total() time.Duration {
	return time.Duration(atomic.LoadInt64(&s.totalNanos))
}

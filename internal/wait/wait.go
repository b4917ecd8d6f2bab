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

// Package wait 提供一个不断重试直到取消的循环原语 用于驱动长期存活的后台 goroutine
package wait

import (
	"context"

	"github.com/packetd/gatewayd/internal/rescue"
)

// Until 在 ctx 被取消之前不断调用 fn
//
// fn 发生 panic 或提前返回都会被立即重新调用一次；调用方应当让 fn 自身阻塞在某个可取消的
// 操作上 (channel 接收、accept、stream 读取等) 而不是在此处忙等
func Until(ctx context.Context, fn func(ctx context.Context)) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		runOnce(ctx, fn)
	}
}

func runOnce(ctx context.Context, fn func(ctx context.Context)) {
	defer rescue.HandleCrash()
	fn(ctx)
}

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

import "github.com/packetd/gatewayd/header"

// taskKind 标识转发引擎在 req/resp 通道间传递的任务种类
type taskKind uint8

const (
	taskHeader taskKind = iota
	taskBody
	taskTrailer
	taskDone
	taskFailed
)

// Task 是 D-task 与 U-task 之间经由有界 channel 传递的最小工作单元
//
// 同一时刻只有与 kind 对应的字段有意义，其余字段保持零值。
type Task struct {
	kind   taskKind
	header *header.ResponseHead
	body   []byte
	end    bool
	err    error
}

// HeaderTask 携带一次已读取的响应头 end 标志响应体是否已随头一起读完
func HeaderTask(h *header.ResponseHead, end bool) Task {
	return Task{kind: taskHeader, header: h, end: end}
}

// BodyTask 携带一段已读取的 body 数据 body 为 nil 表示本次未读到新数据
func BodyTask(body []byte, end bool) Task {
	return Task{kind: taskBody, body: body, end: end}
}

// DoneTask 标志对应方向的转发已经完成 无需再读取
func DoneTask() Task { return Task{kind: taskDone} }

// FailedTask 携带一次读取/写入失败 终止对应的转发任务
func FailedTask(err error) Task { return Task{kind: taskFailed, err: err} }

// IsEnd 判断这个任务是否标志着当前方向已经结束
func (t Task) IsEnd() bool {
	switch t.kind {
	case taskHeader, taskBody:
		return t.end
	default:
		return true
	}
}

// IsFailed 判断任务是否携带了一个错误
func (t Task) IsFailed() bool { return t.kind == taskFailed }

// IsDone 判断任务是否是完成标志
func (t Task) IsDone() bool { return t.kind == taskDone }

// Err 返回任务携带的错误 仅在 IsFailed 为 true 时有意义
func (t Task) Err() error { return t.err }

// Header 返回任务携带的响应头 仅在任务由 HeaderTask 构造时非 nil
func (t Task) Header() *header.ResponseHead { return t.header }

// Body 返回任务携带的 body 数据 可能为 nil
func (t Task) Body() []byte { return t.body }

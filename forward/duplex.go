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

// Package forward 实现双任务全双工转发引擎 (spec §4.7)：一个 goroutine 独占下游
// 连接 (读请求体/写响应)，另一个独占上游连接 (写请求/读响应)，两者只通过两条有界
// channel 交换 session.Task，直至两个方向都读到终止标志。
package forward

import (
	"github.com/hashicorp/go-multierror"

	"github.com/packetd/gatewayd/session"
)

// channelCapacity 对应 original_source 的 BUFFER_SIZE：两条任务 channel 的容量
const channelCapacity = 32

// ForwardRequest 把已经读完请求头的下游会话转发给上游：先转发请求头 再进入全双工
// 转发循环 对应 original_source 的 Service::handle_process
func ForwardRequest(d *session.Downstream, u *session.Upstream) error {
	if err := u.WriteRequestHeader(d.Request()); err != nil {
		return err
	}
	return CopyBidirectional(d, u)
}

// CopyBidirectional 驱动一条连接的全双工转发：请求体 downstream -> upstream，
// 响应 upstream -> downstream，直至两个方向都完成。对应 original_source 的
// Service::copy_bidirectional (两个 mpsc channel + tokio::try_join!)。
func CopyBidirectional(d *session.Downstream, u *session.Upstream) error {
	reqCh := make(chan session.Task, channelCapacity)
	respCh := make(chan session.Task, channelCapacity)

	errCh := make(chan error, 2)
	go func() { errCh <- handleDownstream(d, reqCh, respCh) }()
	go func() { errCh <- handleUpstream(u, reqCh, respCh) }()

	var errs error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

// readResult 携带一次阻塞式 Task 读取的结果 用于把阻塞 I/O 接入 select 循环
type readResult struct {
	task session.Task
	err  error
}

// handleDownstream 独占下游连接：读取请求体 task 推给 reqCh；从 respCh 批量取出
// 响应 task 写回下游。对应 original_source 的 Service::handle_downstream。
//
// 下游连接的读路径 (ReadDownstreamRequest) 跑在独立 goroutine 里 只把读取结果
// 投递到本地 channel：net.Conn 的读写半是相互独立的缓冲区 可以安全地被不同
// goroutine 并发使用 (net.Conn 文档允许多个 goroutine 并发调用其方法)，这让一次
// 阻塞的 socket 读取也能接入 select 循环：Rust 版本用 tokio::select! 直接 await
// 两个 future 做到的事 这里用一个读取 goroutine 加一条 channel 来实现。
func handleDownstream(d *session.Downstream, reqCh chan<- session.Task, respCh <-chan session.Task) error {
	defer close(reqCh)

	reads := make(chan readResult)
	go func() {
		for {
			task, err := d.ReadDownstreamRequest()
			reads <- readResult{task: task, err: err}
			if err != nil || task.IsEnd() {
				return
			}
		}
	}()

	requestDone := false
	responseDone := false

	for !requestDone || !responseDone {
		var readCase <-chan readResult
		if !requestDone {
			readCase = reads
		}
		var respCase <-chan session.Task
		if !responseDone {
			respCase = respCh
		}

		select {
		case r := <-readCase:
			if r.err != nil {
				reqCh <- session.FailedTask(r.err)
				return nil
			}
			reqCh <- r.task
			requestDone = r.task.IsEnd()

		case first, ok := <-respCase:
			if !ok {
				responseDone = true
				continue
			}
			tasks := []session.Task{first}
		drain:
			for {
				select {
				case t, ok := <-respCh:
					if !ok {
						break drain
					}
					tasks = append(tasks, t)
				default:
					break drain
				}
			}
			isEnd, err := d.WriteDownstreamResponse(tasks)
			if err != nil {
				return err
			}
			responseDone = isEnd
		}
	}

	return nil
}

// handleUpstream 独占上游连接：把 reqCh 收到的请求体 task 逐个写往上游；把读取到的
// 响应 task 推给 respCh。对应 original_source 的 Service::handle_upstream。
func handleUpstream(u *session.Upstream, reqCh <-chan session.Task, respCh chan<- session.Task) error {
	defer close(respCh)

	reads := make(chan readResult)
	go func() {
		for {
			task, err := u.ReadUpstreamResponse()
			reads <- readResult{task: task, err: err}
			if err != nil || task.IsEnd() {
				return
			}
		}
	}()

	requestDone := false
	responseDone := false

	for !requestDone || !responseDone {
		var readCase <-chan readResult
		if !responseDone {
			readCase = reads
		}
		var reqCase <-chan session.Task
		if !requestDone {
			reqCase = reqCh
		}

		select {
		case r := <-readCase:
			if r.err != nil {
				respCh <- session.FailedTask(r.err)
				return nil
			}
			responseDone = r.task.IsEnd()
			respCh <- r.task

		case t, ok := <-reqCase:
			if !ok {
				requestDone = true
				continue
			}
			isEnd, err := u.WriteUpstreamRequest(t)
			if err != nil {
				return err
			}
			requestDone = isEnd
		}
	}

	return nil
}

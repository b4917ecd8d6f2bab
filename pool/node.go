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

package pool

import "sync"

// hotQueueSize 是每个节点热队列的容量 热队列命中是取出空闲连接的快路径
const hotQueueSize = 16

type entry[T any] struct {
	id       uint64
	notifier *Notifier[T]
}

// node 持有单个连接池分组 (同一 peer.GroupID) 下的全部空闲连接
//
// 热队列是一个有界 channel 充当无锁环形队列的角色；溢出的连接退化进入互斥锁保护的 map
type node[T any] struct {
	hotQueue     chan entry[T]
	hotRemoveMut sync.Mutex // 序列化 "清空队列查找目标" 的移除路径 避免并发移除相互打断

	mut      sync.Mutex
	overflow map[uint64]*Notifier[T]
}

func newNode[T any]() *node[T] {
	return &node[T]{
		hotQueue: make(chan entry[T], hotQueueSize),
		overflow: make(map[uint64]*Notifier[T]),
	}
}

// addConnection 优先放入热队列 队列已满时退化到 overflow map
func (n *node[T]) addConnection(id uint64, notifier *Notifier[T]) {
	select {
	case n.hotQueue <- entry[T]{id: id, notifier: notifier}:
		return
	default:
	}

	n.mut.Lock()
	n.overflow[id] = notifier
	n.mut.Unlock()
}

// getAvailableConnection 优先从热队列弹出一条连接 队列为空时退化到 overflow map
//
// 弹出的条目若恰好被 idle-timeout 抢先标记移除 (CAS 失败) 会继续尝试下一个候选
// 而不会把一条已经失效的连接交给调用方
func (n *node[T]) getAvailableConnection() (conn T, id uint64, ok bool) {
	for {
		select {
		case e := <-n.hotQueue:
			if c, fired := e.notifier.firePickup(); fired {
				return c, e.id, true
			}
			continue
		default:
		}

		n.mut.Lock()
		var foundID uint64
		var found *Notifier[T]
		for candidateID, ntf := range n.overflow {
			foundID, found = candidateID, ntf
			break
		}
		if found == nil {
			n.mut.Unlock()
			var zero T
			return zero, 0, false
		}
		delete(n.overflow, foundID)
		n.mut.Unlock()

		if c, fired := found.firePickup(); fired {
			return c, foundID, true
		}
		// 已经被并发移除 重新尝试
	}
}

// removeConnection 按 id 从节点的数据结构中物理移除对应条目 并尝试触发其移除信号
//
// 返回值 fired 为 true 时 调用方是触发移除的一方 负责关闭底层连接；ntf 为 nil 表示未找到
// 该 id (可能已经被取走复用或被另一个移除者抢先)
//
// 热队列场景下：清空队列中不超过其当前长度的条目 把非目标条目重新放回 (可能因为此时队列已经
// 被填满而流入 overflow map) 一旦找到目标立即停止 不再触碰队列中剩余的条目
func (n *node[T]) removeConnection(id uint64) (ntf *Notifier[T], fired bool) {
	n.mut.Lock()
	if found, ok := n.overflow[id]; ok {
		delete(n.overflow, id)
		n.mut.Unlock()
		return found, found.fireRemoved()
	}
	n.mut.Unlock()

	n.hotRemoveMut.Lock()
	defer n.hotRemoveMut.Unlock()

	drain := len(n.hotQueue)
	var target *Notifier[T]
	for i := 0; i < drain; i++ {
		e := <-n.hotQueue
		if e.id == id {
			target = e.notifier
			break
		}
		n.addConnection(e.id, e.notifier)
	}
	if target == nil {
		return nil, false
	}
	return target, target.fireRemoved()
}

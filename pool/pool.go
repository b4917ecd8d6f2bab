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

// Package pool 实现按上游 peer 分组的空闲连接池：一个 LRU 控制全局淘汰顺序，
// 每个分组节点用热队列 + map 两级结构存放该分组下的空闲连接。
package pool

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/packetd/gatewayd/peer"
)

// Config 配置一个 Pool 实例
type Config struct {
	// LRUCapacityPerShard 每个 LRU 分片所能容纳的空闲连接数 超出时淘汰最久未使用的条目
	LRUCapacityPerShard int

	// LRUShards LRU 的分片数量 用于降低高并发下的锁竞争
	LRUShards int

	// IdleTimeout 一条连接在池中允许保持空闲的最长时间 超时后会被移除并关闭
	IdleTimeout time.Duration
}

// DefaultConfig 返回一组适用于大多数场景的默认参数
func DefaultConfig() Config {
	return Config{
		LRUCapacityPerShard: 256,
		LRUShards:           16,
		IdleTimeout:         60 * time.Second,
	}
}

// Pool 是一个泛型连接池 T 通常为实现 io.Closer 的 stream 类型
type Pool[T io.Closer] struct {
	cfg Config

	mut   sync.RWMutex
	nodes map[peer.GroupID]*node[T]
	lru   *lru

	nextID uint64
}

// New 创建一个 Pool
func New[T io.Closer](cfg Config) *Pool[T] {
	return &Pool[T]{
		cfg:   cfg,
		nodes: make(map[peer.GroupID]*node[T]),
		lru:   newLRU(cfg.LRUCapacityPerShard, cfg.LRUShards),
	}
}

func (p *Pool[T]) getNode(gid peer.GroupID, create bool) *node[T] {
	p.mut.RLock()
	n, ok := p.nodes[gid]
	p.mut.RUnlock()
	if ok || !create {
		return n
	}

	p.mut.Lock()
	defer p.mut.Unlock()
	if n, ok = p.nodes[gid]; ok {
		return n
	}
	n = newNode[T]()
	p.nodes[gid] = n
	return n
}

// Get 尝试从连接池中取出一条该 peer 分组下的空闲连接
//
// ok 为 false 表示池中没有可复用的连接 调用方应当自行拨号建立一条新连接
func (p *Pool[T]) Get(gid peer.GroupID) (conn T, ok bool) {
	n := p.getNode(gid, false)
	if n == nil {
		var zero T
		return zero, false
	}

	conn, id, found := n.getAvailableConnection()
	if !found {
		var zero T
		return zero, false
	}
	p.lru.remove(key{gid: gid, id: id})
	return conn, true
}

// Put 将一条空闲连接归还连接池
//
// 连接会先进入 LRU；若 LRU 已满 被淘汰的条目会从其所属节点移除并关闭。随后连接本身进入
// 所属分组节点 (热队列优先) 并启动一个后台 goroutine 在 pickup / removed / idle-timeout
// 三者之间竞速，这与 spec 对每条空闲连接 "被取走、被淘汰、或超时" 三选一结局的要求一致。
func (p *Pool[T]) Put(gid peer.GroupID, conn T) {
	id := atomic.AddUint64(&p.nextID, 1)
	notifier := newNotifier(conn)
	k := key{gid: gid, id: id}

	if evicted, evictedOK := p.lru.insert(k); evictedOK {
		if evicted == k {
			// draining: 拒绝了这条刚要归还的连接 直接关闭
			_ = conn.Close()
			return
		}
		if n := p.getNode(evicted.gid, false); n != nil {
			if ntf, fired := n.removeConnection(evicted.id); fired {
				_ = ntf.conn.Close()
			}
		}
	}

	n := p.getNode(gid, true)
	n.addConnection(id, notifier)

	go p.watchIdle(gid, id, notifier)
}

func (p *Pool[T]) watchIdle(gid peer.GroupID, id uint64, notifier *Notifier[T]) {
	timeout := p.cfg.IdleTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().IdleTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-notifier.pickedCh:
		// 已被其他调用者取走复用 此处无需再做任何事
	case <-notifier.removedCh:
		// 已经被淘汰或排空流程移除 无需再做任何事
	case <-timer.C:
		n := p.getNode(gid, false)
		if n == nil {
			return
		}
		if ntf, fired := n.removeConnection(id); fired {
			p.lru.remove(key{gid: gid, id: id})
			_ = ntf.conn.Close()
		}
	}
}

// Drain 停止接受新的空闲连接归还 并回收当前池中所有空闲连接
//
// 正在被其他 goroutine 并发取走的连接不受影响 (pickup 与 drain 通过 Notifier 的 CAS 互斥)
func (p *Pool[T]) Drain() {
	p.lru.drain()

	p.mut.RLock()
	nodes := make(map[peer.GroupID]*node[T], len(p.nodes))
	for gid, n := range p.nodes {
		nodes[gid] = n
	}
	p.mut.RUnlock()

	for _, k := range p.lru.keys() {
		n, ok := nodes[k.gid]
		if !ok {
			continue
		}
		if ntf, fired := n.removeConnection(k.id); fired {
			p.lru.remove(k)
			_ = ntf.conn.Close()
		}
	}
}

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

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/packetd/gatewayd/peer"
)

// key 在 LRU 内唯一标识一条已归还连接池的连接
type key struct {
	gid peer.GroupID
	id  uint64
}

func (k key) hash() uint64 {
	var b [16]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(uint64(k.gid) >> (8 * i))
		b[8+i] = byte(k.id >> (8 * i))
	}
	return xxhash.Sum64(b[:])
}

// shard 是 LRU 的一个分片 独立加锁以降低高并发下的锁竞争
type shard struct {
	mut      sync.Mutex
	capacity int
	ll       *list.List
	items    map[key]*list.Element
}

func newShard(capacity int) *shard {
	return &shard{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[key]*list.Element),
	}
}

// lru 是按连接 key 哈希分片的近似全局 LRU 用于驱动连接池的空闲连接淘汰
//
// draining 被置位后 insert 一律拒绝 并把本应插入的条目当作 "已淘汰" 返回 调用方据此
// 触发该连接的移除信号 这实现了 "优雅停机时拒绝新的空闲连接并回收它们" 的语义
type lru struct {
	shards   []*shard
	draining int32
}

func newLRU(capacityPerShard, numShards int) *lru {
	if numShards < 1 {
		numShards = 1
	}
	l := &lru{shards: make([]*shard, numShards)}
	for i := range l.shards {
		l.shards[i] = newShard(capacityPerShard)
	}
	return l
}

func (l *lru) shardFor(k key) *shard {
	return l.shards[k.hash()%uint64(len(l.shards))]
}

// insert 记录一条新归还的空闲连接 满载时淘汰最久未使用的条目并作为 evicted 返回
//
// draining 时直接拒绝插入 并把 k 本身作为 evicted 返回 (调用方应当移除并关闭这条刚刚
// 想要归还的连接 而不是让它悄悄留在节点里再也无法被回收)
func (l *lru) insert(k key) (evicted key, evictedOK bool) {
	if atomic.LoadInt32(&l.draining) == 1 {
		return k, true
	}

	s := l.shardFor(k)
	s.mut.Lock()
	defer s.mut.Unlock()

	if el, ok := s.items[k]; ok {
		s.ll.MoveToFront(el)
		return key{}, false
	}

	el := s.ll.PushFront(k)
	s.items[k] = el

	if s.ll.Len() > s.capacity {
		oldest := s.ll.Back()
		s.ll.Remove(oldest)
		oldKey := oldest.Value.(key)
		delete(s.items, oldKey)
		return oldKey, true
	}
	return key{}, false
}

// remove 从 LRU 中移除一条记录 通常在连接被取走复用或被显式淘汰后调用
func (l *lru) remove(k key) {
	s := l.shardFor(k)
	s.mut.Lock()
	defer s.mut.Unlock()

	if el, ok := s.items[k]; ok {
		s.ll.Remove(el)
		delete(s.items, k)
	}
}

// drain 将 LRU 标记为正在排空 此后所有 insert 都会被拒绝
func (l *lru) drain() {
	atomic.StoreInt32(&l.draining, 1)
}

// keys 返回当前仍在 LRU 中的全部 key 用于排空时遍历回收
func (l *lru) keys() []key {
	var out []key
	for _, s := range l.shards {
		s.mut.Lock()
		for k := range s.items {
			out = append(out, k)
		}
		s.mut.Unlock()
	}
	return out
}

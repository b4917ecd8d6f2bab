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
	"bufio"
	"net"
	"time"

	"github.com/google/uuid"
)

const (
	// bufReadSize 是读缓冲区大小 较大的读缓冲能显著减少系统调用次数
	bufReadSize = 64 * 1024

	// bufWriteSize 近似匹配典型 MSS 过大的写缓冲会损害实时性
	bufWriteSize = 1460
)

// Conn 包装一条已建立的 net.Conn：带缓冲读写 一个一次性消费的 rewind 缓冲区
// 以及可选的写缓冲开关。探测性读取 (例如 header 解析时多读到的字节) 可以通过
// Rewind 放回 之后的 Read 调用会优先消费它们 再回落到底层缓冲读取器。
type Conn struct {
	net.Conn

	id          uuid.UUID
	br          *bufio.Reader
	bw          *bufio.Writer
	rewind      []byte
	bufferWrite bool

	readWatch  ioStopwatch
	writeWatch ioStopwatch
}

// New 包装一条已拨通/已 accept 的连接
func New(conn net.Conn) *Conn {
	return &Conn{
		Conn:        conn,
		id:          uuid.New(),
		br:          bufio.NewReaderSize(conn, bufReadSize),
		bw:          bufio.NewWriterSize(conn, bufWriteSize),
		bufferWrite: true,
	}
}

// ID 返回这条连接的进程内唯一标识 用于日志关联：unix socket 连接的 RemoteAddr 在
// 同一地址下的多条连接间无法互相区分 这里不依赖地址 统一生成一个 uuid
func (c *Conn) ID() uuid.UUID {
	return c.id
}

// SetNoDelay 仅对 TCP 连接生效 禁用 Nagle 算法
func (c *Conn) SetNoDelay() {
	if tc, ok := c.Conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
}

// SetKeepalive 仅对 TCP 连接生效 开启 TCP keepalive 探测
func (c *Conn) SetKeepalive(period time.Duration) {
	tc, ok := c.Conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.SetKeepAlive(true)
	if period > 0 {
		_ = tc.SetKeepAlivePeriod(period)
	}
}

// SetBufferedWrite 控制 Write 是否先落入用户态写缓冲 默认开启
//
// 只有在预先知道待写总长度 (content-length body) 时才应该开启缓冲写；chunked
// 编码与逐字节转发的场景应当关闭它 以避免损害实时性，同 body.Writer 的 flush 策略呼应。
func (c *Conn) SetBufferedWrite(enabled bool) { c.bufferWrite = enabled }

// Rewind 把多读到但还不属于当前消费者的字节交还给后续的 Read 调用
func (c *Conn) Rewind(buf []byte) {
	if len(buf) == 0 {
		return
	}
	c.rewind = append(c.rewind, buf...)
}

// Read 优先消费 rewind 缓冲区 之后落回底层的缓冲读取器
func (c *Conn) Read(p []byte) (int, error) {
	if len(c.rewind) > 0 {
		n := copy(p, c.rewind)
		c.rewind = c.rewind[n:]
		return n, nil
	}
	return c.readWatch.track(func() (int, error) { return c.br.Read(p) })
}

// Write 按 SetBufferedWrite 的设置选择走用户态写缓冲还是直接写入底层连接
func (c *Conn) Write(p []byte) (int, error) {
	if c.bufferWrite {
		return c.writeWatch.track(func() (int, error) { return c.bw.Write(p) })
	}
	return c.writeWatch.track(func() (int, error) { return c.Conn.Write(p) })
}

// Flush 把写缓冲中尚未发出的数据发往底层连接
func (c *Conn) Flush() error { return c.bw.Flush() }

// Close 先 flush 写缓冲 再关闭底层连接
func (c *Conn) Close() error {
	_ = c.bw.Flush()
	return c.Conn.Close()
}

// ReadPending 返回累计花在阻塞读取上的时长 用于连接级别的诊断指标
func (c *Conn) ReadPending() time.Duration { return c.readWatch.Total() }

// WritePending 返回累计花在阻塞写入上的时长
func (c *Conn) WritePending() time.Duration { return c.writeWatch.Total() }

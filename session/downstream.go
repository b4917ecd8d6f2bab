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

import (
	"io"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/packetd/gatewayd/body"
	"github.com/packetd/gatewayd/common"
	"github.com/packetd/gatewayd/header"
	"github.com/packetd/gatewayd/internal/offset"
	"github.com/packetd/gatewayd/stream"
)

// Downstream 是与客户端之间已建立的 http/1.x 会话 对下游连接拥有完全控制权
type Downstream struct {
	Conn *stream.Conn

	buf          []byte
	headerOffset offset.Offset
	bodyOffset   offset.Offset

	request  *header.RequestHead
	response *header.ResponseHead

	bodyReader *body.Reader
	bodyWriter *body.Writer

	bytesSent int
	bytesRead int

	keepaliveTimeout KeepaliveStatus

	upgrade               bool
	ignoreResponseHeaders bool
}

// NewDownstream 包装一条已 accept 的下游连接
func NewDownstream(conn *stream.Conn) *Downstream {
	return &Downstream{
		Conn:             conn,
		bodyReader:       body.NewReader(),
		bodyWriter:       body.NewWriter(),
		keepaliveTimeout: KeepaliveOff(),
	}
}

// ReadRequest 从下游连接读取并解析一个完整的请求行 + header 块
//
// 每次至多追加 common.HeaderReadChunkSize 字节再尝试解析 直到解析完整或缓冲区超限。
// 读到 EOF 且尚未读到任何字节时返回 (false, nil)：调用方应随后直接关闭连接而不访问
// Request()；读到 EOF 但消息尚不完整返回 ErrConnectionClosed。
func (d *Downstream) ReadRequest() (ok bool, err error) {
	d.buf = d.buf[:0]
	d.bodyReader.ReStart()
	d.response = nil
	d.upgrade = false
	chunk := make([]byte, common.HeaderReadChunkSize)

	for {
		if len(d.buf) > common.MaxHeaderBytes {
			return false, newError("request larger than %d bytes", common.MaxHeaderBytes)
		}

		n, rerr := d.Conn.Read(chunk)
		if n == 0 {
			if rerr != nil && rerr != io.EOF {
				return false, rerr
			}
			if len(d.buf) > 0 {
				return false, ErrConnectionClosed
			}
			return false, nil
		}
		d.buf = append(d.buf, chunk[:n]...)

		head, consumed, perr := header.ParseRequestHead(d.buf)
		switch perr {
		case nil:
			d.headerOffset = offset.New(0, consumed)
			d.bodyOffset = offset.New(consumed, len(d.buf)-consumed)
			d.request = head
			return true, nil
		case header.ErrIncomplete:
			continue
		default:
			return false, perr
		}
	}
}

// Request 返回已解析的请求头 在 ReadRequest 成功返回之前调用会 panic
func (d *Downstream) Request() *header.RequestHead {
	if d.request == nil {
		panic("session: request header is not read yet")
	}
	return d.request
}

// Response 返回最近一次写出的响应头 从未写出时返回 nil
func (d *Downstream) Response() *header.ResponseHead { return d.response }

// SetRequestBodyReader 按请求头选择 body 读取模式 幂等 仅在首次调用时生效
//
// 预读到的 body 前缀字节 (解析 header 时多读到的部分) 作为 rewind 输入交给 reader。
func (d *Downstream) SetRequestBodyReader() {
	if !d.bodyReader.IsStart() {
		return
	}

	req := d.Request()
	rewind := d.bodyOffset.Slice(d.buf)

	// 请求升级时与 Upstream.SetRequestBodyWriter 对称 优先选择读到连接关闭为止：
	// 升级握手请求通常没有 body (content-length 按 HTTP/1.1 默认值会被判定为 0 字节
	// 立即读完)，但升级成功后同一条连接上的后续字节都要作为请求体继续转发给上游，
	// 不能在握手阶段就把 body reader 标记为已完成。
	if header.IsRequestUpgrade(req) {
		d.SetUpgrade(true)
		d.bodyReader.WithUntilClosedRead(rewind)
		return
	}

	if header.IsChunkedTransferEncoding(req.Header) {
		d.bodyReader.WithChunkedRead(rewind)
		return
	}

	if n, ok, err := header.ContentLength(req.Header); ok && err == nil {
		d.bodyReader.WithContentLengthRead(int(n), rewind)
		return
	}

	if req.Version == header.Version11 {
		d.bodyReader.WithContentLengthRead(0, rewind)
		return
	}
	d.bodyReader.WithUntilClosedRead(rewind)
}

// ReadRequestBody 在设置好读取模式后从连接中读取一段请求体
//
// 返回的 offset 指向 body.Reader 内部缓冲 通过 ReadSlicedRequestBody 取出实际字节。
func (d *Downstream) ReadRequestBody() (offset.Offset, bool, error) {
	d.SetRequestBodyReader()
	o, ok, err := d.bodyReader.ReadBody(d.Conn)
	if ok {
		d.bytesRead += o.Len()
	}
	return o, ok, err
}

// ReadSlicedRequestBody 取出 ReadRequestBody 返回的 offset 对应的字节切片
func (d *Downstream) ReadSlicedRequestBody(o offset.Offset) []byte {
	return d.bodyReader.SlicedBody(o)
}

// ReadRequestBodyBytes 读取一段请求体并复制为独立的字节切片
//
// 用于需要把请求体转发给上游会话的场景。
func (d *Downstream) ReadRequestBodyBytes() ([]byte, bool, error) {
	o, ok, err := d.ReadRequestBody()
	if err != nil || !ok {
		return nil, ok, err
	}
	sliced := d.ReadSlicedRequestBody(o)
	return append([]byte(nil), sliced...), true, nil
}

// ReadDownstreamRequest 驱动请求体读取的状态机 返回下一个要投递给转发引擎的 Task
//
// 请求行+header 块已经由 ReadRequest 读完 这里只负责 body：与 Upstream.ReadUpstreamResponse
// 的差异是不需要处理头部分支 (下游请求头在进入转发阶段前就已经读好并转发给了上游)。
func (d *Downstream) ReadDownstreamRequest() (Task, error) {
	if d.IsReadingRequestBodyFinished() {
		return DoneTask(), nil
	}

	b, _, err := d.ReadRequestBodyBytes()
	if err != nil {
		return Task{}, err
	}
	endOfBody := d.IsReadingRequestBodyFinished()
	return BodyTask(b, endOfBody), nil
}

// WriteDownstreamResponse 把转发引擎攒批投递来的一组 Task 依次写往下游
//
// 返回值标志响应是否已经写完整：调用方每次可能传入多个排空出来的 Task (header + 若干
// body，或纯 body)，按到达顺序逐个处理，用最后一个任务的 end 状态作为整体判定。
func (d *Downstream) WriteDownstreamResponse(tasks []Task) (bool, error) {
	isEnd := false

	for _, t := range tasks {
		if t.IsFailed() {
			return false, t.Err()
		}

		if h := t.Header(); h != nil {
			if err := d.WriteResponseHeaders(h); err != nil {
				return false, err
			}
			d.SetResponseBodyWriter(h)
			isEnd = t.IsEnd()
			if isEnd {
				if _, _, err := d.FinishWritingResponseBody(); err != nil {
					return false, err
				}
			}
			continue
		}

		if t.IsDone() {
			isEnd = true
			continue
		}

		if body := t.Body(); body != nil {
			if _, _, err := d.WriteResponseBody(body); err != nil {
				return false, err
			}
		}
		isEnd = t.IsEnd()
		if isEnd {
			if _, _, err := d.FinishWritingResponseBody(); err != nil {
				return false, err
			}
		}
	}

	return isEnd, nil
}

// IsReadingRequestBodyFinished 判断请求体是否已经读取完毕
func (d *Downstream) IsReadingRequestBodyFinished() bool {
	d.SetRequestBodyReader()
	return d.bodyReader.IsFinished()
}

// IsRequestBodyEmpty 判断请求体是否为空
func (d *Downstream) IsRequestBodyEmpty() bool {
	d.SetRequestBodyReader()
	return d.bodyReader.IsBodyEmpty()
}

// WriteResponseHeaders 序列化并写出一个响应头 可被多次调用 (例如先写 1xx 再写最终响应)
//
// 每次调用后立即 flush：下游在等待状态行时不应被用户态写缓冲延迟。
func (d *Downstream) WriteResponseHeaders(h *header.ResponseHead) error {
	buf := header.MarshalResponse(h)
	defer bytebufferpool.Put(buf)

	if _, err := d.Conn.Write(buf.B); err != nil {
		return newError("write response header: %v", err)
	}
	if err := d.Conn.Flush(); err != nil {
		return newError("flush response header: %v", err)
	}

	d.response = h
	d.bytesSent += buf.Len()
	return nil
}

// SetResponseBodyWriter 在收到上游响应头后选择 body 写出模式
func (d *Downstream) SetResponseBodyWriter(h *header.ResponseHead) {
	if h.StatusCode == 204 || h.StatusCode == 304 || d.Request().Method == "HEAD" {
		d.bodyWriter.WithContentLengthWrite(0)
		return
	}

	// 1xx 响应 (101 除外) 不写 body
	if h.StatusCode >= 100 && h.StatusCode < 200 && h.StatusCode != 101 {
		return
	}

	if header.IsChunkedTransferEncoding(h.Header) {
		d.bodyWriter.WithChunkedEncodingWrite()
		return
	}

	if n, ok, err := header.ContentLength(h.Header); ok && err == nil {
		d.bodyWriter.WithContentLengthWrite(int(n))
		return
	}

	d.bodyWriter.WithUntilClosedWrite()
}

// WriteResponseBody 把一段响应体写往下游连接
func (d *Downstream) WriteResponseBody(buffer []byte) (int, bool, error) {
	n, ok, err := d.bodyWriter.WriteBody(d.Conn, buffer)
	if ok {
		d.bytesSent += n
	}
	return n, ok, err
}

// FinishWritingResponseBody 在写完之后调用 补齐收尾字节 (例如 chunked 的终止块) 并 flush
func (d *Downstream) FinishWritingResponseBody() (int, bool, error) {
	n, ok, err := d.bodyWriter.Finish(d.Conn)
	if err != nil {
		return n, ok, err
	}
	if ferr := d.Conn.Flush(); ferr != nil {
		return n, ok, ferr
	}
	return n, ok, nil
}

// SetUpgrade 标记当前请求是否满足协议升级条件
func (d *Downstream) SetUpgrade(upgrade bool) { d.upgrade = upgrade }

// IsUpgrade 判断当前请求是否满足协议升级条件
func (d *Downstream) IsUpgrade() bool { return d.upgrade }

// SetIgnoreResponseHeaders 标记响应头是否不应被转发给下游 (例如已经单独写出过)
func (d *Downstream) SetIgnoreResponseHeaders(ignore bool) { d.ignoreResponseHeaders = ignore }

// IgnoreResponseHeaders 判断响应头是否应当跳过转发
func (d *Downstream) IgnoreResponseHeaders() bool { return d.ignoreResponseHeaders }

// SetKeepaliveTimeout 记录本次连接的保活策略 供连接池归还时参考
func (d *Downstream) SetKeepaliveTimeout(s KeepaliveStatus) { d.keepaliveTimeout = s }

// KeepaliveTimeout 返回本次连接的保活策略
func (d *Downstream) KeepaliveTimeout() KeepaliveStatus { return d.keepaliveTimeout }

// ApplySessionKeepalive 在写完一次响应后决定下游连接是否保活
//
// 与 Upstream.ApplySessionKeepalive 对称 但需要双向同意：请求或响应任一方显式
// 要求 close 都会关闭连接；都未显式表明时按响应的协议版本取默认值
// (HTTP/1.1 保活 HTTP/1.0 关闭)。已经升级协议的连接不再是 HTTP 保活语义下的候选：
// 之后的字节都是转发引擎里的不透明流 直到连接关闭 不会再有下一个请求可读。
func (d *Downstream) ApplySessionKeepalive() {
	if d.upgrade {
		d.SetKeepaliveTimeout(KeepaliveOff())
		return
	}

	if d.request != nil && header.ParseConnectionHeader(d.request.Header).Close {
		d.SetKeepaliveTimeout(KeepaliveOff())
		return
	}

	resp := d.response
	if resp == nil {
		d.SetKeepaliveTimeout(KeepaliveOff())
		return
	}

	tokens := header.ParseConnectionHeader(resp.Header)
	switch {
	case tokens.Close:
		d.SetKeepaliveTimeout(KeepaliveOff())
	case tokens.KeepAlive:
		if secs, ok := header.KeepAliveTimeout(resp.Header); ok {
			d.SetKeepaliveTimeout(KeepaliveTimeout(time.Duration(secs) * time.Second))
		} else {
			d.SetKeepaliveTimeout(KeepaliveInfinite())
		}
	case resp.Version == header.Version11:
		d.SetKeepaliveTimeout(KeepaliveInfinite())
	default:
		d.SetKeepaliveTimeout(KeepaliveOff())
	}
}

// BytesSent 返回累计写往下游的字节数
func (d *Downstream) BytesSent() int { return d.bytesSent }

// BytesRead 返回累计从下游读取的字节数 (不含起始行/header)
func (d *Downstream) BytesRead() int { return d.bytesRead }

var _ io.Closer = (*Downstream)(nil)

// Close 关闭底层连接
func (d *Downstream) Close() error { return d.Conn.Close() }

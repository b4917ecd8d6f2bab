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

	"github.com/valyala/bytebufferpool"

	"github.com/packetd/gatewayd/body"
	"github.com/packetd/gatewayd/common"
	"github.com/packetd/gatewayd/header"
	"github.com/packetd/gatewayd/internal/offset"
	"github.com/packetd/gatewayd/stream"
)

// Upstream 是与上游服务之间已建立的 http/1.x 会话 结构上与 Downstream 对称
//
// 两个差异点：解析器容忍响应侧的 obsolete multiline 折叠与 header 名称尾部空白；
// 请求体写出模式的选择还需额外考虑 "请求升级"。
type Upstream struct {
	Conn *stream.Conn

	buf          []byte
	headerOffset offset.Offset
	bodyOffset   offset.Offset

	request  *header.RequestHead
	response *header.ResponseHead

	bodyWriter *body.Writer
	bodyReader *body.Reader

	bytesWritten     int
	requestBodyBytes int
	bytesRead        int

	keepaliveTimeout KeepaliveStatus

	upgrade bool
}

// NewUpstream 包装一条已从连接池取出或新建的上游连接
func NewUpstream(conn *stream.Conn) *Upstream {
	return &Upstream{
		Conn:             conn,
		bodyWriter:       body.NewWriter(),
		bodyReader:       body.NewReader(),
		keepaliveTimeout: KeepaliveOff(),
	}
}

// ReadResponse 从上游连接读取并解析一个完整的状态行 + header 块
//
// 与 Downstream.ReadRequest 行为一致 额外容忍响应侧的 obsolete line folding。
func (u *Upstream) ReadResponse() (ok bool, err error) {
	u.buf = u.buf[:0]
	chunk := make([]byte, common.HeaderReadChunkSize)

	for {
		if len(u.buf) > common.MaxHeaderBytes {
			return false, newError("response larger than %d bytes", common.MaxHeaderBytes)
		}

		n, rerr := u.Conn.Read(chunk)
		if n == 0 {
			if rerr != nil && rerr != io.EOF {
				return false, rerr
			}
			if len(u.buf) > 0 {
				return false, ErrConnectionClosed
			}
			return false, nil
		}
		u.buf = append(u.buf, chunk[:n]...)

		head, consumed, perr := header.ParseResponseHead(u.buf)
		switch perr {
		case nil:
			u.headerOffset = offset.New(0, consumed)
			u.bodyOffset = offset.New(consumed, len(u.buf)-consumed)
			u.response = head
			u.bodyReader.ReStart()
			return true, nil
		case header.ErrIncomplete:
			continue
		default:
			return false, perr
		}
	}
}

// SetRequest 记录即将转发给上游的请求头 用于 body 读写模式的决策 (HEAD, upgrade 等)
func (u *Upstream) SetRequest(req *header.RequestHead) { u.request = req }

// Request 返回先前记录的请求头 未设置时返回 nil
func (u *Upstream) Request() *header.RequestHead { return u.request }

// Response 返回已解析的响应头 在 ReadResponse 成功返回之前调用会 panic
func (u *Upstream) Response() *header.ResponseHead {
	if u.response == nil {
		panic("session: response header is not read yet")
	}
	return u.response
}

// SetResponseBodyReader 按响应头选择 body 读取模式 幂等 仅在首次调用时生效
func (u *Upstream) SetResponseBodyReader() {
	if !u.bodyReader.IsStart() {
		return
	}

	resp := u.Response()
	rewind := u.bodyOffset.Slice(u.buf)

	if u.request != nil && u.request.Method == "HEAD" {
		u.bodyReader.WithContentLengthRead(0, rewind)
		return
	}

	switch {
	case resp.StatusCode == 101:
		u.upgrade = u.IsRequestUpgrade()
	case resp.StatusCode >= 100 && resp.StatusCode < 200:
		// 忽略 informational 响应 不设置读取模式
		return
	case resp.StatusCode == 204 || resp.StatusCode == 304:
		u.bodyReader.WithContentLengthRead(0, rewind)
		return
	}

	if u.upgrade {
		u.bodyReader.WithUntilClosedRead(rewind)
		return
	}

	if header.IsChunkedTransferEncoding(resp.Header) {
		u.bodyReader.WithChunkedRead(rewind)
		return
	}

	if n, ok, err := header.ContentLength(resp.Header); ok && err == nil {
		u.bodyReader.WithContentLengthRead(int(n), rewind)
		return
	}

	u.bodyReader.WithUntilClosedRead(rewind)
}

// ReadResponseBody 在设置好读取模式后从连接中读取一段响应体
func (u *Upstream) ReadResponseBody() (offset.Offset, bool, error) {
	u.SetResponseBodyReader()
	o, ok, err := u.bodyReader.ReadBody(u.Conn)
	if ok {
		u.bytesRead += o.Len()
	}
	return o, ok, err
}

// ReadSlicedResponseBody 取出 ReadResponseBody 返回的 offset 对应的字节切片
func (u *Upstream) ReadSlicedResponseBody(o offset.Offset) []byte {
	return u.bodyReader.SlicedBody(o)
}

// ReadResponseBodyBytes 读取一段响应体并复制为独立的字节切片 供转发给下游使用
func (u *Upstream) ReadResponseBodyBytes() ([]byte, bool, error) {
	o, ok, err := u.ReadResponseBody()
	if err != nil || !ok {
		return nil, ok, err
	}
	sliced := u.ReadSlicedResponseBody(o)
	return append([]byte(nil), sliced...), true, nil
}

// IsReadingResponseBodyFinished 判断响应体是否已经读取完毕
func (u *Upstream) IsReadingResponseBodyFinished() bool {
	u.SetResponseBodyReader()
	return u.bodyReader.IsFinished()
}

// IsResponseBodyEmpty 判断响应体是否为空
func (u *Upstream) IsResponseBodyEmpty() bool {
	u.SetResponseBodyReader()
	return u.bodyReader.IsBodyEmpty()
}

// ForceCloseResponseBodyReader 在升级会话中途异常时强制把 body reader 标记为已完成
func (u *Upstream) ForceCloseResponseBodyReader() {
	if u.upgrade && !u.bodyReader.IsFinished() {
		u.bodyReader.WithContentLengthRead(0, nil)
	}
}

// ShouldReadResponseHeader 判断是否应当 (继续) 读取响应头
//
// 101 响应只读一次 不重复读取；1xx informational 响应需要继续读下一段响应头。
func ShouldReadResponseHeader(statusCode int) bool {
	switch {
	case statusCode == 101:
		return false
	case statusCode >= 100 && statusCode < 200:
		return true
	default:
		return false
	}
}

// ReadUpstreamResponse 驱动响应读取的状态机 返回下一个要投递给转发引擎的 Task
func (u *Upstream) ReadUpstreamResponse() (Task, error) {
	if u.response == nil || ShouldReadResponseHeader(u.response.StatusCode) {
		ok, err := u.ReadResponse()
		if err != nil {
			return Task{}, err
		}
		if !ok {
			return Task{}, ErrConnectionClosed
		}
		endOfBody := u.IsReadingResponseBodyFinished()
		return HeaderTask(u.response, endOfBody), nil
	}

	if u.IsReadingResponseBodyFinished() {
		return DoneTask(), nil
	}

	b, _, err := u.ReadResponseBodyBytes()
	if err != nil {
		return Task{}, err
	}
	endOfBody := u.IsReadingResponseBodyFinished()
	return BodyTask(b, endOfBody), nil
}

// SetRequestBodyWriter 按请求头选择 body 写出模式
//
// 与 Downstream.SetResponseBodyWriter 的差异：请求升级 (IsRequestUpgrade) 优先选择
// 写到连接关闭为止 这样上游能收到升级后的原始字节流而不被 content-length 截断。
func (u *Upstream) SetRequestBodyWriter(req *header.RequestHead) {
	if header.IsRequestUpgrade(req) {
		u.bodyWriter.WithUntilClosedWrite()
		return
	}

	if header.IsChunkedTransferEncoding(req.Header) {
		u.bodyWriter.WithChunkedEncodingWrite()
		return
	}

	if n, ok, err := header.ContentLength(req.Header); ok && err == nil {
		u.bodyWriter.WithContentLengthWrite(int(n))
		return
	}

	u.bodyWriter.WithUntilClosedWrite()
}

// WriteRequestHeader 把请求头序列化并转发给上游 随后立即 flush
func (u *Upstream) WriteRequestHeader(req *header.RequestHead) error {
	u.SetRequestBodyWriter(req)

	buf := header.MarshalRequest(req)
	defer bytebufferpool.Put(buf)

	if _, err := u.Conn.Write(buf.B); err != nil {
		return newError("write request header: %v", err)
	}
	if err := u.Conn.Flush(); err != nil {
		return newError("flush request header: %v", err)
	}

	u.request = req
	u.bytesWritten += buf.Len()
	return nil
}

// WriteRequestBody 把一段请求体写往上游连接
func (u *Upstream) WriteRequestBody(buffer []byte) (int, bool, error) {
	n, ok, err := u.bodyWriter.WriteBody(u.Conn, buffer)
	if ok {
		u.bytesWritten += n
		u.requestBodyBytes += n
	}
	return n, ok, err
}

// RequestBodyBytesSent 返回本次请求已经实际写往上游的请求体字节数(不含请求行/头)
//
// 供转发引擎判断一次失败的转发是否仍落在 §9 的重试窗口内：只要还没有写出过一个
// 请求体字节 幂等方法的转发失败就允许换一个上游端点重试
func (u *Upstream) RequestBodyBytesSent() int {
	return u.requestBodyBytes
}

// BytesWritten 返回本次请求已经写往上游的总字节数(含请求行/头)
func (u *Upstream) BytesWritten() int { return u.bytesWritten }

// BytesRead 返回本次响应已经从上游读取的响应体字节数(不含状态行/头)
func (u *Upstream) BytesRead() int { return u.bytesRead }

// FinishWritingRequestBody 在写完之后调用 补齐收尾字节并 flush
func (u *Upstream) FinishWritingRequestBody() (int, bool, error) {
	n, ok, err := u.bodyWriter.Finish(u.Conn)
	if err != nil {
		return n, ok, err
	}
	if ferr := u.Conn.Flush(); ferr != nil {
		return n, ok, ferr
	}
	u.ForceCloseResponseBodyReader()
	return n, ok, nil
}

// WriteUpstreamRequest 把转发引擎投递来的 Task 写往上游 仅接受 Body 任务
//
// 其他任务种类视为调用方的编程错误 (req 通道上只应出现请求体任务)。
func (u *Upstream) WriteUpstreamRequest(t Task) (bool, error) {
	if t.kind != taskBody {
		panic("session: unexpected task written to upstream request")
	}

	if body := t.Body(); body != nil {
		if _, _, err := u.WriteRequestBody(body); err != nil {
			return false, err
		}
	}

	endStream := t.IsEnd()
	if endStream {
		if _, _, err := u.FinishWritingRequestBody(); err != nil {
			return false, err
		}
	}
	return endStream, nil
}

// IsRequestUpgrade 判断转发给上游的请求是否满足协议升级条件
func (u *Upstream) IsRequestUpgrade() bool {
	if u.request == nil {
		panic("session: request is not set yet")
	}
	return header.IsRequestUpgrade(u.request)
}

// IsSessionUpgrade 判断请求与响应是否共同构成一次协议升级
func (u *Upstream) IsSessionUpgrade() bool {
	if !u.IsRequestUpgrade() {
		return false
	}
	return header.IsResponseUpgrade(u.response)
}

// SetKeepalive 按秒数设置保活策略 has 为 false 表示关闭保活 (镜像 set_keepalive(None))
func (u *Upstream) SetKeepalive(secs int, has bool) {
	u.keepaliveTimeout = keepaliveFromSeconds(secs, has)
}

// IsSessionKeepalive 判断当前会话是否保活
func (u *Upstream) IsSessionKeepalive() bool { return !u.keepaliveTimeout.IsOff() }

// KeepaliveTimeout 返回当前会话的保活策略
func (u *Upstream) KeepaliveTimeout() KeepaliveStatus { return u.keepaliveTimeout }

// IsConnectionKeepalive 解析 Connection header 判断连接是否保活
//
// 返回 (value, ok)：ok 为 false 表示 Connection header 未显式表明 keep-alive/close。
func (u *Upstream) IsConnectionKeepalive() (bool, bool) {
	tokens := header.ParseConnectionHeader(u.Response().Header)
	switch {
	case tokens.KeepAlive:
		return true, true
	case tokens.Close:
		return false, true
	default:
		return false, false
	}
}

// GetKeepaliveValue 解析 `Keep-Alive: timeout=<sec>[, max=<n>]` 中的 timeout 部分
func (u *Upstream) GetKeepaliveValue() (secs int, ok bool) {
	return header.KeepAliveTimeout(u.Response().Header)
}

// ApplySessionKeepalive 读取响应后应用保活决策
//
// 先看 Connection header；未显式表明时按协议版本取默认值：HTTP/1.1 保活
// (超时未知视为无限)，HTTP/1.0 关闭。
func (u *Upstream) ApplySessionKeepalive() {
	resp := u.Response()

	if keepAlive, explicit := u.IsConnectionKeepalive(); explicit {
		if keepAlive {
			secs, ok := u.GetKeepaliveValue()
			if ok {
				u.SetKeepalive(secs, true)
			} else {
				u.SetKeepalive(0, true)
			}
		} else {
			u.SetKeepalive(0, false)
		}
		return
	}

	if resp.Version == header.Version11 {
		u.SetKeepalive(0, true)
	} else {
		u.SetKeepalive(0, false)
	}
}

// ReturnStream 交出底层连接 供调用方归还连接池
func (u *Upstream) ReturnStream() *stream.Conn { return u.Conn }

var _ io.Closer = (*Upstream)(nil)

// Close 关闭底层连接
func (u *Upstream) Close() error { return u.Conn.Close() }

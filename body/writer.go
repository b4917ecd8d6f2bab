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

package body

import (
	"fmt"
	"io"

	"github.com/valyala/bytebufferpool"
)

// lastChunk 是 chunked 编码的结束帧：size=0 的 chunk 后跟一个空的 trailer 段
var lastChunk = []byte("0\r\n\r\n")

// flusher 是可选接口：当底层 io.Writer 做了用户态缓冲 (如 bufio.Writer) 时
// 在每次逻辑写之后显式 flush 一次 以兼顾吞吐与实时性
type flusher interface {
	Flush() error
}

func tryFlush(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Writer 按 content-length / chunked / 写至连接关闭三种模式之一增量写出 body
//
// 只有在提前知道 body 总长度 (ContentLength 模式) 时才适合做用户态缓冲：
// chunked 与 HTTP10 模式每次调用都会立即 flush 以保证实时性。
type Writer struct {
	state writeState
}

// NewWriter 返回一个处于 Start 状态的 Writer
func NewWriter() *Writer { return &Writer{} }

// WithContentLengthWrite 将 writer 切换到定长写入模式
func (w *Writer) WithContentLengthWrite(contentLength int) {
	w.state = writeState{kind: writeContentLength, a: contentLength}
}

// WithChunkedEncodingWrite 将 writer 切换到 chunked 编码写入模式
func (w *Writer) WithChunkedEncodingWrite() {
	w.state = writeState{kind: writeChunked}
}

// WithUntilClosedWrite 将 writer 切换到写至连接关闭为止的模式
func (w *Writer) WithUntilClosedWrite() {
	w.state = writeState{kind: writeHTTP10}
}

// Finished 判断 body 是否已经按声明的长度写完 (仅对 ContentLength 模式有意义)
func (w *Writer) Finished() bool { return w.state.isFinished() }

// WriteBody 写出 buffer 中的一段 body 字节
//
// 返回值约定与 Reader.ReadBody 对称：ok == false 且 err == nil 表示已经写完
// 不需要再写入更多数据 (例如 ContentLength 模式已经达到声明长度)。
func (w *Writer) WriteBody(dst io.Writer, buffer []byte) (n int, ok bool, err error) {
	switch w.state.kind {
	case writeCompleted:
		return 0, false, nil
	case writeContentLength:
		return w.writeByContentLength(dst, buffer)
	case writeChunked:
		return w.writeByChunkedEncoding(dst, buffer)
	case writeHTTP10:
		return w.writeUntilClosed(dst, buffer)
	default:
		panic("body: writer is not initialized")
	}
}

func (w *Writer) writeByContentLength(dst io.Writer, buffer []byte) (int, bool, error) {
	total, written := w.state.a, w.state.b
	if written >= total {
		return 0, false, nil
	}

	toWrite := total - written
	if toWrite > len(buffer) {
		toWrite = len(buffer)
	}
	// toWrite < len(buffer) 意味着调用方尝试写入超过声明长度的数据 多出的部分被丢弃

	if _, err := dst.Write(buffer[:toWrite]); err != nil {
		return 0, false, newError("error writing: %v", err)
	}

	w.state = writeState{kind: writeContentLength, a: total, b: written + toWrite}
	if w.state.isFinished() {
		if err := tryFlush(dst); err != nil {
			return 0, false, err
		}
	}
	return toWrite, true, nil
}

func (w *Writer) writeByChunkedEncoding(dst io.Writer, buffer []byte) (int, bool, error) {
	written := w.state.a
	chunkSize := len(buffer)

	out := bytebufferpool.Get()
	defer bytebufferpool.Put(out)

	fmt.Fprintf(out, "%X\r\n", chunkSize)
	out.Write(buffer)
	out.Write([]byte("\r\n"))

	if _, err := dst.Write(out.B); err != nil {
		return 0, false, newError("error writing: %v", err)
	}
	if err := tryFlush(dst); err != nil {
		return 0, false, err
	}

	w.state = writeState{kind: writeChunked, a: written + chunkSize}
	return chunkSize, true, nil
}

func (w *Writer) writeUntilClosed(dst io.Writer, buffer []byte) (int, bool, error) {
	written := w.state.a

	if _, err := dst.Write(buffer); err != nil {
		return 0, false, newError("error writing: %v", err)
	}
	if err := tryFlush(dst); err != nil {
		return 0, false, err
	}

	w.state = writeState{kind: writeHTTP10, a: written + len(buffer)}
	return len(buffer), true, nil
}

// Finish 收尾当前 body 的写入 (写出 chunked 的结束帧 校验 content-length 是否写满等)
func (w *Writer) Finish(dst io.Writer) (int, bool, error) {
	switch w.state.kind {
	case writeCompleted:
		return 0, false, nil
	case writeContentLength:
		return w.finishContentLength()
	case writeChunked:
		return w.finishChunkedEncoding(dst)
	case writeHTTP10:
		return w.finishUntilClosed()
	default:
		return 0, false, nil
	}
}

func (w *Writer) finishContentLength() (int, bool, error) {
	total, written := w.state.a, w.state.b
	w.state = writeState{kind: writeCompleted, a: written}
	if written < total {
		return 0, false, ErrPrematureBody
	}
	return written, true, nil
}

func (w *Writer) finishChunkedEncoding(dst io.Writer) (int, bool, error) {
	written := w.state.a
	_, err := dst.Write(lastChunk)
	w.state = writeState{kind: writeCompleted, a: written}
	if err != nil {
		return 0, false, newError("error writing: %v", err)
	}
	return written, true, nil
}

func (w *Writer) finishUntilClosed() (int, bool, error) {
	written := w.state.a
	w.state = writeState{kind: writeCompleted, a: written}
	return written, true, nil
}

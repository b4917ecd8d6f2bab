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
	"io"

	"github.com/packetd/gatewayd/common"
	"github.com/packetd/gatewayd/internal/offset"
)

// Reader 按 content-length / chunked / 读到连接关闭三种模式之一增量读取请求或响应的 body
//
// 每次 ReadBody 调用最多向底层 io.Reader 发起一次 Read 系统调用，读到的数据落在
// Buffer() 之中，调用方通过返回的 offset.Offset 取得本次新产出的字节范围，不必拷贝。
type Reader struct {
	state         readState
	buf           []byte
	bufSize       int
	rewindBufSize int
}

// NewReader 返回一个处于 Start 状态的 Reader
func NewReader() *Reader {
	return &Reader{state: startState(), bufSize: common.BodyBufferSize}
}

// IsStart 判断 reader 是否还未选定读取模式
func (r *Reader) IsStart() bool { return r.state.isStart() }

// ReStart 将 reader 复位到 Start 以便在同一条连接上读取下一份 body (keep-alive 复用)
func (r *Reader) ReStart() { r.state = startState() }

// IsFinished 判断本次 body 是否已经读取完毕 (正常结束或被中断)
func (r *Reader) IsFinished() bool { return r.state.isFinished() }

// IsBodyEmpty 判断已完成的 body 是否恰好为零字节
func (r *Reader) IsBodyEmpty() bool { return r.state.isBodyEmpty() }

// SlicedBody 按 offset 取回底层缓冲区中的字节切片 (零拷贝)
func (r *Reader) SlicedBody(o offset.Offset) []byte { return o.Slice(r.buf) }

func (r *Reader) setBuffer(rewind []byte) {
	size := r.bufSize
	if len(rewind) > size {
		size = len(rewind)
	}
	r.buf = make([]byte, size)
	if len(rewind) > 0 {
		r.rewindBufSize = len(rewind)
		copy(r.buf, rewind)
	}
}

// WithChunkedRead 将 reader 切换到 chunked 读取模式 rewind 是在探测 header 时已经
// 多读出来、尚未归还给连接的那部分字节 (属于 body 的一部分)
func (r *Reader) WithChunkedRead(rewind []byte) {
	r.state = readState{kind: readChunked}
	r.setBuffer(rewind)
}

// WithContentLengthRead 将 reader 切换到定长读取模式
func (r *Reader) WithContentLengthRead(length int, rewind []byte) {
	if length == 0 {
		r.state = readState{kind: readCompleted, a: 0}
		return
	}
	r.setBuffer(rewind)
	r.state = readState{kind: readPartial, a: 0, b: length}
}

// WithUntilClosedRead 将 reader 切换到读至连接关闭为止的模式 (HTTP/1.0 无 Content-Length)
func (r *Reader) WithUntilClosedRead(rewind []byte) {
	r.setBuffer(rewind)
	r.state = readState{kind: readHTTP10, a: 0}
}

// ReadBody 按当前模式读取下一段 body
//
// 返回值约定：
//   - ok == true：off 是本次新产出的字节范围
//   - ok == false, err == nil：body 已经读取完毕 没有更多数据
//   - ok == false, err != nil：读取过程中出错 (连接被关闭 chunk 格式非法等)
func (r *Reader) ReadBody(rd io.Reader) (off offset.Offset, ok bool, err error) {
	switch r.state.kind {
	case readCompleted, readDone:
		return offset.Offset{}, false, nil
	case readPartial:
		return r.readPartially(rd)
	case readChunked:
		return r.readChunked(rd)
	case readHTTP10:
		return r.readUntilClosed(rd)
	default:
		panic("body: reader is not initialized")
	}
}

func doRead(rd io.Reader, buf []byte) (int, error) {
	n, err := rd.Read(buf)
	if err != nil && err != io.EOF {
		return n, err
	}
	return n, nil
}

func (r *Reader) readPartially(rd io.Reader) (offset.Offset, bool, error) {
	n := r.rewindBufSize
	r.rewindBufSize = 0
	if n == 0 {
		var err error
		n, err = doRead(rd, r.buf)
		if err != nil {
			return offset.Offset{}, false, err
		}
	}

	read, toRead := r.state.a, r.state.b
	switch {
	case n == 0:
		r.state = r.state.done(0)
		return offset.Offset{}, false, ErrConnectionClosed
	case n >= toRead:
		r.state = readState{kind: readCompleted, a: read + toRead}
		return offset.New(0, toRead), true, nil
	default:
		r.state = readState{kind: readPartial, a: read + n, b: toRead - n}
		return offset.New(0, n), true, nil
	}
}

func (r *Reader) readUntilClosed(rd io.Reader) (offset.Offset, bool, error) {
	n := r.rewindBufSize
	r.rewindBufSize = 0
	if n == 0 {
		var err error
		n, err = doRead(rd, r.buf)
		if err != nil {
			return offset.Offset{}, false, err
		}
	}

	read := r.state.a
	if n == 0 {
		r.state = readState{kind: readCompleted, a: read}
		return offset.Offset{}, false, nil
	}
	r.state = readState{kind: readHTTP10, a: read + n}
	return offset.New(0, n), true, nil
}

func (r *Reader) readChunked(rd io.Reader) (offset.Offset, bool, error) {
	existingBufStart := r.state.b
	existingBufEnd := r.state.c
	expectingFromIO := r.state.d

	if existingBufStart == 0 {
		if existingBufEnd == 0 {
			existingBufEnd = r.rewindBufSize
			r.rewindBufSize = 0
			if existingBufEnd == 0 {
				n, err := doRead(rd, r.buf)
				if err != nil {
					return offset.Offset{}, false, err
				}
				existingBufEnd = n
			}
		} else {
			copy(r.buf, r.buf[existingBufEnd-expectingFromIO:existingBufEnd])
			n, err := doRead(rd, r.buf[expectingFromIO:])
			if err != nil {
				return offset.Offset{}, false, err
			}
			existingBufEnd = expectingFromIO + n
			expectingFromIO = 0
		}
		r.state = r.state.newBuf(existingBufEnd)
	}

	if existingBufEnd == 0 {
		r.state = r.state.done(0)
		return offset.Offset{}, false, ErrConnectionClosed
	}

	if expectingFromIO > 0 {
		if expectingFromIO >= existingBufEnd+2 {
			r.state = r.state.partialChunk(existingBufEnd, expectingFromIO-existingBufEnd)
			return offset.New(0, existingBufEnd), true, nil
		}

		payloadSize := 0
		if expectingFromIO > 2 {
			payloadSize = expectingFromIO - 2
		}

		if expectingFromIO >= existingBufEnd {
			r.state = r.state.partialChunk(payloadSize, expectingFromIO-existingBufEnd)
			return offset.New(0, payloadSize), true, nil
		}

		r.state = r.state.multiChunk(payloadSize, expectingFromIO)
		return offset.New(0, payloadSize), true, nil
	}

	return r.parseChunkedBuf(existingBufStart, existingBufEnd)
}

func (r *Reader) parseChunkedBuf(start, end int) (offset.Offset, bool, error) {
	buf := r.buf[start:end]

	status, payloadIndex, size, err := parseChunkSize(buf)
	if err != nil {
		r.state = r.state.done(0)
		return offset.Offset{}, false, err
	}

	if status == chunkPartial {
		if len(buf) > common.PartialChunkHeadLimit {
			r.state = r.state.done(0)
			return offset.Offset{}, false, ErrChunkOverLimit
		}
		r.state = r.state.partialChunkHead(end, len(buf))
		return offset.New(0, 0), true, nil
	}

	if size == 0 {
		// terminating chunk: 0\r\n\r\n (trailers 不支持)
		r.state = r.state.finish(0)
		return offset.Offset{}, false, nil
	}

	chunkSize := int(size)
	dataEndIndex := payloadIndex + chunkSize
	chunkEndIndex := dataEndIndex + 2

	if chunkEndIndex >= len(buf) {
		actualSize := chunkSize
		if dataEndIndex > len(buf) {
			actualSize = len(buf) - payloadIndex
		}
		r.state = r.state.partialChunk(actualSize, chunkEndIndex-len(buf))
		return offset.New(start+payloadIndex, actualSize), true, nil
	}

	r.state = r.state.multiChunk(chunkSize, start+chunkEndIndex)
	return offset.New(start+payloadIndex, chunkSize), true, nil
}

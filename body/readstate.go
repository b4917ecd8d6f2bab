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

// readKind discriminates the variant carried by a readState value
type readKind uint8

const (
	readStart readKind = iota
	readCompleted
	readDone
	readPartial
	readChunked
	readHTTP10
)

// readState is the body reader's state machine value
//
// 字段含义随 kind 而变化：
//
//	readCompleted / readDone: a = 总读取字节数
//	readPartial:              a = 已读字节数 b = 剩余待读字节数
//	readChunked:               a = 总读取字节数 b = 当前 buffer 起始下标
//	                           c = 当前 buffer 结束下标 d = 仍需从 IO 读取的字节数
//	readHTTP10:                a = 已读字节数
type readState struct {
	kind readKind
	a, b, c, d int
}

func startState() readState { return readState{kind: readStart} }

func (s readState) isStart() bool     { return s.kind == readStart }
func (s readState) isFinished() bool  { return s.kind == readCompleted || s.kind == readDone }
func (s readState) isBodyEmpty() bool { return s.kind == readCompleted && s.a == 0 }

// finish 将 Partial/Chunked/HTTP10 迁移到 Completed 其余状态上调用视为非法迁移 原样返回
func (s readState) finish(additional int) readState {
	switch s.kind {
	case readPartial:
		return readState{kind: readCompleted, a: s.a + s.b}
	case readChunked:
		return readState{kind: readCompleted, a: s.a + additional}
	case readHTTP10:
		return readState{kind: readCompleted, a: s.a + additional}
	default:
		return s
	}
}

// done 将 Partial/Chunked/HTTP10 迁移到 Done (读取被中断)
func (s readState) done(additional int) readState {
	switch s.kind {
	case readPartial:
		return readState{kind: readDone, a: s.a + additional}
	case readChunked:
		return readState{kind: readDone, a: s.a + additional}
	case readHTTP10:
		return readState{kind: readDone, a: s.a + additional}
	default:
		return s
	}
}

// partialChunk 记录一个尚未读满的 chunk：已读 bytesRead 字节 还需 bytesToRead 字节
func (s readState) partialChunk(bytesRead, bytesToRead int) readState {
	if s.kind != readChunked {
		return s
	}
	return readState{kind: readChunked, a: s.a + bytesRead, b: 0, c: 0, d: bytesToRead}
}

// multiChunk 记录当前 buffer 中还有更多已就绪的 chunk 待解析
func (s readState) multiChunk(bytesRead, bufStartIndex int) readState {
	if s.kind != readChunked {
		return s
	}
	return readState{kind: readChunked, a: s.a + bytesRead, b: bufStartIndex, c: s.c, d: 0}
}

// partialChunkHead 记录 chunk-size 行本身尚未读全
func (s readState) partialChunkHead(headEnd, headSize int) readState {
	if s.kind != readChunked {
		return s
	}
	return readState{kind: readChunked, a: s.a, b: 0, c: headEnd, d: headSize}
}

// newBuf 记录刚从 IO 填充完毕的新 buffer 边界
func (s readState) newBuf(bufEnd int) readState {
	if s.kind != readChunked {
		return s
	}
	return readState{kind: readChunked, a: s.a, b: 0, c: bufEnd, d: 0}
}

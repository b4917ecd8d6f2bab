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

package header

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"

	"github.com/packetd/gatewayd/common"
	"github.com/packetd/gatewayd/internal/splitio"
)

func newError(format string, args ...any) error {
	format = "header: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrIncomplete 表示 buf 中尚未包含一个完整的起始行 + header 块 调用方应追加数据后重试
	ErrIncomplete = errors.New("header: incomplete")

	// ErrHeaderTooLarge header 字节数超过上限
	ErrHeaderTooLarge = errors.New("header: too large")

	// ErrTooManyHeaders header 数量超过上限
	ErrTooManyHeaders = errors.New("header: too many headers")

	// ErrMalformedStartLine 请求行/状态行或某个 header 字段格式错误
	ErrMalformedStartLine = errors.New("header: malformed start line")
)

// trimOWS 去掉首尾的 SP/HTAB (RFC7230 optional whitespace)
func trimOWS(b []byte) []byte {
	return bytes.Trim(b, " \t")
}

// trimCRLF 去掉行尾的 \r\n 或 \n
func trimCRLF(b []byte) []byte {
	b = bytes.TrimSuffix(b, splitio.CharLF)
	b = bytes.TrimSuffix(b, splitio.CharCR)
	return b
}

// splitHeaderBlock 从 buf 中切出起始行与各 header 行 直到遇到终止空行
//
// 返回的 n 是已消费的字节数 (含终止空行) 仅在 err == nil 时有效
func splitHeaderBlock(buf []byte, maxBytes, maxCount int) (lines [][]byte, n int, err error) {
	sc := splitio.NewScanner(buf)

	var consumed int
	for sc.Scan() {
		line := sc.Bytes()
		consumed += len(line)
		if consumed > maxBytes {
			return nil, 0, ErrHeaderTooLarge
		}

		if len(trimCRLF(line)) == 0 {
			if len(lines) == 0 {
				return nil, 0, ErrMalformedStartLine
			}
			return lines, consumed, nil
		}

		lines = append(lines, line)
		if len(lines)-1 > maxCount {
			return nil, 0, ErrTooManyHeaders
		}
	}
	return nil, 0, ErrIncomplete
}

// parseRequestLine 解析 `METHOD SP target SP VERSION`
func parseRequestLine(line []byte) (method string, target []byte, version Version, err error) {
	line = trimCRLF(line)

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 < 0 {
		return "", nil, 0, ErrMalformedStartLine
	}
	rest := line[sp1+1:]

	sp2 := bytes.LastIndexByte(rest, ' ')
	if sp2 < 0 {
		return "", nil, 0, ErrMalformedStartLine
	}

	methodBytes := line[:sp1]
	targetBytes := rest[:sp2]
	if len(methodBytes) == 0 || len(targetBytes) == 0 {
		return "", nil, 0, ErrMalformedStartLine
	}

	return string(methodBytes), targetBytes, ParseVersion(rest[sp2+1:]), nil
}

// parseStatusLine 解析 `VERSION SP code SP reason` reason 可省略
func parseStatusLine(line []byte) (version Version, code int, reason string, err error) {
	line = trimCRLF(line)

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 < 0 {
		return 0, 0, "", ErrMalformedStartLine
	}
	version = ParseVersion(line[:sp1])
	rest := trimOWS(line[sp1+1:])

	var codeBytes, reasonBytes []byte
	if sp2 := bytes.IndexByte(rest, ' '); sp2 < 0 {
		codeBytes = rest
	} else {
		codeBytes = rest[:sp2]
		reasonBytes = trimOWS(rest[sp2+1:])
	}

	n, perr := strconv.Atoi(string(codeBytes))
	if perr != nil || n < 100 || n > 999 {
		return 0, 0, "", ErrMalformedStartLine
	}
	return version, n, string(reasonBytes), nil
}

// unfoldContinuations 将 obsolete line folding 的续行合并回前一个 header 行
//
// 续行以 SP/HTAB 开头；合并时以单个空格替代原先的 CRLF+空白
func unfoldContinuations(lines [][]byte) [][]byte {
	out := make([][]byte, 0, len(lines))
	for _, line := range lines {
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') && len(out) > 0 {
			last := trimCRLF(out[len(out)-1])
			merged := append(append(append([]byte{}, last...), ' '), trimOWS(trimCRLF(line))...)
			out[len(out)-1] = merged
			continue
		}
		out = append(out, line)
	}
	return out
}

// parseHeaderFields 解析 header 字段并写入 hdr
//
// tolerant 为 true 时 (响应侧) 容忍 obsolete line folding 以及 header 名称后的尾部空白
func parseHeaderFields(hdr *Header, lines [][]byte, tolerant bool) error {
	if tolerant {
		lines = unfoldContinuations(lines)
	}

	for _, line := range lines {
		line = trimCRLF(line)

		idx := bytes.IndexByte(line, ':')
		if idx < 0 {
			return ErrMalformedStartLine
		}

		name := line[:idx]
		if tolerant {
			name = bytes.TrimRight(name, " \t")
		}
		if len(name) == 0 {
			return ErrMalformedStartLine
		}

		value := trimOWS(line[idx+1:])
		hdr.Add(string(name), string(value))
	}
	return nil
}

// ParseRequestHead 尝试从 buf 中解析一个完整的请求行 + header 块
//
// 返回的 n 是已消费的字节数 仅在 err == nil 时有效
// 若 buf 尚不构成一个完整的 header 块 返回 ErrIncomplete 调用方应读取更多数据后重试
func ParseRequestHead(buf []byte) (*RequestHead, int, error) {
	lines, n, err := splitHeaderBlock(buf, common.MaxHeaderBytes, common.MaxHeaderCount)
	if err != nil {
		return nil, 0, err
	}

	method, target, version, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, 0, err
	}

	h := &RequestHead{
		Method:    method,
		RawTarget: append([]byte(nil), target...),
		Version:   version,
		Header:    New(),
	}
	if err := parseHeaderFields(h.Header, lines[1:], false); err != nil {
		return nil, 0, err
	}
	return h, n, nil
}

// ParseResponseHead 尝试从 buf 中解析一个完整的状态行 + header 块
//
// 与 ParseRequestHead 行为一致 额外容忍响应侧的 obsolete line folding 与名称尾部空白
func ParseResponseHead(buf []byte) (*ResponseHead, int, error) {
	lines, n, err := splitHeaderBlock(buf, common.MaxHeaderBytes, common.MaxHeaderCount)
	if err != nil {
		return nil, 0, err
	}

	version, code, reason, err := parseStatusLine(lines[0])
	if err != nil {
		return nil, 0, err
	}

	h := &ResponseHead{
		Version:    version,
		StatusCode: code,
		Reason:     reason,
		Header:     New(),
	}
	if err := parseHeaderFields(h.Header, lines[1:], true); err != nil {
		return nil, 0, err
	}
	return h, n, nil
}

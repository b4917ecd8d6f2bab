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

package admission

import (
	"strconv"

	"github.com/goccy/go-json"

	"github.com/packetd/gatewayd/header"
	"github.com/packetd/gatewayd/session"
)

// errorBody 是准入流水线短路时写给下游的 JSON 响应体
type errorBody struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

// writeErrorResponse 向下游写出一个 JSON 格式的错误响应 并关闭这条连接的保活
//
// extraHeaders 会在 Content-Type 之前写入 例如限流步骤附带的 X-Rate-Limit-* 三件套
func writeErrorResponse(d *session.Downstream, statusCode int, message string, extraHeaders map[string]string) error {
	h := header.New()
	for k, v := range extraHeaders {
		h.Set(k, v)
	}
	h.Set("Content-Type", "application/json")

	body, err := json.Marshal(errorBody{StatusCode: statusCode, Message: message})
	if err != nil {
		return newError("marshal error body: %v", err)
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))

	resp := &header.ResponseHead{
		Version:    header.Version11,
		StatusCode: statusCode,
		Header:     h,
	}
	if err := d.WriteResponseHeaders(resp); err != nil {
		return newError("write error response header: %v", err)
	}
	d.SetResponseBodyWriter(resp)
	if _, _, err := d.WriteResponseBody(body); err != nil {
		return newError("write error response body: %v", err)
	}
	if _, _, err := d.FinishWritingResponseBody(); err != nil {
		return newError("finish error response body: %v", err)
	}

	d.SetKeepaliveTimeout(session.KeepaliveOff())
	return nil
}

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

package common

const (
	// App 应用程序名称
	App = "gatewayd"

	// Version 应用程序版本
	Version = "v0.0.1"

	// HeaderReadChunkSize 读取请求/响应头时每次从 stream 读取的增量大小
	HeaderReadChunkSize = 8 * 1024

	// MaxHeaderBytes 请求/响应头允许占用的最大字节数
	MaxHeaderBytes = 8 * 1024

	// MaxHeaderCount 请求/响应头允许携带的最大 header 数量
	MaxHeaderCount = 256

	// BodyBufferSize BodyReader 内部缓冲区大小
	BodyBufferSize = 64 * 1024

	// PartialChunkHeadLimit chunked 编码下单个 chunk-head 允许的最大未完成字节数
	PartialChunkHeadLimit = 8 * 1024
)

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

package cluster

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/packetd/gatewayd/header"
)

// Select 实现 §4.8 的集群选择算法：解析请求目标 按路径前缀选集群 重写转发路径
//
// 成功时返回匹配的集群索引 并原地改写 req.RawTarget 为去掉前缀后的转发路径
// (查询串保留)。失败时返回 ErrInvalidTarget (对应 400) 或 ErrNoMatchingPrefix
// (对应 404)，调用方 (admission 流水线) 负责把错误映射为响应。
func (r *Registry) Select(req *header.RequestHead) (int, error) {
	original, err := url.ParseRequestURI(string(req.RawTarget))
	if err != nil {
		return 0, errors.Wrap(ErrInvalidTarget, err.Error())
	}

	prefix := basePrefix(original.Path)

	idx, ok := r.prefixes[prefix]
	if !ok {
		return 0, ErrNoMatchingPrefix
	}

	forwardedPath := strings.Replace(original.Path, prefix, "", 1)
	if forwardedPath == "" {
		forwardedPath = "/"
	}

	forwarded, err := url.ParseRequestURI(forwardedPath)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidTarget, err.Error())
	}

	newTarget := forwarded.Path
	if original.RawQuery != "" {
		newTarget += "?" + original.RawQuery
	}
	req.RawTarget = []byte(newTarget)

	return idx, nil
}

// basePrefix 提取路径的第一段并格式化为 "/<segment>"；没有任何段时返回 "/"
func basePrefix(path string) string {
	segments := strings.Split(path, "/")
	for _, s := range segments {
		if s != "" {
			return "/" + s
		}
	}
	return "/"
}

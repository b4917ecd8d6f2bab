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

// Package cluster 描述一个上游集群的静态配置、由配置构建出的运行态 Cluster，以及
// 按请求路径前缀选择集群并重写转发路径的 Selector。
package cluster

import "github.com/pkg/errors"

func newError(format string, args ...any) error {
	format = "cluster: " + format
	return errors.Errorf(format, args...)
}

// ErrInvalidTarget 在请求目标无法解析为合法 URI 时返回 对应 400 响应
var ErrInvalidTarget = errors.New("cluster: invalid request target")

// ErrNoMatchingPrefix 在没有任何集群前缀匹配请求路径时返回 对应 404 响应
var ErrNoMatchingPrefix = errors.New("cluster: no cluster matches request path")

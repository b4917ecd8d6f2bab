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

// Package listener 实现单个监听地址上的 accept 循环：每条新连接应用 socket 调优预设
// 后交给调用方提供的 Handler 处理 对应 original_source 的 Listener::listen。
package listener

import (
	"context"
	"net"

	"github.com/packetd/gatewayd/internal/rescue"
	"github.com/packetd/gatewayd/logger"
	"github.com/packetd/gatewayd/stream"
)

// Network 标识监听的传输层类型
type Network string

const (
	NetworkTCP  Network = "tcp"
	NetworkUnix Network = "unix"
)

// Config 描述一个监听地址
type Config struct {
	// Network tcp 或 unix 默认为 tcp
	Network Network `config:"network"`

	// Address tcp 监听地址 (host:port) 或 unix socket 路径
	Address string `config:"address"`

	// Preset 应用到每条新 accept 连接的 socket 调优预设 默认为 stream.PresetServer
	Preset stream.Preset `config:"preset"`
}

// Handler 处理一条已经完成 socket 调优的新连接 直到连接结束
type Handler func(ctx context.Context, conn *stream.Conn)

// Listener 包装一个已绑定的监听套接字 对应 original_source 的 Listener
//
// 与 original_source 按 ListenerType 分派到 tcp_listener/uds_listener 两个几乎重复的
// 方法不同 这里只在 bind 阶段按 Network 选一次 net.Listen 的网络名 之后的 accept 循环
// 对 tcp/unix 完全一致 因为两者都实现了标准库的 net.Listener 接口。
type Listener struct {
	cfg     Config
	ln      net.Listener
	handler Handler
}

// Listen 绑定 cfg 指定的地址 返回一个尚未开始 accept 的 Listener
func Listen(cfg Config, handler Handler) (*Listener, error) {
	network := string(cfg.Network)
	if network == "" {
		network = string(NetworkTCP)
	}

	ln, err := net.Listen(network, cfg.Address)
	if err != nil {
		return nil, newError("listen %s %s: %v", network, cfg.Address, err)
	}
	return &Listener{cfg: cfg, ln: ln, handler: handler}, nil
}

// Addr 返回实际绑定的地址 (适用于 Address 以 ":0" 之类形式让系统分配端口的场景)
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Serve 开始 accept 循环 直至 ctx 被取消或出现不可恢复的 accept 错误
//
// ctx 取消时会主动关闭监听套接字来唤醒阻塞中的 Accept：对应 original_source
// tokio::select! 里预留但从未接入的 shutdown 分支，这里用取消底层 fd 的方式做到等价效果。
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	preset := l.cfg.Preset
	if preset == "" {
		preset = stream.PresetServer
	}

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			logger.Warnf("listener: failed to accept connection on %s: %v", l.cfg.Address, err)
			return err
		}

		sc := stream.New(conn)
		sc.ApplyPreset(preset)

		go func() {
			defer rescue.HandleCrash()
			l.handler(ctx, sc)
		}()
	}
}

// Close 主动关闭监听套接字 让阻塞中的 Serve 尽快返回
func (l *Listener) Close() error { return l.ln.Close() }

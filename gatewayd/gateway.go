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

// Package gatewayd 把 cluster/discovery/admission/forward/pool/listener 串成一个
// 完整的反向代理进程：对应 original_source 里 Server/Service 在启动阶段做的事，
// 以及 glaive 的 ProxyRouter 在每个请求生命周期里串起来的各个 provider。
package gatewayd

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/packetd/gatewayd/admission"
	"github.com/packetd/gatewayd/cache"
	"github.com/packetd/gatewayd/cluster"
	"github.com/packetd/gatewayd/common"
	"github.com/packetd/gatewayd/confengine"
	"github.com/packetd/gatewayd/discovery"
	"github.com/packetd/gatewayd/forward"
	"github.com/packetd/gatewayd/internal/labels"
	"github.com/packetd/gatewayd/internal/metricstorage"
	"github.com/packetd/gatewayd/internal/sigs"
	"github.com/packetd/gatewayd/internal/wait"
	"github.com/packetd/gatewayd/listener"
	"github.com/packetd/gatewayd/logger"
	"github.com/packetd/gatewayd/peer"
	"github.com/packetd/gatewayd/pool"
	"github.com/packetd/gatewayd/server"
	"github.com/packetd/gatewayd/session"
	"github.com/packetd/gatewayd/stream"
)

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}
	if opts.Filename == "" {
		opts.Filename = "gatewayd.log"
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 10
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}
	logger.SetOptions(opts)
	return nil
}

// peerHealth 记录一个上游端点最近一次拨号失败之后的冷却期 实现"轮询 + 健康检查"里
// 健康检查的那一半：Select 跳过仍在冷却期内的端点，对应 spec 里
// round-robin-with-health-checks 中 health-checks 的最小可用实现
type peerHealth struct {
	mu    sync.Mutex
	until map[peer.GroupID]time.Time
}

func newPeerHealth() *peerHealth {
	return &peerHealth{until: make(map[peer.GroupID]time.Time)}
}

func (h *peerHealth) markUnhealthy(gid peer.GroupID, cooldown time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.until[gid] = time.Now().Add(cooldown)
}

func (h *peerHealth) isHealthy(gid peer.GroupID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	until, ok := h.until[gid]
	if !ok {
		return true
	}
	return time.Now().After(until)
}

const unhealthyCooldown = 5 * time.Second

// Gateway 是进程级的顶层编排对象
type Gateway struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cfg       Config
	buildInfo common.BuildInfo

	registry *cluster.Registry
	pipeline *admission.Pipeline
	pool     *pool.Pool[*stream.Conn]
	health   *peerHealth
	storage  *metricstorage.Storage

	rrCounters []atomic.Uint64

	listeners []*listener.Listener
	watchers  []*discovery.Watcher
	svr       *server.Server
}

// New 构建一个尚未启动的 Gateway：校验集群配置 准备连接池/准入流水线/监听器，
// 但不绑定端口也不启动任何 goroutine，对应 original_source Server::new 与
// Service::new 的构建阶段
func New(conf *confengine.Config, buildInfo common.BuildInfo) (*Gateway, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	var cfg Config
	if err := conf.UnpackChild("gateway", &cfg); err != nil {
		return nil, err
	}

	registry, err := cluster.Build(cfg.Clusters)
	if err != nil {
		return nil, err
	}

	svr, err := server.New(conf)
	if err != nil {
		return nil, err
	}

	storage, err := metricstorage.New(conf)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	g := &Gateway{
		ctx:        ctx,
		cancel:     cancel,
		cfg:        cfg,
		buildInfo:  buildInfo,
		registry:   registry,
		pipeline:   admission.NewPipeline(registry, cache.NoStorage{}),
		pool:       pool.New[*stream.Conn](cfg.poolConfig()),
		health:     newPeerHealth(),
		rrCounters: make([]atomic.Uint64, registry.Len()),
		svr:        svr,
		storage:    storage,
	}

	if err := g.buildDiscoveryWatchers(); err != nil {
		return nil, err
	}
	if err := g.buildListeners(); err != nil {
		return nil, err
	}

	return g, nil
}

// buildDiscoveryWatchers 为每个声明了 discovery 块的集群构造一个后台刷新器 (由 Start 启动)
//
// 对应 original_source discovery.rs 里 Discovery::build_cluster_discovery 为每个集群
// 产生的一对后台服务：这里只需要一个 ticker 驱动的 Watcher，因为 cluster.Cluster 的
// peers 切片本身就是一次性构建好的只读快照的替代方案(见下方 applyPeers)
func (g *Gateway) buildDiscoveryWatchers() error {
	var consulClient *discovery.Consul

	for idx, cfg := range g.cfg.Clusters {
		if cfg.Discovery == nil || cfg.Discovery.Consul == nil {
			continue
		}
		if consulClient == nil {
			consulClient = discovery.NewConsul(g.cfg.Consul.Address, g.cfg.Consul.Token)
		}

		cl := g.registry.Cluster(idx)
		discoverer := discovery.NewServiceDiscoverer(consulClient, cfg.Discovery.Consul.Name, cfg.Discovery.Consul.Passing)
		watcher := discovery.NewWatcher(discoverer, g.cfg.discoveryInterval(), cl.ApplyPeers)
		g.watchers = append(g.watchers, watcher)
	}
	return nil
}

// buildListeners 为配置中声明的每个监听地址绑定一个 listener.Listener
// 尚未开始 accept：真正开始监听发生在 Start 里
func (g *Gateway) buildListeners() error {
	for _, lcfg := range g.cfg.Listeners {
		ln, err := listener.Listen(lcfg, g.handleConnection)
		if err != nil {
			for _, existing := range g.listeners {
				_ = existing.Close()
			}
			return err
		}
		g.listeners = append(g.listeners, ln)
	}
	return nil
}

// Start 开始 accept 连接 启动发现刷新器与后台指标上报 非阻塞立即返回
func (g *Gateway) Start() error {
	g.setupServer()

	for _, w := range g.watchers {
		go wait.Until(g.ctx, w.Run)
	}

	for _, ln := range g.listeners {
		ln := ln
		go func() {
			if err := ln.Serve(g.ctx); err != nil {
				logger.Errorf("gatewayd: listener on %s exited: %v", ln.Addr(), err)
			}
		}()
	}

	if g.svr != nil {
		go func() {
			err := g.svr.ListenAndServe()
			if !errors.Is(err, io.EOF) && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("gatewayd: admin server failed: %v", err)
			}
		}()
	}

	return nil
}

// Stop 执行两段式停机：先停止 accept 新连接 再等待活跃连接在 graceTimeout 内自然
// 结束，超时或两者都已结束之后取消 context 并排空连接池
//
// 对应 spec 的两级停机模型：Graceful 信号走到这里得到的就是等待-然后强制的行为；
// Fast 信号则不调用 Stop，由调用方(cmd)直接终止进程跳过等待
func (g *Gateway) Stop() {
	for _, ln := range g.listeners {
		_ = ln.Close()
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(g.cfg.graceTimeout()):
	}

	g.cancel()
	if g.svr != nil {
		_ = g.svr.Shutdown(context.Background())
	}
	if g.storage != nil {
		g.storage.Close()
	}
	g.pool.Drain()
}

// GraceTimeout 返回配置的优雅停机等待时长 供 cmd 包决定快速停机前最多等待多久
func (g *Gateway) GraceTimeout() time.Duration {
	return g.cfg.graceTimeout()
}

// Reload 重新校验并替换集群路由表 监听器与连接池在重载期间保持不变
//
// 对应 original_source 里没有的能力：Rust 版本的 ProxyRouter 在每次请求时都重新持有
// Arc<Cluster> 引用，这里显式重建 Registry 并做一次原子替换来达到等价效果
func (g *Gateway) Reload(conf *confengine.Config) error {
	var cfg Config
	if err := conf.UnpackChild("gateway", &cfg); err != nil {
		return err
	}

	registry, err := cluster.Build(cfg.Clusters)
	if err != nil {
		return err
	}

	g.cfg.Clusters = cfg.Clusters
	g.registry = registry
	g.pipeline = admission.NewPipeline(registry, cache.NoStorage{})
	g.rrCounters = make([]atomic.Uint64, registry.Len())
	return nil
}

func (g *Gateway) recordMetrics() {
	uptime.Set(float64(time.Now().Unix() - common.Started()))
	buildInfo.WithLabelValues(g.buildInfo.Version, g.buildInfo.GitHash, g.buildInfo.Time).Inc()
}

func (g *Gateway) setupServer() {
	if g.svr == nil {
		return
	}
	g.svr.RegisterGetRoute("/metrics", func(w http.ResponseWriter, r *http.Request) {
		g.recordMetrics()
		promhttp.Handler().ServeHTTP(w, r)
	})
	g.svr.RegisterPostRoute("/-/logger", func(w http.ResponseWriter, r *http.Request) {
		logger.SetLoggerLevel(r.FormValue("level"))
		_, _ = w.Write([]byte(`{"status": "success"}`))
	})
	g.svr.RegisterPostRoute("/-/reload", func(w http.ResponseWriter, r *http.Request) {
		if err := sigs.SelfReload(); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(err.Error()))
		}
	})
	g.svr.RegisterGetRoute("/traffic/metrics", func(w http.ResponseWriter, r *http.Request) {
		if g.storage == nil {
			return
		}
		g.storage.WritePrometheus(w)
	})
}

// recordTrafficMetrics 把一次成功转发的字节数/重试次数计入按 集群+端点 维度打标的动态
// 指标集 跟 metrics.go 里固定基数的 promauto 指标分别服务两种不同的可观测性需求：
// promauto 指标是进程级的运行状态，这里是高基数的按集群/端点拆分流量
func (g *Gateway) recordTrafficMetrics(clusterName string, p peer.Peer, u *session.Upstream, retried bool) {
	if g.storage == nil {
		return
	}

	lbs := labels.Labels{
		{Name: "cluster", Value: clusterName},
		{Name: "peer", Value: p.Address},
	}
	metrics := []metricstorage.ConstMetric{
		{Model: metricstorage.ModelCounter, Name: "gatewayd_upstream_bytes_sent_total", Labels: lbs, Value: float64(u.BytesWritten())},
		{Model: metricstorage.ModelCounter, Name: "gatewayd_upstream_bytes_received_total", Labels: lbs, Value: float64(u.BytesRead())},
	}
	if retried {
		metrics = append(metrics, metricstorage.ConstMetric{Model: metricstorage.ModelCounter, Name: "gatewayd_upstream_retries_total", Labels: lbs, Value: 1})
	}
	g.storage.Update(metrics...)
}

// selectPeer 在一个集群的健康端点之间做轮询选择 全部端点都在冷却期时退化为直接轮询
// (宁可尝试一个可能仍不健康的端点 也不要整个集群瞬间不可用)
func (g *Gateway) selectPeer(idx int, cl *cluster.Cluster) (peer.Peer, error) {
	peers := cl.Peers()
	if len(peers) == 0 {
		return peer.Peer{}, newError("cluster %q has no upstream peers", cl.Name)
	}

	n := uint64(len(peers))
	start := g.rrCounters[idx].Add(1)

	for i := uint64(0); i < n; i++ {
		p := peers[(start+i)%n]
		if g.health.isHealthy(p.GroupID()) {
			return p, nil
		}
	}
	return peers[start%n], nil
}

// acquireUpstream 取一条到 p 的可用连接：优先复用连接池里的空闲连接 否则发起一次
// 新拨号，拨号时应用 interactive-client 预设(短保活间隔 适合代理到上游的长连接)
func (g *Gateway) acquireUpstream(ctx context.Context, p peer.Peer) (*session.Upstream, bool, error) {
	if conn, ok := g.pool.Get(p.GroupID()); ok {
		poolHitsTotal.Inc()
		return session.NewUpstream(conn), true, nil
	}

	poolMissesTotal.Inc()
	conn, err := stream.Dial(ctx, p)
	if err != nil {
		return nil, false, err
	}
	conn.ApplyPreset(stream.PresetInteractiveClient)
	return session.NewUpstream(conn), false, nil
}

// releaseUpstream 按上游会话商定的保活结果决定连接的归宿：关闭 或 归还连接池
func (g *Gateway) releaseUpstream(gid peer.GroupID, u *session.Upstream) {
	if u.KeepaliveTimeout().IsOff() {
		_ = u.Close()
		return
	}
	g.pool.Put(gid, u.ReturnStream())
}

// handleConnection 是每条已 accept 下游连接的生命周期：循环读取请求 跑准入流水线
// 选上游转发 直到下游关闭或协商的保活策略要求终止连接
//
// 对应 original_source core/src/service/service.rs 的 handle_connection：那里每条连接
// 只处理一轮请求就结束；这里按 spec §4.6 的持久连接模型在同一条下游连接上循环处理
// 多个请求，直到 keepalive 决策为 Off
func (g *Gateway) handleConnection(ctx context.Context, conn *stream.Conn) {
	g.wg.Add(1)
	activeConnections.Inc()
	defer g.wg.Done()
	defer activeConnections.Dec()
	defer conn.Close()

	d := session.NewDownstream(conn)
	for {
		ok, err := d.ReadRequest()
		if err != nil {
			logger.Debugf("gatewayd: [%s] failed to read request: %v", conn.ID(), err)
			return
		}
		if !ok {
			return
		}

		if err := g.serveRequest(ctx, d); err != nil {
			logger.Warnf("gatewayd: [%s] failed to serve request: %v", conn.ID(), err)
			return
		}

		if d.KeepaliveTimeout().IsOff() {
			return
		}
		if timeout, ok := d.KeepaliveTimeout().Timeout(); ok {
			_ = conn.SetReadDeadline(time.Now().Add(timeout))
		} else {
			_ = conn.SetReadDeadline(time.Time{})
		}
	}
}

// serveRequest 跑一次准入流水线并在放行后完成一次带重试的转发
func (g *Gateway) serveRequest(ctx context.Context, d *session.Downstream) error {
	actx, handled, err := g.pipeline.Run(ctx, d)
	if err != nil {
		forwardErrorsTotal.WithLabelValues("admission").Inc()
		return err
	}
	if handled {
		rejectedRequestsTotal.WithLabelValues(responseStatusLabel(d)).Inc()
		return nil
	}

	requestsTotal.WithLabelValues(actx.Cluster.Name).Inc()
	return g.forwardWithRetry(ctx, actx.ClusterIndex, actx.Cluster, d)
}

// forwardWithRetry 选上游连接并转发 在符合 §9 重试分类的条件下对拨号/转发失败重试
// 一次:仅 GET/HEAD/OPTIONS 且尚未向上游发送任何请求体字节
func (g *Gateway) forwardWithRetry(ctx context.Context, idx int, cl *cluster.Cluster, d *session.Downstream) error {
	method := d.Request().Method

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		p, err := g.selectPeer(idx, cl)
		if err != nil {
			return err
		}

		u, pooled, err := g.acquireUpstream(ctx, p)
		if err != nil {
			g.health.markUnhealthy(p.GroupID(), unhealthyCooldown)
			lastErr = err
			if attempt == 0 && cl.CanRetry(method, 0) {
				continue
			}
			forwardErrorsTotal.WithLabelValues("dial").Inc()
			return lastErr
		}

		err = forward.ForwardRequest(d, u)
		bodyBytesSent := u.RequestBodyBytesSent()
		if err != nil {
			if pooled {
				_ = u.Close()
			} else {
				g.health.markUnhealthy(p.GroupID(), unhealthyCooldown)
			}
			lastErr = err
			if attempt == 0 && cl.CanRetry(method, bodyBytesSent) {
				continue
			}
			forwardErrorsTotal.WithLabelValues("forward").Inc()
			return lastErr
		}

		u.ApplySessionKeepalive()
		d.ApplySessionKeepalive()
		g.recordTrafficMetrics(cl.Name, p, u, attempt > 0)
		g.releaseUpstream(p.GroupID(), u)
		return nil
	}
	return lastErr
}

func responseStatusLabel(d *session.Downstream) string {
	resp := d.Response()
	if resp == nil {
		return "0"
	}
	return strconv.Itoa(resp.StatusCode)
}

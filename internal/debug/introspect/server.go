package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-eventhub/internal/core/eventbus"
	"github.com/dep2p/go-eventhub/pkg/lib/log"
)

var logger = log.Logger("debug/introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:6060"

// ============================================================================
//                              配置
// ============================================================================

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:6060"
	Addr string

	// Registry 可选的事件注册表
	Registry *eventbus.Registry

	// Source 可选的事件源统计
	Source SourceStats

	// Bridge 可选的桥接统计
	Bridge BridgeStats

	// Gatherer /metrics 使用的指标收集器，nil 时使用 prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer

	// CustomHandlers 自定义处理器
	CustomHandlers map[string]http.HandlerFunc
}

// SourceStats 事件源统计接口
type SourceStats interface {
	Stats() (fired, dropped uint64)
	Pending() int
}

// BridgeStats 桥接统计接口
type BridgeStats interface {
	Stats() (received, rejected uint64)
	Addr() string
}

// ============================================================================
//                              Server
// ============================================================================

// Server 本地自省 HTTP 服务
type Server struct {
	config Config

	// HTTP 服务器
	server   *http.Server
	listener net.Listener
	done     chan struct{}

	// 状态
	running   bool
	startTime time.Time

	mu sync.Mutex
}

// New 创建自省服务
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{config: cfg}
}

// Handler 返回自省路由，可挂载到已有的 HTTP 服务
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// 自省端点
	mux.HandleFunc("/debug/introspect", s.handleIntrospect)
	mux.HandleFunc("/debug/introspect/categories", s.handleCategories)
	mux.HandleFunc("/debug/introspect/failures", s.handleFailures)
	mux.HandleFunc("/debug/introspect/runtime", s.handleRuntime)

	// 指标
	mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))

	// pprof 端点
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// 健康检查
	mux.HandleFunc("/health", s.handleHealth)

	for path, handler := range s.config.CustomHandlers {
		mux.HandleFunc(path, handler)
	}
	return mux
}

// Start 启动服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = time.Now()

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.done = make(chan struct{})
	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("自省服务异常退出", "error", err)
		}
	}(s.server, s.done)

	s.running = true
	logger.Info("自省服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("关闭自省服务失败", "error", err)
		return err
	}
	<-s.done

	s.running = false
	logger.Info("自省服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ============================================================================
//                              响应结构
// ============================================================================

// IntrospectResponse 完整诊断响应
type IntrospectResponse struct {
	Timestamp  time.Time      `json:"timestamp"`
	Uptime     string         `json:"uptime"`
	Host       string         `json:"host,omitempty"`
	Categories []CategoryInfo `json:"categories"`
	Source     *SourceInfo    `json:"source,omitempty"`
	Bridge     *BridgeInfo    `json:"bridge,omitempty"`
	Runtime    *RuntimeInfo   `json:"runtime,omitempty"`
}

// CategoryInfo 类别订阅信息
type CategoryInfo struct {
	Category    string           `json:"category"`
	Injected    bool             `json:"injected"`
	Subscribers []SubscriberInfo `json:"subscribers"`
}

// SubscriberInfo 订阅者信息，按分发顺序排列
type SubscriberInfo struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Priority        int    `json:"priority"`
	IgnoreCancelled bool   `json:"ignore_cancelled,omitempty"`
	Async           bool   `json:"async,omitempty"`
}

// FailureInfo 投递失败信息
type FailureInfo struct {
	Category     string `json:"category"`
	Subscription string `json:"subscription"`
	Error        string `json:"error"`
}

// SourceInfo 事件源统计
type SourceInfo struct {
	Fired   uint64 `json:"fired"`
	Dropped uint64 `json:"dropped"`
	Pending int    `json:"pending"`
}

// BridgeInfo 桥接统计
type BridgeInfo struct {
	Addr     string `json:"addr,omitempty"`
	Received uint64 `json:"received"`
	Rejected uint64 `json:"rejected"`
}

// RuntimeInfo 运行时信息
type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc"`
	MemSys       uint64 `json:"mem_sys"`
	NumGC        uint32 `json:"num_gc"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime,omitempty"`
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

// handleIntrospect 处理完整诊断请求
func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := IntrospectResponse{
		Timestamp:  time.Now(),
		Uptime:     s.uptime(),
		Categories: s.collectCategories(),
		Source:     s.collectSourceInfo(),
		Bridge:     s.collectBridgeInfo(),
		Runtime:    collectRuntimeInfo(),
	}
	if s.config.Registry != nil {
		if host := s.config.Registry.Host(); host != nil {
			response.Host = host.Name()
		}
	}

	s.writeJSON(w, response)
}

// handleCategories 处理类别订阅请求
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.Registry == nil {
		http.Error(w, "Registry not available", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, s.collectCategories())
}

// handleFailures 处理最近失败请求
func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.Registry == nil {
		http.Error(w, "Registry not available", http.StatusServiceUnavailable)
		return
	}

	failures := s.config.Registry.RecentFailures()
	out := make([]FailureInfo, 0, len(failures))
	for _, f := range failures {
		out = append(out, FailureInfo{
			Category:     f.Subscription.Category().String(),
			Subscription: f.Subscription.String(),
			Error:        f.Err.Error(),
		})
	}
	s.writeJSON(w, out)
}

// handleRuntime 处理运行时信息请求
func (s *Server) handleRuntime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, collectRuntimeInfo())
}

// handleHealth 处理健康检查请求
//
// 注册表未绑定宿主时为 degraded。
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    s.uptime(),
	}
	if s.config.Registry == nil || !s.config.Registry.Bound() {
		health.Status = "degraded"
	}

	s.writeJSON(w, health)
}

// ============================================================================
//                              数据收集
// ============================================================================

// collectCategories 收集类别订阅信息，按类别名排序
func (s *Server) collectCategories() []CategoryInfo {
	reg := s.config.Registry
	if reg == nil {
		return []CategoryInfo{}
	}

	cats := reg.SubscribedCategories()
	out := make([]CategoryInfo, 0, len(cats))
	for _, cat := range cats {
		subs := reg.Subscribers(cat)
		info := CategoryInfo{
			Category:    cat.String(),
			Injected:    reg.Injected(cat),
			Subscribers: make([]SubscriberInfo, 0, len(subs)),
		}
		for _, sub := range subs {
			info.Subscribers = append(info.Subscribers, SubscriberInfo{
				ID:              sub.ID(),
				Name:            sub.Name(),
				Priority:        int(sub.Priority()),
				IgnoreCancelled: sub.IgnoreCancelled(),
				Async:           sub.Async(),
			})
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// collectSourceInfo 收集事件源统计
func (s *Server) collectSourceInfo() *SourceInfo {
	if s.config.Source == nil {
		return nil
	}
	fired, dropped := s.config.Source.Stats()
	return &SourceInfo{Fired: fired, Dropped: dropped, Pending: s.config.Source.Pending()}
}

// collectBridgeInfo 收集桥接统计
func (s *Server) collectBridgeInfo() *BridgeInfo {
	if s.config.Bridge == nil {
		return nil
	}
	received, rejected := s.config.Bridge.Stats()
	return &BridgeInfo{Addr: s.config.Bridge.Addr(), Received: received, Rejected: rejected}
}

// collectRuntimeInfo 收集运行时信息
func collectRuntimeInfo() *RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &RuntimeInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

// ============================================================================
//                              辅助方法
// ============================================================================

func (s *Server) uptime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startTime.IsZero() {
		return ""
	}
	return time.Since(s.startTime).Round(time.Millisecond).String()
}

// writeJSON 写入 JSON 响应
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		logger.Error("JSON 编码失败", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

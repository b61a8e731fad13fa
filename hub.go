package eventhub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-eventhub/config"
	"github.com/dep2p/go-eventhub/internal/core/eventbus"
	"github.com/dep2p/go-eventhub/internal/core/source"
	"github.com/dep2p/go-eventhub/internal/core/source/wsbridge"
	"github.com/dep2p/go-eventhub/internal/debug/introspect"
	pkgif "github.com/dep2p/go-eventhub/pkg/interfaces"
	"github.com/dep2p/go-eventhub/pkg/lib/log"
	"github.com/dep2p/go-eventhub/pkg/types"
)

var logger = log.Logger("eventhub")

// ════════════════════════════════════════════════════════════════════════════
//                              Hub 状态
// ════════════════════════════════════════════════════════════════════════════

// HubState Hub 状态
type HubState int

const (
	// StateIdle 已创建，未启动
	StateIdle HubState = iota

	// StateStarting 启动中
	StateStarting

	// StateRunning 运行中
	StateRunning

	// StateStopping 停止中
	StateStopping

	// StateStopped 已停止，不可重新启动
	StateStopped
)

// String 返回状态的字符串表示
func (s HubState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("HubState(%d)", int(s))
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              Hub
// ════════════════════════════════════════════════════════════════════════════

// Hub 事件中心
//
// 组装注册表、进程内事件源和 WebSocket 桥接。New 之后即可订阅和本地分发；
// Start 启动异步工作协程和（如果启用）桥接监听。
type Hub struct {
	// config 选项
	config *hubConfig

	// app Fx 应用
	app *fx.App

	// 核心组件（由 Fx 注入）
	registry *eventbus.Registry
	source   *source.Source
	bridge   *wsbridge.Bridge
	host     pkgif.Host

	// introspect 自省服务，未启用时为 nil
	introspect *introspect.Server

	mu    sync.RWMutex
	state HubState
}

// New 创建 Hub
//
// 创建但不启动，需要调用 Start()。
//
// 示例：
//
//	hub, err := eventhub.New(
//	    eventhub.WithPreset(config.PresetThroughput),
//	    eventhub.WithAsyncEvent[*ChunkLoaded](),
//	)
func New(opts ...Option) (*Hub, error) {
	cfg := newHubConfig()
	if err := cfg.apply(opts...); err != nil {
		return nil, err
	}

	// 日志配置必须在最早期应用
	if cfg.setupLogging {
		if err := setupLogging(cfg.config.Log); err != nil {
			return nil, fmt.Errorf("setup logging: %w", err)
		}
	}

	hub := &Hub{config: cfg, state: StateIdle}

	var err error
	hub.app, err = buildFxApp(cfg, hub)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return hub, nil
}

// Start 快捷启动函数，等价于 New() + Start()
func Start(ctx context.Context, opts ...Option) (*Hub, error) {
	hub, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := hub.Start(ctx); err != nil {
		return nil, fmt.Errorf("start hub: %w", err)
	}
	return hub, nil
}

// Start 启动 Hub
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case StateRunning, StateStarting:
		return ErrAlreadyStarted
	case StateStopping, StateStopped:
		return ErrHubClosed
	}

	h.state = StateStarting
	if err := h.app.Start(ctx); err != nil {
		h.state = StateStopped
		logger.Error("启动失败", "error", err)
		return fmt.Errorf("start fx app: %w", err)
	}

	h.state = StateRunning
	logger.Info("事件中心已启动",
		"host", h.host.Name(),
		"bridge", h.bridge.Addr())
	return nil
}

// Stop 停止 Hub
//
// 按启动的相反顺序清空注册表、注销注入、关闭桥接和事件源。停止后不可重新启动。
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case StateStopped:
		return ErrHubClosed
	case StateIdle:
		return ErrNotStarted
	}

	h.state = StateStopping
	logger.Info("正在停止事件中心")

	err := h.app.Stop(ctx)
	h.state = StateStopped
	if err != nil {
		logger.Error("停止事件中心失败", "error", err)
		return fmt.Errorf("stop fx app: %w", err)
	}
	logger.Info("事件中心已停止")
	return nil
}

// Close 关闭 Hub 并释放所有资源，可重复调用
//
// 未启动的 Hub 也会清空注册表并关闭事件源。
func (h *Hub) Close() error {
	h.mu.Lock()
	state := h.state
	h.mu.Unlock()

	switch state {
	case StateStopped:
		return nil
	case StateIdle:
		h.mu.Lock()
		h.state = StateStopped
		h.mu.Unlock()
		return h.closeIdle()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return h.Stop(ctx)
}

// closeIdle 未启动时 Fx 不会调用 OnStop，直接关闭组件
func (h *Hub) closeIdle() error {
	err := h.registry.Close()
	if cerr := h.bridge.Close(); err == nil {
		err = cerr
	}
	if cerr := h.source.Close(); err == nil {
		err = cerr
	}
	return err
}

// State 返回当前状态
func (h *Hub) State() HubState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// ════════════════════════════════════════════════════════════════════════════
//                              组件访问
// ════════════════════════════════════════════════════════════════════════════

// Config 返回生效的配置
func (h *Hub) Config() *config.Config { return h.config.config }

// Registry 返回事件注册表
func (h *Hub) Registry() *eventbus.Registry { return h.registry }

// Source 返回进程内事件源
func (h *Hub) Source() *source.Source { return h.source }

// Bridge 返回 WebSocket 桥接
func (h *Hub) Bridge() *wsbridge.Bridge { return h.bridge }

// Codec 返回信封编解码器
func (h *Hub) Codec() *wsbridge.Codec { return h.config.codec }

// Host 返回宿主上下文
func (h *Hub) Host() pkgif.Host { return h.host }

// IntrospectAddr 返回自省服务地址，未启用时为空
func (h *Hub) IntrospectAddr() string {
	if h.introspect == nil {
		return ""
	}
	return h.introspect.Addr()
}

// ════════════════════════════════════════════════════════════════════════════
//                              注册表快捷方法
// ════════════════════════════════════════════════════════════════════════════

// Subscribe 注册监听者的所有处理器
func (h *Hub) Subscribe(l Listener) ([]pkgif.BoundReference, error) {
	return h.registry.Subscribe(l)
}

// Notify 本地分发事件
func (h *Hub) Notify(event any) error {
	return h.registry.Notify(event)
}

// NotifyContext 带链路上下文的本地分发
func (h *Hub) NotifyContext(ctx context.Context, event any) error {
	return h.registry.NotifyContext(ctx, event)
}

// Fire 经宿主事件源触发事件
//
// 只有已注入的类别会进入注册表；异步类别在入队后返回。
func (h *Hub) Fire(ctx context.Context, event any) error {
	if h.State() == StateStopped {
		return ErrHubClosed
	}
	return h.source.Fire(ctx, event)
}

// UnsubscribeAll 清空类别的全部订阅
func (h *Hub) UnsubscribeAll(cat types.Category) {
	h.registry.UnsubscribeAll(cat)
}

// SubscribedCategories 返回存在订阅者的类别
func (h *Hub) SubscribedCategories() []types.Category {
	return h.registry.SubscribedCategories()
}

// setupLogging 按配置设置全局日志
func setupLogging(cfg config.LogConfig) error {
	opts := log.Options{Level: cfg.Level, Format: cfg.Format}
	if cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			return err
		}
		opts.Output = f
	}
	return log.Setup(opts)
}

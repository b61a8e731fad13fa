package eventhub

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-eventhub/config"
	"github.com/dep2p/go-eventhub/internal/core/eventbus"
	"github.com/dep2p/go-eventhub/internal/core/source"
	"github.com/dep2p/go-eventhub/internal/core/source/wsbridge"
	"github.com/dep2p/go-eventhub/internal/debug/introspect"
	pkgif "github.com/dep2p/go-eventhub/pkg/interfaces"
	"github.com/dep2p/go-eventhub/pkg/lib/log"
)

var fxLogger = log.Logger("eventhub/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. Source: 进程内事件源
//  2. Bridge: WebSocket 桥接，作为宿主的 interfaces.Source
//  3. Host: 宿主上下文
//  4. EventBus: 注册表，构造时绑定宿主
//  5. Introspect: 自省服务（按配置启用）
//
// 停止时按相反顺序：先清空注册表并注销注入，再关闭桥接和事件源。
func buildFxApp(cfg *hubConfig, hub *Hub) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := cfg.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		fx.Supply(cfg.config),
		fx.Supply(cfg.codec),

		source.Module(),
		fx.Invoke(declareAsync(cfg)),
		wsbridge.Module(),
		fx.Provide(provideHost),
		eventbus.Module(),
		introspect.Module(),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 可选依赖
	// ════════════════════════════════════════════════════════════════════════
	if cfg.registerer != nil {
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return cfg.registerer }))
		if g, ok := cfg.registerer.(prometheus.Gatherer); ok {
			modules = append(modules, fx.Provide(func() prometheus.Gatherer { return g }))
		}
	}
	if cfg.tracerProvider != nil {
		modules = append(modules, fx.Provide(func() trace.TracerProvider { return cfg.tracerProvider }))
	}
	if cfg.clock != nil {
		modules = append(modules, fx.Provide(func() clock.Clock { return cfg.clock }))
	}
	if cfg.onFailure != nil {
		modules = append(modules, fx.Provide(func() eventbus.FailureHandler { return cfg.onFailure }))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	if len(cfg.userFxOptions) > 0 {
		modules = append(modules, cfg.userFxOptions...)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 5. Hub 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectHubComponents(hub)))

	// ════════════════════════════════════════════════════════════════════════
	// 6. Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	fxLogger.Debug("Fx 应用已构建", "bridge", cfg.config.Bridge.Enable, "async", len(cfg.asyncCategories))
	return app, nil
}

// provideHost 提供宿主上下文
func provideHost(cfg *config.Config, src pkgif.Source) pkgif.Host {
	return &pkgif.StaticHost{
		HostName:    cfg.EventBus.HostName,
		EventSource: src,
	}
}

// declareAsync 在任何订阅之前声明异步类别
func declareAsync(cfg *hubConfig) func(*source.Source) {
	return func(src *source.Source) {
		src.DeclareAsync(cfg.asyncCategories...)
	}
}

// hubInjectParams Hub 组件注入参数
type hubInjectParams struct {
	fx.In

	Registry *eventbus.Registry
	Source   *source.Source
	Bridge   *wsbridge.Bridge
	Host     pkgif.Host

	Introspect *introspect.Server `optional:"true"`
}

// injectHubComponents 创建 Hub 组件注入函数
func injectHubComponents(hub *Hub) interface{} {
	return func(p hubInjectParams) {
		hub.registry = p.Registry
		hub.source = p.Source
		hub.bridge = p.Bridge
		hub.host = p.Host
		hub.introspect = p.Introspect
	}
}

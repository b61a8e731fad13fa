package eventbus

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/dep2p/go-eventhub/config"
	pkgif "github.com/dep2p/go-eventhub/pkg/interfaces"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params 注册表依赖参数
type Params struct {
	fx.In

	Config     *config.Config        `optional:"true"`
	Host       pkgif.Host            `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
	Clock      clock.Clock           `optional:"true"`

	// TracerProvider 提供时总是启用链路追踪
	TracerProvider trace.TracerProvider `optional:"true"`
	OnFailure      FailureHandler       `optional:"true"`
}

// Result Fx 模块输出结果
type Result struct {
	fx.Out

	Registry  *Registry
	Interface pkgif.Registry
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideRegistry),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideRegistry 按统一配置创建注册表，提供了宿主时立即绑定
func ProvideRegistry(p Params) (Result, error) {
	cfg := config.DefaultEventBusConfig()
	if p.Config != nil {
		cfg = p.Config.EventBus
	}

	opts := []Option{
		WithRecentFailures(cfg.RecentFailures),
		WithClock(p.Clock),
	}
	if cfg.EnableMetrics {
		m, err := NewMetrics(p.Registerer)
		if err != nil {
			return Result{}, err
		}
		opts = append(opts, WithMetrics(m))
	}
	switch {
	case p.TracerProvider != nil:
		opts = append(opts, WithTracerProvider(p.TracerProvider))
	case cfg.EnableTracing:
		opts = append(opts, WithTracerProvider(otel.GetTracerProvider()))
	}
	if p.OnFailure != nil {
		opts = append(opts, WithFailureHandler(p.OnFailure))
	}

	r := NewRegistry(opts...)
	if p.Host != nil {
		r.Bind(p.Host)
	}
	return Result{Registry: r, Interface: r}, nil
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC       fx.Lifecycle
	Registry *Registry
}

// registerLifecycle 注册生命周期
//
// 宿主在构造时绑定，停止时清空所有订阅并注销注入。
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return input.Registry.Close()
		},
	})
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "eventbus"
	// Description 模块描述
	Description = "事件注册表模块，提供类型化、按优先级排序的事件分发"
)

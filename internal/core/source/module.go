package source

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-eventhub/config"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params 事件源依赖参数
type Params struct {
	fx.In

	Config *config.Config `optional:"true"`
}

// Result Fx 模块输出结果
type Result struct {
	fx.Out

	Source *Source
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("source",
		fx.Provide(ProvideSource),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideSource 按统一配置创建事件源
func ProvideSource(p Params) Result {
	cfg := config.DefaultSourceConfig()
	if p.Config != nil {
		cfg = p.Config.Source
	}
	return Result{Source: New(cfg)}
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC     fx.Lifecycle
	Source *Source
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return input.Source.Start()
		},
		OnStop: func(_ context.Context) error {
			return input.Source.Close()
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
	Name = "source"
	// Description 模块描述
	Description = "进程内外部事件源，支持同步投递和异步工作池投递"
)

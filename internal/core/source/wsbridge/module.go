package wsbridge

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-eventhub/config"
	"github.com/dep2p/go-eventhub/internal/core/source"
	pkgif "github.com/dep2p/go-eventhub/pkg/interfaces"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params 桥接依赖参数
type Params struct {
	fx.In

	Config *config.Config `optional:"true"`
	Source *source.Source
	Codec  *Codec `optional:"true"`
}

// Result Fx 模块输出结果
//
// Bridge 同时作为宿主的 interfaces.Source 提供。
type Result struct {
	fx.Out

	Bridge    *Bridge
	Interface pkgif.Source
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("wsbridge",
		fx.Provide(ProvideBridge),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideBridge 按统一配置创建桥接
func ProvideBridge(p Params) Result {
	cfg := config.DefaultBridgeConfig()
	if p.Config != nil {
		cfg = p.Config.Bridge
	}
	b := New(cfg, p.Source, p.Codec)
	return Result{Bridge: b, Interface: b}
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC     fx.Lifecycle
	Bridge *Bridge
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return input.Bridge.Start()
		},
		OnStop: func(_ context.Context) error {
			return input.Bridge.Close()
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
	Name = "wsbridge"
	// Description 模块描述
	Description = "WebSocket 事件桥接，接收远端宿主推送的事件信封"
)

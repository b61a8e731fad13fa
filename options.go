package eventhub

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/dep2p/go-eventhub/config"
	"github.com/dep2p/go-eventhub/internal/core/eventbus"
	"github.com/dep2p/go-eventhub/internal/core/source/wsbridge"
	"github.com/dep2p/go-eventhub/pkg/types"
)

// Option 用户配置选项函数
type Option func(*hubConfig) error

// hubConfig 内部选项结构
type hubConfig struct {
	// config 统一配置
	config *config.Config

	// setupLogging 是否按 config.Log 设置全局日志
	setupLogging bool

	// codec WebSocket 信封编解码器
	codec *wsbridge.Codec

	// asyncCategories 宿主异步投递的类别
	asyncCategories []types.Category

	// 可选依赖
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
	clock          clock.Clock
	onFailure      eventbus.FailureHandler

	// userFxOptions 用户自定义 Fx 选项
	userFxOptions []fx.Option
}

// newHubConfig 创建默认选项
func newHubConfig() *hubConfig {
	return &hubConfig{
		config: config.NewConfig(),
		codec:  wsbridge.NewCodec(),
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置来源
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用给定配置，之后的选项在其基础上修改
func WithConfig(cfg *config.Config) Option {
	return func(c *hubConfig) error {
		if cfg == nil {
			return errors.New("nil config")
		}
		c.config = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 或 YAML 文件加载配置
func WithConfigFile(path string) Option {
	return func(c *hubConfig) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		c.config = cfg
		return nil
	}
}

// WithPreset 应用预设
func WithPreset(name string) Option {
	return func(c *hubConfig) error {
		return config.ApplyPreset(c.config, name)
	}
}

// WithHostName 设置宿主名称
func WithHostName(name string) Option {
	return func(c *hubConfig) error {
		if name == "" {
			return errors.New("empty host name")
		}
		c.config.EventBus.HostName = name
		return nil
	}
}

// WithLogging 按配置设置全局日志
//
// level 为空时保留配置中的级别。
func WithLogging(level string) Option {
	return func(c *hubConfig) error {
		if level != "" {
			c.config.Log.Level = level
		}
		c.setupLogging = true
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              事件源
// ════════════════════════════════════════════════════════════════════════════

// WithEventType 以 name 注册事件类型，用于 WebSocket 信封编解码
func WithEventType[E any](name string) Option {
	return func(c *hubConfig) error {
		return wsbridge.RegisterType[E](c.codec, name)
	}
}

// WithAsyncEvent 声明类型 E 由宿主异步投递
func WithAsyncEvent[E any]() Option {
	return func(c *hubConfig) error {
		c.asyncCategories = append(c.asyncCategories, types.CategoryFor[E]())
		return nil
	}
}

// WithBridge 启用 WebSocket 桥接并监听 addr
func WithBridge(addr string) Option {
	return func(c *hubConfig) error {
		if addr == "" {
			return errors.New("empty bridge address")
		}
		c.config.Bridge.Enable = true
		c.config.Bridge.ListenAddr = addr
		return nil
	}
}

// WithIntrospect 启用本地自省服务并监听 addr
func WithIntrospect(addr string) Option {
	return func(c *hubConfig) error {
		if addr == "" {
			return errors.New("empty introspect address")
		}
		c.config.Diagnostics.EnableIntrospect = true
		c.config.Diagnostics.IntrospectAddr = addr
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              可观测性与依赖
// ════════════════════════════════════════════════════════════════════════════

// WithMetrics 把注册表指标注册到 reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *hubConfig) error {
		c.registerer = reg
		c.config.EventBus.EnableMetrics = reg != nil
		return nil
	}
}

// WithTracerProvider 使用 tp 记录分发链路
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *hubConfig) error {
		c.tracerProvider = tp
		return nil
	}
}

// WithClock 设置注册表时钟，测试中使用 clock.NewMock()
func WithClock(clk clock.Clock) Option {
	return func(c *hubConfig) error {
		c.clock = clk
		return nil
	}
}

// WithFailureHandler 设置投递失败消费者
func WithFailureHandler(h FailureHandler) Option {
	return func(c *hubConfig) error {
		c.onFailure = h
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(c *hubConfig) error {
		c.userFxOptions = append(c.userFxOptions, opts...)
		return nil
	}
}

// apply 依次应用选项
func (c *hubConfig) apply(opts ...Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return fmt.Errorf("apply option: %w", err)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"time"
)

// 预设名称
const (
	// PresetDefault 默认预设
	PresetDefault = "default"

	// PresetThroughput 高吞吐预设：更多工作协程和更长的队列
	PresetThroughput = "throughput"

	// PresetGateway 网关预设：启用 WebSocket 桥接，对外监听
	PresetGateway = "gateway"

	// PresetMinimal 最小预设：单工作协程，关闭指标和失败缓存
	PresetMinimal = "minimal"
)

// NewThroughputConfig 高吞吐配置
func NewThroughputConfig() *Config {
	cfg := NewConfig()
	cfg.Source.Workers = 16
	cfg.Source.QueueSize = 8192
	cfg.Source.ShutdownTimeout = Duration(15 * time.Second)
	cfg.EventBus.RecentFailures = 256
	return cfg
}

// NewGatewayConfig 网关配置
func NewGatewayConfig() *Config {
	cfg := NewConfig()
	cfg.Bridge.Enable = true
	cfg.Bridge.ListenAddr = "0.0.0.0:7654"
	cfg.Source.RateLimit = 5000
	cfg.Source.Burst = 500
	cfg.Log.Format = "json"
	return cfg
}

// NewMinimalConfig 最小配置
func NewMinimalConfig() *Config {
	cfg := NewConfig()
	cfg.Source.Workers = 1
	cfg.Source.QueueSize = 64
	cfg.EventBus.RecentFailures = 0
	cfg.EventBus.EnableMetrics = false
	return cfg
}

// ApplyPreset 将预设覆盖到 cfg 对应的子配置
//
// 日志配置只在预设明确要求时修改。
func ApplyPreset(cfg *Config, name string) error {
	var preset *Config
	switch name {
	case PresetDefault:
		preset = NewConfig()
	case PresetThroughput:
		preset = NewThroughputConfig()
	case PresetGateway:
		preset = NewGatewayConfig()
	case PresetMinimal:
		preset = NewMinimalConfig()
	default:
		return fmt.Errorf("unknown preset %q", name)
	}

	cfg.EventBus = preset.EventBus
	cfg.Source = preset.Source
	cfg.Bridge = preset.Bridge
	if preset.Log.Format != DefaultLogConfig().Format {
		cfg.Log.Format = preset.Log.Format
	}
	return nil
}

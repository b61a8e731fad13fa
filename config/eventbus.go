package config

import "fmt"

// EventBusConfig 事件注册表配置
type EventBusConfig struct {
	// HostName 注册表绑定的宿主名称，用于诊断日志
	// 默认值: "eventhub"
	HostName string `json:"host_name" yaml:"host_name"`

	// RecentFailures 保留最近投递失败的数量（按订阅去重），0 表示不保留
	// 默认值: 64
	RecentFailures int `json:"recent_failures" yaml:"recent_failures"`

	// EnableMetrics 启用 Prometheus 指标
	EnableMetrics bool `json:"enable_metrics" yaml:"enable_metrics"`

	// EnableTracing 启用 OpenTelemetry 分发链路
	EnableTracing bool `json:"enable_tracing" yaml:"enable_tracing"`
}

// DefaultEventBusConfig 返回默认的事件注册表配置
func DefaultEventBusConfig() EventBusConfig {
	return EventBusConfig{
		HostName:       "eventhub",
		RecentFailures: 64,
		EnableMetrics:  true,
		EnableTracing:  false,
	}
}

// Validate 验证事件注册表配置的有效性
func (c *EventBusConfig) Validate() error {
	if c.HostName == "" {
		return fmt.Errorf("eventbus: host_name cannot be empty")
	}
	if c.RecentFailures < 0 {
		return fmt.Errorf("eventbus: recent_failures must be >= 0, got %d", c.RecentFailures)
	}
	return nil
}

package config

import (
	"fmt"
	"time"
)

// SourceConfig 进程内外部事件源配置
//
// 同步类别在调用方线程投递，异步类别进入队列由工作协程投递。
type SourceConfig struct {
	// Workers 异步工作协程数量
	// 默认值: 4
	Workers int `json:"workers" yaml:"workers"`

	// QueueSize 异步队列长度
	// 默认值: 1024
	QueueSize int `json:"queue_size" yaml:"queue_size"`

	// RateLimit 异步投递速率上限（事件/秒），0 表示不限速
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// Burst 限速突发量
	// 默认值: 64
	Burst int `json:"burst" yaml:"burst"`

	// ShutdownTimeout 关闭时等待工作协程退出的时间
	// 默认值: 5s
	ShutdownTimeout Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DefaultSourceConfig 返回默认的事件源配置
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		Workers:         4,
		QueueSize:       1024,
		RateLimit:       0,
		Burst:           64,
		ShutdownTimeout: Duration(5 * time.Second),
	}
}

// Validate 验证事件源配置的有效性
func (c *SourceConfig) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("source: workers must be > 0, got %d", c.Workers)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("source: queue_size must be > 0, got %d", c.QueueSize)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("source: rate_limit must be >= 0, got %v", c.RateLimit)
	}
	if c.RateLimit > 0 && c.Burst <= 0 {
		return fmt.Errorf("source: burst must be > 0 when rate_limit is set")
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("source: shutdown_timeout must be >= 0")
	}
	return nil
}

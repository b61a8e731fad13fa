package config

import (
	"fmt"
	"strings"
	"time"
)

// BridgeConfig WebSocket 桥接配置
//
// 启用后，远端宿主可以通过 WebSocket 推送事件信封，
// 事件经进程内事件源投递到注册表。
type BridgeConfig struct {
	// Enable 是否启用 WebSocket 桥接
	Enable bool `json:"enable" yaml:"enable"`

	// ListenAddr 监听地址
	// 默认值: "127.0.0.1:7654"
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`

	// Path WebSocket 路径
	// 默认值: "/events"
	Path string `json:"path" yaml:"path"`

	// MaxMessageSize 单条信封最大字节数
	// 默认值: 64KiB
	MaxMessageSize int64 `json:"max_message_size" yaml:"max_message_size"`

	// WriteTimeout 回写确认的超时
	// 默认值: 5s
	WriteTimeout Duration `json:"write_timeout" yaml:"write_timeout"`
}

// DefaultBridgeConfig 返回默认的桥接配置
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		Enable:         false,
		ListenAddr:     "127.0.0.1:7654",
		Path:           "/events",
		MaxMessageSize: 64 << 10,
		WriteTimeout:   Duration(5 * time.Second),
	}
}

// Validate 验证桥接配置的有效性
func (c *BridgeConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("bridge: listen_addr cannot be empty")
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("bridge: path must start with '/', got %q", c.Path)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("bridge: max_message_size must be > 0")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("bridge: write_timeout must be > 0")
	}
	return nil
}

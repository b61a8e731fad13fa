package config

import (
	"fmt"
	"net"
)

// DiagnosticsConfig 诊断服务配置
type DiagnosticsConfig struct {
	// EnableIntrospect 启用自省服务（JSON 诊断、/metrics、pprof）
	EnableIntrospect bool `json:"enable_introspect" yaml:"enable_introspect"`

	// IntrospectAddr 自省服务监听地址
	// 默认 "127.0.0.1:6060"
	IntrospectAddr string `json:"introspect_addr" yaml:"introspect_addr"`
}

// DefaultDiagnosticsConfig 返回默认诊断配置
func DefaultDiagnosticsConfig() DiagnosticsConfig {
	return DiagnosticsConfig{
		EnableIntrospect: false,
		IntrospectAddr:   "127.0.0.1:6060",
	}
}

// Validate 验证诊断配置的有效性
func (c *DiagnosticsConfig) Validate() error {
	if !c.EnableIntrospect {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.IntrospectAddr); err != nil {
		return fmt.Errorf("diagnostics: invalid introspect_addr %q: %w", c.IntrospectAddr, err)
	}
	return nil
}

package main

import (
	"os"
	"strings"

	"github.com/dep2p/go-eventhub/config"
)

// ============================================================================
//                              环境变量覆盖（CLI 专用）
// ============================================================================

// 环境变量名，均使用 EVENTHUB_ 前缀
const (
	envPrefix     = "EVENTHUB_"
	envPreset     = "PRESET"
	envHostName   = "HOST_NAME"
	envListenAddr = "LISTEN_ADDR"
	envBridge     = "ENABLE_BRIDGE"
	envLogLevel   = "LOG_LEVEL"
	envLogFile    = "LOG_FILE"
)

// envPresetName 返回环境变量指定的预设名称
func envPresetName(getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	return getenv(envPrefix + envPreset)
}

// applyEnvOverrides 应用环境变量覆盖配置
//
// 环境变量优先级高于配置文件和预设，但低于命令行参数。
func applyEnvOverrides(cfg *config.Config, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(envPrefix + envHostName); v != "" {
		cfg.EventBus.HostName = v
	}
	if v := getenv(envPrefix + envListenAddr); v != "" {
		cfg.Bridge.ListenAddr = v
	}
	if v := getenv(envPrefix + envBridge); v != "" {
		cfg.Bridge.Enable = parseBool(v)
	}
	if v := getenv(envPrefix + envLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv(envPrefix + envLogFile); v != "" {
		cfg.Log.File = v
	}
}

// parseBool 解析布尔值字符串
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

package eventhub

import (
	"github.com/dep2p/go-eventhub/config"
)

// ════════════════════════════════════════════════════════════════════════════
//                              预设配置获取
// ════════════════════════════════════════════════════════════════════════════

// GetConfigByPreset 根据预设名称获取配置
//
// 支持的预设名称：
//   - "default"    - 默认配置
//   - "throughput" - 高吞吐配置
//   - "gateway"    - 网关配置（启用 WebSocket 桥接）
//   - "minimal"    - 最小配置
//
// 如果名称未知，返回默认配置。
func GetConfigByPreset(name string) *config.Config {
	switch name {
	case config.PresetThroughput:
		return config.NewThroughputConfig()
	case config.PresetGateway:
		return config.NewGatewayConfig()
	case config.PresetMinimal:
		return config.NewMinimalConfig()
	default:
		return config.NewConfig()
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              预设列表
// ════════════════════════════════════════════════════════════════════════════

// PresetInfo 预设信息
type PresetInfo struct {
	// Name 预设名称
	Name string

	// Description 预设描述
	Description string

	// UseCase 适用场景
	UseCase string
}

// AvailablePresets 返回所有可用预设的信息
func AvailablePresets() []PresetInfo {
	return []PresetInfo{
		{
			Name:        config.PresetDefault,
			Description: "默认配置，4 个工作协程，启用指标",
			UseCase:     "嵌入应用、插件宿主",
		},
		{
			Name:        config.PresetThroughput,
			Description: "高吞吐配置，更多工作协程和更长的异步队列",
			UseCase:     "事件密集的服务端",
		},
		{
			Name:        config.PresetGateway,
			Description: "网关配置，启用 WebSocket 桥接并限速",
			UseCase:     "接收远端宿主推送的事件",
		},
		{
			Name:        config.PresetMinimal,
			Description: "最小配置，单工作协程，关闭指标和失败缓存",
			UseCase:     "测试环境、命令行工具",
		},
	}
}

// IsValidPreset 检查预设名称是否有效
func IsValidPreset(name string) bool {
	switch name {
	case config.PresetDefault, config.PresetThroughput, config.PresetGateway, config.PresetMinimal:
		return true
	default:
		return false
	}
}

package types

import "strconv"

// ============================================================================
//                              Priority - 处理优先级
// ============================================================================

// Priority 处理优先级
//
// 数值越小越先执行。相同优先级按注册顺序执行。
// 预定义常量只是常用取值，任意整数都合法。
type Priority int

const (
	// PriorityLowest 最先执行
	PriorityLowest Priority = -200
	// PriorityLow 较早执行
	PriorityLow Priority = -100
	// PriorityNormal 默认优先级
	PriorityNormal Priority = 0
	// PriorityHigh 较晚执行
	PriorityHigh Priority = 100
	// PriorityHighest 最晚修改事件的机会
	PriorityHighest Priority = 200
	// PriorityMonitor 仅用于观察最终结果，不应修改事件
	PriorityMonitor Priority = 1000
)

// String 返回优先级的字符串表示
func (p Priority) String() string {
	switch p {
	case PriorityLowest:
		return "lowest"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityHighest:
		return "highest"
	case PriorityMonitor:
		return "monitor"
	default:
		return strconv.Itoa(int(p))
	}
}

// ParsePriority 解析优先级名称或整数
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "lowest":
		return PriorityLowest, nil
	case "low":
		return PriorityLow, nil
	case "", "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "highest":
		return PriorityHighest, nil
	case "monitor":
		return PriorityMonitor, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return PriorityNormal, ErrInvalidPriority
	}
	return Priority(n), nil
}

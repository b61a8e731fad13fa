// Package types 定义 go-eventhub 的基础类型
//
// 本文件定义所有公共错误类型。
package types

import "errors"

// ============================================================================
//                              类别相关错误
// ============================================================================

var (
	// ErrInvalidCategory 无效的事件类别
	ErrInvalidCategory = errors.New("invalid event category")

	// ErrNilEvent 空事件
	ErrNilEvent = errors.New("nil event")

	// ErrInvalidPriority 无效的优先级
	ErrInvalidPriority = errors.New("invalid priority")
)

// ============================================================================
//                              外部事件源错误
// ============================================================================

var (
	// ErrSourceClosed 外部事件源已关闭
	ErrSourceClosed = errors.New("event source closed")

	// ErrUnknownCategory 事件源不认识的类别
	ErrUnknownCategory = errors.New("unknown event category")
)

// Package types 定义 go-eventhub 公共类型
//
// 本文件定义事件相关类型。
package types

import (
	"sync/atomic"
	"time"
)

// ============================================================================
//                              Cancellable - 可取消事件
// ============================================================================

// Cancellable 可取消事件
//
// 取消是协作式的：已取消的事件不会再投递给 IgnoreCancelled 为 false 的处理器，
// 但不会打断正在执行的处理器。
type Cancellable interface {
	// IsCancelled 返回事件是否已被取消
	IsCancelled() bool

	// SetCancelled 设置取消标志
	SetCancelled(cancelled bool)
}

// ============================================================================
//                              Handler - 类型化处理器
// ============================================================================

// Handler 类型化事件处理器
type Handler[E any] interface {
	Handle(event E) error
}

// HandlerFunc 函数适配器
type HandlerFunc[E any] func(event E) error

// Handle 实现 Handler 接口
func (f HandlerFunc[E]) Handle(event E) error {
	return f(event)
}

// HandlerMeta 处理器元数据
//
// 由发现路径（Registry.Subscribe）读取，决定订阅的优先级、
// 取消策略以及是否需要把注册表注入外部事件源。
type HandlerMeta struct {
	// Priority 处理优先级
	Priority Priority

	// IgnoreCancelled 为 true 时，已取消的事件仍会投递
	IgnoreCancelled bool

	// Async 强制按异步类别处理（默认由外部事件源决定）
	Async bool

	// Inject 首次订阅该类别时，将注册表注册为外部事件源的监听者
	Inject bool

	// InjectPriority 注入外部事件源时使用的优先级
	InjectPriority Priority
}

// ============================================================================
//                              BaseEvent - 基础事件
// ============================================================================

// BaseEvent 可嵌入的基础事件实现
//
// 提供时间戳和并发安全的取消标志。嵌入后以指针形式发布即可获得取消语义。
// 含原子字段，不要按值复制。
type BaseEvent struct {
	Time      time.Time `json:"time"`
	cancelled atomic.Bool
}

// Stamp 在时间戳为空时写入当前时间
func (e *BaseEvent) Stamp() {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
}

// Timestamp 返回事件时间戳
func (e *BaseEvent) Timestamp() time.Time {
	return e.Time
}

// IsCancelled 返回事件是否已被取消
func (e *BaseEvent) IsCancelled() bool {
	return e.cancelled.Load()
}

// SetCancelled 设置取消标志
func (e *BaseEvent) SetCancelled(cancelled bool) {
	e.cancelled.Store(cancelled)
}

var _ Cancellable = (*BaseEvent)(nil)

// ============================================================================
//                              Binding - 处理器绑定
// ============================================================================

// Binding 监听者暴露的一个处理器
//
// 通常由 eventbus.On / eventbus.OnHandler 构造，而不是手写。
type Binding struct {
	// Name 处理器名称，仅用于诊断日志
	Name string

	// Category 处理的事件类别
	Category Category

	// Invoke 投递回调，参数保证属于 Category
	Invoke func(event any) error

	// Meta 处理器元数据
	Meta HandlerMeta

	// Synthetic 标记为内部生成的绑定（如适配层转发器），发现时跳过
	Synthetic bool
}

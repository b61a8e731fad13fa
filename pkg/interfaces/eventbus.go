// Package interfaces 定义 go-eventhub 公共接口
//
// 本文件定义事件注册表接口，提供类型化的事件发布订阅。
package interfaces

import (
	"context"

	"github.com/dep2p/go-eventhub/pkg/types"
)

// Registry 定义事件注册表接口
//
// Registry 是所有订阅的唯一来源：发现监听者的处理器、按优先级分发事件，
// 并在需要时将自身注入外部事件源。注册前实现必须已绑定宿主（见 Host）。
type Registry interface {
	// Subscribe 发现监听者的处理器并逐一注册
	//
	// 无效的处理器被记录并跳过，不影响其它处理器。
	// 返回成功注册的引用，错误汇总了被跳过的处理器。
	Subscribe(owner Listener) ([]BoundReference, error)

	// Notify 分发事件给该类别的所有订阅者
	Notify(event any) error

	// NotifyContext 带 context 的 Notify，用于链路追踪
	NotifyContext(ctx context.Context, event any) error

	// UnsubscribeAll 清空类别的全部订阅
	UnsubscribeAll(category types.Category)

	// SubscribedCategories 返回存在订阅者的类别
	SubscribedCategories() []types.Category
}

// Listener 监听者
//
// 监听者显式列出它的处理器，取代运行时的方法扫描。
type Listener interface {
	EventHandlers() []types.Binding
}

// ListenerFunc 函数适配器
type ListenerFunc func() []types.Binding

// EventHandlers 实现 Listener 接口
func (f ListenerFunc) EventHandlers() []types.Binding {
	return f()
}

// BoundReference 已注册订阅的句柄
type BoundReference interface {
	// ID 订阅 ID
	ID() string

	// Category 订阅的事件类别
	Category() types.Category

	// Active 订阅是否仍然有效
	Active() bool

	// Unregister 取消订阅
	//
	// 可重复调用；只有第一次实际移除时返回 true。
	Unregister() bool
}

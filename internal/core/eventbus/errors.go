package eventbus

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-eventhub/pkg/types"
)

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrNotBound 注册表尚未绑定宿主
	ErrNotBound = errors.New("registry not bound to a host")

	// ErrNilListener 空监听者
	ErrNilListener = errors.New("nil listener")

	// ErrNilHandler 处理器回调为空
	ErrNilHandler = errors.New("nil handler callback")

	// ErrSyntheticHandler 内部生成的处理器，不参与发现
	ErrSyntheticHandler = errors.New("synthetic handler skipped")

	// ErrNoHandler 流式引用未设置处理器
	ErrNoHandler = errors.New("reference has no handler")

	// ErrReferenceBound 流式引用只能绑定一次
	ErrReferenceBound = errors.New("reference already bound")

	// ErrHandlerPanic 处理器 panic
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrCategoryMismatch 事件类型与处理器不匹配
	ErrCategoryMismatch = errors.New("event category mismatch")

	// errNotDelivered 订阅收到事件但处理器未执行（被过滤、已过期或次数用尽）
	errNotDelivered = errors.New("event not delivered")
)

// DeliveryError 投递失败
//
// 携带原始事件和出错的订阅，交给 FailureHandler 处理。
type DeliveryError struct {
	// Event 原始事件
	Event any

	// Subscription 出错的订阅
	Subscription *Subscription

	// Err 处理器返回的错误
	Err error
}

// Error 实现 error 接口
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s to %s: %v", types.CategoryOf(e.Event), e.Subscription, e.Err)
}

// Unwrap 返回底层错误
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// FailureHandler 投递失败消费者
type FailureHandler func(err *DeliveryError)

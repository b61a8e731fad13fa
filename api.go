package eventhub

import (
	"os"
	"path/filepath"

	"github.com/dep2p/go-eventhub/internal/core/eventbus"
	pkgif "github.com/dep2p/go-eventhub/pkg/interfaces"
	"github.com/dep2p/go-eventhub/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              类型别名
// ════════════════════════════════════════════════════════════════════════════

type (
	// Registry 事件注册表
	Registry = eventbus.Registry

	// BoundReference 已注册订阅的句柄
	BoundReference = eventbus.BoundReference

	// Subscription 已注册的处理器
	Subscription = eventbus.Subscription

	// DeliveryError 单个处理器的投递失败
	DeliveryError = eventbus.DeliveryError

	// FailureHandler 投递失败消费者
	FailureHandler = eventbus.FailureHandler

	// HandlerOption 处理器元数据选项
	HandlerOption = eventbus.HandlerOption

	// Listener 监听者
	Listener = pkgif.Listener

	// ListenerFunc 监听者函数适配器
	ListenerFunc = pkgif.ListenerFunc

	// Binding 处理器绑定
	Binding = types.Binding

	// Category 事件类别
	Category = types.Category

	// Priority 处理优先级
	Priority = types.Priority

	// BaseEvent 可嵌入的可取消事件
	BaseEvent = types.BaseEvent
)

// 优先级，越小越先执行
const (
	PriorityLowest  = types.PriorityLowest
	PriorityLow     = types.PriorityLow
	PriorityNormal  = types.PriorityNormal
	PriorityHigh    = types.PriorityHigh
	PriorityHighest = types.PriorityHighest
	PriorityMonitor = types.PriorityMonitor
)

// 处理器选项
var (
	WithPriority    = eventbus.WithPriority
	IgnoreCancelled = eventbus.IgnoreCancelled
	AsyncCategory   = eventbus.AsyncCategory
	Inject          = eventbus.Inject
	Named           = eventbus.Named
)

// ════════════════════════════════════════════════════════════════════════════
//                              泛型入口
// ════════════════════════════════════════════════════════════════════════════

// On 为类型 E 的事件构造处理器绑定
func On[E any](fn func(E) error, opts ...HandlerOption) Binding {
	return eventbus.On(fn, opts...)
}

// OnHandler 以 types.Handler 构造处理器绑定
func OnHandler[E any](h types.Handler[E], opts ...HandlerOption) Binding {
	return eventbus.OnHandler(h, opts...)
}

// Listen 在 Hub 的注册表上流式构建类型 E 的订阅
func Listen[E any](h *Hub) *eventbus.Reference[E] {
	return eventbus.Listen[E](h.registry)
}

// CategoryFor 返回类型 E 对应的事件类别
func CategoryFor[E any]() Category {
	return types.CategoryFor[E]()
}

// openLogFile 以追加方式打开日志文件，必要时创建目录
func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

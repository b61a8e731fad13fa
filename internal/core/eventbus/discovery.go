package eventbus

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/dep2p/go-eventhub/pkg/types"
)

// ============================================================================
// 处理器绑定构造
// ============================================================================

// HandlerOption 处理器元数据选项
type HandlerOption func(*handlerSettings)

type handlerSettings struct {
	name string
	meta types.HandlerMeta
}

// WithPriority 设置处理优先级
func WithPriority(p types.Priority) HandlerOption {
	return func(s *handlerSettings) { s.meta.Priority = p }
}

// IgnoreCancelled 已取消的事件仍然投递
func IgnoreCancelled() HandlerOption {
	return func(s *handlerSettings) { s.meta.IgnoreCancelled = true }
}

// AsyncCategory 强制按异步类别协调
func AsyncCategory() HandlerOption {
	return func(s *handlerSettings) { s.meta.Async = true }
}

// Inject 首次订阅时以给定优先级注入外部事件源
func Inject(priority types.Priority) HandlerOption {
	return func(s *handlerSettings) {
		s.meta.Inject = true
		s.meta.InjectPriority = priority
	}
}

// Named 设置处理器名称，默认使用函数名
func Named(name string) HandlerOption {
	return func(s *handlerSettings) { s.name = name }
}

// On 为类型 E 的事件构造处理器绑定
func On[E any](fn func(E) error, opts ...HandlerOption) types.Binding {
	s := handlerSettings{}
	if fn != nil {
		s.name = funcName(fn)
	}
	for _, opt := range opts {
		opt(&s)
	}

	b := types.Binding{
		Name:     s.name,
		Category: types.CategoryFor[E](),
		Meta:     s.meta,
	}
	if fn != nil {
		b.Invoke = invokeAs(fn)
	}
	return b
}

// OnHandler 以 types.Handler 构造处理器绑定
func OnHandler[E any](h types.Handler[E], opts ...HandlerOption) types.Binding {
	if h == nil {
		return On[E](nil, opts...)
	}
	opts = append([]HandlerOption{Named(fmt.Sprintf("%T", h))}, opts...)
	return On(h.Handle, opts...)
}

// invokeAs 把类型化回调转换为通用回调
func invokeAs[E any](fn func(E) error) func(any) error {
	return func(event any) error {
		e, ok := event.(E)
		if !ok {
			return fmt.Errorf("%w: got %T", ErrCategoryMismatch, event)
		}
		return fn(e)
	}
}

// funcName 返回函数的短名称，用于日志
func funcName(fn any) string {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

package eventbus

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dep2p/go-eventhub/pkg/types"
)

// ============================================================================
// Subscription 实现
// ============================================================================

// Subscription 一个已注册的处理器
//
// 构造后不可变，按指针比较身份。detached 只记录生命周期，
// 不影响订阅本身的属性。
type Subscription struct {
	id              string
	name            string
	owner           any
	category        types.Category
	callback        func(event any) error
	priority        types.Priority
	ignoreCancelled bool
	async           bool

	detached atomic.Bool
}

func newSubscription(owner any, name string, category types.Category, callback func(any) error,
	priority types.Priority, ignoreCancelled, async bool) *Subscription {
	return &Subscription{
		id:              uuid.NewString(),
		name:            name,
		owner:           owner,
		category:        category,
		callback:        callback,
		priority:        priority,
		ignoreCancelled: ignoreCancelled,
		async:           async,
	}
}

// ID 订阅 ID
func (s *Subscription) ID() string { return s.id }

// Name 处理器名称
func (s *Subscription) Name() string { return s.name }

// Owner 订阅所属的对象
func (s *Subscription) Owner() any { return s.owner }

// Category 事件类别
func (s *Subscription) Category() types.Category { return s.category }

// Priority 处理优先级
func (s *Subscription) Priority() types.Priority { return s.priority }

// IgnoreCancelled 是否接收已取消的事件
func (s *Subscription) IgnoreCancelled() bool { return s.ignoreCancelled }

// Async 是否属于异步类别
func (s *Subscription) Async() bool { return s.async }

// String 返回用于日志的描述
func (s *Subscription) String() string {
	name := s.name
	if name == "" {
		name = "anonymous"
	}
	return fmt.Sprintf("%s[%s]", name, s.id[:8])
}

// accepts 检查取消策略
func (s *Subscription) accepts(event any) bool {
	if s.ignoreCancelled {
		return true
	}
	if c, ok := event.(types.Cancellable); ok && c.IsCancelled() {
		return false
	}
	return true
}

// invoke 调用处理器，panic 转换为错误
func (s *Subscription) invoke(event any) error {
	return safeCall(func() error { return s.callback(event) })
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return fn()
}

package eventbus

import (
	"fmt"
	"sync/atomic"
	"time"

	pkgif "github.com/dep2p/go-eventhub/pkg/interfaces"
	"github.com/dep2p/go-eventhub/pkg/types"
)

// ============================================================================
// Reference 流式单订阅注册
// ============================================================================

// 过期原因，用于指标和日志
const (
	expireDuration  = "duration"
	expireCalls     = "calls"
	expirePredicate = "predicate"
)

// Reference 单个订阅的构建器
//
// 通过 Listen 创建，配置后调用 Bind 完成注册。引用只能绑定一次。
// 配置方法不是并发安全的，应在 Bind 之前由同一个协程完成。
type Reference[E any] struct {
	registry *Registry
	category types.Category

	owner     any
	name      string
	meta      types.HandlerMeta
	filters   []func(E) bool
	expireIfs []func(E) bool
	ttl       time.Duration
	maxCalls  int64
	handler   func(E) error
	onFailure FailureHandler

	bound    atomic.Bool
	boundAt  time.Time
	calls    atomic.Int64
	reserved atomic.Int64
	ref      *BoundReference
}

// Listen 开始构建类型 E 的订阅
func Listen[E any](r *Registry) *Reference[E] {
	return &Reference[E]{
		registry: r,
		category: types.CategoryFor[E](),
	}
}

// Priority 设置处理优先级
func (r *Reference[E]) Priority(p types.Priority) *Reference[E] {
	r.meta.Priority = p
	return r
}

// IgnoreCancelled 设置是否接收已取消的事件
func (r *Reference[E]) IgnoreCancelled(ignore bool) *Reference[E] {
	r.meta.IgnoreCancelled = ignore
	return r
}

// Async 按异步类别协调
func (r *Reference[E]) Async() *Reference[E] {
	r.meta.Async = true
	return r
}

// Inject 首次订阅时以给定优先级注入外部事件源
func (r *Reference[E]) Inject(priority types.Priority) *Reference[E] {
	r.meta.Inject = true
	r.meta.InjectPriority = priority
	return r
}

// Owner 设置订阅所属对象，默认为引用本身
func (r *Reference[E]) Owner(owner any) *Reference[E] {
	r.owner = owner
	return r
}

// Name 设置处理器名称
func (r *Reference[E]) Name(name string) *Reference[E] {
	r.name = name
	return r
}

// Filter 添加投递前置条件
//
// 所有条件按添加顺序求值，遇到第一个 false 即停止，处理器不执行。
func (r *Reference[E]) Filter(pred func(E) bool) *Reference[E] {
	if pred != nil {
		r.filters = append(r.filters, pred)
	}
	return r
}

// ExpireAfter 绑定后经过 d 时，下一次投递尝试时自动注销
func (r *Reference[E]) ExpireAfter(d time.Duration) *Reference[E] {
	r.ttl = d
	return r
}

// ExpireAfterCalls 处理器成功执行 n 次后自动注销
//
// 只有通过所有过滤条件且没有返回错误的调用才计数。
func (r *Reference[E]) ExpireAfterCalls(n int) *Reference[E] {
	r.maxCalls = int64(n)
	return r
}

// ExpireIf 添加动态过期条件
//
// 条件为 true 时处理器不执行并立即注销。
func (r *Reference[E]) ExpireIf(pred func(E) bool) *Reference[E] {
	if pred != nil {
		r.expireIfs = append(r.expireIfs, pred)
	}
	return r
}

// Handler 设置处理器
func (r *Reference[E]) Handler(fn func(E) error) *Reference[E] {
	r.handler = fn
	return r
}

// OnFailure 设置自定义失败消费者
//
// 设置后处理器的错误不再交给注册表的默认消费者。
func (r *Reference[E]) OnFailure(h FailureHandler) *Reference[E] {
	r.onFailure = h
	return r
}

// Calls 处理器成功执行的次数
func (r *Reference[E]) Calls() int64 {
	return r.calls.Load()
}

// Bind 完成配置并注册
//
// host 不为 nil 时先绑定注册表（已绑定时按 Registry.Bind 的规则处理）。
func (r *Reference[E]) Bind(host pkgif.Host) (*BoundReference, error) {
	if r.handler == nil {
		return nil, ErrNoHandler
	}
	if !r.category.Valid() {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidCategory, r.category)
	}
	if host != nil {
		r.registry.Bind(host)
	}
	if !r.registry.Bound() {
		return nil, ErrNotBound
	}
	if !r.bound.CompareAndSwap(false, true) {
		return nil, ErrReferenceBound
	}

	owner := r.owner
	if owner == nil {
		owner = r
	}
	name := r.name
	if name == "" {
		name = funcName(r.handler)
	}

	async := r.meta.Async || r.registry.categoryAsync(r.category)
	sub := newSubscription(owner, name, r.category, r.deliver,
		r.meta.Priority, r.meta.IgnoreCancelled, async)

	r.boundAt = r.registry.clock.Now()
	r.ref = r.registry.prepare(sub)
	r.registry.activate(r.ref, r.meta)

	return r.ref, nil
}

// deliver 注册到订阅中的回调
//
// 设置了次数上限时，处理器执行前先占用一个名额，失败后归还；
// 并发投递下处理器的执行次数不会超过上限。
func (r *Reference[E]) deliver(event any) error {
	if !r.ref.Active() {
		return errNotDelivered
	}

	e, ok := event.(E)
	if !ok {
		return fmt.Errorf("%w: got %T", ErrCategoryMismatch, event)
	}

	if r.ttl > 0 && r.registry.clock.Since(r.boundAt) >= r.ttl {
		r.expire(expireDuration)
		return errNotDelivered
	}
	for _, pred := range r.expireIfs {
		if pred(e) {
			r.expire(expirePredicate)
			return errNotDelivered
		}
	}
	for _, pred := range r.filters {
		if !pred(e) {
			return errNotDelivered
		}
	}

	if !r.reserve() {
		return errNotDelivered
	}

	if err := safeCall(func() error { return r.handler(e) }); err != nil {
		r.release()
		if r.onFailure == nil {
			return err
		}
		r.onFailure(&DeliveryError{Event: event, Subscription: r.ref.sub, Err: err})
		return nil
	}

	if n := r.calls.Add(1); r.maxCalls > 0 && n >= r.maxCalls {
		r.expire(expireCalls)
	}
	return nil
}

// reserve 占用一个执行名额，名额用尽时返回 false
func (r *Reference[E]) reserve() bool {
	if r.maxCalls <= 0 {
		return true
	}
	for {
		n := r.reserved.Load()
		if n >= r.maxCalls {
			return false
		}
		if r.reserved.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release 归还失败调用占用的名额
func (r *Reference[E]) release() {
	if r.maxCalls > 0 {
		r.reserved.Add(-1)
	}
}

func (r *Reference[E]) expire(reason string) {
	if r.ref.Unregister() {
		r.registry.metrics.expired(reason)
		logger.Debug("订阅已过期",
			"category", r.category,
			"subscription", r.ref.sub.String(),
			"reason", reason)
	}
}

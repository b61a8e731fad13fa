package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-eventhub/pkg/interfaces"
	"github.com/dep2p/go-eventhub/pkg/lib/log"
	"github.com/dep2p/go-eventhub/pkg/types"
)

var logger = log.Logger("core/eventbus")

const tracerName = "github.com/dep2p/go-eventhub/internal/core/eventbus"

// ============================================================================
// Registry 实现
// ============================================================================

// Registry 事件注册表
//
// 每个类别至多一个 SubscriberList，首次注册或分发时惰性创建。
// 每个类别至多尝试一次注入外部事件源。
type Registry struct {
	bindMu sync.RWMutex
	host   pkgif.Host

	// lists types.Category -> SubscriberList
	lists sync.Map

	injectMu      sync.Mutex
	injected      map[types.Category]struct{}
	registrations []pkgif.Registration

	clock      clock.Clock
	onFailure  FailureHandler
	metrics    *Metrics
	tracer     trace.Tracer
	recentSize int
	recent     *lru.Cache[string, *DeliveryError]
}

// NewRegistry 创建事件注册表
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		injected:   make(map[types.Category]struct{}),
		clock:      clock.New(),
		tracer:     noop.NewTracerProvider().Tracer(tracerName),
		recentSize: 64,
	}
	r.onFailure = r.logFailure

	for _, opt := range opts {
		opt(r)
	}

	if r.recentSize > 0 {
		// 只有 size <= 0 时返回错误
		r.recent, _ = lru.New[string, *DeliveryError](r.recentSize)
	}
	return r
}

// ============================================================================
// 绑定
// ============================================================================

// Bind 绑定宿主上下文
//
// 第一次调用生效；重复绑定同一宿主无副作用；绑定到不同宿主时
// 记录警告并保持原绑定。总是返回注册表本身。
func (r *Registry) Bind(host pkgif.Host) *Registry {
	if host == nil {
		logger.Warn("忽略空宿主绑定")
		return r
	}

	r.bindMu.Lock()
	defer r.bindMu.Unlock()

	switch {
	case r.host == nil:
		r.host = host
		logger.Info("注册表已绑定宿主", "host", host.Name())
	case r.host != host:
		logger.Warn("注册表已绑定其它宿主，忽略重新绑定",
			"bound", r.host.Name(),
			"requested", host.Name())
	}
	return r
}

// Bound 是否已绑定宿主
func (r *Registry) Bound() bool {
	return r.boundHost() != nil
}

// Host 返回绑定的宿主，未绑定时为 nil
func (r *Registry) Host() pkgif.Host {
	return r.boundHost()
}

func (r *Registry) boundHost() pkgif.Host {
	r.bindMu.RLock()
	defer r.bindMu.RUnlock()
	return r.host
}

// sink 诊断输出，绑定后带宿主名称
func (r *Registry) sink() *slog.Logger {
	if h := r.boundHost(); h != nil {
		return logger.With("host", h.Name())
	}
	return logger.With()
}

// ============================================================================
// 发现与注册
// ============================================================================

// Subscribe 发现监听者的处理器并逐一注册
//
// 无效的处理器被记录并跳过，不影响同一监听者的其它处理器。
// 返回成功注册的引用；错误汇总了所有被跳过的处理器。
func (r *Registry) Subscribe(owner pkgif.Listener) ([]pkgif.BoundReference, error) {
	if owner == nil {
		return nil, ErrNilListener
	}
	if !r.Bound() {
		return nil, ErrNotBound
	}

	var (
		refs []pkgif.BoundReference
		errs error
	)
	for i, b := range owner.EventHandlers() {
		if err := validateBinding(b); err != nil {
			name := bindingName(b, i)
			if errors.Is(err, ErrSyntheticHandler) {
				logger.Debug("跳过内部处理器", "owner", fmt.Sprintf("%T", owner), "handler", name)
			} else {
				r.sink().Warn("跳过无效处理器",
					"owner", fmt.Sprintf("%T", owner),
					"handler", name,
					"error", err)
			}
			errs = multierr.Append(errs, fmt.Errorf("handler %s: %w", name, err))
			continue
		}

		async := b.Meta.Async || r.categoryAsync(b.Category)
		sub := newSubscription(owner, b.Name, b.Category, b.Invoke, b.Meta.Priority, b.Meta.IgnoreCancelled, async)
		ref := r.prepare(sub)
		r.activate(ref, b.Meta)
		refs = append(refs, ref)
	}

	logger.Debug("监听者已注册",
		"owner", fmt.Sprintf("%T", owner),
		"handlers", len(refs))
	return refs, errs
}

func validateBinding(b types.Binding) error {
	if b.Synthetic {
		return ErrSyntheticHandler
	}
	if !b.Category.Valid() {
		return fmt.Errorf("%w: %s", types.ErrInvalidCategory, b.Category)
	}
	if b.Invoke == nil {
		return ErrNilHandler
	}
	return nil
}

func bindingName(b types.Binding, index int) string {
	if b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("#%d", index)
}

// prepare 创建引用但不加入列表
//
// 流式引用需要在第一次投递前持有 BoundReference，因此拆成两步。
func (r *Registry) prepare(sub *Subscription) *BoundReference {
	return &BoundReference{
		sub:      sub,
		list:     r.listFor(sub.category, sub.async),
		registry: r,
	}
}

// activate 加入列表，并按需注入外部事件源
func (r *Registry) activate(ref *BoundReference, meta types.HandlerMeta) {
	ref.list.Add(ref.sub)
	r.metrics.setSubscriptions(ref.sub.category, ref.list.Len())

	if meta.Inject {
		r.inject(ref.sub.category, meta.InjectPriority, ref.sub.async)
	}
}

// listFor 获取或创建类别的订阅者列表
//
// 并发首次创建时只有一个实例会被发布。
func (r *Registry) listFor(cat types.Category, async bool) SubscriberList {
	if v, ok := r.lists.Load(cat); ok {
		return v.(SubscriberList)
	}
	v, _ := r.lists.LoadOrStore(cat, newSubscriberList(cat, async))
	return v.(SubscriberList)
}

// categoryAsync 外部事件源是否异步投递该类别
func (r *Registry) categoryAsync(cat types.Category) bool {
	h := r.boundHost()
	if h == nil {
		return false
	}
	src := h.Source()
	if src == nil {
		return false
	}
	return src.IsAsync(cat)
}

// ============================================================================
// 注入
// ============================================================================

// inject 将注册表注册为外部事件源的类别监听者
//
// 每个类别最多尝试一次；失败只影响桥接，类别仍可本地分发。
func (r *Registry) inject(cat types.Category, priority types.Priority, async bool) {
	r.injectMu.Lock()
	defer r.injectMu.Unlock()

	if _, done := r.injected[cat]; done {
		return
	}
	r.injected[cat] = struct{}{}

	host := r.boundHost()
	var src pkgif.Source
	if host != nil {
		src = host.Source()
	}
	if src == nil {
		r.sink().Warn("宿主没有外部事件源，跳过注入", "category", cat)
		r.metrics.injection(cat, "no_source")
		return
	}

	reg, err := src.Register(cat, priority, async, func(event any) {
		// 失败已经由 FailureHandler 处理
		_ = r.Notify(event)
	})
	if err != nil {
		r.sink().Error("注入外部事件源失败",
			"category", cat,
			"priority", priority,
			"error", err)
		r.metrics.injection(cat, "error")
		return
	}

	r.registrations = append(r.registrations, reg)
	r.metrics.injection(cat, "ok")
	r.sink().Info("已注入外部事件源",
		"category", cat,
		"priority", priority,
		"async", async)
}

// Injected 类别是否已尝试注入
func (r *Registry) Injected(cat types.Category) bool {
	r.injectMu.Lock()
	defer r.injectMu.Unlock()
	_, ok := r.injected[cat]
	return ok
}

// ============================================================================
// 分发
// ============================================================================

// Notify 分发事件
func (r *Registry) Notify(event any) error {
	return r.NotifyContext(context.Background(), event)
}

// NotifyContext 分发事件，ctx 只用于链路追踪
//
// 处理器按开始时的排序快照依次调用。已取消的事件跳过
// IgnoreCancelled 为 false 的订阅。每个处理器的失败互相隔离，
// 交给 FailureHandler 后继续；返回值汇总本次所有 *DeliveryError。
func (r *Registry) NotifyContext(ctx context.Context, event any) error {
	if event == nil {
		return types.ErrNilEvent
	}

	cat := types.CategoryOf(event)
	snapshot := r.listFor(cat, r.categoryAsync(cat)).Sorted()

	ctx, span := r.tracer.Start(ctx, "eventbus.notify", trace.WithAttributes(
		attribute.String("event.category", cat.String()),
		attribute.Int("eventbus.subscribers", len(snapshot)),
	))
	defer span.End()

	start := r.clock.Now()
	cancellable, _ := event.(types.Cancellable)

	var (
		errs                      error
		delivered, skipped, fails int
	)
	for _, sub := range snapshot {
		if sub.detached.Load() {
			skipped++
			continue
		}
		if cancellable != nil && !sub.accepts(event) {
			skipped++
			continue
		}
		if err := sub.invoke(event); err != nil {
			if errors.Is(err, errNotDelivered) {
				skipped++
				continue
			}
			fails++
			errs = multierr.Append(errs, r.fail(ctx, event, sub, err))
			continue
		}
		delivered++
	}

	r.metrics.observeDispatch(cat, delivered, skipped, fails, r.clock.Since(start))
	span.SetAttributes(
		attribute.Int("eventbus.delivered", delivered),
		attribute.Int("eventbus.skipped", skipped),
	)
	if errs != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("%d handler(s) failed", fails))
	}
	return errs
}

// fail 包装并上报投递失败
func (r *Registry) fail(ctx context.Context, event any, sub *Subscription, err error) *DeliveryError {
	var derr *DeliveryError
	if !errors.As(err, &derr) {
		derr = &DeliveryError{Event: event, Subscription: sub, Err: err}
	}

	if r.recent != nil {
		r.recent.Add(sub.id, derr)
	}
	trace.SpanFromContext(ctx).RecordError(derr)

	r.reportFailure(derr)
	return derr
}

// reportFailure 调用失败消费者，消费者自身的 panic 不会影响分发
func (r *Registry) reportFailure(derr *DeliveryError) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("失败消费者 panic", "panic", rec, "subscription", derr.Subscription.String())
		}
	}()
	r.onFailure(derr)
}

// logFailure 默认失败消费者
func (r *Registry) logFailure(derr *DeliveryError) {
	r.sink().Error("事件处理失败",
		"category", derr.Subscription.category,
		"subscription", derr.Subscription.String(),
		"owner", fmt.Sprintf("%T", derr.Subscription.owner),
		"event", fmt.Sprintf("%+v", derr.Event),
		"error", derr.Err)
}

// RecentFailures 返回最近的投递失败，每个订阅至多一条
func (r *Registry) RecentFailures() []*DeliveryError {
	if r.recent == nil {
		return nil
	}
	return r.recent.Values()
}

// ============================================================================
// 拆除与自省
// ============================================================================

// UnsubscribeAll 清空类别的全部订阅
func (r *Registry) UnsubscribeAll(cat types.Category) {
	v, ok := r.lists.Load(cat)
	if !ok {
		return
	}
	list := v.(SubscriberList)
	removed := list.Clear()
	for _, sub := range removed {
		sub.detached.Store(true)
	}
	r.metrics.setSubscriptions(cat, 0)

	r.sink().Info("已清空类别订阅", "category", cat, "removed", len(removed))
}

// SubscribedCategories 返回存在订阅者的类别，按名称排序
func (r *Registry) SubscribedCategories() []types.Category {
	var cats []types.Category
	r.lists.Range(func(key, value any) bool {
		if value.(SubscriberList).Len() > 0 {
			cats = append(cats, key.(types.Category))
		}
		return true
	})
	slices.SortFunc(cats, func(a, b types.Category) int {
		return strings.Compare(a.String(), b.String())
	})
	return cats
}

// Subscribers 返回类别当前的有序快照
func (r *Registry) Subscribers(cat types.Category) []*Subscription {
	v, ok := r.lists.Load(cat)
	if !ok {
		return nil
	}
	return v.(SubscriberList).Sorted()
}

// Close 清空所有类别并注销所有外部事件源注册
//
// 注入记录保留，关闭后不会重新注入。
func (r *Registry) Close() error {
	r.lists.Range(func(key, _ any) bool {
		r.UnsubscribeAll(key.(types.Category))
		return true
	})

	r.injectMu.Lock()
	regs := r.registrations
	r.registrations = nil
	r.injectMu.Unlock()

	var errs error
	for _, reg := range regs {
		errs = multierr.Append(errs, reg.Close())
	}
	return errs
}

var _ pkgif.Registry = (*Registry)(nil)

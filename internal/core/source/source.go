package source

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-eventhub/config"
	pkgif "github.com/dep2p/go-eventhub/pkg/interfaces"
	"github.com/dep2p/go-eventhub/pkg/lib/log"
	"github.com/dep2p/go-eventhub/pkg/types"
)

var logger = log.Logger("core/source")

var (
	// ErrNilListener 空监听函数
	ErrNilListener = errors.New("nil listener function")

	// ErrNotStarted 事件源未启动
	ErrNotStarted = errors.New("source not started")

	// ErrShutdownTimeout 关闭时工作协程未能在超时内退出
	ErrShutdownTimeout = errors.New("source shutdown timed out")
)

// ============================================================================
// Source 实现
// ============================================================================

// Source 进程内事件源
type Source struct {
	cfg config.SourceConfig

	mu        sync.RWMutex
	listeners map[types.Category][]*listener
	async     map[types.Category]struct{}
	seq       uint64

	queue   chan job
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	// done 在 Close 开始时关闭，唤醒阻塞在队列上的 Fire
	done      chan struct{}
	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	fired   atomic.Uint64
	dropped atomic.Uint64
}

// job 一次异步投递
type job struct {
	event     any
	listeners []*listener
}

// New 创建事件源
//
// 配置无效时使用默认值。
func New(cfg config.SourceConfig) *Source {
	if err := cfg.Validate(); err != nil {
		logger.Warn("事件源配置无效，使用默认配置", "error", err)
		cfg = config.DefaultSourceConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Source{
		cfg:       cfg,
		listeners: make(map[types.Category][]*listener),
		async:     make(map[types.Category]struct{}),
		queue:     make(chan job, cfg.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}
	return s
}

// DeclareAsync 声明异步投递的类别
//
// 应在注册表订阅这些类别之前调用，订阅者列表的协调策略在首次订阅时确定。
func (s *Source) DeclareAsync(cats ...types.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cat := range cats {
		s.async[cat] = struct{}{}
	}
}

// IsAsync 实现 interfaces.Source
func (s *Source) IsAsync(cat types.Category) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.async[cat]
	return ok
}

// Register 实现 interfaces.Source
//
// 监听者按 priority 升序调用，同优先级按注册顺序。
// async 为 true 时类别随之变为异步类别。
func (s *Source) Register(cat types.Category, priority types.Priority, async bool, fn func(any)) (pkgif.Registration, error) {
	if s.closed.Load() {
		return nil, types.ErrSourceClosed
	}
	if !cat.Valid() {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidCategory, cat)
	}
	if fn == nil {
		return nil, ErrNilListener
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, declared := s.async[cat]; async && !declared {
		s.async[cat] = struct{}{}
		logger.Debug("类别已切换为异步投递", "category", cat)
	}

	s.seq++
	l := &listener{
		id:       s.seq,
		source:   s,
		category: cat,
		priority: priority,
		fn:       fn,
	}
	list := append(slices.Clone(s.listeners[cat]), l)
	slices.SortStableFunc(list, func(a, b *listener) int {
		return cmp.Compare(a.priority, b.priority)
	})
	s.listeners[cat] = list

	logger.Debug("监听者已注册", "category", cat, "priority", priority, "listeners", len(list))
	return l, nil
}

// Listeners 类别当前的监听者数量
func (s *Source) Listeners(cat types.Category) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners[cat])
}

func (s *Source) remove(l *listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.listeners[l.category]
	i := slices.Index(list, l)
	if i < 0 {
		return
	}
	next := slices.Delete(slices.Clone(list), i, i+1)
	if len(next) == 0 {
		delete(s.listeners, l.category)
	} else {
		s.listeners[l.category] = next
	}
	logger.Debug("监听者已注销", "category", l.category)
}

// ============================================================================
// 生命周期
// ============================================================================

// Start 启动异步工作协程，重复调用无副作用
func (s *Source) Start() error {
	if s.closed.Load() {
		return types.ErrSourceClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	s.group = new(errgroup.Group)
	for i := 0; i < s.cfg.Workers; i++ {
		s.group.Go(s.worker)
	}

	logger.Info("事件源已启动",
		"workers", s.cfg.Workers,
		"queue", s.cfg.QueueSize,
		"rateLimit", s.cfg.RateLimit)
	return nil
}

// Close 停止接收事件，等待队列排空后退出
//
// 超过 ShutdownTimeout 时放弃剩余事件并返回 ErrShutdownTimeout。
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		// 等待正在入队的 Fire 退出后再关闭队列
		s.mu.Lock()
		s.closed.Store(true)
		close(s.queue)
		s.mu.Unlock()

		if s.group == nil {
			s.dropped.Add(uint64(len(s.queue)))
			s.cancel()
			return
		}

		waited := make(chan error, 1)
		go func() { waited <- s.group.Wait() }()

		timeout := s.cfg.ShutdownTimeout.Duration()
		var timer <-chan time.Time
		if timeout > 0 {
			t := time.NewTimer(timeout)
			defer t.Stop()
			timer = t.C
		}

		select {
		case err := <-waited:
			s.closeErr = err
		case <-timer:
			s.cancel()
			s.closeErr = ErrShutdownTimeout
			logger.Warn("事件源关闭超时，丢弃剩余事件", "timeout", timeout)
		}
		s.cancel()

		logger.Info("事件源已关闭",
			"fired", s.fired.Load(),
			"dropped", s.dropped.Load())
	})
	return s.closeErr
}

// ============================================================================
// 触发与投递
// ============================================================================

// Fire 触发事件
//
// 同步类别在当前协程投递后返回；异步类别在入队后返回，
// 队列已满时阻塞直到有空位、ctx 结束或事件源关闭。
func (s *Source) Fire(ctx context.Context, event any) error {
	if event == nil {
		return types.ErrNilEvent
	}
	cat := types.CategoryOf(event)

	s.mu.RLock()
	if s.closed.Load() {
		s.mu.RUnlock()
		return types.ErrSourceClosed
	}
	listeners := s.listeners[cat]
	_, async := s.async[cat]
	if len(listeners) == 0 {
		s.mu.RUnlock()
		return nil
	}
	s.fired.Add(1)

	if !async {
		s.mu.RUnlock()
		deliver(event, listeners)
		return nil
	}

	// 持有读锁入队，Close 在写锁下关闭队列
	defer s.mu.RUnlock()
	select {
	case s.queue <- job{event: event, listeners: listeners}:
		return nil
	case <-ctx.Done():
		s.dropped.Add(1)
		return ctx.Err()
	case <-s.done:
		s.dropped.Add(1)
		return types.ErrSourceClosed
	}
}

// Stats 返回已触发和已丢弃的事件数量
func (s *Source) Stats() (fired, dropped uint64) {
	return s.fired.Load(), s.dropped.Load()
}

// Pending 队列中等待投递的事件数量
func (s *Source) Pending() int {
	return len(s.queue)
}

func (s *Source) worker() error {
	for j := range s.queue {
		if s.ctx.Err() != nil {
			s.dropped.Add(1)
			continue
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(s.ctx); err != nil {
				s.dropped.Add(1)
				continue
			}
		}
		deliver(j.event, j.listeners)
	}
	return nil
}

// deliver 依次调用监听者，单个监听者 panic 不影响其它监听者
func deliver(event any, listeners []*listener) {
	for _, l := range listeners {
		if l.closed.Load() {
			continue
		}
		l.call(event)
	}
}

// ============================================================================
// listener
// ============================================================================

type listener struct {
	id       uint64
	source   *Source
	category types.Category
	priority types.Priority
	fn       func(any)
	closed   atomic.Bool
}

func (l *listener) call(event any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("监听者 panic",
				"category", l.category,
				"listener", l.id,
				"panic", r)
		}
	}()
	l.fn(event)
}

// Close 实现 interfaces.Registration，可重复调用
func (l *listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.source.remove(l)
	return nil
}

var _ pkgif.Source = (*Source)(nil)

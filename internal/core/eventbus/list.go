package eventbus

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-eventhub/pkg/types"
)

// ============================================================================
// SubscriberList 接口
// ============================================================================

// SubscriberList 单个类别的订阅者列表
//
// 结构变更（Add/Remove/Clear）可以与正在进行的分发并发执行，
// 不会影响已经取出的快照。
type SubscriberList interface {
	// Category 列表所属类别
	Category() types.Category

	// Async 是否使用异步类别的协调策略
	Async() bool

	// Add 追加订阅
	Add(sub *Subscription)

	// Remove 移除订阅，不存在时返回 false
	Remove(sub *Subscription) bool

	// Sorted 返回按优先级升序、同优先级按注册顺序排列的快照
	//
	// 返回的切片只读，调用方不得修改。
	Sorted() []*Subscription

	// Len 当前订阅数量
	Len() int

	// Clear 移除全部订阅并返回被移除的订阅
	Clear() []*Subscription
}

// newSubscriberList 按类别的投递模式选择协调策略
func newSubscriberList(category types.Category, async bool) SubscriberList {
	if async {
		return &rwList{category: category, sorted: true}
	}
	l := &cowList{category: category}
	l.state.Store(&cowState{sorted: true})
	return l
}

func byPriority(a, b *Subscription) int {
	return cmp.Compare(a.priority, b.priority)
}

// appendKeepsOrder 追加后是否仍然有序
func appendKeepsOrder(subs []*Subscription, sorted bool, sub *Subscription) bool {
	if !sorted {
		return false
	}
	return len(subs) == 0 || subs[len(subs)-1].priority <= sub.priority
}

func indexOf(subs []*Subscription, sub *Subscription) int {
	for i, s := range subs {
		if s == sub {
			return i
		}
	}
	return -1
}

// ============================================================================
// cowList 同步类别：写时复制
// ============================================================================

// cowState 不可变状态，发布后不再修改
type cowState struct {
	subs   []*Subscription
	sorted bool
}

type cowList struct {
	category types.Category
	state    atomic.Pointer[cowState]
}

func (l *cowList) Category() types.Category { return l.category }

func (l *cowList) Async() bool { return false }

func (l *cowList) Add(sub *Subscription) {
	for {
		old := l.state.Load()
		subs := make([]*Subscription, len(old.subs), len(old.subs)+1)
		copy(subs, old.subs)
		next := &cowState{
			subs:   append(subs, sub),
			sorted: appendKeepsOrder(old.subs, old.sorted, sub),
		}
		if l.state.CompareAndSwap(old, next) {
			return
		}
	}
}

func (l *cowList) Remove(sub *Subscription) bool {
	for {
		old := l.state.Load()
		i := indexOf(old.subs, sub)
		if i < 0 {
			return false
		}
		subs := make([]*Subscription, 0, len(old.subs)-1)
		subs = append(subs, old.subs[:i]...)
		subs = append(subs, old.subs[i+1:]...)
		next := &cowState{subs: subs, sorted: old.sorted}
		if l.state.CompareAndSwap(old, next) {
			return true
		}
	}
}

// Sorted 排序后的状态直接替换当前状态；期间若有并发写入则放弃替换，
// 本次仍返回加载时刻的有序快照。
func (l *cowList) Sorted() []*Subscription {
	cur := l.state.Load()
	if cur.sorted {
		return cur.subs
	}

	subs := slices.Clone(cur.subs)
	slices.SortStableFunc(subs, byPriority)
	l.state.CompareAndSwap(cur, &cowState{subs: subs, sorted: true})
	return subs
}

func (l *cowList) Len() int {
	return len(l.state.Load().subs)
}

func (l *cowList) Clear() []*Subscription {
	old := l.state.Swap(&cowState{sorted: true})
	return old.subs
}

// ============================================================================
// rwList 异步类别：读写锁
// ============================================================================

type rwList struct {
	category types.Category

	mu      sync.RWMutex
	subs    []*Subscription
	sorted  bool
	version uint64 // 每次结构变更递增
}

func (l *rwList) Category() types.Category { return l.category }

func (l *rwList) Async() bool { return true }

func (l *rwList) Add(sub *Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sorted = appendKeepsOrder(l.subs, l.sorted, sub)
	l.subs = append(l.subs, sub)
	l.version++
}

func (l *rwList) Remove(sub *Subscription) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := indexOf(l.subs, sub)
	if i < 0 {
		return false
	}
	l.subs = slices.Delete(l.subs, i, i+1)
	l.version++
	return true
}

// Sorted 读锁下复制，锁外排序，写锁下替换。
// 替换前检查版本号，避免覆盖排序期间发生的 Add/Remove。
func (l *rwList) Sorted() []*Subscription {
	l.mu.RLock()
	subs := slices.Clone(l.subs)
	sorted := l.sorted
	version := l.version
	l.mu.RUnlock()

	if sorted {
		return subs
	}

	slices.SortStableFunc(subs, byPriority)

	l.mu.Lock()
	if l.version == version {
		l.subs = slices.Clone(subs)
		l.sorted = true
	}
	l.mu.Unlock()

	return subs
}

func (l *rwList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs)
}

func (l *rwList) Clear() []*Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()

	old := l.subs
	l.subs = nil
	l.sorted = true
	l.version++
	return old
}

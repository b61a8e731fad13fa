package eventbus

import (
	"sync/atomic"

	pkgif "github.com/dep2p/go-eventhub/pkg/interfaces"
	"github.com/dep2p/go-eventhub/pkg/types"
)

// ============================================================================
// BoundReference 实现
// ============================================================================

// BoundReference 已注册订阅的句柄
type BoundReference struct {
	sub      *Subscription
	list     SubscriberList
	registry *Registry
	done     atomic.Bool
}

// ID 订阅 ID
func (b *BoundReference) ID() string { return b.sub.id }

// Category 事件类别
func (b *BoundReference) Category() types.Category { return b.sub.category }

// Subscription 底层订阅
func (b *BoundReference) Subscription() *Subscription { return b.sub }

// Active 订阅是否仍然有效
//
// 注销或所在类别被 UnsubscribeAll 清空后返回 false。
func (b *BoundReference) Active() bool {
	return !b.done.Load() && !b.sub.detached.Load()
}

// Unregister 取消订阅
//
// 并发安全，可以多次调用；列表已清空时也是安全的空操作。
// 只有实际从列表移除时返回 true。
func (b *BoundReference) Unregister() bool {
	if !b.done.CompareAndSwap(false, true) {
		return false
	}
	b.sub.detached.Store(true)

	removed := b.list.Remove(b.sub)
	if removed {
		b.registry.metrics.setSubscriptions(b.sub.category, b.list.Len())
		logger.Debug("订阅已注销", "category", b.sub.category, "subscription", b.sub.String())
	}
	return removed
}

var _ pkgif.BoundReference = (*BoundReference)(nil)

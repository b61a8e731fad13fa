package eventbus

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-eventhub/pkg/interfaces"
	"github.com/dep2p/go-eventhub/pkg/types"
	"github.com/dep2p/go-eventhub/tests/mocks"
	"github.com/dep2p/go-eventhub/tests/testutil"
)

// ============================================================================
// 测试辅助
// ============================================================================

var joinCategory = types.CategoryFor[*testutil.PlayerJoin]()

func newBoundRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	r := NewRegistry(opts...).Bind(mocks.NewMockHost("test", nil))
	require.True(t, r.Bound())
	return r
}

func listener(bindings ...types.Binding) pkgif.Listener {
	return pkgif.ListenerFunc(func() []types.Binding { return bindings })
}

func recordJoin(rec *testutil.Recorder, name string) func(*testutil.PlayerJoin) error {
	return func(*testutil.PlayerJoin) error {
		rec.Record(name)
		return nil
	}
}

func newSource(t *testing.T) *mocks.MockSource {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	src.EXPECT().IsAsync(gomock.Any()).Return(false).AnyTimes()
	return src
}

// ============================================================================
// 接口契约测试
// ============================================================================

// TestRegistry_ImplementsInterface 验证 Registry 实现接口
func TestRegistry_ImplementsInterface(t *testing.T) {
	var _ pkgif.Registry = (*Registry)(nil)
	var _ pkgif.BoundReference = (*BoundReference)(nil)
}

// ============================================================================
// 绑定测试
// ============================================================================

// TestRegistry_Bind 第一次绑定生效，不同宿主被忽略
func TestRegistry_Bind(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Bound())
	assert.Nil(t, r.Host())

	h1 := mocks.NewMockHost("first", nil)
	h2 := mocks.NewMockHost("second", nil)

	assert.Same(t, r, r.Bind(h1))
	assert.Same(t, h1, r.Host())

	// 同一宿主：无副作用
	assert.Same(t, r, r.Bind(h1))
	assert.Same(t, h1, r.Host())

	// 不同宿主：保持原绑定
	assert.Same(t, r, r.Bind(h2))
	assert.Same(t, h1, r.Host())

	// 空宿主：忽略
	assert.Same(t, r, r.Bind(nil))
	assert.Same(t, h1, r.Host())
}

// TestRegistry_SubscribeRequiresBind 未绑定时不能注册
func TestRegistry_SubscribeRequiresBind(t *testing.T) {
	r := NewRegistry()

	refs, err := r.Subscribe(listener(On(func(*testutil.PlayerJoin) error { return nil })))
	assert.ErrorIs(t, err, ErrNotBound)
	assert.Empty(t, refs)

	_, err = newBoundRegistry(t).Subscribe(nil)
	assert.ErrorIs(t, err, ErrNilListener)
}

// TestRegistry_NotifyBeforeBind 未绑定时仍可本地分发
func TestRegistry_NotifyBeforeBind(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Notify(&testutil.PlayerJoin{Name: "alice"}))
	assert.ErrorIs(t, r.Notify(nil), types.ErrNilEvent)
}

// ============================================================================
// 发现测试
// ============================================================================

// TestRegistry_SubscribeSkipsInvalid 无效处理器被跳过，其它处理器继续注册
func TestRegistry_SubscribeSkipsInvalid(t *testing.T) {
	r := newBoundRegistry(t)
	rec := &testutil.Recorder{}

	refs, err := r.Subscribe(listener(
		On(recordJoin(rec, "valid-1"), Named("valid-1")),
		On[*testutil.PlayerJoin](nil, Named("nil-callback")),
		types.Binding{Name: "no-category", Invoke: func(any) error { return nil }},
		On(func(error) error { return nil }, Named("interface-category")),
		types.Binding{Name: "bridge", Category: joinCategory, Invoke: func(any) error { return nil }, Synthetic: true},
		On(recordJoin(rec, "valid-2"), Named("valid-2")),
	))

	require.Len(t, refs, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNilHandler)
	assert.ErrorIs(t, err, types.ErrInvalidCategory)
	assert.ErrorIs(t, err, ErrSyntheticHandler)
	assert.Len(t, multierr.Errors(err), 4)

	require.NoError(t, r.Notify(&testutil.PlayerJoin{Name: "alice"}))
	assert.Equal(t, []string{"valid-1", "valid-2"}, rec.Calls())
}

// greeter 以方法实现 types.Handler
type greeter struct {
	rec *testutil.Recorder
}

func (g *greeter) Handle(e *testutil.PlayerJoin) error {
	g.rec.Record("hello " + e.Name)
	return nil
}

func (g *greeter) EventHandlers() []types.Binding {
	return []types.Binding{
		OnHandler[*testutil.PlayerJoin](g, WithPriority(types.PriorityHigh)),
		On(g.onChat),
	}
}

func (g *greeter) onChat(m testutil.ChatMessage) error {
	g.rec.Record(m.From + ": " + m.Text)
	return nil
}

// TestRegistry_SubscribeListener 测试监听者发现
func TestRegistry_SubscribeListener(t *testing.T) {
	r := newBoundRegistry(t)
	g := &greeter{rec: &testutil.Recorder{}}

	refs, err := r.Subscribe(g)
	require.NoError(t, err)
	require.Len(t, refs, 2)

	subs := r.Subscribers(joinCategory)
	require.Len(t, subs, 1)
	assert.Same(t, g, subs[0].Owner())
	assert.Equal(t, types.PriorityHigh, subs[0].Priority())
	assert.Equal(t, "*eventbus.greeter", subs[0].Name())

	chat := r.Subscribers(chatCategory)
	require.Len(t, chat, 1)
	assert.Contains(t, chat[0].Name(), "onChat")

	require.NoError(t, r.Notify(&testutil.PlayerJoin{Name: "bob"}))
	require.NoError(t, r.Notify(testutil.ChatMessage{From: "bob", Text: "hi"}))
	assert.Equal(t, []string{"hello bob", "bob: hi"}, g.rec.Calls())
}

// ============================================================================
// 分发测试
// ============================================================================

// TestRegistry_NotifyOrder 按优先级升序，同优先级按注册顺序
func TestRegistry_NotifyOrder(t *testing.T) {
	r := newBoundRegistry(t)
	rec := &testutil.Recorder{}

	_, err := r.Subscribe(listener(
		On(recordJoin(rec, "high"), WithPriority(types.PriorityHigh)),
		On(recordJoin(rec, "normal-a")),
		On(recordJoin(rec, "lowest"), WithPriority(types.PriorityLowest)),
		On(recordJoin(rec, "normal-b")),
	))
	require.NoError(t, err)
	_, err = r.Subscribe(listener(
		On(recordJoin(rec, "monitor"), WithPriority(types.PriorityMonitor)),
		On(recordJoin(rec, "normal-c")),
	))
	require.NoError(t, err)

	require.NoError(t, r.Notify(&testutil.PlayerJoin{}))
	assert.Equal(t, []string{"lowest", "normal-a", "normal-b", "normal-c", "high", "monitor"}, rec.Calls())
}

// TestRegistry_NotifyCancellation 已取消事件只投递给 IgnoreCancelled 的订阅
func TestRegistry_NotifyCancellation(t *testing.T) {
	r := newBoundRegistry(t)
	rec := &testutil.Recorder{}

	_, err := r.Subscribe(listener(
		On(func(e *testutil.PlayerJoin) error {
			rec.Record("guard")
			e.SetCancelled(e.Name == "banned")
			return nil
		}, WithPriority(types.PriorityLow)),
		On(recordJoin(rec, "welcome")),
		On(recordJoin(rec, "audit"), WithPriority(types.PriorityMonitor), IgnoreCancelled()),
	))
	require.NoError(t, err)

	require.NoError(t, r.Notify(&testutil.PlayerJoin{Name: "alice"}))
	assert.Equal(t, []string{"guard", "welcome", "audit"}, rec.Calls())

	rec.Reset()
	ev := &testutil.PlayerJoin{Name: "banned"}
	require.NoError(t, r.Notify(ev))
	assert.Equal(t, []string{"guard", "audit"}, rec.Calls())
	assert.True(t, ev.IsCancelled())
}

// TestRegistry_NotifyValueEvent 不可取消的值类型事件全部投递
func TestRegistry_NotifyValueEvent(t *testing.T) {
	r := newBoundRegistry(t)
	var got []testutil.ChatMessage

	_, err := r.Subscribe(listener(On(func(m testutil.ChatMessage) error {
		got = append(got, m)
		return nil
	})))
	require.NoError(t, err)

	require.NoError(t, r.Notify(testutil.ChatMessage{From: "a", Text: "1"}))
	// 指针类型是另一个类别
	require.NoError(t, r.Notify(&testutil.ChatMessage{From: "b", Text: "2"}))

	assert.Equal(t, []testutil.ChatMessage{{From: "a", Text: "1"}}, got)
}

// TestRegistry_FailureIsolation 单个处理器失败或 panic 不影响其它处理器
func TestRegistry_FailureIsolation(t *testing.T) {
	var reported []*DeliveryError
	r := newBoundRegistry(t, WithFailureHandler(func(derr *DeliveryError) {
		reported = append(reported, derr)
	}))
	rec := &testutil.Recorder{}
	boom := errors.New("boom")

	_, err := r.Subscribe(listener(
		On(func(*testutil.PlayerJoin) error { return boom }, Named("failing"), WithPriority(types.PriorityLow)),
		On(func(*testutil.PlayerJoin) error { panic("kaboom") }, Named("panicking")),
		On(recordJoin(rec, "after"), WithPriority(types.PriorityHigh)),
	))
	require.NoError(t, err)

	ev := &testutil.PlayerJoin{Name: "alice"}
	err = r.Notify(ev)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrHandlerPanic)
	assert.Equal(t, []string{"after"}, rec.Calls())

	require.Len(t, reported, 2)
	assert.Equal(t, "failing", reported[0].Subscription.Name())
	assert.Same(t, ev, reported[0].Event)
	assert.ErrorIs(t, reported[0], boom)
	assert.Equal(t, "panicking", reported[1].Subscription.Name())
	assert.Contains(t, reported[1].Error(), "kaboom")

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "failing", derr.Subscription.Name())

	assert.Len(t, r.RecentFailures(), 2)
}

// TestRegistry_FailureHandlerPanic 失败消费者 panic 不影响分发
func TestRegistry_FailureHandlerPanic(t *testing.T) {
	r := newBoundRegistry(t, WithFailureHandler(func(*DeliveryError) { panic("consumer") }))
	rec := &testutil.Recorder{}

	_, err := r.Subscribe(listener(
		On(func(*testutil.PlayerJoin) error { return errors.New("fail") }),
		On(recordJoin(rec, "next"), WithPriority(types.PriorityHigh)),
	))
	require.NoError(t, err)

	assert.Error(t, r.Notify(&testutil.PlayerJoin{}))
	assert.Equal(t, []string{"next"}, rec.Calls())
}

// TestRegistry_RecentFailures 每个订阅只保留最后一次失败，容量有限
func TestRegistry_RecentFailures(t *testing.T) {
	r := newBoundRegistry(t, WithRecentFailures(2), WithFailureHandler(func(*DeliveryError) {}))

	for i := 0; i < 3; i++ {
		n := i
		_, err := r.Subscribe(listener(On(func(*testutil.PlayerJoin) error {
			return fmt.Errorf("handler %d", n)
		})))
		require.NoError(t, err)
	}

	require.Error(t, r.Notify(&testutil.PlayerJoin{}))
	require.Error(t, r.Notify(&testutil.PlayerJoin{}))
	assert.Len(t, r.RecentFailures(), 2)

	off := newBoundRegistry(t, WithRecentFailures(0), WithFailureHandler(func(*DeliveryError) {}))
	_, err := off.Subscribe(listener(On(func(*testutil.PlayerJoin) error { return errors.New("x") })))
	require.NoError(t, err)
	require.Error(t, off.Notify(&testutil.PlayerJoin{}))
	assert.Nil(t, off.RecentFailures())
}

// TestRegistry_UnregisterDuringDispatch 分发中注销的后续订阅不再被调用
func TestRegistry_UnregisterDuringDispatch(t *testing.T) {
	r := newBoundRegistry(t)
	rec := &testutil.Recorder{}
	var later pkgif.BoundReference

	refs, err := r.Subscribe(listener(
		On(func(*testutil.PlayerJoin) error {
			rec.Record("first")
			later.Unregister()
			return nil
		}, WithPriority(types.PriorityLow)),
		On(recordJoin(rec, "later")),
	))
	require.NoError(t, err)
	later = refs[1]

	require.NoError(t, r.Notify(&testutil.PlayerJoin{}))
	assert.Equal(t, []string{"first"}, rec.Calls())
	assert.False(t, later.Active())
}

// TestRegistry_SubscribeDuringDispatch 分发中新增的订阅从下一次分发开始生效
func TestRegistry_SubscribeDuringDispatch(t *testing.T) {
	r := newBoundRegistry(t)
	rec := &testutil.Recorder{}
	added := false

	_, err := r.Subscribe(listener(On(func(*testutil.PlayerJoin) error {
		rec.Record("outer")
		if !added {
			added = true
			_, err := r.Subscribe(listener(On(recordJoin(rec, "inner"), WithPriority(types.PriorityHighest))))
			return err
		}
		return nil
	})))
	require.NoError(t, err)

	require.NoError(t, r.Notify(&testutil.PlayerJoin{}))
	assert.Equal(t, []string{"outer"}, rec.Calls())

	require.NoError(t, r.Notify(&testutil.PlayerJoin{}))
	assert.Equal(t, []string{"outer", "outer", "inner"}, rec.Calls())
}

// ============================================================================
// 注销与自省测试
// ============================================================================

// TestBoundReference_Unregister 注销幂等，注销后不再投递
func TestBoundReference_Unregister(t *testing.T) {
	r := newBoundRegistry(t)
	rec := &testutil.Recorder{}

	refs, err := r.Subscribe(listener(On(recordJoin(rec, "h"))))
	require.NoError(t, err)
	ref := refs[0]

	assert.NotEmpty(t, ref.ID())
	assert.Equal(t, joinCategory, ref.Category())
	assert.True(t, ref.Active())

	assert.True(t, ref.Unregister())
	assert.False(t, ref.Unregister())
	assert.False(t, ref.Active())

	require.NoError(t, r.Notify(&testutil.PlayerJoin{}))
	assert.Empty(t, rec.Calls())
	assert.Empty(t, r.SubscribedCategories())
}

// TestRegistry_UnsubscribeAll 清空类别后引用失效，注销为空操作
func TestRegistry_UnsubscribeAll(t *testing.T) {
	r := newBoundRegistry(t)
	rec := &testutil.Recorder{}

	refs, err := r.Subscribe(listener(
		On(recordJoin(rec, "join")),
		On(func(testutil.ChatMessage) error { rec.Record("chat"); return nil }),
	))
	require.NoError(t, err)

	assert.Equal(t, []types.Category{joinCategory, chatCategory}, r.SubscribedCategories())

	r.UnsubscribeAll(joinCategory)
	r.UnsubscribeAll(types.CategoryFor[int]()) // 不存在的类别

	assert.Equal(t, []types.Category{chatCategory}, r.SubscribedCategories())
	assert.False(t, refs[0].Active())
	assert.False(t, refs[0].Unregister())
	assert.True(t, refs[1].Active())

	require.NoError(t, r.Notify(&testutil.PlayerJoin{}))
	require.NoError(t, r.Notify(testutil.ChatMessage{}))
	assert.Equal(t, []string{"chat"}, rec.Calls())

	// 清空后可以重新订阅
	_, err = r.Subscribe(listener(On(recordJoin(rec, "join-again"))))
	require.NoError(t, err)
	require.NoError(t, r.Notify(&testutil.PlayerJoin{}))
	assert.Equal(t, 1, rec.Count("join-again"))
}

// TestRegistry_SingleListPerCategory 并发首次使用同一类别只创建一个列表
func TestRegistry_SingleListPerCategory(t *testing.T) {
	r := newBoundRegistry(t)

	lists := make(chan SubscriberList, 16)
	for i := 0; i < cap(lists); i++ {
		go func() { lists <- r.listFor(joinCategory, false) }()
	}
	first := <-lists
	for i := 1; i < cap(lists); i++ {
		assert.Same(t, first, <-lists)
	}
}

// ============================================================================
// 注入测试
// ============================================================================

// TestRegistry_InjectOnce 每个类别最多注入一次
func TestRegistry_InjectOnce(t *testing.T) {
	src := newSource(t)
	var bridged func(any)
	src.EXPECT().
		Register(joinCategory, types.PriorityHigh, false, gomock.Any()).
		DoAndReturn(func(_ types.Category, _ types.Priority, _ bool, fn func(any)) (pkgif.Registration, error) {
			bridged = fn
			return mocks.NopRegistration(), nil
		}).
		Times(1)

	r := NewRegistry().Bind(mocks.NewMockHost("test", src))
	rec := &testutil.Recorder{}

	for i := 0; i < 3; i++ {
		_, err := r.Subscribe(listener(On(recordJoin(rec, "h"), Inject(types.PriorityHigh))))
		require.NoError(t, err)
	}
	// 不请求注入的订阅不触发注册
	_, err := r.Subscribe(listener(On(func(testutil.ChatMessage) error { return nil })))
	require.NoError(t, err)

	assert.True(t, r.Injected(joinCategory))
	assert.False(t, r.Injected(chatCategory))

	// 外部事件源触发的事件进入本地分发
	require.NotNil(t, bridged)
	bridged(&testutil.PlayerJoin{Name: "remote"})
	assert.Equal(t, 3, rec.Count("h"))
}

// TestRegistry_InjectFailure 注入失败只记录日志，类别仍可本地使用且不重试
func TestRegistry_InjectFailure(t *testing.T) {
	src := newSource(t)
	src.EXPECT().
		Register(joinCategory, gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, types.ErrSourceClosed).
		Times(1)

	r := NewRegistry().Bind(mocks.NewMockHost("test", src))
	rec := &testutil.Recorder{}

	refs, err := r.Subscribe(listener(On(recordJoin(rec, "h"), Inject(types.PriorityNormal))))
	require.NoError(t, err)
	require.Len(t, refs, 1)

	_, err = r.Subscribe(listener(On(recordJoin(rec, "h"), Inject(types.PriorityNormal))))
	require.NoError(t, err)

	assert.True(t, r.Injected(joinCategory))
	require.NoError(t, r.Notify(&testutil.PlayerJoin{}))
	assert.Equal(t, 2, rec.Count("h"))
	assert.NoError(t, r.Close())
}

// TestRegistry_InjectWithoutSource 宿主没有事件源时跳过注入
func TestRegistry_InjectWithoutSource(t *testing.T) {
	r := newBoundRegistry(t)

	_, err := r.Subscribe(listener(On(func(*testutil.PlayerJoin) error { return nil }, Inject(types.PriorityNormal))))
	require.NoError(t, err)
	assert.True(t, r.Injected(joinCategory))
}

// TestRegistry_AsyncCategory 事件源声明的异步类别使用读写锁列表
func TestRegistry_AsyncCategory(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	src.EXPECT().IsAsync(joinCategory).Return(true).AnyTimes()
	src.EXPECT().IsAsync(gomock.Any()).Return(false).AnyTimes()

	r := NewRegistry().Bind(mocks.NewMockHost("test", src))
	_, err := r.Subscribe(listener(
		On(func(*testutil.PlayerJoin) error { return nil }),
		On(func(testutil.ChatMessage) error { return nil }),
	))
	require.NoError(t, err)

	assert.True(t, r.Subscribers(joinCategory)[0].Async())
	assert.False(t, r.Subscribers(chatCategory)[0].Async())

	v, ok := r.lists.Load(joinCategory)
	require.True(t, ok)
	assert.IsType(t, &rwList{}, v)
}

// TestRegistry_Close 关闭时清空订阅并注销所有注入
func TestRegistry_Close(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	src.EXPECT().IsAsync(gomock.Any()).Return(false).AnyTimes()

	ok := mocks.NewMockRegistration(ctrl)
	ok.EXPECT().Close().Return(nil).Times(1)
	bad := mocks.NewMockRegistration(ctrl)
	bad.EXPECT().Close().Return(types.ErrSourceClosed).Times(1)

	src.EXPECT().Register(joinCategory, gomock.Any(), gomock.Any(), gomock.Any()).Return(ok, nil)
	src.EXPECT().Register(chatCategory, gomock.Any(), gomock.Any(), gomock.Any()).Return(bad, nil)

	r := NewRegistry().Bind(mocks.NewMockHost("test", src))
	refs, err := r.Subscribe(listener(
		On(func(*testutil.PlayerJoin) error { return nil }, Inject(types.PriorityNormal)),
		On(func(testutil.ChatMessage) error { return nil }, Inject(types.PriorityNormal)),
	))
	require.NoError(t, err)

	err = r.Close()
	assert.ErrorIs(t, err, types.ErrSourceClosed)
	assert.Empty(t, r.SubscribedCategories())
	for _, ref := range refs {
		assert.False(t, ref.Active())
	}

	// 第二次关闭没有剩余注册
	assert.NoError(t, r.Close())
}

package eventbus

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-eventhub/pkg/types"
	"github.com/dep2p/go-eventhub/tests/mocks"
	fixtures "github.com/dep2p/go-eventhub/tests/testutil"
)

// TestMetrics_NilSafe 未启用指标时所有方法为空操作
func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeDispatch(joinCategory, 1, 1, 1, time.Millisecond)
		m.setSubscriptions(joinCategory, 3)
		m.injection(joinCategory, "ok")
		m.expired(expireCalls)
	})
}

// TestMetrics_Register 重复注册返回错误
func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

// TestMetrics_Dispatch 测试分发与订阅指标
func TestMetrics_Dispatch(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	r := newBoundRegistry(t, WithMetrics(m), WithFailureHandler(func(*DeliveryError) {}))
	label := joinCategory.String()

	refs, err := r.Subscribe(listener(
		On(func(e *fixtures.PlayerJoin) error { e.SetCancelled(true); return nil }, WithPriority(types.PriorityLow)),
		On(func(*fixtures.PlayerJoin) error { return nil }),
		On(func(*fixtures.PlayerJoin) error { return errors.New("x") }, IgnoreCancelled()),
	))
	require.NoError(t, err)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.subscriptions.WithLabelValues(label)))

	require.Error(t, r.Notify(&fixtures.PlayerJoin{}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues(label)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues(label, "delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues(label, "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues(label, "failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))

	refs[0].Unregister()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.subscriptions.WithLabelValues(label)))

	r.UnsubscribeAll(joinCategory)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.subscriptions.WithLabelValues(label)))
}

// TestMetrics_Expirations 测试过期与注入指标
func TestMetrics_Expirations(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)

	mock := clock.NewMock()
	r := NewRegistry(WithMetrics(m), WithClock(mock)).Bind(mocks.NewMockHost("test", nil))

	_, err = Listen[fixtures.ChatMessage](r).
		ExpireAfterCalls(1).
		Inject(types.PriorityNormal).
		Handler(func(fixtures.ChatMessage) error { return nil }).
		Bind(nil)
	require.NoError(t, err)

	_, err = Listen[fixtures.ChatMessage](r).
		ExpireAfter(time.Second).
		Handler(func(fixtures.ChatMessage) error { return nil }).
		Bind(nil)
	require.NoError(t, err)

	require.NoError(t, r.Notify(fixtures.ChatMessage{}))
	mock.Add(time.Second)
	require.NoError(t, r.Notify(fixtures.ChatMessage{}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.expirations.WithLabelValues(expireCalls)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.expirations.WithLabelValues(expireDuration)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.injections.WithLabelValues(chatCategory.String(), "no_source")))
}

// TestMetrics_FluentSkipped 被过滤或已过期的流式订阅计为 skipped
func TestMetrics_FluentSkipped(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)

	r := newBoundRegistry(t, WithMetrics(m))
	label := chatCategory.String()

	_, err = Listen[fixtures.ChatMessage](r).
		Filter(func(e fixtures.ChatMessage) bool { return e.Text != "" }).
		Handler(func(fixtures.ChatMessage) error { return nil }).
		Bind(nil)
	require.NoError(t, err)

	_, err = Listen[fixtures.ChatMessage](r).
		ExpireIf(func(fixtures.ChatMessage) bool { return true }).
		Handler(func(fixtures.ChatMessage) error { return nil }).
		Bind(nil)
	require.NoError(t, err)

	require.NoError(t, r.Notify(fixtures.ChatMessage{}))

	assert.Equal(t, 0.0, testutil.ToFloat64(m.deliveries.WithLabelValues(label, "delivered")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveries.WithLabelValues(label, "skipped")))

	require.NoError(t, r.Notify(fixtures.ChatMessage{Text: "hi"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues(label, "delivered")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveries.WithLabelValues(label, "skipped")))
}

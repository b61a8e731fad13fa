package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-eventhub/pkg/types"
	"github.com/dep2p/go-eventhub/tests/testutil"
)

func onJoin(*testutil.PlayerJoin) error { return nil }

// TestOn_Defaults 默认名称取函数名，元数据为零值
func TestOn_Defaults(t *testing.T) {
	b := On(onJoin)

	assert.Equal(t, "eventbus.onJoin", b.Name)
	assert.Equal(t, joinCategory, b.Category)
	assert.Equal(t, types.HandlerMeta{}, b.Meta)
	assert.False(t, b.Synthetic)
	require.NotNil(t, b.Invoke)
}

// TestOn_Options 测试处理器选项
func TestOn_Options(t *testing.T) {
	b := On(onJoin,
		Named("join"),
		WithPriority(types.PriorityHighest),
		IgnoreCancelled(),
		AsyncCategory(),
		Inject(types.PriorityLow),
	)

	assert.Equal(t, "join", b.Name)
	assert.Equal(t, types.HandlerMeta{
		Priority:        types.PriorityHighest,
		IgnoreCancelled: true,
		Async:           true,
		Inject:          true,
		InjectPriority:  types.PriorityLow,
	}, b.Meta)
}

// TestOn_CategoryMismatch 参数类型不符时返回错误而不是 panic
func TestOn_CategoryMismatch(t *testing.T) {
	b := On(onJoin)

	assert.NoError(t, b.Invoke(&testutil.PlayerJoin{}))
	assert.ErrorIs(t, b.Invoke(testutil.ChatMessage{}), ErrCategoryMismatch)
}

// TestOnHandler 测试 types.Handler 适配
func TestOnHandler(t *testing.T) {
	var got string
	h := types.HandlerFunc[testutil.ChatMessage](func(m testutil.ChatMessage) error {
		got = m.Text
		return nil
	})

	b := OnHandler[testutil.ChatMessage](h, Named("chat"))
	assert.Equal(t, "chat", b.Name)
	require.NoError(t, b.Invoke(testutil.ChatMessage{Text: "hi"}))
	assert.Equal(t, "hi", got)

	b = OnHandler[testutil.ChatMessage](h)
	assert.Contains(t, b.Name, "types.HandlerFunc[")

	b = OnHandler[testutil.ChatMessage](nil)
	assert.Nil(t, b.Invoke)
	assert.True(t, b.Category.Valid())
}

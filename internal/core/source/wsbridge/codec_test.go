package wsbridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-eventhub/pkg/types"
	"github.com/dep2p/go-eventhub/tests/testutil"
)

func newCodec(t *testing.T) *Codec {
	t.Helper()
	c := NewCodec()
	require.NoError(t, RegisterType[*testutil.PlayerJoin](c, "player.join"))
	require.NoError(t, RegisterType[testutil.ChatMessage](c, "chat.message"))
	return c
}

// TestCodec_Register 测试类型注册
func TestCodec_Register(t *testing.T) {
	c := newCodec(t)

	assert.Equal(t, []string{"chat.message", "player.join"}, c.Names())

	cat, ok := c.Category("player.join")
	require.True(t, ok)
	assert.Equal(t, types.CategoryFor[*testutil.PlayerJoin](), cat)

	_, ok = c.Category("missing")
	assert.False(t, ok)

	assert.ErrorIs(t, RegisterType[*testutil.PlayerJoin](c, ""), ErrEmptyName)
	assert.ErrorIs(t, RegisterType[testutil.PlayerJoin](c, "player.join"), ErrDuplicateName)
	assert.ErrorIs(t, RegisterType[*testutil.PlayerJoin](c, "player.join.v2"), ErrDuplicateName)
	assert.ErrorIs(t, RegisterType[error](c, "error"), types.ErrInvalidCategory)
}

// TestCodec_EncodeDecode 指针类型解码为新指针，值类型解码为值
func TestCodec_EncodeDecode(t *testing.T) {
	c := newCodec(t)

	env, err := c.Encode(&testutil.PlayerJoin{Name: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "player.join", env.Category)
	assert.NotEmpty(t, env.ID)

	ev, err := c.Decode(env)
	require.NoError(t, err)
	join, ok := ev.(*testutil.PlayerJoin)
	require.True(t, ok)
	assert.Equal(t, "alice", join.Name)
	assert.False(t, join.Timestamp().IsZero(), "解码时补齐时间戳")

	env, err = c.Encode(testutil.ChatMessage{From: "bob", Text: "hi"})
	require.NoError(t, err)
	ev, err = c.Decode(env)
	require.NoError(t, err)
	assert.Equal(t, testutil.ChatMessage{From: "bob", Text: "hi"}, ev)
}

// TestCodec_Errors 测试编解码错误
func TestCodec_Errors(t *testing.T) {
	c := newCodec(t)

	_, err := c.Encode(nil)
	assert.ErrorIs(t, err, types.ErrNilEvent)

	_, err = c.Encode(testutil.PlayerJoin{})
	assert.ErrorIs(t, err, types.ErrUnknownCategory)

	_, err = c.Decode(Envelope{Category: "missing"})
	assert.ErrorIs(t, err, types.ErrUnknownCategory)

	_, err = c.Decode(Envelope{Category: "chat.message", Payload: json.RawMessage(`{"from": 1}`)})
	assert.Error(t, err)

	// 空负载解码为零值
	ev, err := c.Decode(Envelope{Category: "chat.message"})
	require.NoError(t, err)
	assert.Equal(t, testutil.ChatMessage{}, ev)
}

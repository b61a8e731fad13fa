package wsbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrRejected 桥接拒绝了信封
var ErrRejected = errors.New("envelope rejected")

// Client 向桥接推送事件的客户端
//
// Publish 串行执行：发送一条信封后等待对应的确认。
type Client struct {
	conn  *websocket.Conn
	codec *Codec
	mu    sync.Mutex
}

// Dial 连接桥接，url 形如 ws://host:port/events
func Dial(ctx context.Context, url string, codec *Codec) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if codec == nil {
		codec = NewCodec()
	}
	return &Client{conn: conn, codec: codec}, nil
}

// Publish 编码并发送事件，等待确认
func (c *Client) Publish(ctx context.Context, event any) error {
	env, err := c.codec.Encode(event)
	if err != nil {
		return err
	}
	_, err = c.Send(ctx, env)
	return err
}

// Send 发送原始信封并等待确认
//
// 确认为失败时返回的错误包装 ErrRejected。
func (c *Client) Send(ctx context.Context, env Envelope) (Ack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 零值表示没有截止时间
	deadline, _ := ctx.Deadline()
	_ = c.conn.SetWriteDeadline(deadline)
	_ = c.conn.SetReadDeadline(deadline)

	if err := c.conn.WriteJSON(env); err != nil {
		return Ack{}, fmt.Errorf("send envelope: %w", err)
	}

	var ack Ack
	if err := c.conn.ReadJSON(&ack); err != nil {
		return Ack{}, fmt.Errorf("read ack: %w", err)
	}
	if !ack.OK {
		return ack, fmt.Errorf("%w: %s", ErrRejected, ack.Error)
	}
	return ack, nil
}

// Close 发送关闭帧并断开连接
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

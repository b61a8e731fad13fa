package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dep2p/go-eventhub/config"
	"github.com/dep2p/go-eventhub/internal/core/source"
	pkgif "github.com/dep2p/go-eventhub/pkg/interfaces"
	"github.com/dep2p/go-eventhub/pkg/lib/log"
	"github.com/dep2p/go-eventhub/pkg/types"
)

var logger = log.Logger("core/source/wsbridge")

// ErrBridgeClosed 桥接已关闭
var ErrBridgeClosed = errors.New("bridge closed")

// ============================================================================
// Bridge 实现
// ============================================================================

// Bridge WebSocket 事件桥接
type Bridge struct {
	cfg      config.BridgeConfig
	src      *source.Source
	codec    *Codec
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	closed   bool
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup

	received atomic.Uint64
	rejected atomic.Uint64
}

// New 创建桥接
//
// codec 为 nil 时使用空编解码器，所有信封都会被拒绝。
func New(cfg config.BridgeConfig, src *source.Source, codec *Codec) *Bridge {
	if codec == nil {
		codec = NewCodec()
	}
	return &Bridge{
		cfg:   cfg,
		src:   src,
		codec: codec,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Codec 返回编解码器
func (b *Bridge) Codec() *Codec { return b.codec }

// Source 返回底层事件源
func (b *Bridge) Source() *source.Source { return b.src }

// Register 实现 interfaces.Source，委托给底层事件源
func (b *Bridge) Register(cat types.Category, priority types.Priority, async bool, fn func(any)) (pkgif.Registration, error) {
	return b.src.Register(cat, priority, async, fn)
}

// IsAsync 实现 interfaces.Source
func (b *Bridge) IsAsync(cat types.Category) bool {
	return b.src.IsAsync(cat)
}

// Stats 返回已接收和被拒绝的信封数量
func (b *Bridge) Stats() (received, rejected uint64) {
	return b.received.Load(), b.rejected.Load()
}

// ============================================================================
// HTTP 服务
// ============================================================================

// Start 按配置监听并提供 WebSocket 服务
//
// 未启用时为空操作。
func (b *Bridge) Start() error {
	if !b.cfg.Enable {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBridgeClosed
	}
	if b.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", b.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("bridge listen %s: %w", b.cfg.ListenAddr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(b.cfg.Path, b.Handler())
	b.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	b.listener = ln

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("桥接服务异常退出", "error", err)
		}
	}()

	logger.Info("WebSocket 桥接已启动", "addr", ln.Addr().String(), "path", b.cfg.Path)
	return nil
}

// Addr 实际监听地址，未启动时为空
func (b *Bridge) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Close 停止服务并断开所有连接，可重复调用
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	server := b.server
	for conn := range b.conns {
		_ = conn.Close()
	}
	b.mu.Unlock()

	var err error
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), b.writeTimeout())
		err = server.Shutdown(ctx)
		cancel()
	}
	b.wg.Wait()

	received, rejected := b.Stats()
	logger.Info("WebSocket 桥接已关闭", "received", received, "rejected", rejected)
	return err
}

// Handler 返回 WebSocket 升级处理器，可挂载到任意 HTTP 路由
func (b *Bridge) Handler() http.Handler {
	return http.HandlerFunc(b.serveWS)
}

func (b *Bridge) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket 升级失败", "remote", r.RemoteAddr, "error", err)
		return
	}

	if !b.track(conn) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge closed"))
		_ = conn.Close()
		return
	}
	defer b.untrack(conn)

	logger.Debug("远端宿主已连接", "remote", r.RemoteAddr)
	b.readLoop(r.Context(), conn)
	logger.Debug("远端宿主已断开", "remote", r.RemoteAddr)
}

func (b *Bridge) track(conn *websocket.Conn) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.conns[conn] = struct{}{}
	b.wg.Add(1)
	return true
}

func (b *Bridge) untrack(conn *websocket.Conn) {
	b.mu.Lock()
	delete(b.conns, conn)
	b.mu.Unlock()
	_ = conn.Close()
	b.wg.Done()
}

func (b *Bridge) readLoop(ctx context.Context, conn *websocket.Conn) {
	if b.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(b.cfg.MaxMessageSize)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("读取信封失败", "error", err)
			}
			return
		}

		ack := b.handle(ctx, data)
		_ = conn.SetWriteDeadline(time.Now().Add(b.writeTimeout()))
		if err := conn.WriteJSON(ack); err != nil {
			logger.Debug("回写确认失败", "error", err)
			return
		}
	}
}

// handle 解码并触发一条信封
func (b *Bridge) handle(ctx context.Context, data []byte) Ack {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		b.rejected.Add(1)
		return Ack{OK: false, Error: fmt.Sprintf("invalid envelope: %v", err)}
	}

	ack := Ack{ID: env.ID}
	event, err := b.codec.Decode(env)
	if err == nil {
		err = b.src.Fire(ctx, event)
	}
	if err != nil {
		b.rejected.Add(1)
		ack.Error = err.Error()
		logger.Warn("拒绝信封", "id", env.ID, "category", env.Category, "error", err)
		return ack
	}

	b.received.Add(1)
	ack.OK = true
	return ack
}

func (b *Bridge) writeTimeout() time.Duration {
	if d := b.cfg.WriteTimeout.Duration(); d > 0 {
		return d
	}
	return 5 * time.Second
}

var _ pkgif.Source = (*Bridge)(nil)

// Package wsbridge 通过 WebSocket 接收远端宿主推送的事件
//
// 远端宿主把事件编码为信封（Envelope）发送到 Bridge，Bridge 按类别名解码，
// 交给进程内事件源触发，再经注入路径进入注册表的本地分发。每条信封回复一个
// 确认（Ack）。Bridge 本身实现 interfaces.Source，注册与异步声明委托给
// 底层事件源。
//
// # 信封格式
//
//	{"id": "…", "category": "player.join", "payload": {"name": "alice"}}
//
// # 使用示例
//
//	codec := wsbridge.NewCodec()
//	_ = wsbridge.RegisterType[*PlayerJoin](codec, "player.join")
//
//	bridge := wsbridge.New(cfg.Bridge, src, codec)
//	http.Handle("/events", bridge.Handler())
//
//	client, _ := wsbridge.Dial(ctx, "ws://127.0.0.1:7654/events", codec)
//	defer client.Close()
//	_ = client.Publish(ctx, &PlayerJoin{Name: "alice"})
package wsbridge

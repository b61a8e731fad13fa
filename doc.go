// Package eventhub 提供进程内类型化事件分发
//
// eventhub 由一个中心注册表（Registry）把事件投递给所有感兴趣的处理器：
// 按优先级排序、支持协作式取消、处理器之间失败隔离，并可以把注册表
// 一次性注入宿主的外部事件源，让宿主原生事件进入本地分发。
//
// # 核心概念
//
//   - Hub: 入口，组装注册表、进程内事件源和可选的 WebSocket 桥接
//   - Registry: 订阅的唯一来源，Subscribe / Notify / UnsubscribeAll
//   - Listener: 监听者，通过 EventHandlers 列出自己的处理器
//   - Reference: 流式构建单个订阅，支持过滤和自动过期
//
// # 快速开始
//
//	hub, err := eventhub.Start(ctx,
//	    eventhub.WithPreset(config.PresetDefault),
//	    eventhub.WithEventType[*PlayerJoin]("player.join"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer hub.Close()
//
//	// 监听者
//	_, err = hub.Subscribe(listener)
//
//	// 流式订阅：只处理前 3 个 VIP 玩家
//	_, err = eventhub.Listen[*PlayerJoin](hub).
//	    Filter(func(e *PlayerJoin) bool { return e.VIP }).
//	    ExpireAfterCalls(3).
//	    Handler(welcome).
//	    Bind(nil)
//
//	// 本地分发
//	err = hub.Notify(&PlayerJoin{Name: "alice"})
//
//	// 经宿主事件源触发（注入的类别会进入注册表）
//	err = hub.Fire(ctx, &PlayerJoin{Name: "bob"})
//
// # 文件组织
//
//	eventhub/
//	├── hub.go        # Hub 结构、New/Start、生命周期
//	├── api.go        # 注册表 API 的包级别名和泛型入口
//	├── fx.go         # Fx 应用组装
//	├── options.go    # Option 函数
//	├── presets.go    # 预设配置
//	├── version.go    # 版本信息
//	└── errors.go     # 公共错误
//
// # 诊断
//
// WithIntrospect 启用本地 HTTP 自省服务（订阅快照、最近失败、/metrics、pprof）。
package eventhub

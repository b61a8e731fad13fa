// Package eventbus 实现进程内类型化事件注册表
//
// 注册表按事件类别（事件值的 Go 类型）维护订阅者列表，
// 按优先级顺序把事件分发给所有感兴趣的处理器，支持：
//   - 协作式取消（types.Cancellable）
//   - 每个处理器独立的失败隔离（panic 也会被恢复）
//   - 首次订阅时向外部事件源注入（桥接）
//   - 流式单订阅注册：过滤、按时间/次数/条件过期
//
// # 快速开始
//
//	reg := eventbus.NewRegistry()
//	reg.Bind(host)
//
//	// 发现路径：监听者显式列出处理器
//	refs, err := reg.Subscribe(pkgif.ListenerFunc(func() []types.Binding {
//	    return []types.Binding{
//	        eventbus.On(onJoin, eventbus.WithPriority(types.PriorityLow)),
//	    }
//	}))
//
//	// 流式路径
//	ref, err := eventbus.Listen[*PlayerJoin](reg).
//	    Filter(func(e *PlayerJoin) bool { return e.Name != "" }).
//	    ExpireAfterCalls(3).
//	    Handler(func(e *PlayerJoin) error { return nil }).
//	    Bind(host)
//
//	// 分发
//	_ = reg.Notify(&PlayerJoin{Name: "alice"})
//
// # 并发安全
//
// 订阅者列表有两种协调策略，在类别首次出现时选定：
//   - 同步类别：写时复制，读取快照无需加锁
//   - 异步类别：读写锁保护 读取-排序-替换 过程
//
// 分发总是基于开始时的排序快照；分发过程中新增的订阅在下一次分发可见。
//
// # Fx 模块
//
//	app := fx.New(
//	    eventbus.Module(),
//	    fx.Invoke(func(reg pkgif.Registry) { ... }),
//	)
package eventbus

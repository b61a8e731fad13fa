// Package source 实现进程内外部事件源
//
// Source 是宿主侧的原生事件机制。注册表通过 Register 将自己注入为某个类别的
// 监听者，宿主通过 Fire 触发事件：
//
//   - 同步类别：在调用 Fire 的协程中按桥接优先级依次调用监听者
//   - 异步类别：事件进入有界队列，由工作协程池投递，可选限速
//
// # 使用示例
//
//	src := source.New(config.DefaultSourceConfig())
//	src.DeclareAsync(types.CategoryFor[*ChunkLoaded]())
//	if err := src.Start(); err != nil {
//	    return err
//	}
//	defer src.Close()
//
//	reg := eventbus.NewRegistry().Bind(&interfaces.StaticHost{HostName: "game", EventSource: src})
//	_ = src.Fire(ctx, &ChunkLoaded{X: 1, Z: 2})
package source

// Package introspect 提供本地自省 HTTP 服务
//
// 该服务运行在本地端口，提供 JSON 格式的诊断信息，用于调试和监控。
// 默认绑定到 127.0.0.1，不暴露到网络。
//
// # 端点
//
//	GET /debug/introspect            - 完整诊断报告 (JSON)
//	GET /debug/introspect/categories - 各类别的订阅者，按分发顺序
//	GET /debug/introspect/failures   - 最近的投递失败
//	GET /debug/introspect/runtime    - 运行时信息
//	GET /metrics                     - Prometheus 指标
//	GET /debug/pprof/*               - Go pprof 端点
//	GET /health                      - 健康检查
//
// # 使用示例
//
//	server := introspect.New(introspect.Config{
//	    Addr:     "127.0.0.1:6060",
//	    Registry: registry,
//	})
//	server.Start(ctx)
//	defer server.Stop()
//
// 通过 config.Diagnostics.EnableIntrospect 配置启用。
package introspect

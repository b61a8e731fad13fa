// Package types 定义 go-eventhub 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - category.go - Category 事件类别（基于运行时类型）
//   - enums.go    - Priority 处理优先级
//   - events.go   - Cancellable、Handler、BaseEvent、HandlerMeta
//   - errors.go   - 公共错误定义
//
// # 事件类别
//
// 事件类别由事件值的动态类型决定：
//
//	type PlayerJoin struct {
//	    types.BaseEvent
//	    Name string
//	}
//
//	cat := types.CategoryFor[*PlayerJoin]()
//	cat == types.CategoryOf(&PlayerJoin{}) // true
//
// 同一个 Go 类型的值和指针属于不同类别。需要取消语义的事件
// 应当以指针形式发布，使处理器对 SetCancelled 的修改对后续处理器可见。
package types

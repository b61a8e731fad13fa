// Package interfaces 定义 go-eventhub 的公共接口
//
// 一个接口文件对应一个实现目录：
//   - eventbus.go - 事件注册表（internal/core/eventbus）
//   - source.go   - 外部事件源与宿主（internal/core/source, internal/core/source/wsbridge）
//
// 具体实现位于 internal/ 下，通过 fx 模块以接口形式注入。
package interfaces

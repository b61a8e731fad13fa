// Package interfaces 定义 go-eventhub 公共接口
//
// 本文件定义外部事件源接口，即注册表注入（桥接）所需的唯一宿主能力。
package interfaces

import (
	"github.com/dep2p/go-eventhub/pkg/types"
)

// Source 外部事件源
//
// 外部事件源在自己的线程上产生原始事件。注册表通过 Register 将自己
// 注册为某个类别的通用监听者，之后每个事件都会回调一次 fn。
type Source interface {
	// Register 注册类别监听者
	//
	// priority 决定同一事件源内多个监听者的先后，async 声明投递模式。
	Register(category types.Category, priority types.Priority, async bool, fn func(event any)) (Registration, error)

	// IsAsync 报告该类别是否由异步线程投递
	IsAsync(category types.Category) bool
}

// Registration 事件源上的一次注册
type Registration interface {
	// Close 注销监听者，可重复调用
	Close() error
}

// Host 宿主上下文
//
// 注册表绑定到宿主后，使用宿主名称标注诊断日志，并通过宿主的事件源完成注入。
type Host interface {
	// Name 宿主名称
	Name() string

	// Source 宿主的外部事件源，可以为 nil
	Source() Source
}

// StaticHost 固定名称和事件源的 Host 实现
type StaticHost struct {
	HostName    string
	EventSource Source
}

// Name 实现 Host 接口
func (h *StaticHost) Name() string {
	return h.HostName
}

// Source 实现 Host 接口
func (h *StaticHost) Source() Source {
	return h.EventSource
}

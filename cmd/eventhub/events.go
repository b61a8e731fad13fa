package main

import (
	"fmt"

	eventhub "github.com/dep2p/go-eventhub"
)

// ============================================================================
//                              内置事件类型
// ============================================================================

// Message 普通消息，按值投递
type Message struct {
	Topic string `json:"topic"`
	Body  string `json:"body"`
}

// Alert 告警，以指针投递，可被处理器取消
type Alert struct {
	eventhub.BaseEvent
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Heartbeat 远端宿主心跳，由异步工作池投递
type Heartbeat struct {
	Host string `json:"host"`
	Seq  uint64 `json:"seq"`
}

// 线上类别名
const (
	categoryMessage   = "message"
	categoryAlert     = "alert"
	categoryHeartbeat = "heartbeat"
)

// eventOptions 注册内置事件类型
func eventOptions() []eventhub.Option {
	return []eventhub.Option{
		eventhub.WithEventType[Message](categoryMessage),
		eventhub.WithEventType[*Alert](categoryAlert),
		eventhub.WithEventType[Heartbeat](categoryHeartbeat),
		eventhub.WithAsyncEvent[Heartbeat](),
	}
}

// ============================================================================
//                              打印监听者
// ============================================================================

// printer 把收到的事件打印到终端
//
// 静音告警（level=mute）在最低优先级被取消，后续的打印处理器不会看到它。
type printer struct {
	out func(format string, args ...any)
}

// EventHandlers 实现 eventhub.Listener
func (p *printer) EventHandlers() []eventhub.Binding {
	return []eventhub.Binding{
		eventhub.On(p.onMessage, eventhub.Inject(eventhub.PriorityNormal)),
		eventhub.On(p.muteAlert, eventhub.WithPriority(eventhub.PriorityLowest), eventhub.Inject(eventhub.PriorityNormal)),
		eventhub.On(p.onAlert),
		eventhub.On(p.onHeartbeat, eventhub.Inject(eventhub.PriorityNormal)),
	}
}

func (p *printer) onMessage(m Message) error {
	p.out("%s [%s] %s\n", categoryTint(categoryMessage), m.Topic, m.Body)
	return nil
}

func (p *printer) muteAlert(a *Alert) error {
	if a.Level == "mute" {
		a.SetCancelled(true)
	}
	return nil
}

func (p *printer) onAlert(a *Alert) error {
	level := a.Level
	if level == "error" {
		level = errorColor(level)
	} else {
		level = warnColor(level)
	}
	p.out("%s %s %s %s\n", categoryTint(categoryAlert), dimColor(a.Time.Format("15:04:05")), level, a.Text)
	return nil
}

func (p *printer) onHeartbeat(h Heartbeat) error {
	if h.Host == "" {
		return fmt.Errorf("heartbeat without host (seq %d)", h.Seq)
	}
	p.out("%s %s #%d\n", categoryTint(categoryHeartbeat), h.Host, h.Seq)
	return nil
}

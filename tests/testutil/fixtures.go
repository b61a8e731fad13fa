// Package testutil 提供测试辅助工具
package testutil

import (
	"sync"

	"github.com/dep2p/go-eventhub/pkg/types"
)

// 测试事件固件
//
// PlayerJoin 以指针形式发布，可取消；ChatMessage 以值形式发布，不可取消。

// PlayerJoin 玩家加入事件
type PlayerJoin struct {
	types.BaseEvent
	Name string `json:"name"`
}

// ChatMessage 聊天消息事件
type ChatMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
}

// Recorder 记录处理器调用顺序，并发安全
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// Record 追加一条记录
func (r *Recorder) Record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

// Calls 返回记录的副本
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count 返回 name 出现的次数
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Reset 清空记录
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

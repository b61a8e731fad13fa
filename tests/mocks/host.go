package mocks

import (
	"sync"

	"github.com/dep2p/go-eventhub/pkg/interfaces"
)

// MockHost 模拟 interfaces.Host
type MockHost struct {
	mu sync.Mutex

	NameValue   string
	SourceValue interfaces.Source

	// 可覆盖的方法
	SourceFunc func() interfaces.Source

	// 调用记录
	SourceCalls int
}

// NewMockHost 创建 MockHost，src 可以为 nil
func NewMockHost(name string, src interfaces.Source) *MockHost {
	return &MockHost{NameValue: name, SourceValue: src}
}

// Name 实现 interfaces.Host
func (h *MockHost) Name() string {
	return h.NameValue
}

// Source 实现 interfaces.Host
func (h *MockHost) Source() interfaces.Source {
	h.mu.Lock()
	h.SourceCalls++
	h.mu.Unlock()

	if h.SourceFunc != nil {
		return h.SourceFunc()
	}
	return h.SourceValue
}

// nopRegistration 空注册
type nopRegistration struct{}

func (nopRegistration) Close() error { return nil }

// NopRegistration 返回 Close 总是成功的注册
func NopRegistration() interfaces.Registration {
	return nopRegistration{}
}

var _ interfaces.Host = (*MockHost)(nil)

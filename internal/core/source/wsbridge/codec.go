package wsbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dep2p/go-eventhub/pkg/types"
)

var (
	// ErrEmptyName 类别名为空
	ErrEmptyName = errors.New("empty category name")

	// ErrDuplicateName 类别名或类型已注册
	ErrDuplicateName = errors.New("category already registered")
)

// Envelope 线上事件信封
type Envelope struct {
	ID       string          `json:"id,omitempty"`
	Category string          `json:"category"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Ack 信封确认
type Ack struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// stamper 由嵌入 types.BaseEvent 的指针事件实现
type stamper interface {
	Stamp()
}

// ============================================================================
// Codec 类别名与 Go 类型的映射
// ============================================================================

// Codec 类别编解码器，并发安全
type Codec struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
	byType map[reflect.Type]string
}

// NewCodec 创建编解码器
func NewCodec() *Codec {
	return &Codec{
		byName: make(map[string]reflect.Type),
		byType: make(map[reflect.Type]string),
	}
}

// RegisterType 以 name 注册事件类型 E
func RegisterType[E any](c *Codec, name string) error {
	return c.register(name, types.CategoryFor[E]())
}

func (c *Codec) register(name string, cat types.Category) error {
	if name == "" {
		return ErrEmptyName
	}
	if !cat.Valid() {
		return fmt.Errorf("%w: %s", types.ErrInvalidCategory, cat)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	if prev, ok := c.byType[cat.Type()]; ok {
		return fmt.Errorf("%w: %s as %s", ErrDuplicateName, cat, prev)
	}
	c.byName[name] = cat.Type()
	c.byType[cat.Type()] = name
	return nil
}

// Names 已注册的类别名，按字典序
func (c *Codec) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Category 返回类别名对应的类别
func (c *Codec) Category(name string) (types.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byName[name]
	if !ok {
		return types.Category{}, false
	}
	return types.CategoryFromType(t), true
}

// Encode 编码事件，ID 自动生成
func (c *Codec) Encode(event any) (Envelope, error) {
	if event == nil {
		return Envelope{}, types.ErrNilEvent
	}

	c.mu.RLock()
	name, ok := c.byType[reflect.TypeOf(event)]
	c.mu.RUnlock()
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %T", types.ErrUnknownCategory, event)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", name, err)
	}
	return Envelope{ID: uuid.NewString(), Category: name, Payload: payload}, nil
}

// Decode 解码信封为已注册类型的事件值
//
// 指针类型解码为新分配的指针，嵌入 BaseEvent 的事件补齐时间戳。
func (c *Codec) Decode(env Envelope) (any, error) {
	c.mu.RLock()
	t, ok := c.byName[env.Category]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownCategory, env.Category)
	}

	var ptr reflect.Value
	if t.Kind() == reflect.Pointer {
		ptr = reflect.New(t.Elem())
	} else {
		ptr = reflect.New(t)
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, ptr.Interface()); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Category, err)
		}
	}

	if s, ok := ptr.Interface().(stamper); ok {
		s.Stamp()
	}
	if t.Kind() == reflect.Pointer {
		return ptr.Interface(), nil
	}
	return ptr.Elem().Interface(), nil
}

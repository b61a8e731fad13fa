package types

import (
	"reflect"
)

// ============================================================================
//                              Category - 事件类别
// ============================================================================

// Category 事件类别
//
// 每个类别对应一个具体的 Go 类型。零值表示无效类别。
type Category struct {
	typ reflect.Type
}

// CategoryOf 返回事件值所属的类别
func CategoryOf(event any) Category {
	return Category{typ: reflect.TypeOf(event)}
}

// CategoryFor 返回类型参数 E 对应的类别
func CategoryFor[E any]() Category {
	return Category{typ: reflect.TypeFor[E]()}
}

// CategoryFromType 从 reflect.Type 创建类别
func CategoryFromType(t reflect.Type) Category {
	return Category{typ: t}
}

// Type 返回底层类型
func (c Category) Type() reflect.Type {
	return c.typ
}

// IsZero 是否为零值
func (c Category) IsZero() bool {
	return c.typ == nil
}

// Valid 检查类别是否可以用于订阅
//
// 接口、函数和通道类型不能作为事件类别：
// 前两者无法由 CategoryOf 得到，通道事件没有意义。
func (c Category) Valid() bool {
	if c.typ == nil {
		return false
	}
	switch c.typ.Kind() {
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Invalid:
		return false
	}
	return true
}

// Cancellable 报告该类别的事件是否实现了 Cancellable
func (c Category) Cancellable() bool {
	if c.typ == nil {
		return false
	}
	return c.typ.Implements(cancellableType)
}

// String 返回类别名称
func (c Category) String() string {
	if c.typ == nil {
		return "<nil>"
	}
	return c.typ.String()
}

var cancellableType = reflect.TypeFor[Cancellable]()

package chain

import (
	"errors"
	"reflect"
)

// ErrInvalidArgument 在构造时收到空 payload 或空 Strategy 时返回
// 注意：链断裂不是错误，它由 IsConsistent 返回 false 表示
var ErrInvalidArgument = errors.New("chain: invalid argument")

// isAbsent 判断 payload 是否为“空值”
// 空链节点没有可验证的内容，所以 nil 指针 / nil 接口 / nil slice / nil map 等一律拒绝
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

package types

import "fmt"

// Option 是一个带 present/absent 标记的值
// 用来表达“没有上一个哈希”，而不是保留某个哈希常量 (比如全零) 当哨兵
// 零值就是 None
type Option[T comparable] struct {
	value T
	ok    bool
}

func Some[T comparable](v T) Option[T] { return Option[T]{value: v, ok: true} }

func None[T comparable]() Option[T] { return Option[T]{} }

// Get 返回值以及是否存在
func (o Option[T]) Get() (T, bool) { return o.value, o.ok }

func (o Option[T]) IsSome() bool { return o.ok }
func (o Option[T]) IsNone() bool { return !o.ok }

// OrElse 在 None 时返回 fallback
func (o Option[T]) OrElse(fallback T) T {
	if o.ok {
		return o.value
	}
	return fallback
}

// Equal 两个 None 相等；Some 之间比较值；Some 与 None 永不相等
func (o Option[T]) Equal(other Option[T]) bool {
	if o.ok != other.ok {
		return false
	}
	return !o.ok || o.value == other.value
}

func (o Option[T]) String() string {
	if !o.ok {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", o.value)
}

package chain

import (
	"iter"
	"reflect"
	"slices"
)

// Chain 是可追加、可清空的哈希链 (Builder)
// 内部是一个只追加的 slice：节点永远不会被原地修改或从中间删除
// 非并发安全，调用者需要自行串行化 Add / Clear
type Chain[T any, H comparable] struct {
	strategy Strategy[T, H]
	equal    func(a, b T) bool
	links    []Link[T, H]
}

// Option 配置 Chain
type Option[T any] func(*options[T])

type options[T any] struct {
	equal    func(a, b T) bool
	capacity int
}

// WithEqual 指定 Contains 使用的值相等判断 (默认 reflect.DeepEqual)
func WithEqual[T any](equal func(a, b T) bool) Option[T] {
	return func(o *options[T]) { o.equal = equal }
}

// WithCapacity 预分配节点容量
func WithCapacity[T any](n int) Option[T] {
	return func(o *options[T]) { o.capacity = n }
}

// New 创建一条空链
func New[T any, H comparable](s Strategy[T, H], opts ...Option[T]) (*Chain[T, H], error) {
	if s == nil {
		return nil, ErrInvalidArgument
	}
	o := options[T]{
		equal: func(a, b T) bool { return reflect.DeepEqual(a, b) },
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.equal == nil {
		return nil, ErrInvalidArgument
	}
	return &Chain[T, H]{
		strategy: s,
		equal:    o.equal,
		links:    make([]Link[T, H], 0, max(o.capacity, 0)),
	}, nil
}

// Next 返回 Add(payload) 将会追加的节点，但不修改链
func (c *Chain[T, H]) Next(payload T) (Link[T, H], error) {
	if last, ok := c.Last(); ok {
		return Successor(last, payload, c.strategy)
	}
	return Genesis(payload, c.strategy)
}

// Add 追加一个节点
// 空链时生成 genesis，否则 prev 指向当前最后一个节点的哈希
func (c *Chain[T, H]) Add(payload T) error {
	link, err := c.Next(payload)
	if err != nil {
		return err
	}
	c.links = append(c.links, link)
	return nil
}

// Clear 丢弃所有节点，下一次 Add 会重新生成 genesis
func (c *Chain[T, H]) Clear() {
	clear(c.links)
	c.links = c.links[:0]
}

// Contains 按值 (不是按哈希) 线性查找 payload
func (c *Chain[T, H]) Contains(payload T) bool {
	for _, l := range c.links {
		if c.equal(l.payload, payload) {
			return true
		}
	}
	return false
}

func (c *Chain[T, H]) Count() int { return len(c.links) }

// Last 返回最后一个节点
func (c *Chain[T, H]) Last() (Link[T, H], bool) {
	if len(c.links) == 0 {
		var zero Link[T, H]
		return zero, false
	}
	return c.links[len(c.links)-1], true
}

// All 按链顺序产出 payload
// 哈希等内部信息不通过这里暴露，需要时使用 Links
func (c *Chain[T, H]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, l := range c.links {
			if !yield(l.payload) {
				return
			}
		}
	}
}

// Links 按链顺序产出节点，供一致性检查使用
func (c *Chain[T, H]) Links() iter.Seq[Link[T, H]] {
	return slices.Values(c.links)
}

// Snapshot 返回节点的副本
func (c *Chain[T, H]) Snapshot() []Link[T, H] {
	return slices.Clone(c.links)
}

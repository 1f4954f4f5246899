package chain

import (
	"fmt"

	"linkchain/pkg/types"
)

// Link 是链上的一个位置
// 构造完成后 payload / prev / hash 都不会再变化
type Link[T any, H comparable] struct {
	payload T
	prev    types.Option[H]
	hash    H
}

// Genesis 构造链的第一个节点 (prev = None)
func Genesis[T any, H comparable](payload T, s Strategy[T, H]) (Link[T, H], error) {
	return newLink(payload, types.None[H](), s)
}

// Successor 构造 prev 之后的节点
func Successor[T any, H comparable](prev Link[T, H], payload T, s Strategy[T, H]) (Link[T, H], error) {
	return newLink(payload, types.Some(prev.hash), s)
}

// Restore 用已存储的字段还原一个节点，不做任何重新计算
// 还原出来的序列是否可信，由 IsConsistent / VerifyDeep 判定
func Restore[T any, H comparable](payload T, prev types.Option[H], hash H) Link[T, H] {
	return Link[T, H]{payload: payload, prev: prev, hash: hash}
}

func newLink[T any, H comparable](payload T, prev types.Option[H], s Strategy[T, H]) (Link[T, H], error) {
	var zero Link[T, H]
	if s == nil {
		return zero, fmt.Errorf("%w: nil hashing strategy", ErrInvalidArgument)
	}
	if isAbsent(payload) {
		return zero, fmt.Errorf("%w: nil payload", ErrInvalidArgument)
	}
	return Link[T, H]{
		payload: payload,
		prev:    prev,
		hash:    s.Link(prev, s.Sum(payload)),
	}, nil
}

func (l Link[T, H]) Payload() T            { return l.payload }
func (l Link[T, H]) Prev() types.Option[H] { return l.prev }
func (l Link[T, H]) Hash() H               { return l.hash }
func (l Link[T, H]) IsGenesis() bool       { return l.prev.IsNone() }

package chain

import "linkchain/pkg/types"

// Strategy 是调用者提供的哈希策略
// 它必须是确定性的纯函数：相同输入永远得到相同输出，否则链的自检没有意义
type Strategy[T any, H comparable] interface {
	// Sum 计算 payload 自身的哈希
	Sum(payload T) H

	// Link 把上一个节点的哈希 (genesis 时为 None) 与 payload 哈希组合成节点哈希
	Link(prev types.Option[H], sum H) H
}

type funcStrategy[T any, H comparable] struct {
	sum  func(T) H
	link func(types.Option[H], H) H
}

func (f funcStrategy[T, H]) Sum(payload T) H                    { return f.sum(payload) }
func (f funcStrategy[T, H]) Link(prev types.Option[H], sum H) H { return f.link(prev, sum) }

// StrategyFunc 把两个函数适配成 Strategy
// 任一函数为 nil 时返回 nil，后续构造会以 ErrInvalidArgument 失败
func StrategyFunc[T any, H comparable](sum func(T) H, link func(types.Option[H], H) H) Strategy[T, H] {
	if sum == nil || link == nil {
		return nil
	}
	return funcStrategy[T, H]{sum: sum, link: link}
}

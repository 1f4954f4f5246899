package chain

import (
	"iter"

	"linkchain/pkg/types"
)

// Report 是一致性检查的详细结果
type Report struct {
	Consistent bool
	// Length 是检查过的节点数；不一致时停在断点处
	Length int
	// BrokenAt 是第一个断裂节点的位置，一致时为 -1
	BrokenAt int
}

// Check 单次线性遍历节点序列，只比较存储的 prev 与前一个节点存储的 hash
// 不会根据 payload 重新计算哈希 (那是 VerifyDeep)
func Check[T any, H comparable](links iter.Seq[Link[T, H]]) Report {
	r := Report{Consistent: true, BrokenAt: -1}
	if links == nil {
		return r
	}
	expected := types.None[H]()
	for l := range links {
		if !l.prev.Equal(expected) {
			r.Consistent = false
			r.BrokenAt = r.Length
			return r
		}
		expected = types.Some(l.hash)
		r.Length++
	}
	return r
}

// IsConsistent 报告链是否完整
// 空序列视为一致；第一个节点必须没有 prev；之后每个节点的 prev 必须等于前一个节点的 hash
func IsConsistent[T any, H comparable](links iter.Seq[Link[T, H]]) bool {
	return Check(links).Consistent
}

// VerifyDeep 在链接检查之外，还用 Strategy 重新计算每个节点的哈希
// 能发现 payload 被替换但 hash 未变的篡改
func VerifyDeep[T any, H comparable](links iter.Seq[Link[T, H]], s Strategy[T, H]) bool {
	if s == nil {
		return false
	}
	return CheckDeep(links, s).Consistent
}

// CheckDeep 是 VerifyDeep 的详细版本
// Strategy 为 nil 时无法验证，报告在位置 0 断裂
func CheckDeep[T any, H comparable](links iter.Seq[Link[T, H]], s Strategy[T, H]) Report {
	if s == nil {
		return Report{BrokenAt: 0}
	}
	r := Report{Consistent: true, BrokenAt: -1}
	if links == nil {
		return r
	}
	expected := types.None[H]()
	for l := range links {
		if !l.prev.Equal(expected) || isAbsent(l.payload) || s.Link(l.prev, s.Sum(l.payload)) != l.hash {
			r.Consistent = false
			r.BrokenAt = r.Length
			return r
		}
		expected = types.Some(l.hash)
		r.Length++
	}
	return r
}

package chain

import (
	"fmt"
	"iter"

	"linkchain/pkg/types"
)

// Stream 是惰性的链工厂：每次拉取只计算一个节点
// 只能单向遍历一次，不可重启
//
// Stream 内部用 iter.Pull 持有上游序列的协程。Next 返回 false 或 All 提前
// break 时会自动释放；其他情况下调用方必须 Close，否则该协程会一直挂起。
// 常见写法：
//
//	s, err := chain.NewStream(payloads, strategy)
//	if err != nil { ... }
//	defer s.Close()
type Stream[T any, H comparable] struct {
	strategy Strategy[T, H]
	next     func() (T, bool)
	stop     func()

	prev types.Option[H]
	cur  Link[T, H]
	err  error
	done bool
}

// NewStream 基于输入序列创建 Stream
// Strategy 或输入序列为空时立即失败，不会推迟到第一次拉取
// 没有消费到结束的 Stream 必须 Close，上游序列的 defer 也是在此时执行
func NewStream[T any, H comparable](payloads iter.Seq[T], s Strategy[T, H]) (*Stream[T, H], error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil hashing strategy", ErrInvalidArgument)
	}
	if payloads == nil {
		return nil, fmt.Errorf("%w: nil payload sequence", ErrInvalidArgument)
	}
	next, stop := iter.Pull(payloads)
	return &Stream[T, H]{
		strategy: s,
		next:     next,
		stop:     stop,
	}, nil
}

// Next 计算下一个节点，返回 false 表示结束或出错 (见 Err)
func (s *Stream[T, H]) Next() bool {
	if s.done {
		return false
	}
	payload, ok := s.next()
	if !ok {
		s.Close()
		return false
	}
	link, err := newLink(payload, s.prev, s.strategy)
	if err != nil {
		s.err = err
		s.Close()
		return false
	}
	s.cur = link
	s.prev = types.Some(link.hash)
	return true
}

// Link 返回最近一次 Next 产出的节点
func (s *Stream[T, H]) Link() Link[T, H] { return s.cur }

// Err 返回导致 Stream 提前结束的错误
func (s *Stream[T, H]) Err() error { return s.err }

// Close 停止拉取上游序列，可重复调用
func (s *Stream[T, H]) Close() {
	if s.done {
		return
	}
	s.done = true
	s.stop()
}

// All 以 iter.Seq 的形式消费 Stream
// 提前 break 会关闭 Stream，剩余的输入不会再被计算
func (s *Stream[T, H]) All() iter.Seq[Link[T, H]] {
	return func(yield func(Link[T, H]) bool) {
		for s.Next() {
			if !yield(s.cur) {
				s.Close()
				return
			}
		}
	}
}

// Collect 把 Stream 全部物化为 slice
func Collect[T any, H comparable](s *Stream[T, H]) ([]Link[T, H], error) {
	var links []Link[T, H]
	for s.Next() {
		links = append(links, s.cur)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return links, nil
}

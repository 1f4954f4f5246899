package chain

import (
	"fmt"
	"hash/fnv"
	"testing"

	"linkchain/pkg/types"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// 辅助工具
// -----------------------------------------------------------------------------

// identityStrategy: payload 自身就是它的哈希，prev 以 Option 的字符串形式拼接
// None 渲染为 "None"，与任何 Some(...) 都不同
func identityStrategy() Strategy[string, string] {
	return StrategyFunc(
		func(p string) string { return p },
		func(prev types.Option[string], sum string) string {
			return fmt.Sprintf("%s>%s", prev, sum)
		},
	)
}

// fnvStrategy 针对 int payload，输出 uint64 哈希
func fnvStrategy() Strategy[int, uint64] {
	return StrategyFunc(
		func(p int) uint64 {
			h := fnv.New64a()
			fmt.Fprintf(h, "%d", p)
			return h.Sum64()
		},
		func(prev types.Option[uint64], sum uint64) uint64 {
			h := fnv.New64a()
			if v, ok := prev.Get(); ok {
				fmt.Fprintf(h, "1:%d:", v)
			} else {
				fmt.Fprint(h, "0:")
			}
			fmt.Fprintf(h, "%d", sum)
			return h.Sum64()
		},
	)
}

// mustNewChain 创建 Chain 并依次 Add，失败直接终止测试
func mustNewChain[T any, H comparable](t *testing.T, s Strategy[T, H], payloads ...T) *Chain[T, H] {
	t.Helper()
	c, err := New(s)
	require.NoError(t, err)
	for _, p := range payloads {
		require.NoError(t, c.Add(p))
	}
	return c
}

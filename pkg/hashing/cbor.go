package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"linkchain/pkg/chain"
	"linkchain/pkg/codec"
	"linkchain/pkg/types"
)

// cborStrategy 对任意结构化 payload 做规范 CBOR 编码后计算 SHA-256
// 相同的值 (包括 map key 顺序不同的 map) 得到相同的哈希
type cborStrategy[T any] struct {
	inner framed
}

// CBOR 返回适用于任意 T 的策略
// T 必须可以被 CBOR 编码 (不能是 chan / func)，否则 Sum 会 panic
func CBOR[T any]() chain.Strategy[T, types.Hash] {
	return cborStrategy[T]{inner: framed{newHash: sha256.New}}
}

func (c cborStrategy[T]) Sum(payload T) types.Hash {
	data, err := codec.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("hashing: payload of type %T is not CBOR encodable: %v", payload, err))
	}
	sum := sha256.Sum256(append([]byte{tagLeaf}, data...))
	return types.Hash(hex.EncodeToString(sum[:]))
}

func (c cborStrategy[T]) Link(prev types.Option[types.Hash], sum types.Hash) types.Hash {
	return c.inner.Link(prev, sum)
}

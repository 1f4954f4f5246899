// Package hashing 提供 chain.Strategy 的具体实现
//
// 所有 []byte 策略使用相同的分帧：
//
//	Sum  = H(0x00 || payload)
//	Link = H(0x02 || 0x00 || sum)          // genesis
//	Link = H(0x02 || 0x01 || prev || sum)  // 其余节点
//
// 前缀字节做域分离，genesis 的 “无 prev” 用独立的标记字节表示，不会与任何真实哈希冲突
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"

	"linkchain/pkg/chain"
	"linkchain/pkg/types"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/blake3"
)

const (
	tagLeaf byte = 0x00
	tagLink byte = 0x02

	tagAbsent  byte = 0x00
	tagPresent byte = 0x01
)

// 算法名称 (配置项 hash.algorithm 的取值)
const (
	AlgSHA256 = "sha256"
	AlgBLAKE3 = "blake3"
	AlgXXHash = "xxhash"
)

// framed 用任意 hash.Hash 构造实现上面的分帧
type framed struct {
	newHash func() hash.Hash
}

func (f framed) Sum(payload []byte) types.Hash {
	h := f.newHash()
	h.Write([]byte{tagLeaf})
	h.Write(payload)
	return types.Hash(hex.EncodeToString(h.Sum(nil)))
}

func (f framed) Link(prev types.Option[types.Hash], sum types.Hash) types.Hash {
	h := f.newHash()
	h.Write([]byte{tagLink})
	if p, ok := prev.Get(); ok {
		h.Write([]byte{tagPresent})
		h.Write([]byte(p))
	} else {
		h.Write([]byte{tagAbsent})
	}
	h.Write([]byte(sum))
	return types.Hash(hex.EncodeToString(h.Sum(nil)))
}

// SHA256 是默认的强哈希策略
func SHA256() chain.Strategy[[]byte, types.Hash] {
	return framed{newHash: sha256.New}
}

// BLAKE3 使用 256 位 BLAKE3
func BLAKE3() chain.Strategy[[]byte, types.Hash] {
	return framed{newHash: func() hash.Hash { return blake3.New(32, nil) }}
}

// XXHash 是非加密的 64 位哈希
// 只提供顺序完整性，不能防御有意的篡改
func XXHash() chain.Strategy[[]byte, types.Hash] {
	return framed{newHash: func() hash.Hash { return xxhash.New() }}
}

var registry = map[string]func() chain.Strategy[[]byte, types.Hash]{
	AlgSHA256: SHA256,
	AlgBLAKE3: BLAKE3,
	AlgXXHash: XXHash,
}

// Lookup 根据名称返回策略
func Lookup(name string) (chain.Strategy[[]byte, types.Hash], error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unsupported hash algorithm %q (supported: %v)", name, Names())
	}
	return ctor(), nil
}

// Names 返回所有支持的算法名，已排序
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsCryptographic 报告算法是否可以提供防篡改能力
func IsCryptographic(name string) bool {
	return name == AlgSHA256 || name == AlgBLAKE3
}

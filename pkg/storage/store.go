package storage

import (
	"context"
	"errors"
	"io"

	"linkchain/pkg/types"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAmbiguousHash = errors.New("ambiguous hash prefix")
)

// Object 是可以按哈希寻址存储的对象 (codec.Record 实现了它)
type Object interface {
	// ID 返回对象的哈希 (对链节点而言就是节点哈希)
	ID() types.Hash

	// Bytes 返回对象的序列化数据
	Bytes() []byte
}

// Store defines the interface for a record storage backend.
// Implementations can be local disk or S3 compatible object storage,
// optionally decorated with a Redis existence cache.
type Store interface {
	// Put 将一个对象持久化，已存在时直接返回 (内容寻址天然幂等)
	Put(ctx context.Context, obj Object) error

	// Get 根据 Hash 读取原始数据
	Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error)

	// Has 检查对象是否存在
	Has(ctx context.Context, hash types.Hash) (bool, error)

	// ExpandHash 把短哈希扩展为完整哈希
	ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error)
}

// MinPrefixLen 是 ExpandHash 接受的最短前缀
const MinPrefixLen = 4

// ReadAll 是 Get + io.ReadAll 的便捷封装
func ReadAll(ctx context.Context, s Store, hash types.Hash) ([]byte, error) {
	reader, err := s.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

package codec

import (
	"errors"
	"fmt"

	"linkchain/pkg/chain"
	"linkchain/pkg/types"
)

var ErrInvalidRecord = errors.New("invalid link record")

const TypeLink = "link"

// Record 是一个链节点的序列化形式
// 它完全由节点哈希决定，因此可以按哈希做内容寻址存储
type Record struct {
	rawBytes []byte `cbor:"-"`

	TypeVal  string `cbor:"t"`
	Position uint64 `cbor:"n"`
	Payload  []byte `cbor:"d"`

	// Prev 为 nil 表示 genesis
	Prev *Ref `cbor:"p,omitempty"`
	Hash Ref  `cbor:"h"`
}

// NewRecord 把内存中的节点封装成记录并完成序列化
func NewRecord(position uint64, link chain.Link[[]byte, types.Hash]) (*Record, error) {
	r := &Record{
		TypeVal:  TypeLink,
		Position: position,
		Payload:  link.Payload(),
		Hash:     NewRef(link.Hash()),
	}
	if prev, ok := link.Prev().Get(); ok {
		ref := NewRef(prev)
		r.Prev = &ref
	}

	data, err := Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	r.rawBytes = data
	return r, nil
}

// Decode 从字节还原记录，并做基本的结构校验
func Decode(data []byte) (*Record, error) {
	var r Record
	if err := Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if r.TypeVal != TypeLink {
		return nil, fmt.Errorf("%w: unexpected type %q", ErrInvalidRecord, r.TypeVal)
	}
	if r.Payload == nil {
		// 空 byte string 是合法 payload
		r.Payload = []byte{}
	}
	if !r.Hash.Hash.IsValid() {
		return nil, fmt.Errorf("%w: malformed hash", ErrInvalidRecord)
	}
	if (r.Position == 0) != (r.Prev == nil) {
		return nil, fmt.Errorf("%w: position %d disagrees with prev reference", ErrInvalidRecord, r.Position)
	}
	r.rawBytes = data
	return &r, nil
}

// PrevHash 返回 prev 的 Option 形式
func (r *Record) PrevHash() types.Option[types.Hash] {
	if r.Prev == nil {
		return types.None[types.Hash]()
	}
	return types.Some(r.Prev.Hash)
}

// Link 用记录中存储的字段还原节点，不重新计算哈希
func (r *Record) Link() chain.Link[[]byte, types.Hash] {
	return chain.Restore(r.Payload, r.PrevHash(), r.Hash.Hash)
}

func (r *Record) ID() types.Hash { return r.Hash.Hash }
func (r *Record) Bytes() []byte  { return r.rawBytes }
func (r *Record) Size() int64    { return int64(len(r.Payload)) }

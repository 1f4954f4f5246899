package codec

import (
	"encoding/hex"
	"fmt"

	"linkchain/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

// Ref 是对另一个节点哈希的引用
// 在 CBOR 层面，它会被序列化为 Tag 42(0x00 + HashBytes)
type Ref struct {
	Hash types.Hash
}

const (
	refTagNumber = 42
)

func NewRef(hash types.Hash) Ref {
	return Ref{Hash: hash}
}

// MarshalCBOR 实现自定义序列化逻辑
// 规范：Tag 42, Content = [0x00, byte1, byte2...]
func (r Ref) MarshalCBOR() ([]byte, error) {
	hashBytes, err := hex.DecodeString(string(r.Hash))
	if err != nil {
		return nil, fmt.Errorf("invalid hash format in ref: %w", err)
	}

	// Multibase Identity 前缀 (0x00)
	cidBytes := append([]byte{0x00}, hashBytes...)

	return em.Marshal(cbor.Tag{
		Number:  refTagNumber,
		Content: cidBytes,
	})
}

// UnmarshalCBOR 实现自定义反序列化逻辑
func (r *Ref) UnmarshalCBOR(data []byte) error {
	var tag cbor.Tag
	if err := dm.Unmarshal(data, &tag); err != nil {
		return err
	}

	if tag.Number != refTagNumber {
		return fmt.Errorf("expected tag 42 for Ref, got %d", tag.Number)
	}

	bytes, ok := tag.Content.([]byte)
	if !ok {
		return fmt.Errorf("ref content must be byte string")
	}

	if len(bytes) < 2 {
		return fmt.Errorf("invalid ref: empty content")
	}
	if bytes[0] != 0x00 {
		return fmt.Errorf("invalid ref: missing 0x00 multibase prefix")
	}

	r.Hash = types.Hash(hex.EncodeToString(bytes[1:]))
	return nil
}

package codec_test

import (
	"encoding/hex"
	"slices"
	"testing"

	"linkchain/pkg/chain"
	"linkchain/pkg/codec"
	"linkchain/pkg/hashing"
	"linkchain/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildLinks 用 SHA-256 策略构造一段链
func buildLinks(t *testing.T, payloads ...string) []chain.Link[[]byte, types.Hash] {
	t.Helper()
	c, err := chain.New(hashing.SHA256())
	require.NoError(t, err)
	for _, p := range payloads {
		require.NoError(t, c.Add([]byte(p)))
	}
	return c.Snapshot()
}

func TestRef_Marshal_Compliance(t *testing.T) {
	links := buildLinks(t, "x")
	ref := codec.NewRef(links[0].Hash())

	data, err := ref.MarshalCBOR()
	require.NoError(t, err)

	// Tag 42 (0xd82a) + ByteString 33 bytes (0x5821) + Prefix (0x00)
	assert.Equal(t, "d82a582100", hex.EncodeToString(data)[:10], "Ref 序列化必须包含 Tag 42 和 0x00 前缀")

	var r2 codec.Ref
	require.NoError(t, r2.UnmarshalCBOR(data))
	assert.Equal(t, ref.Hash, r2.Hash)
}

func TestRef_Unmarshal_Strictness(t *testing.T) {
	h := string(buildLinks(t, "bad")[0].Hash())

	// Case A: 缺少 0x00 前缀
	badPrefix, _ := hex.DecodeString("d82a5820" + h)
	var r codec.Ref
	err := r.UnmarshalCBOR(badPrefix)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing 0x00 multibase prefix")

	// Case B: 错误的 Tag
	wrongTag, _ := hex.DecodeString("d82b582100" + h)
	assert.Error(t, r.UnmarshalCBOR(wrongTag))

	// Case C: 非 Hex 的哈希无法序列化
	_, err = codec.NewRef("not-hex").MarshalCBOR()
	assert.Error(t, err)
}

func TestRecord_RoundTrip(t *testing.T) {
	links := buildLinks(t, "a", "b", "c")

	for i, l := range links {
		rec, err := codec.NewRecord(uint64(i), l)
		require.NoError(t, err)
		assert.Equal(t, l.Hash(), rec.ID(), "记录以节点哈希寻址")

		got, err := codec.Decode(rec.Bytes())
		require.NoError(t, err)
		assert.Equal(t, uint64(i), got.Position)
		assert.Equal(t, l, got.Link())
	}
}

func TestRecord_GenesisHasNoPrev(t *testing.T) {
	links := buildLinks(t, "a", "b")

	genesis, err := codec.NewRecord(0, links[0])
	require.NoError(t, err)
	assert.Nil(t, genesis.Prev)
	assert.True(t, genesis.PrevHash().IsNone())

	second, err := codec.NewRecord(1, links[1])
	require.NoError(t, err)
	require.NotNil(t, second.Prev)
	assert.Equal(t, links[0].Hash(), second.Prev.Hash)
}

func TestRecord_WireKeys(t *testing.T) {
	links := buildLinks(t, "a", "b")

	keysOf := func(rec *codec.Record) []string {
		var m map[string]any
		require.NoError(t, codec.Unmarshal(rec.Bytes(), &m))
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return keys
	}

	genesis, err := codec.NewRecord(0, links[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "h", "n", "t"}, keysOf(genesis))

	second, err := codec.NewRecord(1, links[1])
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "h", "n", "p", "t"}, keysOf(second))
	assert.Equal(t, int64(len("b")), second.Size())
}

func TestRecord_DecodedSequenceIsConsistent(t *testing.T) {
	links := buildLinks(t, "one", "two", "three")

	var restored []chain.Link[[]byte, types.Hash]
	for i, l := range links {
		rec, err := codec.NewRecord(uint64(i), l)
		require.NoError(t, err)
		got, err := codec.Decode(rec.Bytes())
		require.NoError(t, err)
		restored = append(restored, got.Link())
	}

	assert.True(t, chain.IsConsistent(slices.Values(restored)))
	assert.True(t, chain.VerifyDeep(slices.Values(restored), hashing.SHA256()))
}

func TestRecord_EmptyPayload(t *testing.T) {
	links := buildLinks(t, "")
	rec, err := codec.NewRecord(0, links[0])
	require.NoError(t, err)

	got, err := codec.Decode(rec.Bytes())
	require.NoError(t, err)
	assert.NotNil(t, got.Payload)
	assert.Empty(t, got.Payload)
	assert.True(t, chain.VerifyDeep(slices.Values([]chain.Link[[]byte, types.Hash]{got.Link()}), hashing.SHA256()))
}

func TestDecode_Invalid(t *testing.T) {
	_, err := codec.Decode([]byte("garbage"))
	assert.ErrorIs(t, err, codec.ErrInvalidRecord)

	// 类型不对
	data, err := codec.Marshal(map[string]any{"t": "tree"})
	require.NoError(t, err)
	_, err = codec.Decode(data)
	assert.ErrorIs(t, err, codec.ErrInvalidRecord)

	// 非 genesis 位置却没有 prev
	links := buildLinks(t, "a")
	forged := &codec.Record{TypeVal: codec.TypeLink, Position: 3, Payload: []byte("a"), Hash: codec.NewRef(links[0].Hash())}
	data, err = codec.Marshal(forged)
	require.NoError(t, err)
	_, err = codec.Decode(data)
	assert.ErrorIs(t, err, codec.ErrInvalidRecord)
}

func TestMarshal_Canonical(t *testing.T) {
	a, err := codec.Marshal(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	b, err := codec.Marshal(map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, a, b, "Map Key 必须排序")
}

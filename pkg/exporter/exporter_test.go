package exporter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"linkchain/pkg/chain"
	"linkchain/pkg/codec"
	"linkchain/pkg/hashing"
	"linkchain/pkg/ledger"
	"linkchain/pkg/storage/disk"
	"linkchain/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeChain 构造一条链并把每个节点写成记录
func storeChain(t *testing.T, store *disk.Adapter, payloads ...[]byte) []*codec.Record {
	t.Helper()
	c, err := chain.New(hashing.SHA256())
	require.NoError(t, err)

	var recs []*codec.Record
	for i, p := range payloads {
		require.NoError(t, c.Add(p))
		last, _ := c.Last()
		rec, err := codec.NewRecord(uint64(i), last)
		require.NoError(t, err)
		require.NoError(t, store.Put(context.Background(), rec))
		recs = append(recs, rec)
	}
	return recs
}

// misplaced 把记录存到错误的键下
type misplaced struct {
	id   types.Hash
	data []byte
}

func (m misplaced) ID() types.Hash { return m.id }
func (m misplaced) Bytes() []byte  { return m.data }

func TestExportPayload_RoundTrip(t *testing.T) {
	store, err := disk.NewAdapter(t.TempDir())
	require.NoError(t, err)
	exp := NewExporter(store)
	ctx := context.Background()

	binary := []byte{0x00, 0xff, 0x10, 0x80}
	recs := storeChain(t, store, []byte("hello"), binary)

	var buf bytes.Buffer
	require.NoError(t, exp.ExportPayload(ctx, recs[1].ID(), &buf))
	assert.Equal(t, binary, buf.Bytes(), "payload must be restored byte for byte")
}

func TestExportPayload_RejectsMisplacedRecord(t *testing.T) {
	store, err := disk.NewAdapter(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	recs := storeChain(t, store, []byte("a"), []byte("b"))
	// 把第一条记录的内容放到一个伪造的键下
	fake := types.Hash(strings.Repeat("ab", 32))
	require.NoError(t, store.Put(ctx, misplaced{id: fake, data: recs[0].Bytes()}))

	err = NewExporter(store).ExportPayload(ctx, fake, &bytes.Buffer{})
	assert.ErrorIs(t, err, codec.ErrInvalidRecord)
}

func TestPrintObject(t *testing.T) {
	store, err := disk.NewAdapter(t.TempDir())
	require.NoError(t, err)
	exp := NewExporter(store)
	ctx := context.Background()

	recs := storeChain(t, store, []byte("first entry"), []byte("second entry"))

	var genesis bytes.Buffer
	require.NoError(t, exp.PrintObject(ctx, recs[0].ID(), &genesis))
	assert.Contains(t, genesis.String(), "Prev:     (genesis)")
	assert.Contains(t, genesis.String(), "first entry")

	var second bytes.Buffer
	require.NoError(t, exp.PrintObject(ctx, recs[1].ID(), &second))
	assert.Contains(t, second.String(), "Position: 1")
	assert.Contains(t, second.String(), string(recs[0].ID()))

	// 非记录数据
	junk := types.Hash(strings.Repeat("cd", 32))
	require.NoError(t, store.Put(ctx, misplaced{id: junk, data: []byte("raw bytes")}))
	var raw bytes.Buffer
	require.NoError(t, exp.PrintObject(ctx, junk, &raw))
	assert.Contains(t, raw.String(), "Unknown (Raw Data)")
}

func TestExportChain(t *testing.T) {
	store, err := disk.NewAdapter(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	recs := storeChain(t, store, []byte("one"), []byte("two"), []byte{})
	hashes := []types.Hash{recs[0].ID(), recs[1].ID(), recs[2].ID()}

	target := filepath.Join(t.TempDir(), "out")
	var exported []string
	err = NewExporter(store).ExportChain(ctx, hashes, target, func(path string, _ types.Hash, _ int64) {
		exported = append(exported, filepath.Base(path))
	})
	require.NoError(t, err)
	require.Len(t, exported, 3)
	assert.True(t, strings.HasPrefix(exported[0], "000000-"))

	data, err := os.ReadFile(filepath.Join(target, exported[1]))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	empty, err := os.ReadFile(filepath.Join(target, exported[2]))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPrintLog(t *testing.T) {
	h0 := types.Hash(strings.Repeat("0a", 32))
	h1 := types.Hash(strings.Repeat("1b", 32))
	entries := []ledger.Entry{
		{Position: 0, Hash: h0, Prev: types.None[types.Hash](), Size: 10, CreatedAt: time.Now()},
		{Position: 1, Hash: h1, Prev: types.Some(h0), Size: 2048, Meta: map[string]any{"source": "notes.txt"}, CreatedAt: time.Now()},
	}

	var buf bytes.Buffer
	PrintLog(entries, &buf)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "HASH")
	assert.Contains(t, lines[1], h0.Short())
	assert.Contains(t, lines[2], h0.Short(), "second row shows its prev")
	assert.Contains(t, lines[2], "2.0KB")
	assert.Contains(t, lines[2], "notes.txt")
}

func TestPrintReport(t *testing.T) {
	var ok bytes.Buffer
	PrintReport(chain.Report{Consistent: true, Length: 3, BrokenAt: -1}, true, &ok)
	assert.Equal(t, "OK: 3 links verified (deep)\n", ok.String())

	var broken bytes.Buffer
	PrintReport(chain.Report{Length: 1, BrokenAt: 1}, false, &broken)
	assert.Contains(t, broken.String(), "BROKEN")
	assert.Contains(t, broken.String(), "position 1")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "(empty)", preview([]byte{}))
	assert.Equal(t, "plain text", preview([]byte("plain text")))
	assert.Equal(t, "(binary) 00ff", preview([]byte{0x00, 0xff}))

	long := strings.Repeat("é", previewLimit) // 每个字符 2 字节
	out := preview([]byte(long))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.True(t, utf8Valid(strings.TrimSuffix(out, "...")), "must not cut inside a rune")
}

func utf8Valid(s string) bool {
	return strings.ToValidUTF8(s, "?") == s
}

package meta

import (
	"context"
	"testing"

	"linkchain/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_LinkLifecycle(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	links := buildLinks(t, "a", "b", "c")
	mustAppendAll(t, repo, "main", links)

	stored, err := repo.ListLinks(ctx, "main")
	require.NoError(t, err)
	require.Len(t, stored, 3)

	for i, m := range stored {
		assert.Equal(t, int64(i), m.Position)
		assert.Equal(t, string(links[i].Hash()), m.Hash)
		assert.True(t, m.Prev().Equal(links[i].Prev()))
	}
	assert.Nil(t, stored[0].PrevHash, "genesis 的 prev 必须是 NULL")

	// 头指针随之推进
	ref, err := repo.GetRef(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, string(links[2].Hash()), ref.HeadHash)
	assert.Equal(t, int64(3), ref.Length)
	assert.Equal(t, int64(3), ref.Version)

	n, err := repo.CountLinks(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRepository_AppendLink_StaleVersion(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	links := buildLinks(t, "a", "b")
	mustAppendAll(t, repo, "main", links[:1])

	// 另一个写者以为链还是空的
	m, err := NewLinkModel("main", 0, links[0], nil)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.AppendLink(ctx, m, 0), ErrConcurrentUpdate)

	// 位置正确但版本过期
	m, err = NewLinkModel("main", 1, links[1], nil)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.AppendLink(ctx, m, 7), ErrConcurrentUpdate)

	// 失败的事务不能留下半条数据
	n, err := repo.CountLinks(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRepository_Meta(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	links := buildLinks(t, "payload")
	m, err := NewLinkModel("main", 0, links[0], map[string]any{"source": "data/a.txt"})
	require.NoError(t, err)
	require.NoError(t, repo.AppendLink(ctx, m, 0))

	stored, err := repo.ListLinks(ctx, "main")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.JSONEq(t, `{"source":"data/a.txt"}`, string(stored[0].Meta))
	assert.Equal(t, int64(len("payload")), stored[0].Size)

	meta, err := stored[0].MetaMap()
	require.NoError(t, err)
	assert.Equal(t, "data/a.txt", meta["source"])
}

func TestRepository_ChainsAreIsolated(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	shared := buildLinks(t, "x", "y")
	mustAppendAll(t, repo, "alpha", shared)
	mustAppendAll(t, repo, "beta", shared[:1])

	alpha, err := repo.ListLinks(ctx, "alpha")
	require.NoError(t, err)
	beta, err := repo.ListLinks(ctx, "beta")
	require.NoError(t, err)
	assert.Len(t, alpha, 2)
	assert.Len(t, beta, 1)

	// 相同 payload 序列得到相同哈希，两条链都能查到
	found, err := repo.FindLinksByHash(ctx, shared[0].Hash())
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "alpha", found[0].Chain)
	assert.Equal(t, "beta", found[1].Chain)

	chains, err := repo.ListChains(ctx)
	require.NoError(t, err)
	require.Len(t, chains, 2)
	assert.Equal(t, "alpha", chains[0].Chain)
}

func TestRepository_ClearChain(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	mustAppendAll(t, repo, "main", buildLinks(t, "1", "2", "3"))
	mustAppendAll(t, repo, "other", buildLinks(t, "z"))

	require.NoError(t, repo.ClearChain(ctx, "main"))

	n, err := repo.CountLinks(ctx, "main")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.GetRef(ctx, "main")
	assert.ErrorIs(t, err, ErrRefNotFound)

	// 其他链不受影响
	n, err = repo.CountLinks(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// 清空后可以从 genesis 重新开始
	mustAppendAll(t, repo, "main", buildLinks(t, "fresh"))
}

func TestRepository_Ref_CAS(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	hashV1 := types.Hash("aa")
	hashV2 := types.Hash("bb")

	require.NoError(t, repo.UpdateRef(ctx, "main", hashV1, 1, 0))

	ref, err := repo.GetRef(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ref.Version)

	// 版本不匹配
	assert.ErrorIs(t, repo.UpdateRef(ctx, "main", hashV2, 2, 999), ErrConcurrentUpdate)

	// 并发创建
	assert.ErrorIs(t, repo.UpdateRef(ctx, "main", hashV2, 2, 0), ErrConcurrentUpdate)

	require.NoError(t, repo.UpdateRef(ctx, "main", hashV2, 2, 1))
	ref, err = repo.GetRef(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, int64(2), ref.Version)
	assert.Equal(t, string(hashV2), ref.HeadHash)
}

func TestNewDB_SQLiteFile(t *testing.T) {
	path := t.TempDir() + "/meta/lc.db"
	db, err := NewDB(context.Background(), Config{Driver: DriverSQLite, Path: path})
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	mustAppendAll(t, repo, "main", buildLinks(t, "persisted"))

	_, err = NewDB(context.Background(), Config{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = NewDB(context.Background(), Config{Driver: DriverSQLite})
	assert.ErrorContains(t, err, "sqlite path is required")
}

package meta

import (
	"context"
	"fmt"
	"testing"

	"linkchain/pkg/chain"
	"linkchain/pkg/hashing"
	"linkchain/pkg/types"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// -----------------------------------------------------------------------------
// 通用辅助函数 (Helpers)
// -----------------------------------------------------------------------------

// setupTestRepo 构建隔离的测试环境 (每个测试一个内存数据库)
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	metaDB := NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(Models()...))
	t.Cleanup(func() { _ = metaDB.Close() })

	return NewRepository(metaDB)
}

// buildLinks 用 SHA-256 构造一段链
func buildLinks(t *testing.T, payloads ...string) []chain.Link[[]byte, types.Hash] {
	t.Helper()
	c, err := chain.New(hashing.SHA256())
	require.NoError(t, err)
	for _, p := range payloads {
		require.NoError(t, c.Add([]byte(p)))
	}
	return c.Snapshot()
}

// mustAppendAll 依次把节点写入仓库，失败则终止
func mustAppendAll(t *testing.T, repo *Repository, chainName string, links []chain.Link[[]byte, types.Hash], msgAndArgs ...any) {
	t.Helper()
	ctx := context.Background()
	for i, l := range links {
		m, err := NewLinkModel(chainName, int64(i), l, nil)
		require.NoError(t, err, msgAndArgs...)
		require.NoError(t, repo.AppendLink(ctx, m, int64(i)), msgAndArgs...)
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"linkchain/pkg/chain"
	"linkchain/pkg/hashing"
	"linkchain/pkg/ledger"
	"linkchain/pkg/meta"
	"linkchain/pkg/refs"
	"linkchain/pkg/storage"
	"linkchain/pkg/storage/cache"
	"linkchain/pkg/storage/disk"
	"linkchain/pkg/storage/s3"
	"linkchain/pkg/types"

	"github.com/spf13/viper"
)

// ErrNotInitialized 表示当前目录下没有仓库
var ErrNotInitialized = errors.New("not a linkchain repository")

// App 是整个应用程序的依赖容器 (Dependency Container)
// 它持有所有"单例"服务
type App struct {
	Store      storage.Store
	DB         *meta.DB
	Repository *meta.Repository
	Refs       *refs.Manager
	Strategy   chain.Strategy[[]byte, types.Hash]
	Algorithm  string
	Ledger     *ledger.Ledger
	RepoPath   string

	closers []io.Closer
}

// NewApp 是工厂函数，负责组装这一台机器
// 它遵循 Viper 的配置，但不知道具体的 CLI 命令
func NewApp(ctx context.Context) (*App, error) {
	// 1. 仓库根路径 (Single Source of Truth)
	repoPath := viper.GetString("repo.path")
	if repoPath == "" {
		return nil, fmt.Errorf("repo path not set")
	}
	if _, err := os.Stat(repoPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, repoPath)
	}

	a := &App{RepoPath: repoPath}

	// 2. 哈希策略
	a.Algorithm = viper.GetString("hash.algorithm")
	strategy, err := hashing.Lookup(a.Algorithm)
	if err != nil {
		return nil, err
	}
	a.Strategy = strategy
	if !hashing.IsCryptographic(a.Algorithm) {
		slog.Warn("hash algorithm is not cryptographic, chain only detects accidental corruption",
			slog.String("algorithm", a.Algorithm))
	}

	// 3. 存储层
	store, err := initStore(ctx, repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	if url := viper.GetString("cache.redis_url"); url != "" {
		cached, err := cache.NewCachedStore(store, cache.Config{
			RedisURL: url,
			TTL:      viper.GetDuration("cache.ttl"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init cache: %w", err)
		}
		a.closers = append(a.closers, cached)
		store = cached
	}
	a.Store = store

	// 4. 元数据
	db, err := meta.NewDB(ctx, metaConfig())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db)
	a.Repository = meta.NewRepository(db)
	a.Refs = refs.NewManager(a.Repository)

	return a, nil
}

// LedgerConfig 返回当前链的 ledger 配置
func (a *App) LedgerConfig() ledger.Config {
	return ledger.Config{
		Name:     viper.GetString("chain.name"),
		Strategy: a.Strategy,
		Store:    a.Store,
		Repo:     a.Repository,
	}
}

// OpenLedger 打开当前链
// 与 NewApp 分开，损坏的链仍然可以被检查
func (a *App) OpenLedger(ctx context.Context) (*ledger.Ledger, error) {
	if a.Ledger != nil {
		return a.Ledger, nil
	}
	l, err := ledger.Open(ctx, a.LedgerConfig())
	if err != nil {
		return nil, err
	}
	a.Ledger = l
	return l, nil
}

// Close 释放数据库连接和缓存连接
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// initStore 根据 storage.type 选择对象存储实现
func initStore(ctx context.Context, repoPath string) (storage.Store, error) {
	switch typ := viper.GetString("storage.type"); typ {
	case "", "disk":
		path := viper.GetString("storage.path")
		if path == "" {
			return nil, fmt.Errorf("storage path not set")
		}
		return disk.NewAdapter(path)
	case "s3":
		store, err := s3.NewAdapter(ctx, s3.Config{
			Endpoint:        viper.GetString("storage.s3.endpoint"),
			Region:          viper.GetString("storage.s3.region"),
			Bucket:          viper.GetString("storage.s3.bucket"),
			AccessKeyID:     viper.GetString("storage.s3.access_key"),
			SecretAccessKey: viper.GetString("storage.s3.secret_key"),
			Prefix:          viper.GetString("storage.s3.prefix"),
		})
		if err != nil {
			return nil, err
		}
		slog.Debug("using s3 storage", slog.String("repo", repoPath))
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %q", typ)
	}
}

func metaConfig() meta.Config {
	return meta.Config{
		Driver:   viper.GetString("database.driver"),
		Path:     viper.GetString("database.path"),
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.name"),
		SSLMode:  viper.GetString("database.sslmode"),
		Verbose:  viper.GetBool("database.verbose"),
	}
}

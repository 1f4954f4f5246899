package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"linkchain/pkg/storage"
	"linkchain/pkg/types"

	"github.com/redis/go-redis/v9"
)

// CachedStore 是一个装饰器，它为底层的 storage.Store 添加 Redis 缓存层
// 只缓存存在性：记录内容始终从底层存储读取，校验看到的永远是真实数据
type CachedStore struct {
	backend storage.Store // 被装饰的底层存储 (如 S3)
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
}

type Config struct {
	RedisURL string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 过期时间
	Logger   *slog.Logger
}

func NewCachedStore(backend storage.Store, cfg Config) (*CachedStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newCachedStore(backend, client, cfg), nil
}

func newCachedStore(backend storage.Store, client *redis.Client, cfg Config) *CachedStore {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{
		backend: backend,
		client:  client,
		ttl:     cfg.TTL,
		logger:  logger,
	}
}

// cacheKey 生成 Redis Key，添加前缀防止冲突
func (s *CachedStore) cacheKey(hash types.Hash) string {
	return "lc:has:" + string(hash)
}

// Has 优先查 Redis
func (s *CachedStore) Has(ctx context.Context, hash types.Hash) (bool, error) {
	val, err := s.client.Exists(ctx, s.cacheKey(hash)).Result()
	if err != nil {
		// 缓存故障降级：Redis 不可用时退化为无缓存模式
		s.logger.Warn("redis exists failed, falling back to backend", slog.String("hash", hash.Short()), slog.Any("err", err))
	} else if val > 0 {
		return true, nil
	}

	exists, err := s.backend.Has(ctx, hash)
	if err != nil {
		return false, err
	}
	if exists {
		s.mark(ctx, hash)
	}
	return exists, nil
}

// Put 总是写底层存储 (内容寻址，重复写入是幂等的)，成功后再标记缓存
// 缓存标记不能作为跳过写入的依据：底层对象可能已被删除
func (s *CachedStore) Put(ctx context.Context, obj storage.Object) error {
	if err := s.backend.Put(ctx, obj); err != nil {
		return err
	}
	s.mark(ctx, obj.ID())
	return nil
}

// Get 透传到底层存储
func (s *CachedStore) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	return s.backend.Get(ctx, hash)
}

// ExpandHash 透传
func (s *CachedStore) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	return s.backend.ExpandHash(ctx, short)
}

// Close 关闭 Redis 连接
func (s *CachedStore) Close() error {
	return s.client.Close()
}

// mark 写存在性标记，错误只记录不返回
func (s *CachedStore) mark(ctx context.Context, hash types.Hash) {
	if err := s.client.Set(ctx, s.cacheKey(hash), "1", s.ttl).Err(); err != nil {
		s.logger.Warn("redis set failed", slog.String("hash", hash.Short()), slog.Any("err", err))
	}
}

// Package ledger 把内存中的哈希链与持久化层 (对象存储 + 元数据库) 组合起来
// Ledger 是整条链唯一的互斥边界：所有读写都在同一把锁下进行
package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"linkchain/pkg/chain"
	"linkchain/pkg/codec"
	"linkchain/pkg/meta"
	"linkchain/pkg/refs"
	"linkchain/pkg/storage"
	"linkchain/pkg/types"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrCorrupted 表示存储中的链已经不一致 (被篡改或部分丢失)
	ErrCorrupted = errors.New("ledger: stored chain is corrupted")
	// ErrStale 表示有其他写者在本实例打开之后追加了节点
	ErrStale = errors.New("ledger: chain was modified by another writer, reopen required")
)

// CorruptionError 记录第一个损坏的位置
type CorruptionError struct {
	Position int
	Reason   string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%v: position %d: %s", ErrCorrupted, e.Position, e.Reason)
}

func (e *CorruptionError) Is(target error) bool { return target == ErrCorrupted }

func corrupted(pos int, format string, args ...any) error {
	return &CorruptionError{Position: pos, Reason: fmt.Sprintf(format, args...)}
}

// DefaultChain 是未指定名称时使用的链
const DefaultChain = "main"

// 加载记录时的并发度
const loadConcurrency = 8

// Config 组装 Ledger 所需的依赖
type Config struct {
	Name     string
	Strategy chain.Strategy[[]byte, types.Hash]
	Store    storage.Store
	Repo     *meta.Repository
	Logger   *slog.Logger
}

// Entry 是一条链节点的展示视图
type Entry struct {
	Position  int64
	Hash      types.Hash
	Prev      types.Option[types.Hash]
	Size      int64
	Meta      map[string]any
	CreatedAt time.Time
}

func (cfg Config) normalize() (Config, error) {
	if cfg.Strategy == nil || cfg.Store == nil || cfg.Repo == nil {
		return cfg, fmt.Errorf("%w: ledger requires strategy, store and repository", chain.ErrInvalidArgument)
	}
	if cfg.Name == "" {
		cfg.Name = DefaultChain
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg, nil
}

// Ledger 是一条持久化的哈希链
type Ledger struct {
	mu sync.Mutex

	name     string
	strategy chain.Strategy[[]byte, types.Hash]
	store    storage.Store
	repo     *meta.Repository
	refs     *refs.Manager
	logger   *slog.Logger

	chain   *chain.Chain[[]byte, types.Hash]
	version int64
}

// Open 加载一条链
// 存储中的链必须通过浅检查 (链接) 和重放检查 (哈希重算)，否则返回 ErrCorrupted
func Open(ctx context.Context, cfg Config) (*Ledger, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	c, err := chain.New(cfg.Strategy, chain.WithEqual(bytes.Equal))
	if err != nil {
		return nil, err
	}

	l := &Ledger{
		name:     cfg.Name,
		strategy: cfg.Strategy,
		store:    cfg.Store,
		repo:     cfg.Repo,
		refs:     refs.NewManager(cfg.Repo),
		logger:   cfg.Logger.With(slog.String("chain", cfg.Name)),
		chain:    c,
	}

	start := time.Now()
	links, err := load(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if r := chain.Check(slices.Values(links)); !r.Consistent {
		return nil, corrupted(r.BrokenAt, "linkage broken")
	}

	// 重放：用 Builder 重新计算每个节点，必须与存储一致
	for i, stored := range links {
		if err := l.chain.Add(stored.Payload()); err != nil {
			return nil, corrupted(i, "%v", err)
		}
		rebuilt, _ := l.chain.Last()
		if rebuilt.Hash() != stored.Hash() {
			return nil, corrupted(i, "hash mismatch (wrong hash algorithm?)")
		}
	}

	head, err := l.refs.GetHead(ctx, l.name)
	switch {
	case errors.Is(err, refs.ErrNoHead):
		if len(links) > 0 {
			return nil, corrupted(len(links), "links without HEAD")
		}
	case err != nil:
		return nil, err
	default:
		last, ok := l.chain.Last()
		if !ok || head.Hash != last.Hash() || head.Length != int64(len(links)) {
			return nil, corrupted(len(links), "HEAD does not match last link")
		}
		l.version = head.Version
	}

	l.logger.Debug("ledger opened",
		slog.Int("links", len(links)),
		slog.Duration("dur", time.Since(start)),
	)
	return l, nil
}

// load 按元数据库中的顺序取出全部记录，并还原为节点序列
// 记录并发读取，结果按位置写回；损坏按位置收集，返回位置最小的那个
func load(ctx context.Context, cfg Config) ([]chain.Link[[]byte, types.Hash], error) {
	rows, err := cfg.Repo.ListLinks(ctx, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	links := make([]chain.Link[[]byte, types.Hash], len(rows))
	broken := make([]error, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)

	for i := range rows {
		row := &rows[i]
		g.Go(func() error {
			link, err := loadOne(gctx, cfg.Store, i, row)
			var ce *CorruptionError
			if errors.As(err, &ce) {
				broken[i] = err
				return nil
			}
			if err != nil {
				return err
			}
			links[i] = link
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, err := range broken {
		if err != nil {
			return links[:i], err
		}
	}
	return links, nil
}

func loadOne(ctx context.Context, store storage.Store, i int, row *meta.LinkModel) (chain.Link[[]byte, types.Hash], error) {
	var zero chain.Link[[]byte, types.Hash]
	hash := types.Hash(row.Hash)

	if row.Position != int64(i) {
		return zero, corrupted(i, "gap in positions")
	}
	data, err := storage.ReadAll(ctx, store, hash)
	if errors.Is(err, storage.ErrNotFound) {
		return zero, corrupted(i, "record %s missing", hash.Short())
	}
	if err != nil {
		return zero, fmt.Errorf("failed to read record %s: %w", hash.Short(), err)
	}
	rec, err := codec.Decode(data)
	if err != nil {
		return zero, corrupted(i, "%v", err)
	}
	if rec.ID() != hash || rec.Position != uint64(row.Position) || !rec.PrevHash().Equal(row.Prev()) {
		return zero, corrupted(i, "record and index disagree")
	}
	return rec.Link(), nil
}

// Append 追加一个 payload
// 先写对象存储，再在一个事务中写索引并推进 HEAD；两步都成功后才进入内存链
func (l *Ledger) Append(ctx context.Context, payload []byte, metadata map[string]any) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// 调用者之后修改 slice 不能影响链
	payload = bytes.Clone(payload)
	link, err := l.chain.Next(payload)
	if err != nil {
		return Entry{}, err
	}
	position := int64(l.chain.Count())

	rec, err := codec.NewRecord(uint64(position), link)
	if err != nil {
		return Entry{}, err
	}
	if err := l.store.Put(ctx, rec); err != nil {
		return Entry{}, fmt.Errorf("failed to store record: %w", err)
	}

	model, err := meta.NewLinkModel(l.name, position, link, metadata)
	if err != nil {
		return Entry{}, err
	}
	if err := l.repo.AppendLink(ctx, model, l.version); err != nil {
		if errors.Is(err, meta.ErrConcurrentUpdate) {
			return Entry{}, ErrStale
		}
		return Entry{}, fmt.Errorf("failed to index link: %w", err)
	}

	if err := l.chain.Add(payload); err != nil {
		// Next 已经成功，这里不应该失败
		return Entry{}, err
	}
	l.version++

	l.logger.Info("link appended",
		slog.Int64("position", position),
		slog.String("hash", link.Hash().Short()),
		slog.Int("size", len(payload)),
	)
	return Entry{
		Position:  position,
		Hash:      link.Hash(),
		Prev:      link.Prev(),
		Size:      int64(len(payload)),
		Meta:      metadata,
		CreatedAt: model.CreatedAt,
	}, nil
}

// Contains 按内容查找 payload
func (l *Ledger) Contains(payload []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chain.Contains(payload)
}

// Count 返回节点数
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chain.Count()
}

// Head 返回最后一个节点的哈希
func (l *Ledger) Head() (types.Hash, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	last, ok := l.chain.Last()
	return last.Hash(), ok
}

func (l *Ledger) Name() string { return l.name }

// Payloads 按链顺序返回 payload 的快照
// 每个 payload 都是副本，调用方修改它不会影响账本
func (l *Ledger) Payloads() iter.Seq[[]byte] {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, 0, l.chain.Count())
	for p := range l.chain.All() {
		out = append(out, bytes.Clone(p))
	}
	return slices.Values(out)
}

// Entries 从索引中读取节点视图 (包括元数据)
func (l *Ledger) Entries(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.repo.ListLinks(ctx, l.name)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		m, err := row.MetaMap()
		if err != nil {
			return nil, fmt.Errorf("invalid meta at position %d: %w", row.Position, err)
		}
		entries = append(entries, Entry{
			Position:  row.Position,
			Hash:      types.Hash(row.Hash),
			Prev:      row.Prev(),
			Size:      row.Size,
			Meta:      m,
			CreatedAt: row.CreatedAt,
		})
	}
	return entries, nil
}

// Verify 从存储重新读取整条链并检查，见 Inspect
func (l *Ledger) Verify(ctx context.Context, deep bool) (chain.Report, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Inspect(ctx, l.config(), deep)
}

func (l *Ledger) config() Config {
	return Config{Name: l.name, Strategy: l.strategy, Store: l.store, Repo: l.repo, Logger: l.logger}
}

// Inspect 不打开 Ledger，直接检查存储中的链，因此也能用于已经损坏的链
// deep 为 false 时只检查链接；为 true 时还会用哈希策略重算每个节点
// 链断裂 (包括记录丢失或无法解析) 通过 Report 返回，error 只用于 I/O 层面的失败
func Inspect(ctx context.Context, cfg Config, deep bool) (chain.Report, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return chain.Report{}, err
	}

	links, err := load(ctx, cfg)
	var ce *CorruptionError
	if errors.As(err, &ce) {
		cfg.Logger.Warn("stored chain is unreadable", slog.Int("broken_at", ce.Position), slog.String("reason", ce.Reason))
		return chain.Report{Length: ce.Position, BrokenAt: ce.Position}, nil
	}
	if err != nil {
		return chain.Report{}, err
	}

	var r chain.Report
	if deep {
		r = chain.CheckDeep(slices.Values(links), cfg.Strategy)
	} else {
		r = chain.Check(slices.Values(links))
	}
	if !r.Consistent {
		cfg.Logger.Warn("chain verification failed", slog.Bool("deep", deep), slog.Int("broken_at", r.BrokenAt))
	}
	return r, nil
}

// Clear 删除整条链，下一次 Append 会重新生成 genesis
// 对象存储中的记录按内容寻址，可能被其他链共享，所以保留
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.repo.ClearChain(ctx, l.name); err != nil {
		return err
	}
	l.chain.Clear()
	l.version = 0
	l.logger.Info("chain cleared")
	return nil
}

package exporter

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"linkchain/pkg/codec"
	"linkchain/pkg/storage"
	"linkchain/pkg/types"
)

type Exporter struct {
	store storage.Store
}

func NewExporter(store storage.Store) *Exporter {
	return &Exporter{store: store}
}

// load 读取并解码一条记录
func (e *Exporter) load(ctx context.Context, hash types.Hash) (*codec.Record, error) {
	data, err := storage.ReadAll(ctx, e.store, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", hash.Short(), err)
	}
	rec, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	// 内容寻址：记录里声明的哈希必须就是它的存储键
	if rec.ID() != hash {
		return nil, fmt.Errorf("%w: stored under %s but claims %s", codec.ErrInvalidRecord, hash.Short(), rec.ID().Short())
	}
	return rec, nil
}

// ExportPayload 把节点的原始 payload 写入 writer
func (e *Exporter) ExportPayload(ctx context.Context, hash types.Hash, writer io.Writer) error {
	rec, err := e.load(ctx, hash)
	if err != nil {
		return err
	}
	if _, err := writer.Write(rec.Payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// PrintObject 以人类可读的形式打印记录
func (e *Exporter) PrintObject(ctx context.Context, hash types.Hash, writer io.Writer) error {
	data, err := storage.ReadAll(ctx, e.store, hash)
	if err != nil {
		return err
	}

	ok, err := PrintStructure(data, writer)
	if err != nil {
		return err
	}
	if !ok {
		// 不是链记录
		fmt.Fprintf(writer, "Type: Unknown (Raw Data)\nSize: %d bytes\n", len(data))
	}
	return nil
}

type ExportCallback func(path string, hash types.Hash, size int64)

// ExportChain 把一串节点的 payload 依次写到目标目录
// 文件名为 <position>-<short hash>，按位置排序即是链顺序
func (e *Exporter) ExportChain(ctx context.Context, hashes []types.Hash, targetDir string, onExport ExportCallback) error {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create dir %s: %w", targetDir, err)
	}

	for i, hash := range hashes {
		fullPath := filepath.Join(targetDir, fmt.Sprintf("%06d-%s", i, hash.Short()))

		// 使用匿名函数构建 Scope，文件在每轮结束时关闭
		err := func() error {
			file, err := os.Create(fullPath)
			if err != nil {
				return fmt.Errorf("failed to create file %s: %w", fullPath, err)
			}
			defer file.Close()
			return e.ExportPayload(ctx, hash, file)
		}()
		if err != nil {
			return err
		}

		if onExport != nil {
			info, err := os.Stat(fullPath)
			if err != nil {
				return err
			}
			onExport(fullPath, hash, info.Size())
		}
	}
	return nil
}

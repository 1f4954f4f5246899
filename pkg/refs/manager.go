package refs

import (
	"context"
	"errors"
	"fmt"

	"linkchain/pkg/meta"
	"linkchain/pkg/types"
)

var ErrNoHead = errors.New("HEAD not found (empty chain)")

// Head 是某条链的头指针快照
type Head struct {
	Hash    types.Hash
	Length  int64
	Version int64
}

// Manager 负责管理每条链的头指针
type Manager struct {
	repo *meta.Repository
}

func NewManager(repo *meta.Repository) *Manager {
	return &Manager{repo: repo}
}

// GetHead 读取链当前的头指针
// 空链 (从未追加或已清空) 返回 ErrNoHead
func (m *Manager) GetHead(ctx context.Context, chainName string) (Head, error) {
	ref, err := m.repo.GetRef(ctx, chainName)
	if errors.Is(err, meta.ErrRefNotFound) {
		return Head{}, ErrNoHead
	}
	if err != nil {
		return Head{}, fmt.Errorf("failed to read HEAD: %w", err)
	}
	return Head{
		Hash:    types.Hash(ref.HeadHash),
		Length:  ref.Length,
		Version: ref.Version,
	}, nil
}

// UpdateHead 以 CAS 方式移动头指针
func (m *Manager) UpdateHead(ctx context.Context, chainName string, hash types.Hash, length, oldVersion int64) error {
	return m.repo.UpdateRef(ctx, chainName, hash, length, oldVersion)
}

// Version 返回当前版本号，空链为 0
func (m *Manager) Version(ctx context.Context, chainName string) (int64, error) {
	head, err := m.GetHead(ctx, chainName)
	if errors.Is(err, ErrNoHead) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return head.Version, nil
}

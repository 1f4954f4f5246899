package meta

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkchain/pkg/types"

	"gorm.io/gorm"
)

var (
	ErrRefNotFound      = errors.New("reference not found")
	ErrConcurrentUpdate = errors.New("concurrent update detected (CAS failed)")
)

// Repository 封装所有对 SQL 数据库的操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// -----------------------------------------------------------------------------
// 1. 头指针 (Refs)
// -----------------------------------------------------------------------------

// GetRef 获取链的当前头指针
func (r *Repository) GetRef(ctx context.Context, chainName string) (*Ref, error) {
	var ref Ref
	err := r.db.GetConn().WithContext(ctx).
		Where("chain = ?", chainName).
		First(&ref).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRefNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// UpdateRef 原子更新头指针 (CAS - Compare And Swap)
// oldVersion: 之前读到的版本号，0 表示首次创建。数据库里的版本号不等于它时更新失败。
func (r *Repository) UpdateRef(ctx context.Context, chainName string, head types.Hash, length int64, oldVersion int64) error {
	return r.db.GetConn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return updateRef(tx, chainName, head, length, oldVersion)
	})
}

func updateRef(tx *gorm.DB, chainName string, head types.Hash, length int64, oldVersion int64) error {
	// 场景 A: 第一次创建
	if oldVersion == 0 {
		ref := Ref{
			Chain:    chainName,
			HeadHash: string(head),
			Length:   length,
			Version:  1,
		}
		if err := tx.Create(&ref).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrConcurrentUpdate
			}
			return fmt.Errorf("failed to create ref: %w", err)
		}
		return nil
	}

	// 场景 B: 更新现有引用
	// SQL: UPDATE refs SET head_hash = ?, version = version + 1 WHERE chain = ? AND version = ?
	result := tx.Model(&Ref{}).
		Where("chain = ? AND version = ?", chainName, oldVersion).
		Updates(map[string]any{
			"head_hash":  string(head),
			"length":     length,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}

	// 影响行数为 0，说明 version 不匹配（被人抢先改了）
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

// isUniqueViolation 兼容不同数据库 (PG 与 SQLite) 的唯一约束错误
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}

// -----------------------------------------------------------------------------
// 2. 链节点 (Links)
// -----------------------------------------------------------------------------

// AppendLink 在一个事务里写入节点并推进头指针
// oldVersion 是追加前读到的 Ref 版本，空链为 0
func (r *Repository) AppendLink(ctx context.Context, link *LinkModel, oldVersion int64) error {
	return r.db.GetConn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(link).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrConcurrentUpdate
			}
			return fmt.Errorf("failed to index link: %w", err)
		}
		return updateRef(tx, link.Chain, types.Hash(link.Hash), link.Position+1, oldVersion)
	})
}

// ListLinks 按位置顺序返回整条链
func (r *Repository) ListLinks(ctx context.Context, chainName string) ([]LinkModel, error) {
	var links []LinkModel
	err := r.db.GetConn().WithContext(ctx).
		Where("chain = ?", chainName).
		Order("position ASC").
		Find(&links).Error
	return links, err
}

// CountLinks 返回链上的节点数
func (r *Repository) CountLinks(ctx context.Context, chainName string) (int64, error) {
	var n int64
	err := r.db.GetConn().WithContext(ctx).
		Model(&LinkModel{}).
		Where("chain = ?", chainName).
		Count(&n).Error
	return n, err
}

// FindLinksByHash 查找所有链中哈希等于 hash 的节点
func (r *Repository) FindLinksByHash(ctx context.Context, hash types.Hash) ([]LinkModel, error) {
	var links []LinkModel
	err := r.db.GetConn().WithContext(ctx).
		Where("hash = ?", string(hash)).
		Order("chain ASC, position ASC").
		Find(&links).Error
	return links, err
}

// ClearChain 删除链上所有节点以及头指针
func (r *Repository) ClearChain(ctx context.Context, chainName string) error {
	return r.db.GetConn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chain = ?", chainName).Delete(&LinkModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete links: %w", err)
		}
		if err := tx.Where("chain = ?", chainName).Delete(&Ref{}).Error; err != nil {
			return fmt.Errorf("failed to delete ref: %w", err)
		}
		return nil
	})
}

// ListChains 返回所有链的头指针
func (r *Repository) ListChains(ctx context.Context) ([]Ref, error) {
	var refs []Ref
	err := r.db.GetConn().WithContext(ctx).Order("chain ASC").Find(&refs).Error
	return refs, err
}

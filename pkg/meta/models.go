package meta

import (
	"encoding/json"
	"fmt"
	"time"

	"linkchain/pkg/chain"
	"linkchain/pkg/types"

	"gorm.io/datatypes"
)

// Ref 存储每条链的头指针
type Ref struct {
	// Chain 是主键，即链的名称 (例如 "main")
	Chain string `gorm:"primaryKey;type:varchar(255)"`

	// HeadHash 指向最后一个节点的哈希
	HeadHash string `gorm:"type:varchar(128);not null"`

	// Length 是链上的节点数
	Length int64 `gorm:"not null"`

	// Version 用于乐观锁并发控制 (CAS)
	// 每次更新时 +1，防止并发追加导致分叉
	Version int64 `gorm:"default:1"`

	UpdatedAt time.Time
}

// LinkModel 是链节点在关系型数据库中的投影 (索引)
// payload 本身存放在对象存储里，这里只保存链接结构和元数据
type LinkModel struct {
	ID uint `gorm:"primaryKey"`

	// (Chain, Position) 唯一：同一位置只能有一个节点
	Chain    string `gorm:"uniqueIndex:idx_chain_position;type:varchar(255);not null"`
	Position int64  `gorm:"uniqueIndex:idx_chain_position;not null"`

	Hash string `gorm:"index;type:varchar(128);not null"`

	// PrevHash 为 NULL 表示 genesis；绝不使用 "0" 之类的保留值
	PrevHash *string `gorm:"type:varchar(128)"`

	Size int64

	// Meta 存储调用方附带的非结构化数据 (来源文件、作者等)
	Meta datatypes.JSON

	CreatedAt time.Time
}

// TableName 强制指定表名
func (LinkModel) TableName() string {
	return "links"
}

// Models 返回需要迁移的全部表
func Models() []any {
	return []any{&Ref{}, &LinkModel{}}
}

// NewLinkModel 把内存节点投影为数据库行
func NewLinkModel(chainName string, position int64, link chain.Link[[]byte, types.Hash], meta map[string]any) (*LinkModel, error) {
	m := &LinkModel{
		Chain:    chainName,
		Position: position,
		Hash:     string(link.Hash()),
		Size:     int64(len(link.Payload())),
	}
	if prev, ok := link.Prev().Get(); ok {
		p := string(prev)
		m.PrevHash = &p
	}
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal link meta: %w", err)
		}
		m.Meta = datatypes.JSON(raw)
	}
	return m, nil
}

// Prev 返回 PrevHash 的 Option 形式
func (m *LinkModel) Prev() types.Option[types.Hash] {
	if m.PrevHash == nil {
		return types.None[types.Hash]()
	}
	return types.Some(types.Hash(*m.PrevHash))
}

// MetaMap 解析 Meta 字段
func (m *LinkModel) MetaMap() (map[string]any, error) {
	if len(m.Meta) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(m.Meta, &out); err != nil {
		return nil, err
	}
	return out, nil
}

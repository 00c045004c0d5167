package policy_store

import (
	"adaptive-etl-service/service/models"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBackend 以 policy_documents 表保存策略数据，支持 PostgreSQL 与 SQLite
type GormBackend struct {
	db *gorm.DB
}

// NewGormBackend 创建数据库后端并迁移表结构
func NewGormBackend(db *gorm.DB) (*GormBackend, error) {
	if err := db.AutoMigrate(&models.PolicyDocument{}); err != nil {
		return nil, &models.StoreUnavailableError{Op: "迁移 policy_documents", Err: err}
	}
	return &GormBackend{db: db}, nil
}

func (b *GormBackend) Name() string { return "gorm:" + b.db.Dialector.Name() }

func (b *GormBackend) Read(ctx context.Context, key Key) ([]byte, error) {
	var doc models.PolicyDocument
	err := b.db.WithContext(ctx).Where("doc_key = ?", string(key)).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &models.StoreUnavailableError{Op: "读取 " + string(key), Err: err}
	}
	if doc.Value == nil {
		return nil, &models.CorruptStateError{Key: string(key), Err: fmt.Errorf("文档内容为空")}
	}
	return doc.Value, nil
}

func (b *GormBackend) Write(ctx context.Context, key Key, value []byte) error {
	if err := upsertDocument(b.db.WithContext(ctx), key, value); err != nil {
		return &models.StoreUnavailableError{Op: "写入 " + string(key), Err: err}
	}
	return nil
}

// WriteBatch 在同一个数据库事务内写入全部键
func (b *GormBackend) WriteBatch(ctx context.Context, values map[Key][]byte) error {
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			if err := upsertDocument(tx, key, value); err != nil {
				return fmt.Errorf("写入 %s 失败: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return &models.StoreUnavailableError{Op: "批量写入", Err: err}
	}
	return nil
}

func upsertDocument(db *gorm.DB, key Key, value []byte) error {
	doc := models.PolicyDocument{
		Key:       string(key),
		Value:     models.JSONDocument(value),
		UpdatedAt: time.Now().UTC(),
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&doc).Error
}

package repository

import (
	"context"
	"fmt"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/d60-Lab/guestbook/internal/model"
)

// EntryRepository 留言存储：只追加，按 id 倒序读取
type EntryRepository interface {
	// Append 写入一条留言，id 与 created_at 由存储分配
	Append(ctx context.Context, name, message string) (*model.Entry, error)

	// ListAll 返回全部留言（新的在前），每次调用返回新的切片
	ListAll(ctx context.Context) ([]*model.Entry, error)

	// ListRecent 返回最新的 limit 条
	ListRecent(ctx context.Context, limit int) ([]*model.Entry, error)

	// ListSince 返回 id > afterID 的留言（新的在前）
	ListSince(ctx context.Context, afterID uint64) ([]*model.Entry, error)

	Count(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
}

type entryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) EntryRepository { return &entryRepository{db: db} }

// InitSchema 初始化 entries 表
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Entry{}); err != nil {
		return fmt.Errorf("failed to migrate entries table: %w", err)
	}
	return nil
}

func withinBounds(s string, max int) bool {
	n := utf8.RuneCountInString(s)
	return n > 0 && n <= max
}

func (r *entryRepository) Append(ctx context.Context, name, message string) (*model.Entry, error) {
	if !withinBounds(name, model.MaxNameLength) || !withinBounds(message, model.MaxMessageLength) {
		return nil, newStorageError("append", ErrOutOfBounds)
	}
	e := &model.Entry{Name: name, Message: message}
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, newStorageError("append", err)
	}
	return e, nil
}

func (r *entryRepository) ListAll(ctx context.Context) ([]*model.Entry, error) {
	res := make([]*model.Entry, 0)
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&res).Error; err != nil {
		return nil, newStorageError("list", err)
	}
	return res, nil
}

func (r *entryRepository) ListRecent(ctx context.Context, limit int) ([]*model.Entry, error) {
	if limit <= 0 {
		return []*model.Entry{}, nil
	}
	res := make([]*model.Entry, 0, limit)
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&res).Error; err != nil {
		return nil, newStorageError("list recent", err)
	}
	return res, nil
}

func (r *entryRepository) ListSince(ctx context.Context, afterID uint64) ([]*model.Entry, error) {
	res := make([]*model.Entry, 0)
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id DESC").
		Find(&res).Error
	if err != nil {
		return nil, newStorageError("list since", err)
	}
	return res, nil
}

func (r *entryRepository) Count(ctx context.Context) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.Entry{}).Count(&cnt).Error; err != nil {
		return 0, newStorageError("count", err)
	}
	return cnt, nil
}

func (r *entryRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return newStorageError("ping", err)
	}
	return newStorageError("ping", sqlDB.PingContext(ctx))
}

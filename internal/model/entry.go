package model

import "time"

// 字段长度上限（字符数）
const (
	MaxNameLength    = 100
	MaxMessageLength = 1000
)

// Entry 留言，创建后不可修改
type Entry struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null;check:chk_entries_name,length(name) > 0 AND length(name) <= 100"`
	Message   string    `json:"message" gorm:"type:text;not null;check:chk_entries_message,length(message) > 0 AND length(message) <= 1000"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName 指定表名
func (Entry) TableName() string { return "entries" }

package storage

import (
	"time"

	"gorm.io/gorm"
)

// 本文件定义平台使用的所有 GORM 模型，集中管理数据结构。

// User 为广告作者；广告只引用用户，不拥有用户。
type User struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Username  string `gorm:"size:190;uniqueIndex;not null"`
	FirstName string `gorm:"size:190"`
	LastName  string `gorm:"size:190"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category 仅通过唯一名称被检索。
type Category struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:190;uniqueIndex;not null"`
	CreatedAt time.Time
}

type Ad struct {
	ID          uint64   `gorm:"primaryKey;autoIncrement"`
	Name        string   `gorm:"size:255;not null"`
	AuthorID    uint64   `gorm:"index;not null"`
	Author      User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	CategoryID  uint64   `gorm:"index;not null"`
	Category    Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Price       int64    `gorm:"index;not null"`
	Description string   `gorm:"type:text"`
	IsPublished bool     `gorm:"not null"`
	Image       string   `gorm:"size:255"` // 媒体存储中的对象键，空表示无图片
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AuditRecord 记录广告的每次变更，便于事后追溯。
type AuditRecord struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Timestamp   time.Time `gorm:"index"`
	Event       string    `gorm:"size:64;index"`
	AdID        *uint64   `gorm:"index"`
	RequestID   string    `gorm:"size:64;index"`
	IPAddress   string    `gorm:"size:64"`
	Description string    `gorm:"type:text"`
}

// AutoMigrate 执行数据库自动迁移。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Category{}, &Ad{}, &AuditRecord{})
}

package services

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 表示引用的广告/用户/分类不存在。
	ErrNotFound = errors.New("not_found")
	// ErrConflict 表示自然键（用户名、分类名）已被占用。
	ErrConflict = errors.New("conflict")
	// ErrInvalid 表示输入在服务层校验失败（如仅含空白的名称）。
	ErrInvalid = errors.New("invalid")
)

// NotFoundError 携带缺失实体的类型（ad、user、category）。
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// notFound 将 gorm.ErrRecordNotFound 转换为带实体类型的 NotFoundError。
func notFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: entity}
	}
	return err
}

// MediaError 表示图片写入媒体存储失败（区别于数据库错误）。
type MediaError struct {
	Err error
}

func (e *MediaError) Error() string { return "media: " + e.Err.Error() }

func (e *MediaError) Unwrap() error { return e.Err }

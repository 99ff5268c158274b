package services

// 用户服务：广告作者的查询与创建（按用户名自然键）。

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"adboard/internal/storage"
)

// UserService 提供基础用户查询与创建。
type UserService struct{ db *gorm.DB }

func NewUserService(db *gorm.DB) *UserService { return &UserService{db: db} }

func (s *UserService) FindByUsername(ctx context.Context, username string) (*storage.User, error) {
	var u storage.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (s *UserService) FindByID(ctx context.Context, id uint64) (*storage.User, error) {
	var u storage.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (s *UserService) Create(ctx context.Context, username, firstName, lastName string) (*storage.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username required", ErrInvalid)
	}
	if _, err := s.FindByUsername(ctx, username); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	u := &storage.User{Username: username, FirstName: firstName, LastName: lastName}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, limit int) ([]storage.User, error) {
	if limit <= 0 {
		limit = 100
	}
	var users []storage.User
	if err := s.db.WithContext(ctx).Order("id").Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

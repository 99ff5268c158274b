// Package seed 从 YAML/JSON 夹具文件向数据库灌入用户、分类与广告，便于本地开发与演示。
// 已存在的用户名、分类名以及（作者、分类、标题）相同的广告会被跳过，重复执行不会产生重复数据。
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"adboard/internal/services"
)

// Fixtures 为夹具文件的顶层结构。
type Fixtures struct {
	Users      []User   `yaml:"users" json:"users"`
	Categories []string `yaml:"categories" json:"categories"`
	Ads        []Ad     `yaml:"ads" json:"ads"`
}

type User struct {
	Username  string `yaml:"username" json:"username"`
	FirstName string `yaml:"first_name" json:"first_name"`
	LastName  string `yaml:"last_name" json:"last_name"`
}

type Ad struct {
	Name        string `yaml:"name" json:"name"`
	Author      string `yaml:"author" json:"author"`
	Category    string `yaml:"category" json:"category"`
	Price       int64  `yaml:"price" json:"price"`
	Description string `yaml:"description" json:"description"`
	IsPublished bool   `yaml:"is_published" json:"is_published"`
}

// Report 汇总一次灌入的结果。
type Report struct {
	UsersCreated, UsersSkipped           int
	CategoriesCreated, CategoriesSkipped int
	AdsCreated, AdsSkipped               int
}

// Load 按扩展名解析夹具文件（.yaml/.yml/.json）。
func Load(path string) (*Fixtures, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx Fixtures
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fx)
	case ".json":
		err = json.Unmarshal(b, &fx)
	default:
		return nil, fmt.Errorf("unsupported fixtures format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fx, nil
}

// Seeder 依赖的服务集合。
type Seeder struct {
	Users      *services.UserService
	Categories *services.CategoryService
	Ads        *services.AdService
}

// Apply 依次创建用户、分类、广告。dryRun 时只校验引用并统计，不写库。
func (s *Seeder) Apply(ctx context.Context, fx *Fixtures, dryRun bool) (Report, error) {
	var rep Report
	known := map[string]bool{}
	for _, u := range fx.Users {
		_, err := s.Users.FindByUsername(ctx, u.Username)
		switch {
		case err == nil:
			rep.UsersSkipped++
		case !errors.Is(err, services.ErrNotFound):
			return rep, err
		case dryRun:
			rep.UsersCreated++
		default:
			if _, err := s.Users.Create(ctx, u.Username, u.FirstName, u.LastName); err != nil {
				return rep, fmt.Errorf("create user %q: %w", u.Username, err)
			}
			rep.UsersCreated++
		}
		known["user:"+u.Username] = true
	}
	for _, name := range fx.Categories {
		_, err := s.Categories.FindByName(ctx, name)
		switch {
		case err == nil:
			rep.CategoriesSkipped++
		case !errors.Is(err, services.ErrNotFound):
			return rep, err
		case dryRun:
			rep.CategoriesCreated++
		default:
			if _, err := s.Categories.Create(ctx, name); err != nil {
				return rep, fmt.Errorf("create category %q: %w", name, err)
			}
			rep.CategoriesCreated++
		}
		known["category:"+name] = true
	}
	for i, a := range fx.Ads {
		if a.Price < 0 {
			return rep, fmt.Errorf("ad #%d %q: negative price", i, a.Name)
		}
		if dryRun {
			if !known["user:"+a.Author] {
				if _, err := s.Users.FindByUsername(ctx, a.Author); err != nil {
					return rep, fmt.Errorf("ad #%d %q: %w", i, a.Name, err)
				}
			}
			if !known["category:"+a.Category] {
				if _, err := s.Categories.FindByName(ctx, a.Category); err != nil {
					return rep, fmt.Errorf("ad #%d %q: %w", i, a.Name, err)
				}
			}
		}
		_, err := s.Ads.FindByNatural(ctx, a.Author, a.Category, a.Name)
		switch {
		case err == nil:
			rep.AdsSkipped++
			continue
		case !errors.Is(err, services.ErrNotFound):
			return rep, err
		case dryRun:
			rep.AdsCreated++
			continue
		}
		ad, err := s.Ads.Create(ctx, services.AdInput{
			Author:      a.Author,
			Category:    a.Category,
			Name:        a.Name,
			Price:       a.Price,
			Description: a.Description,
			IsPublished: a.IsPublished,
		})
		if err != nil {
			return rep, fmt.Errorf("ad #%d %q: %w", i, a.Name, err)
		}
		log.WithFields(log.Fields{"ad_id": ad.ID, "name": ad.Name}).Debug("seeded ad")
		rep.AdsCreated++
	}
	return rep, nil
}

package services

// 广告服务：列表分页、创建、详情、更新、删除与图片上传。
// 作者与分类按自然键（用户名、分类名）解析，不接受内部 ID。

import (
	"context"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"adboard/internal/events"
	"adboard/internal/storage"
	"adboard/internal/utils"
)

// AdService 封装广告的持久化与媒体存储。
type AdService struct {
	db       *gorm.DB
	users    *UserService
	cats     *CategoryService
	media    storage.MediaStore
	pub      events.Publisher
	pageSize int
}

// NewAdService 构造广告服务；pageSize 为列表每页条数，pub 为空时不发布事件。
func NewAdService(db *gorm.DB, media storage.MediaStore, pub events.Publisher, pageSize int) *AdService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &AdService{
		db:       db,
		users:    NewUserService(db),
		cats:     NewCategoryService(db),
		media:    media,
		pub:      pub,
		pageSize: pageSize,
	}
}

// AdInput 为创建广告的输入。
type AdInput struct {
	Author      string
	Category    string
	Name        string
	Price       int64
	Description string
	IsPublished bool
}

// AdPatch 为部分更新；nil 字段保持不变。
type AdPatch struct {
	Name        *string
	Price       *int64
	Description *string
	IsPublished *bool
	Author      *string
	Category    *string
}

// AdPage 为一页广告及分页信息。
type AdPage struct {
	Items    []storage.Ad
	Number   int
	NumPages int
	Total    int64
}

// List 按价格降序返回指定页；页码解析规则见 utils.Paginator。
func (s *AdService) List(ctx context.Context, pageParam string) (*AdPage, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&storage.Ad{}).Count(&total).Error; err != nil {
		return nil, err
	}
	p := utils.NewPaginator(total, s.pageSize)
	pg := p.Page(pageParam)
	var ads []storage.Ad
	err := s.db.WithContext(ctx).
		Preload("Author").Preload("Category").
		Order("price DESC").Order("id ASC").
		Offset(pg.Offset).Limit(pg.Limit).
		Find(&ads).Error
	if err != nil {
		return nil, err
	}
	return &AdPage{Items: ads, Number: pg.Number, NumPages: p.NumPages(), Total: total}, nil
}

func (s *AdService) Create(ctx context.Context, in AdInput) (*storage.Ad, error) {
	author, err := s.users.FindByUsername(ctx, in.Author)
	if err != nil {
		return nil, err
	}
	cat, err := s.cats.FindByName(ctx, in.Category)
	if err != nil {
		return nil, err
	}
	ad := &storage.Ad{
		Name:        in.Name,
		AuthorID:    author.ID,
		CategoryID:  cat.ID,
		Price:       in.Price,
		Description: in.Description,
		IsPublished: in.IsPublished,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(ad).Error; err != nil {
		return nil, err
	}
	ad.Author = *author
	ad.Category = *cat
	s.publish(ctx, events.AdCreated, ad)
	return ad, nil
}

func (s *AdService) Get(ctx context.Context, id uint64) (*storage.Ad, error) {
	var ad storage.Ad
	err := s.db.WithContext(ctx).Preload("Author").Preload("Category").First(&ad, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "ad")
	}
	return &ad, nil
}

// FindByNatural 按（作者用户名、分类名、标题）查找广告，任一环节缺失都返回 NotFoundError。
func (s *AdService) FindByNatural(ctx context.Context, author, category, name string) (*storage.Ad, error) {
	u, err := s.users.FindByUsername(ctx, author)
	if err != nil {
		return nil, err
	}
	c, err := s.cats.FindByName(ctx, category)
	if err != nil {
		return nil, err
	}
	var ad storage.Ad
	err = s.db.WithContext(ctx).
		Where("author_id = ? AND category_id = ? AND name = ?", u.ID, c.ID, name).
		Order("id").First(&ad).Error
	if err != nil {
		return nil, notFound(err, "ad")
	}
	return &ad, nil
}

// Update 只写入请求中出现的列；作者/分类先解析，失败则不做任何修改。
// 未出现的列（包括 image）不会被回写，并发上传的图片不会被覆盖。
func (s *AdService) Update(ctx context.Context, id uint64, p AdPatch) (*storage.Ad, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	cols := map[string]any{}
	if p.Author != nil {
		u, err := s.users.FindByUsername(ctx, *p.Author)
		if err != nil {
			return nil, err
		}
		cols["author_id"] = u.ID
	}
	if p.Category != nil {
		c, err := s.cats.FindByName(ctx, *p.Category)
		if err != nil {
			return nil, err
		}
		cols["category_id"] = c.ID
	}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.IsPublished != nil {
		cols["is_published"] = *p.IsPublished
	}
	if err := s.updateColumns(ctx, id, cols); err != nil {
		return nil, err
	}
	ad, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.AdUpdated, ad)
	return ad, nil
}

// Delete 先查询再删除；不存在时返回 NotFoundError。作者与分类不受影响，图片文件保留。
func (s *AdService) Delete(ctx context.Context, id uint64) error {
	var ad storage.Ad
	if err := s.db.WithContext(ctx).First(&ad, "id = ?", id).Error; err != nil {
		return notFound(err, "ad")
	}
	if err := s.db.WithContext(ctx).Delete(&ad).Error; err != nil {
		return err
	}
	s.publish(ctx, events.AdDeleted, &ad)
	return nil
}

// SetImage 保存新图片并替换广告的图片引用，随后尽力删除旧对象。
func (s *AdService) SetImage(ctx context.Context, id uint64, filename, contentType string, size int64, r io.Reader) (*storage.Ad, error) {
	ad, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	key := utils.UploadKey("ads", filename)
	if err := s.media.Save(ctx, key, r, size, contentType); err != nil {
		return nil, &MediaError{Err: err}
	}
	old := ad.Image
	if err := s.updateColumns(ctx, id, map[string]any{"image": key}); err != nil {
		if derr := s.media.Delete(ctx, key); derr != nil {
			log.WithError(derr).WithField("key", key).Warn("remove orphan image")
		}
		return nil, err
	}
	ad.Image = key
	if old != "" && old != key {
		if err := s.media.Delete(ctx, old); err != nil {
			log.WithError(err).WithField("key", old).Warn("remove replaced image")
		}
	}
	s.publish(ctx, events.AdImageUploaded, ad)
	return ad, nil
}

// ImageURL 返回图片的对外 URL；无图片时返回 nil（序列化为 null）。
func (s *AdService) ImageURL(ad *storage.Ad) *string {
	if ad == nil || ad.Image == "" || s.media == nil {
		return nil
	}
	u := s.media.URL(ad.Image)
	return &u
}

// Ping 检查数据库连接。
func (s *AdService) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// updateColumns 按主键只更新给定的列；cols 为空时不访问数据库。
func (s *AdService) updateColumns(ctx context.Context, id uint64, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&storage.Ad{}).Where("id = ?", id).Updates(cols).Error
}

func (s *AdService) publish(ctx context.Context, subject string, ad *storage.Ad) {
	ev := events.AdEvent{AdID: ad.ID, Name: ad.Name, Price: ad.Price, Image: ad.Image, At: time.Now().UTC()}
	if err := s.pub.Publish(ctx, subject, ev); err != nil {
		log.WithError(err).WithFields(log.Fields{"subject": subject, "ad_id": ad.ID}).Warn("publish ad event failed")
	}
}

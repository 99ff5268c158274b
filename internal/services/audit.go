package services

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"adboard/internal/storage"
)

// 审计事件名
const (
	AuditAdCreated       = "AD_CREATED"
	AuditAdUpdated       = "AD_UPDATED"
	AuditAdDeleted       = "AD_DELETED"
	AuditAdImageUploaded = "AD_IMAGE_UPLOADED"
)

// AuditService 将广告变更的审计记录持久化到数据库。
type AuditService struct{ db *gorm.DB }

func NewAuditService(db *gorm.DB) *AuditService { return &AuditService{db: db} }

// Write 写入一条审计记录；失败只记日志，不影响请求结果。
func (s *AuditService) Write(ctx context.Context, event string, adID uint64, desc, requestID, ip string) {
	rec := &storage.AuditRecord{
		Timestamp:   time.Now(),
		Event:       event,
		AdID:        &adID,
		RequestID:   requestID,
		IPAddress:   ip,
		Description: desc,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		log.WithError(err).WithField("event", event).Warn("audit write failed")
	}
}

// ListByAd 按时间顺序返回某条广告的审计记录。
func (s *AuditService) ListByAd(ctx context.Context, adID uint64) ([]storage.AuditRecord, error) {
	var list []storage.AuditRecord
	if err := s.db.WithContext(ctx).Where("ad_id = ?", adID).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

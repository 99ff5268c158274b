// Package events 发布广告领域事件（创建、更新、删除、上传图片），供下游异步消费。
package events

import (
	"context"
	"time"
)

// 事件主题后缀，完整主题为 <prefix>.<suffix>。
const (
	AdCreated       = "created"
	AdUpdated       = "updated"
	AdDeleted       = "deleted"
	AdImageUploaded = "image_uploaded"
)

// AdEvent 为事件负载。
type AdEvent struct {
	AdID  uint64    `json:"ad_id"`
	Name  string    `json:"name"`
	Price int64     `json:"price"`
	Image string    `json:"image,omitempty"`
	At    time.Time `json:"at"`
}

// Publisher 发布事件；实现需并发安全。
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Nop 丢弃所有事件（未配置 NATS 时使用）。
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

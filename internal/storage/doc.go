// Package storage 提供底层持久化适配：数据库连接、自动迁移、GORM 模型声明以及广告图片的媒体存储。
// 其它层应通过 services 间接访问存储。
package storage

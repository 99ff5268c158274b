// Package services 提供应用的领域服务层：广告、分类、用户与审计日志。
// handlers 只做输入/输出转换，持久化与自然键解析都在这一层完成。
package services

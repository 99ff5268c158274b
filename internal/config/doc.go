// Package config 负责加载与解析进程配置，支持 YAML/JSON 配置文件与默认值合并。
// 分页大小、图片存储、限流等均通过此处显式注入，不使用全局常量。
package config

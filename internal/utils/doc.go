// Package utils 提供与 HTTP/存储无关的小工具：分页与上传文件命名。
package utils

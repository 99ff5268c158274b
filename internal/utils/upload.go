package utils

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// UploadKey 为上传文件生成不可猜测的对象键：<prefix>/<uuid><ext>。
// 仅保留短小的字母数字扩展名，原始文件名的其余部分丢弃。
func UploadKey(prefix, original string) string {
	return strings.Trim(prefix, "/") + "/" + uuid.NewString() + cleanExt(original)
}

func cleanExt(name string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

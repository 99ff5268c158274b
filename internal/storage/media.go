package storage

// 广告图片的媒体存储抽象：本地文件系统或 S3 兼容对象存储（MinIO）。

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"adboard/internal/config"
)

// ErrBadMediaKey 表示对象键为空或试图逃逸存储根目录。
var ErrBadMediaKey = errors.New("bad media key")

// MediaStore 保存/删除图片对象，并将对象键转换为对外 URL。
type MediaStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// OpenMedia 按 media.backend 选择存储实现。
func OpenMedia(ctx context.Context, cfg config.Config) (MediaStore, error) {
	switch cfg.Media.Backend {
	case "", "local":
		return NewLocalMedia(cfg.Media.Root, cfg.Media.URL)
	case "s3":
		return NewS3Media(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Media.Backend)
	}
}

// LocalMedia 将图片写入本地目录，URL 为 baseURL + key（由路由静态托管）。
type LocalMedia struct {
	root    string
	baseURL string
}

func NewLocalMedia(root, baseURL string) (*LocalMedia, error) {
	if root == "" {
		return nil, errors.New("media root must be set")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalMedia{root: root, baseURL: baseURL}, nil
}

// Root 返回本地根目录，供路由挂载静态文件。
func (m *LocalMedia) Root() string { return m.root }

// BaseURL 返回对外访问前缀（以 / 结尾）。
func (m *LocalMedia) BaseURL() string { return m.baseURL }

func (m *LocalMedia) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", ErrBadMediaKey
	}
	return filepath.Join(m.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Save 先写临时文件再重命名，避免读到写了一半的图片。
func (m *LocalMedia) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	dst, err := m.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (m *LocalMedia) Delete(_ context.Context, key string) error {
	p, err := m.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (m *LocalMedia) URL(key string) string { return m.baseURL + key }

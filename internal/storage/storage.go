package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/congdong-blog/internal/config"
	"github.com/congdong-blog/internal/constants"
)

var (
	// ErrInvalidName 文件名包含路径或为空
	ErrInvalidName = errors.New("invalid image name")
	// ErrNotExist 图片不存在
	ErrNotExist = errors.New("image not found")
)

// ImageStore 图片存储，写入后不删除
type ImageStore interface {
	Save(ctx context.Context, name string, data []byte, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, name string) (bool, error)
	URL(name string) string
	Driver() string
}

// New 按上传配置创建图片存储
func New(cfg config.UploadConfig) (ImageStore, error) {
	switch cfg.Driver {
	case "", constants.StorageDriverLocal:
		return NewLocalStore(cfg.Dir, "/images")
	case constants.StorageDriverS3:
		return NewS3Store(cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// validateName 只允许单层文件名
func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return ErrInvalidName
	}
	return nil
}

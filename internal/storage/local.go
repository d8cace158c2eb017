package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/congdong-blog/internal/constants"
)

// LocalStore 本地目录存储
type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore 创建本地存储，目录不存在时自动创建
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "images"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir failed: %w", err)
	}
	return &LocalStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Dir 存储目录
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save 写入文件，同名文件已存在时报错而不覆盖
func (s *LocalStore) Save(_ context.Context, name string, data []byte, _ string) error {
	if err := validateName(name); err != nil {
		return err
	}
	file, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create image file failed: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return fmt.Errorf("write image file failed: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close image file failed: %w", err)
	}
	return nil
}

// Open 打开图片
func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	return file, err
}

// Exists 判断图片是否存在
func (s *LocalStore) Exists(_ context.Context, name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// URL 图片访问地址
func (s *LocalStore) URL(name string) string {
	return s.urlPrefix + "/" + name
}

// Driver 存储驱动名
func (s *LocalStore) Driver() string {
	return constants.StorageDriverLocal
}

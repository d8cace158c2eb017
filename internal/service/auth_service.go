package service

import (
	"fmt"
	"strings"

	"github.com/congdong-blog/internal/config"
	"github.com/congdong-blog/internal/constants"

	"golang.org/x/crypto/bcrypt"
)

// AuthService 管理端共享口令校验
type AuthService struct {
	hash            []byte
	usingDefault    bool
	passwordMissing bool
}

// NewAuthService 创建认证服务，明文口令在启动时转为 bcrypt 哈希，仅保留哈希
func NewAuthService(cfg config.AdminConfig) (*AuthService, error) {
	if hash := strings.TrimSpace(cfg.PasswordHash); hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("admin.password_hash is not a bcrypt hash: %w", err)
		}
		return &AuthService{hash: []byte(hash)}, nil
	}
	password := cfg.Password
	missing := password == ""
	if missing {
		password = constants.DefaultAdminPassword
	}
	if len(password) > maxAdminPasswordBytes {
		return nil, fmt.Errorf("%w: admin.password / ADMIN_PASSWORD is %d bytes", ErrAdminPasswordTooLong, len(password))
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		hash:            []byte(hash),
		usingDefault:    password == constants.DefaultAdminPassword,
		passwordMissing: missing,
	}, nil
}

// HashPassword 使用 bcrypt 加密密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAdminPassword 校验管理口令
func (s *AuthService) VerifyAdminPassword(password string) error {
	if s == nil || password == "" {
		return ErrAdminPasswordInvalid
	}
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(password)); err != nil {
		return ErrAdminPasswordInvalid
	}
	return nil
}

// UsingDefaultPassword 是否仍在使用默认口令
func (s *AuthService) UsingDefaultPassword() bool {
	return s != nil && s.usingDefault
}

// PasswordMissing 是否未配置任何口令
func (s *AuthService) PasswordMissing() bool {
	return s != nil && s.passwordMissing
}

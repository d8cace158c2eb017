package service

import (
	"errors"
	"fmt"
)

const maxAdminPasswordBytes = 72

var (
	// ErrNotFound 资源不存在
	ErrNotFound = errors.New("not found")
	// ErrValidation 参数校验失败，未写入任何数据
	ErrValidation = errors.New("validation failed")

	ErrPostNotFound           = fmt.Errorf("%w: post", ErrNotFound)
	ErrPostTitleRequired      = fmt.Errorf("%w: post title is required", ErrValidation)
	ErrPostContentRequired    = fmt.Errorf("%w: post content is required", ErrValidation)
	ErrCommentContentRequired = fmt.Errorf("%w: comment content is required", ErrValidation)
	ErrInvalidEmoji           = fmt.Errorf("%w: unsupported emoji", ErrValidation)
	ErrImageInvalid           = fmt.Errorf("%w: invalid image", ErrValidation)
	ErrImageTooLarge          = fmt.Errorf("%w: image too large", ErrImageInvalid)

	ErrPostAlreadyPublished = errors.New("post already published")
	ErrAdminPasswordInvalid = errors.New("admin password invalid")
	// ErrAdminPasswordTooLong bcrypt 只接受 72 字节以内的口令
	ErrAdminPasswordTooLong = fmt.Errorf("admin password exceeds %d bytes", maxAdminPasswordBytes)
)

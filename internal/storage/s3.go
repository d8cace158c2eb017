package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/congdong-blog/internal/config"
	"github.com/congdong-blog/internal/constants"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Store S3 兼容对象存储（R2 / MinIO）
type S3Store struct {
	client   *s3.Client
	bucket   string
	prefix   string
	endpoint string
}

// NewS3Store 创建对象存储
func NewS3Store(cfg config.S3Config) (*S3Store, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	bucket := strings.TrimSpace(cfg.Bucket)
	if endpoint == "" || bucket == "" {
		return nil, fmt.Errorf("s3 endpoint and bucket are required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "auto"
	}
	client := s3.New(s3.Options{
		BaseEndpoint:               aws.String(endpoint),
		Region:                     region,
		Credentials:                credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle:               cfg.UsePathStyle,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	return &S3Store{
		client:   client,
		bucket:   bucket,
		prefix:   strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		endpoint: endpoint,
	}, nil
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// Save 上传对象，已存在时跳过
func (s *S3Store) Save(ctx context.Context, name string, data []byte, contentType string) error {
	if err := validateName(name); err != nil {
		return err
	}
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("upload image to s3: %w", err)
	}
	return nil
}

// Open 读取对象
func (s *S3Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("get image from s3: %w", err)
	}
	return out.Body, nil
}

// Exists 通过 HeadObject 判断对象是否存在
func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head image in s3: %w", err)
}

// URL 路径风格的对象地址
func (s *S3Store) URL(name string) string {
	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, s.key(name))
}

// Driver 存储驱动名
func (s *S3Store) Driver() string {
	return constants.StorageDriverS3
}

func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

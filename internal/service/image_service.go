package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/congdong-blog/internal/config"
	"github.com/congdong-blog/internal/storage"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
)

const maxImageBaseNameLen = 80

// ImageInput 待保存的上传图片
type ImageInput struct {
	Filename string
	Reader   io.Reader
}

// PreparedImage 通过校验、可直接写入存储的图片
type PreparedImage struct {
	Name        string
	ContentType string
	Width       int
	Height      int
	Data        []byte
}

// ImageService 图片校验与保存服务
type ImageService struct {
	cfg   config.UploadConfig
	store storage.ImageStore
	now   func() time.Time
}

// NewImageService 创建图片服务实例
func NewImageService(cfg config.UploadConfig, store storage.ImageStore) *ImageService {
	return &ImageService{cfg: cfg, store: store, now: time.Now}
}

// Store 返回底层图片存储
func (s *ImageService) Store() storage.ImageStore {
	return s.store
}

// Prepare 校验大小、扩展名、内容类型与尺寸，并生成存储文件名
func (s *ImageService) Prepare(input ImageInput) (*PreparedImage, error) {
	if input.Reader == nil {
		return nil, ErrImageInvalid
	}
	limit := s.cfg.MaxSize
	var data []byte
	var err error
	if limit > 0 {
		data, err = io.ReadAll(io.LimitReader(input.Reader, limit+1))
	} else {
		data, err = io.ReadAll(input.Reader)
	}
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrImageInvalid
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: max %d bytes", ErrImageTooLarge, limit)
	}

	ext := strings.ToLower(filepath.Ext(input.Filename))
	if len(s.cfg.AllowedExtensions) > 0 {
		if ext == "" || !isAllowedExtension(ext, s.cfg.AllowedExtensions) {
			return nil, fmt.Errorf("%w: extension %q not allowed", ErrImageInvalid, ext)
		}
	}

	// 读取文件头部识别 MIME 类型
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	contentType := http.DetectContentType(head)
	if len(s.cfg.AllowedTypes) > 0 {
		allowed := false
		for _, t := range s.cfg.AllowedTypes {
			if strings.EqualFold(contentType, t) {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("%w: content type %s not allowed", ErrImageInvalid, contentType)
		}
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: content type %s", ErrImageInvalid, contentType)
	}

	width, height, err := decodeImageDimensions(bytes.NewReader(data), contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageInvalid, err)
	}
	if s.cfg.MaxWidth > 0 && width > s.cfg.MaxWidth {
		return nil, fmt.Errorf("%w: width %d exceeds %d", ErrImageTooLarge, width, s.cfg.MaxWidth)
	}
	if s.cfg.MaxHeight > 0 && height > s.cfg.MaxHeight {
		return nil, fmt.Errorf("%w: height %d exceeds %d", ErrImageTooLarge, height, s.cfg.MaxHeight)
	}

	return &PreparedImage{
		Name:        s.buildName(input.Filename),
		ContentType: contentType,
		Width:       width,
		Height:      height,
		Data:        data,
	}, nil
}

// Save 写入图片存储，文件写入后不再删除
func (s *ImageService) Save(ctx context.Context, img *PreparedImage) error {
	if img == nil {
		return nil
	}
	return s.store.Save(ctx, img.Name, img.Data, img.ContentType)
}

// buildName 生成 <unix 秒>_<8 位随机>_<清洗后的原始文件名>
func (s *ImageService) buildName(original string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d_%s_%s", s.now().Unix(), suffix, sanitizeImageName(original))
}

func sanitizeImageName(original string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(original), `\`, "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), "_")
	if cleaned == "" || cleaned == "." {
		cleaned = "image"
	}
	if len(cleaned) > maxImageBaseNameLen {
		cleaned = cleaned[:maxImageBaseNameLen]
	}
	return cleaned + ext
}

func isAllowedExtension(ext string, allowed []string) bool {
	for _, allowedExt := range allowed {
		normalized := strings.ToLower(strings.TrimSpace(allowedExt))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if strings.EqualFold(ext, normalized) {
			return true
		}
	}
	return false
}

func decodeImageDimensions(src *bytes.Reader, contentType string) (int, int, error) {
	if strings.EqualFold(contentType, "image/webp") {
		width, height, err := decodeWebPDimensions(src)
		if err != nil {
			return 0, 0, fmt.Errorf("decode webp: %w", err)
		}
		return width, height, nil
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// decodeWebPDimensions 只读取尺寸所在的 chunk，chunk 长度不得超过剩余数据
func decodeWebPDimensions(src *bytes.Reader) (int, int, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}

	header := make([]byte, 12)
	if _, err := io.ReadFull(src, header); err != nil {
		return 0, 0, err
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WEBP" {
		return 0, 0, fmt.Errorf("invalid webp header")
	}

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(src, chunkHeader); err != nil {
			return 0, 0, err
		}
		chunkType := string(chunkHeader[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))
		if chunkSize > int64(src.Len()) {
			return 0, 0, fmt.Errorf("webp chunk %q size %d exceeds remaining %d bytes", chunkType, chunkSize, src.Len())
		}

		switch chunkType {
		case "VP8X", "VP8 ", "VP8L":
			data := make([]byte, chunkSize)
			if _, err := io.ReadFull(src, data); err != nil {
				return 0, 0, err
			}
			return webpChunkDimensions(chunkType, data)
		}

		// 跳过无关 chunk，奇数长度带一个填充字节
		skip := chunkSize + chunkSize%2
		if _, err := src.Seek(skip, io.SeekCurrent); err != nil {
			return 0, 0, err
		}
	}
}

func webpChunkDimensions(chunkType string, data []byte) (int, int, error) {
	switch chunkType {
	case "VP8X":
		if len(data) < 10 {
			return 0, 0, fmt.Errorf("short VP8X chunk")
		}
		width := 1 + int(data[4]) + int(data[5])<<8 + int(data[6])<<16
		height := 1 + int(data[7]) + int(data[8])<<8 + int(data[9])<<16
		return width, height, nil
	case "VP8 ":
		if len(data) < 10 {
			return 0, 0, fmt.Errorf("short VP8 chunk")
		}
		width := int(binary.LittleEndian.Uint16(data[6:8]) & 0x3FFF)
		height := int(binary.LittleEndian.Uint16(data[8:10]) & 0x3FFF)
		return width, height, nil
	default:
		if len(data) < 5 {
			return 0, 0, fmt.Errorf("short VP8L chunk")
		}
		if data[0] != 0x2f {
			return 0, 0, fmt.Errorf("invalid VP8L signature")
		}
		bits := binary.LittleEndian.Uint32(data[1:5])
		width := int(bits&0x3FFF) + 1
		height := int((bits>>14)&0x3FFF) + 1
		return width, height, nil
	}
}

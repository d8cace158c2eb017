package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/congdong-blog/internal/config"
	"github.com/congdong-blog/internal/storage"
)

func newTestImageService(t *testing.T, maxSize int64) *ImageService {
	t.Helper()
	store, err := storage.NewLocalStore(filepath.Join(t.TempDir(), "images"), "/images")
	if err != nil {
		t.Fatalf("create local store failed: %v", err)
	}
	svc := NewImageService(config.UploadConfig{
		MaxSize:           maxSize,
		AllowedTypes:      []string{"image/png", "image/jpeg", "image/gif", "image/webp"},
		AllowedExtensions: []string{".png", "jpg", ".webp"},
		MaxWidth:          100,
		MaxHeight:         100,
	}, store)
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc
}

func TestImagePrepareAcceptsPNG(t *testing.T) {
	svc := newTestImageService(t, 1<<20)
	img, err := svc.Prepare(ImageInput{Filename: "cat photo.PNG", Reader: bytes.NewReader(encodeTestPNG(t, 10, 7))})
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if img.ContentType != "image/png" || img.Width != 10 || img.Height != 7 {
		t.Fatalf("unexpected prepared image: %+v", img)
	}
	if !strings.HasPrefix(img.Name, "1700000000_") || !strings.HasSuffix(img.Name, "_cat_photo.png") {
		t.Fatalf("unexpected image name %q", img.Name)
	}
	if err := svc.Save(context.Background(), img); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	ok, err := svc.Store().Exists(context.Background(), img.Name)
	if err != nil || !ok {
		t.Fatalf("saved image should exist, ok=%v err=%v", ok, err)
	}
}

func TestImagePrepareRejections(t *testing.T) {
	svc := newTestImageService(t, 256)
	png := encodeTestPNG(t, 4, 4)

	if _, err := svc.Prepare(ImageInput{Filename: "a.png", Reader: bytes.NewReader(make([]byte, 512))}); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("oversized upload want ErrImageTooLarge got %v", err)
	}
	if _, err := svc.Prepare(ImageInput{Filename: "a.gif", Reader: bytes.NewReader(png)}); !errors.Is(err, ErrImageInvalid) {
		t.Fatalf("extension outside allow list want ErrImageInvalid got %v", err)
	}
	if _, err := svc.Prepare(ImageInput{Filename: "a.png", Reader: strings.NewReader("plain text body")}); !errors.Is(err, ErrImageInvalid) {
		t.Fatalf("non-image body want ErrImageInvalid got %v", err)
	}
	if _, err := svc.Prepare(ImageInput{Filename: "a.png", Reader: bytes.NewReader(nil)}); !errors.Is(err, ErrImageInvalid) {
		t.Fatalf("empty body want ErrImageInvalid got %v", err)
	}

	big := newTestImageService(t, 1<<20)
	if _, err := big.Prepare(ImageInput{Filename: "a.png", Reader: bytes.NewReader(encodeTestPNG(t, 101, 5))}); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("too wide want ErrImageTooLarge got %v", err)
	}
}

func buildVP8XWebP(width, height int) []byte {
	chunk := make([]byte, 10)
	w, h := width-1, height-1
	chunk[4], chunk[5], chunk[6] = byte(w), byte(w>>8), byte(w>>16)
	chunk[7], chunk[8], chunk[9] = byte(h), byte(h>>8), byte(h>>16)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(4+8+3+1+8+len(chunk)))
	buf.WriteString("WEBP")
	// 前置一个奇数长度的无关 chunk
	buf.WriteString("ICCP")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(3))
	buf.Write([]byte{1, 2, 3, 0})
	buf.WriteString("VP8X")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(chunk)))
	buf.Write(chunk)
	return buf.Bytes()
}

func TestDecodeWebPDimensionsSkipsUnrelatedChunks(t *testing.T) {
	width, height, err := decodeWebPDimensions(bytes.NewReader(buildVP8XWebP(64, 48)))
	if err != nil {
		t.Fatalf("decode webp failed: %v", err)
	}
	if width != 64 || height != 48 {
		t.Fatalf("want 64x48 got %dx%d", width, height)
	}
	if _, _, err := decodeWebPDimensions(bytes.NewReader([]byte("RIFF\x00\x00\x00\x00WAVE"))); err == nil {
		t.Fatalf("non-webp RIFF should fail")
	}
}

func TestImagePrepareRejectsOversizedWebPChunk(t *testing.T) {
	svc := newTestImageService(t, 1<<20)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(28))
	buf.WriteString("WEBPVP8X")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0xF0000000))
	buf.Write(make([]byte, 20))

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := svc.Prepare(ImageInput{Filename: "big.webp", Reader: bytes.NewReader(buf.Bytes())})
	runtime.ReadMemStats(&after)

	if !errors.Is(err, ErrImageInvalid) {
		t.Fatalf("want ErrImageInvalid got %v", err)
	}
	if grown := after.TotalAlloc - before.TotalAlloc; grown > 16<<20 {
		t.Fatalf("chunk header should not drive allocation, allocated %d bytes", grown)
	}
}

func TestSanitizeImageName(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":              "photo.jpg",
		"../../etc/passwd.png":   "passwd.png",
		`C:\Users\me\pic.png`:    "pic.png",
		"ảnh.png":                "nh.png",
		"!!!.png":                "image.png",
		strings.Repeat("a", 200): strings.Repeat("a", maxImageBaseNameLen),
	}
	for input, want := range cases {
		if got := sanitizeImageName(input); got != want {
			t.Fatalf("sanitizeImageName(%q) want %q got %q", input, want, got)
		}
	}
}

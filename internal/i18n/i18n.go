package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	LocaleZhCN = "zh-CN"
	LocaleEnUS = "en-US"
	LocaleViVN = "vi-VN"

	// DefaultLocale 无法识别请求语言时使用
	DefaultLocale = LocaleViVN
)

// LocaleHeader 显式指定语言的请求头
const LocaleHeader = "X-Locale"

var messages = map[string]map[string]string{
	LocaleZhCN: {
		"error.bad_request":              "请求参数错误",
		"error.unauthorized":             "未授权",
		"error.admin_password_invalid":   "管理口令错误",
		"error.not_found":                "资源不存在",
		"error.post_not_found":           "文章不存在",
		"error.post_id_invalid":          "文章ID无效",
		"error.post_title_required":      "标题不能为空",
		"error.post_content_required":    "内容不能为空",
		"error.comment_content_required": "评论内容不能为空",
		"error.invalid_emoji":            "不支持的表情",
		"error.image_invalid":            "图片格式不合法",
		"error.image_too_large":          "图片过大",
		"error.post_already_published":   "文章已发布",
		"error.db_reconnecting":          "数据库正在重连，请稍后重试",
		"error.db_busy":                  "数据库繁忙，请稍后重试",
		"error.too_many_requests":        "请求过于频繁",
		"error.rate_limited":             "请求过于频繁，请 %d 秒后重试",
		"error.internal_error":           "服务器内部错误",
	},
	LocaleEnUS: {
		"error.bad_request":              "Invalid request",
		"error.unauthorized":             "Unauthorized",
		"error.admin_password_invalid":   "Invalid admin password",
		"error.not_found":                "Not found",
		"error.post_not_found":           "Post not found",
		"error.post_id_invalid":          "Invalid post id",
		"error.post_title_required":      "Title is required",
		"error.post_content_required":    "Content is required",
		"error.comment_content_required": "Comment content is required",
		"error.invalid_emoji":            "Unsupported emoji",
		"error.image_invalid":            "Invalid image",
		"error.image_too_large":          "Image is too large",
		"error.post_already_published":   "Post is already published",
		"error.db_reconnecting":          "Reconnecting to the database, please retry",
		"error.db_busy":                  "Database is busy, please retry",
		"error.too_many_requests":        "Too many requests",
		"error.rate_limited":             "Too many requests, retry in %d seconds",
		"error.internal_error":           "Internal server error",
	},
	LocaleViVN: {
		"error.bad_request":              "Yêu cầu không hợp lệ",
		"error.unauthorized":             "Chưa xác thực",
		"error.admin_password_invalid":   "Sai mật khẩu quản trị",
		"error.not_found":                "Không tìm thấy",
		"error.post_not_found":           "Không tìm thấy bài viết",
		"error.post_id_invalid":          "Mã bài viết không hợp lệ",
		"error.post_title_required":      "Vui lòng nhập tiêu đề",
		"error.post_content_required":    "Vui lòng nhập nội dung",
		"error.comment_content_required": "Vui lòng nhập nội dung bình luận",
		"error.invalid_emoji":            "Biểu tượng cảm xúc không được hỗ trợ",
		"error.image_invalid":            "Ảnh không hợp lệ",
		"error.image_too_large":          "Ảnh quá lớn",
		"error.post_already_published":   "Bài viết đã được duyệt",
		"error.db_reconnecting":          "Đang kết nối lại cơ sở dữ liệu, vui lòng thử lại",
		"error.db_busy":                  "Cơ sở dữ liệu đang bận, vui lòng thử lại",
		"error.too_many_requests":        "Bạn thao tác quá nhanh",
		"error.rate_limited":             "Bạn thao tác quá nhanh, thử lại sau %d giây",
		"error.internal_error":           "Lỗi máy chủ",
	},
}

// ResolveLocale 解析请求语言，X-Locale 优先于 Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if locale, ok := matchLocale(c.GetHeader(LocaleHeader)); ok {
		return locale
	}
	for _, part := range strings.Split(c.GetHeader("Accept-Language"), ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if locale, ok := matchLocale(tag); ok {
			return locale
		}
	}
	return DefaultLocale
}

func matchLocale(tag string) (string, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	switch {
	case tag == "":
		return "", false
	case strings.HasPrefix(tag, "zh"):
		return LocaleZhCN, true
	case strings.HasPrefix(tag, "en"):
		return LocaleEnUS, true
	case strings.HasPrefix(tag, "vi"):
		return LocaleViVN, true
	}
	return "", false
}

// T 翻译消息 key，未命中时回退到默认语言，再回退到 key 本身
func T(locale, key string) string {
	if table, ok := messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 翻译带参数的消息
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

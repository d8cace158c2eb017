package constants

// 文章状态常量
const (
	PostStatusPending   = "pending"
	PostStatusPublished = "published"
)

// 分类常量（固定集合）
const (
	CategoryAll        = "All"
	CategoryAllLocal   = "Tất cả"
	CategoryLegend     = "Truyền kỳ Thuỷ Dương"
	CategoryPhilosophy = "Triết lý nhân sinh"
	CategoryMeme       = "Meme"
	CategoryPoetry     = "Thơ ca"
	CategoryOther      = "Khác"
)

// Categories 可选分类，按展示顺序排列
var Categories = []string{
	CategoryLegend,
	CategoryPhilosophy,
	CategoryMeme,
	CategoryPoetry,
	CategoryOther,
}

// Emojis 可用的表情反应，按展示顺序排列
var Emojis = []string{"👍", "❤️", "😂", "😮", "😢"}

// DefaultAuthor 作者为空时的默认署名
const DefaultAuthor = "Anonymous"

// 队列与任务常量
const (
	QueueDefault    = "default"
	TaskImageMirror = "image:mirror"
)

// 图片存储驱动
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// AdminPasswordHeader 管理端共享口令请求头
const AdminPasswordHeader = "X-Admin-Password"

// DefaultAdminPassword 未配置管理口令时的回退值
const DefaultAdminPassword = "123456"

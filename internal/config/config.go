package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/congdong-blog/internal/constants"
	"github.com/congdong-blog/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Blog     BlogConfig     `mapstructure:"blog"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Upload   UploadConfig   `mapstructure:"upload"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MinConns               int `mapstructure:"min_conns"`
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
	AcquireTimeoutSeconds  int `mapstructure:"acquire_timeout_seconds"`
	ProbeTimeoutSeconds    int `mapstructure:"probe_timeout_seconds"`
}

// DatabaseKeepaliveConfig TCP keepalive 配置（仅 postgres）
type DatabaseKeepaliveConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IdleSeconds     int  `mapstructure:"idle_seconds"`
	IntervalSeconds int  `mapstructure:"interval_seconds"`
	Count           int  `mapstructure:"count"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver                string                  `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN                   string                  `mapstructure:"dsn"`    // 完整连接串，优先于分项配置
	Host                  string                  `mapstructure:"host"`
	Port                  int                     `mapstructure:"port"`
	Name                  string                  `mapstructure:"name"`
	User                  string                  `mapstructure:"user"`
	Password              string                  `mapstructure:"password"`
	SSLMode               string                  `mapstructure:"sslmode"`
	ConnectTimeoutSeconds int                     `mapstructure:"connect_timeout_seconds"`
	Keepalive             DatabaseKeepaliveConfig `mapstructure:"keepalive"`
	Pool                  DatabasePoolConfig      `mapstructure:"pool"`
}

// ConnectTimeout 建连超时
func (c DatabaseConfig) ConnectTimeout() time.Duration {
	if c.ConnectTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// PostgresDSN 拼接 postgres 连接串，DSN 已配置时直接返回
func (c DatabaseConfig) PostgresDSN() string {
	if dsn := strings.TrimSpace(c.DSN); dsn != "" {
		return dsn
	}
	port := c.Port
	if port <= 0 {
		port = 5432
	}
	sslMode := strings.TrimSpace(c.SSLMode)
	if sslMode == "" {
		sslMode = "require"
	}
	parts := []string{
		fmt.Sprintf("host=%s", quoteDSNValue(c.Host)),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("dbname=%s", quoteDSNValue(c.Name)),
		fmt.Sprintf("user=%s", quoteDSNValue(c.User)),
		fmt.Sprintf("sslmode=%s", sslMode),
		fmt.Sprintf("connect_timeout=%d", int(c.ConnectTimeout().Seconds())),
	}
	if c.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", quoteDSNValue(c.Password)))
	}
	return strings.Join(parts, " ")
}

func quoteDSNValue(value string) string {
	if value == "" {
		return "''"
	}
	if !strings.ContainsAny(value, " '\\") {
		return value
	}
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}

// AdminConfig 管理端配置
type AdminConfig struct {
	Password     string `mapstructure:"password"`
	PasswordHash string `mapstructure:"password_hash"` // bcrypt 哈希，配置后优先使用
}

// BlogConfig 博客业务配置
type BlogConfig struct {
	ModerationEnabled bool   `mapstructure:"moderation_enabled"`
	DefaultAuthor     string `mapstructure:"default_author"`
}

// CacheConfig 查询缓存配置
type CacheConfig struct {
	PostListTTLSeconds int `mapstructure:"post_list_ttl_seconds"`
}

// PostListTTL 文章列表缓存时长
func (c CacheConfig) PostListTTL() time.Duration {
	if c.PostListTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.PostListTTLSeconds) * time.Second
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// UploadConfig 图片上传配置
type UploadConfig struct {
	Driver            string             `mapstructure:"driver"` // local / s3
	Dir               string             `mapstructure:"dir"`
	MaxSize           int64              `mapstructure:"max_size"`
	AllowedTypes      []string           `mapstructure:"allowed_types"`
	AllowedExtensions []string           `mapstructure:"allowed_extensions"`
	MaxWidth          int                `mapstructure:"max_width"`
	MaxHeight         int                `mapstructure:"max_height"`
	S3                S3Config           `mapstructure:"s3"`
	Mirror            UploadMirrorConfig `mapstructure:"mirror"`
}

// S3Config S3 兼容对象存储配置
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// UploadMirrorConfig 本地图片异步镜像到 S3 的配置
type UploadMirrorConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AdminRateLimit RateLimitConfig `mapstructure:"admin_rate_limit"`
	PostRateLimit  RateLimitConfig `mapstructure:"post_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// legacyEnvBindings 兼容旧版部署使用的密钥名
var legacyEnvBindings = map[string][]string{
	"database.host":     {"DATABASE_HOST", "DB_HOST"},
	"database.name":     {"DATABASE_NAME", "DB_NAME"},
	"database.user":     {"DATABASE_USER", "DB_USER"},
	"database.password": {"DATABASE_PASSWORD", "DB_PASSWORD"},
	"database.port":     {"DATABASE_PORT", "DB_PORT"},
	"admin.password":    {"ADMIN_PASSWORD"},
}

// Load 从 config.yml 加载配置
func Load() *Config {
	return LoadWith(viper.New())
}

// LoadWith 使用指定的 viper 实例加载配置，便于测试
func LoadWith(v *viper.Viper) *Config {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")
	v.AddConfigPath("./etc")

	setDefaults(v)

	// 环境变量支持
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, envs := range legacyEnvBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			logger.Warnw("config_bind_env_failed", "key", key, "error", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	cfg.normalize()
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/blog.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "require")
	v.SetDefault("database.connect_timeout_seconds", 10)
	v.SetDefault("database.keepalive.enabled", true)
	v.SetDefault("database.keepalive.idle_seconds", 30)
	v.SetDefault("database.keepalive.interval_seconds", 10)
	v.SetDefault("database.keepalive.count", 5)
	v.SetDefault("database.pool.min_conns", 1)
	v.SetDefault("database.pool.max_open_conns", 20)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 300)
	v.SetDefault("database.pool.acquire_timeout_seconds", 15)
	v.SetDefault("database.pool.probe_timeout_seconds", 3)
	v.SetDefault("admin.password", constants.DefaultAdminPassword)
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("blog.moderation_enabled", false)
	v.SetDefault("blog.default_author", constants.DefaultAuthor)
	v.SetDefault("cache.post_list_ttl_seconds", 5)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "blog")
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.queues", map[string]int{
		constants.QueueDefault: 1,
	})
	v.SetDefault("upload.driver", constants.StorageDriverLocal)
	v.SetDefault("upload.dir", "images")
	v.SetDefault("upload.max_size", 10485760)
	v.SetDefault("upload.allowed_types", []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
	})
	v.SetDefault("upload.allowed_extensions", []string{
		".jpg",
		".jpeg",
		".png",
		".gif",
		".webp",
	})
	v.SetDefault("upload.max_width", 8192)
	v.SetDefault("upload.max_height", 8192)
	v.SetDefault("upload.s3.endpoint", "")
	v.SetDefault("upload.s3.region", "auto")
	v.SetDefault("upload.s3.bucket", "")
	v.SetDefault("upload.s3.prefix", "images")
	v.SetDefault("upload.s3.access_key_id", "")
	v.SetDefault("upload.s3.secret_access_key", "")
	v.SetDefault("upload.s3.use_path_style", true)
	v.SetDefault("upload.mirror.enabled", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Accept-Language",
		"Cache-Control",
		"X-Requested-With",
		constants.AdminPasswordHeader,
	})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.admin_rate_limit.window_seconds", 300)
	v.SetDefault("security.admin_rate_limit.max_requests", 60)
	v.SetDefault("security.post_rate_limit.window_seconds", 60)
	v.SetDefault("security.post_rate_limit.max_requests", 20)
}

// normalize 修正越界的配置值
func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Pool.MaxOpenConns < 1 {
		c.Database.Pool.MaxOpenConns = 1
	}
	if c.Database.Pool.MaxOpenConns > 20 {
		c.Database.Pool.MaxOpenConns = 20
	}
	if c.Database.Pool.MinConns < 1 {
		c.Database.Pool.MinConns = 1
	}
	if c.Database.Pool.MinConns > c.Database.Pool.MaxOpenConns {
		c.Database.Pool.MinConns = c.Database.Pool.MaxOpenConns
	}
	if strings.TrimSpace(c.Blog.DefaultAuthor) == "" {
		c.Blog.DefaultAuthor = constants.DefaultAuthor
	}
	c.Upload.Driver = strings.ToLower(strings.TrimSpace(c.Upload.Driver))
	if c.Upload.Driver == "" {
		c.Upload.Driver = constants.StorageDriverLocal
	}
}

package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/congdong-blog/internal/config"
	adminhandlers "github.com/congdong-blog/internal/http/handlers/admin"
	publichandlers "github.com/congdong-blog/internal/http/handlers/public"
	handlershared "github.com/congdong-blog/internal/http/handlers/shared"
	"github.com/congdong-blog/internal/http/response"
	"github.com/congdong-blog/internal/logger"
	"github.com/congdong-blog/internal/provider"
	"github.com/congdong-blog/internal/storage"

	"github.com/gin-gonic/gin"
)

const healthzProbeTimeout = 5 * time.Second

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "blog"
	}
	adminRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin", redisPrefix),
		WindowSeconds: cfg.Security.AdminRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.AdminRateLimit.MaxRequests,
	}
	postRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:post", redisPrefix),
		WindowSeconds: cfg.Security.PostRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.PostRateLimit.MaxRequests,
	}
	commentRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:comment", redisPrefix),
		WindowSeconds: cfg.Security.PostRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.PostRateLimit.MaxRequests,
	}

	limiter := NewRedisRateCounter(c.Redis)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// 本地存储的图片直接由静态路由提供
	if local, ok := c.ImageStore.(*storage.LocalStore); ok {
		r.Static("/images", local.Dir())
	}

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/config", publicHandler.GetConfig)
			public.GET("/posts", publicHandler.GetPosts)
			public.GET("/posts/:id", publicHandler.GetPost)
			public.POST("/posts", RateLimitMiddleware(limiter, postRule, KeyByIP), publicHandler.CreatePost)
			public.GET("/posts/:id/comments", publicHandler.GetComments)
			public.POST("/posts/:id/comments", RateLimitMiddleware(limiter, commentRule, KeyByIP), publicHandler.CreateComment)
			public.GET("/posts/:id/reactions", publicHandler.GetReactions)
			public.POST("/posts/:id/reactions", publicHandler.CreateReaction)
		}

		// 管理员接口（共享口令）
		admin := apiV1.Group("/admin")
		admin.Use(RateLimitMiddleware(limiter, adminRule, KeyByIP), AdminPasswordMiddleware(c.AuthService))
		{
			admin.GET("/posts", adminHandler.GetAdminPosts)
			admin.PUT("/posts/:id", adminHandler.UpdatePost)
			admin.DELETE("/posts/:id", adminHandler.DeletePost)
			admin.POST("/posts/:id/publish", adminHandler.PublishPost)
			admin.GET("/pool/stats", adminHandler.GetPoolStats)
		}
	}

	// 健康检查：经由一次连接租用完成探活
	r.GET("/healthz", func(ctx *gin.Context) {
		probeCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthzProbeTimeout)
		defer cancel()
		if err := c.Pool.Ping(probeCtx); err != nil {
			handlershared.RespondServiceError(ctx, err)
			return
		}
		response.Success(ctx, gin.H{
			"status": "ok",
			"driver": c.Pool.Driver(),
			"pool":   c.Pool.Stats(),
		})
	})
	r.NoRoute(func(ctx *gin.Context) {
		handlershared.RespondError(ctx, response.CodeNotFound, "error.not_found", nil)
	})

	return r
}

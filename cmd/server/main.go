package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/congdong-blog/internal/app"
	"github.com/congdong-blog/internal/config"
	"github.com/congdong-blog/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiGreen     = "\033[32m"
	ansiCyan      = "\033[36m"
	ansiBrightMag = "\033[95m"
)

func main() {
	// 解析命令行参数
	var (
		mode        string
		skipMigrate bool
	)
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.BoolVar(&skipMigrate, "skip-migrate", false, "跳过启动时的建表与旧数据回填")
	flag.Parse()

	printStartupBanner()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:      cfg,
		Logger:      logger.S(),
		Signals:     []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:        mode,
		SkipMigrate: skipMigrate,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiBrightMag + "╔══════════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiBrightMag + "║              Cộng Đồng Blog API 启动中               ║" + ansiReset)
	fmt.Println(ansiBrightMag + "╚══════════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiCyan + ansiBold + "posts · comments · reactions" + ansiReset)
	fmt.Println(ansiGreen + "• API:     /api/v1/public, /api/v1/admin" + ansiReset)
	fmt.Println(ansiGreen + "• Health:  /healthz" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

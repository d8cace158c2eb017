package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/congdong-blog/internal/config"
	"github.com/congdong-blog/internal/logger"
	"github.com/congdong-blog/internal/provider"

	"github.com/spf13/cobra"
)

var (
	timeout    time.Duration
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "blogctl",
	Short: "Cộng Đồng Blog maintenance tool",
	Long: `blogctl runs maintenance tasks against the blog database using the
same configuration as the API server (config.yml plus environment).

Commands:
  migrate     create tables and backfill legacy rows
  seed        insert sample posts, comments and reactions
  publish     publish a pending post
  pool-check  probe the connection pool and print its stats`,
	SilenceUsage: true,
}

// Execute 运行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall command timeout")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(migrateCmd, seedCmd, publishCmd, poolCheckCmd)
}

// withContainer 加载配置并初始化容器，命令结束后释放连接池
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *provider.Container) error) error {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	container, err := provider.NewContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init container: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Warnw("blogctl_container_close_failed", "error", err)
		}
	}()
	return fn(ctx, container)
}

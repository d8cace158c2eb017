//go:build integration
// +build integration

package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/congdong-blog/internal/config"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTarget 集成测试使用的 postgres 实例
type PostgresTarget struct {
	Config    config.DatabaseConfig
	Container *postgres.PostgresContainer // 使用 TEST_POSTGRES_DSN 时为空
}

// StartPostgres 优先使用 TEST_POSTGRES_DSN，否则启动一个临时容器
func StartPostgres(t *testing.T) *PostgresTarget {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver:                "postgres",
		SSLMode:               "disable",
		ConnectTimeoutSeconds: 10,
		Keepalive: config.DatabaseKeepaliveConfig{
			Enabled: true,
		},
		Pool: config.DatabasePoolConfig{
			MaxOpenConns:          5,
			AcquireTimeoutSeconds: 5,
			ProbeTimeoutSeconds:   3,
		},
	}
	if dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN")); dsn != "" {
		cfg.DSN = dsn
		return &PostgresTarget{Config: cfg}
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("blog_test"),
		postgres.WithUsername("blog"),
		postgres.WithPassword("blog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("skip postgres integration test: container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container failed: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get postgres connection string failed: %v", err)
	}
	cfg.DSN = dsn
	return &PostgresTarget{Config: cfg, Container: container}
}

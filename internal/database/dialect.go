package database

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/congdong-blog/internal/config"

	"github.com/glebarez/sqlite" // 纯 Go SQLite 驱动（基于 modernc.org/sqlite）
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// NormalizeDriver 归一化驱动名称
func NormalizeDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
}

// buildDialector 按驱动构造 gorm 方言，postgres 走 pgx 并启用 TCP keepalive
func buildDialector(driverName string, cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch driverName {
	case DriverSQLite:
		dsn := strings.TrimSpace(cfg.DSN)
		if dsn == "" {
			return nil, fmt.Errorf("sqlite dsn is empty")
		}
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		connConfig, err := pgx.ParseConfig(cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		connConfig.ConnectTimeout = cfg.ConnectTimeout()
		if cfg.Keepalive.Enabled {
			dialer := newKeepaliveDialer(cfg)
			connConfig.DialFunc = dialer.DialContext
		}
		sqlDB := stdlib.OpenDB(*connConfig)
		return postgres.New(postgres.Config{Conn: sqlDB}), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driverName)
	}
}

func newKeepaliveDialer(cfg config.DatabaseConfig) *net.Dialer {
	return &net.Dialer{
		Timeout: cfg.ConnectTimeout(),
		KeepAliveConfig: net.KeepAliveConfig{
			Enable:   true,
			Idle:     secondsOr(cfg.Keepalive.IdleSeconds, 30),
			Interval: secondsOr(cfg.Keepalive.IntervalSeconds, 10),
			Count:    positiveOr(cfg.Keepalive.Count, 5),
		},
	}
}

func secondsOr(value, fallback int) time.Duration {
	return time.Duration(positiveOr(value, fallback)) * time.Second
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

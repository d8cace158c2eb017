package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrReconnecting 连接探活失败或无法建连，调用方稍后重试即可
	ErrReconnecting = errors.New("database reconnecting")
	// ErrPoolExhausted 在 acquire_timeout 内未等到空闲连接
	ErrPoolExhausted = errors.New("database pool exhausted")
	// ErrPoolClosed 连接池已关闭
	ErrPoolClosed = errors.New("database pool closed")
	// ErrUnsupportedDriver 不支持的数据库驱动
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// IsConnectivityError 判断错误是否源于连接层（建连失败、连接被对端断开）
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrReconnecting) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	// context 的超时错误同样实现了 net.Error，这里先排除
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

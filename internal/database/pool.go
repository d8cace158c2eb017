package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/congdong-blog/internal/config"
	"github.com/congdong-blog/internal/logger"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	minPoolSize = 1
	maxPoolSize = 20

	defaultAcquireTimeout = 15 * time.Second
	defaultProbeTimeout   = 3 * time.Second
)

type probeFunc func(ctx context.Context, conn *sql.Conn) error

// Pool 数据库连接管理器，每个工作单元租用一条物理连接
type Pool struct {
	db             *gorm.DB
	sqlDB          *sql.DB
	driver         string
	maxOpen        int
	acquireTimeout time.Duration
	probeTimeout   time.Duration
	probe          probeFunc

	closed        atomic.Bool
	leased        atomic.Int64
	discarded     atomic.Int64
	probeFailures atomic.Int64
}

// Option Pool 可选项
type Option func(*Pool, *gorm.Config)

// WithAcquireTimeout 覆盖等待空闲连接的超时
func WithAcquireTimeout(d time.Duration) Option {
	return func(p *Pool, _ *gorm.Config) {
		p.acquireTimeout = d
	}
}

// WithProbeTimeout 覆盖探活超时
func WithProbeTimeout(d time.Duration) Option {
	return func(p *Pool, _ *gorm.Config) {
		p.probeTimeout = d
	}
}

// WithLogLevel 设置 gorm 日志级别
func WithLogLevel(level gormlogger.LogLevel) Option {
	return func(_ *Pool, gc *gorm.Config) {
		gc.Logger = newGormLogger(level)
	}
}

// LogLevelForMode 按运行模式选择 gorm 日志级别
func LogLevelForMode(mode string) gormlogger.LogLevel {
	if mode == "debug" {
		return gormlogger.Info
	}
	return gormlogger.Warn
}

func newGormLogger(level gormlogger.LogLevel) gormlogger.Interface {
	return gormlogger.New(logger.StdLogger(), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Open 建立连接池并预热一条连接
func Open(ctx context.Context, cfg config.DatabaseConfig, opts ...Option) (*Pool, error) {
	driverName, err := NormalizeDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dialector, err := buildDialector(driverName, cfg)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		driver:         driverName,
		maxOpen:        clampPoolSize(cfg.Pool.MaxOpenConns),
		acquireTimeout: secondsOrDuration(cfg.Pool.AcquireTimeoutSeconds, defaultAcquireTimeout),
		probeTimeout:   secondsOrDuration(cfg.Pool.ProbeTimeoutSeconds, defaultProbeTimeout),
		probe:          selectOne,
	}
	gormConfig := &gorm.Config{Logger: newGormLogger(gormlogger.Warn)}
	for _, opt := range opts {
		opt(p, gormConfig)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReconnecting, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(p.maxOpen)
	sqlDB.SetMaxIdleConns(p.maxOpen)
	if cfg.Pool.ConnMaxLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Pool.ConnMaxLifetimeSeconds) * time.Second)
	}
	if cfg.Pool.ConnMaxIdleTimeSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.Pool.ConnMaxIdleTimeSeconds) * time.Second)
	}
	p.db = db
	p.sqlDB = sqlDB

	warmCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout())
	defer cancel()
	if err := sqlDB.PingContext(warmCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: warm up: %v", ErrReconnecting, err)
	}

	logger.Infow("db_pool_opened",
		"driver", driverName,
		"max_open_conns", p.maxOpen,
		"acquire_timeout", p.acquireTimeout,
	)
	return p, nil
}

// Driver 返回归一化后的驱动名
func (p *Pool) Driver() string {
	return p.driver
}

// Acquire 租用一条连接并执行探活，失败的连接直接丢弃
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	conn, err := p.sqlDB.Conn(acquireCtx)
	cancel()
	if err != nil {
		return nil, p.classifyAcquireError(ctx, err)
	}

	probeCtx, cancelProbe := context.WithTimeout(ctx, p.probeTimeout)
	err = p.probe(probeCtx, conn)
	cancelProbe()
	if err != nil {
		discardConn(conn)
		p.discarded.Add(1)
		p.probeFailures.Add(1)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warnw("db_connection_probe_failed",
			"driver", p.driver,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrReconnecting, err)
	}

	p.leased.Add(1)
	session := p.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	session.Statement.ConnPool = conn
	return &Lease{pool: p, conn: conn, db: session}, nil
}

func (p *Pool) classifyAcquireError(ctx context.Context, err error) error {
	if p.closed.Load() || errors.Is(err, sql.ErrConnDone) {
		return ErrPoolClosed
	}
	if IsConnectivityError(err) {
		logger.Warnw("db_connection_dial_failed", "driver", p.driver, "error", err)
		return fmt.Errorf("%w: %v", ErrReconnecting, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Warnw("db_pool_exhausted",
			"driver", p.driver,
			"max_open_conns", p.maxOpen,
			"acquire_timeout", p.acquireTimeout,
		)
		return ErrPoolExhausted
	}
	return fmt.Errorf("%w: %v", ErrReconnecting, err)
}

// WithConn 租用连接执行 fn，结束后归还；连接层错误会丢弃该连接
func (p *Pool) WithConn(ctx context.Context, fn func(db *gorm.DB) error) error {
	lease, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	if err := fn(lease.DB()); err != nil {
		if IsConnectivityError(err) && !errors.Is(err, ErrReconnecting) {
			lease.Discard()
			return errors.Join(ErrReconnecting, err)
		}
		return err
	}
	return nil
}

// Ping 通过一次租用验证连接池可用
func (p *Pool) Ping(ctx context.Context) error {
	lease, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	lease.Release()
	return nil
}

// PoolStats 连接池统计
type PoolStats struct {
	Driver          string        `json:"driver"`
	MaxOpenConns    int           `json:"max_open_conns"`
	OpenConns       int           `json:"open_conns"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"wait_count"`
	WaitDuration    time.Duration `json:"wait_duration"`
	Leased          int64         `json:"leased"`
	Discarded       int64         `json:"discarded"`
	ProbeFailures   int64         `json:"probe_failures"`
	MaxIdleClosed   int64         `json:"max_idle_closed"`
	MaxLifetimeDrop int64         `json:"max_lifetime_closed"`
}

// Stats 返回连接池统计
func (p *Pool) Stats() PoolStats {
	s := p.sqlDB.Stats()
	return PoolStats{
		Driver:          p.driver,
		MaxOpenConns:    s.MaxOpenConnections,
		OpenConns:       s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
		WaitCount:       s.WaitCount,
		WaitDuration:    s.WaitDuration,
		Leased:          p.leased.Load(),
		Discarded:       p.discarded.Load(),
		ProbeFailures:   p.probeFailures.Load(),
		MaxIdleClosed:   s.MaxIdleClosed + s.MaxIdleTimeClosed,
		MaxLifetimeDrop: s.MaxLifetimeClosed,
	}
}

// Close 关闭连接池，重复调用无副作用
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	logger.Infow("db_pool_closing", "driver", p.driver)
	return p.sqlDB.Close()
}

// Lease 一次连接租用，Release 与 Discard 只会生效一次
type Lease struct {
	pool *Pool
	conn *sql.Conn
	db   *gorm.DB
	once sync.Once
}

// DB 返回绑定在该连接上的 gorm 会话
func (l *Lease) DB() *gorm.DB {
	return l.db
}

// Release 归还连接
func (l *Lease) Release() {
	l.once.Do(func() {
		if err := l.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			logger.Warnw("db_connection_release_failed", "error", err)
		}
	})
}

// Discard 标记连接失效，由连接池关闭而非复用
func (l *Lease) Discard() {
	l.once.Do(func() {
		discardConn(l.conn)
		l.pool.discarded.Add(1)
	})
}

// discardConn 让 database/sql 以 ErrBadConn 关闭底层连接
func discardConn(conn *sql.Conn) {
	_ = conn.Raw(func(any) error {
		return driver.ErrBadConn
	})
	_ = conn.Close()
}

func selectOne(ctx context.Context, conn *sql.Conn) error {
	var one int
	if err := conn.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return err
	}
	if one != 1 {
		return fmt.Errorf("unexpected probe result %d", one)
	}
	return nil
}

func clampPoolSize(size int) int {
	if size < minPoolSize {
		return minPoolSize
	}
	if size > maxPoolSize {
		return maxPoolSize
	}
	return size
}

func secondsOrDuration(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

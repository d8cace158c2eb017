package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/congdong-blog/internal/config"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func openTestPool(t *testing.T, maxOpen int, opts ...Option) *Pool {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "pool.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    dsn,
		Pool: config.DatabasePoolConfig{
			MaxOpenConns: maxOpen,
		},
	}
	pool, err := Open(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("open pool failed: %v", err)
	}
	t.Cleanup(func() {
		_ = pool.Close()
	})
	return pool
}

func TestOpenClampsPoolSize(t *testing.T) {
	cases := map[int]int{0: 1, -3: 1, 5: 5, 20: 20, 50: 20}
	for input, want := range cases {
		if got := clampPoolSize(input); got != want {
			t.Fatalf("clampPoolSize(%d) want %d got %d", input, want, got)
		}
	}
	pool := openTestPool(t, 64)
	if got := pool.Stats().MaxOpenConns; got != maxPoolSize {
		t.Fatalf("max open conns want %d got %d", maxPoolSize, got)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestAcquireReleaseExactlyOnce(t *testing.T) {
	pool := openTestPool(t, 2)

	lease, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if got := pool.Stats().InUse; got != 1 {
		t.Fatalf("in use want 1 got %d", got)
	}
	lease.Release()
	lease.Release()
	lease.Discard()

	stats := pool.Stats()
	if stats.InUse != 0 {
		t.Fatalf("in use want 0 got %d", stats.InUse)
	}
	if stats.Discarded != 0 {
		t.Fatalf("discard after release should be ignored, got %d", stats.Discarded)
	}
	if stats.Leased != 1 {
		t.Fatalf("leased want 1 got %d", stats.Leased)
	}
}

func TestAcquireTimesOutWhenExhausted(t *testing.T) {
	pool := openTestPool(t, 1, WithAcquireTimeout(100*time.Millisecond))

	held, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer held.Release()

	start := time.Now()
	_, err = pool.Acquire(context.Background())
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("acquire returned before timeout: %s", elapsed)
	}
}

func TestAcquireWaitsForRelease(t *testing.T) {
	pool := openTestPool(t, 1, WithAcquireTimeout(2*time.Second))

	held, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		held.Release()
	}()

	lease, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second acquire should succeed after release: %v", err)
	}
	lease.Release()
}

func TestProbeFailureDiscardsConnection(t *testing.T) {
	pool := openTestPool(t, 1)
	pool.probe = func(context.Context, *sql.Conn) error {
		return errors.New("server closed the connection unexpectedly")
	}

	_, err := pool.Acquire(context.Background())
	if !errors.Is(err, ErrReconnecting) {
		t.Fatalf("expected ErrReconnecting, got %v", err)
	}
	stats := pool.Stats()
	if stats.ProbeFailures != 1 || stats.Discarded != 1 {
		t.Fatalf("unexpected counters: probe_failures=%d discarded=%d", stats.ProbeFailures, stats.Discarded)
	}
	if stats.OpenConns != 0 {
		t.Fatalf("dead connection should be closed, open=%d", stats.OpenConns)
	}

	pool.probe = selectOne
	lease, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after recovery failed: %v", err)
	}
	lease.Release()
}

func TestWithConnReturnsFnErrorAndReleases(t *testing.T) {
	pool := openTestPool(t, 1)
	sentinel := errors.New("boom")

	err := pool.WithConn(context.Background(), func(db *gorm.DB) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if errors.Is(err, ErrReconnecting) {
		t.Fatalf("plain fn error must not be reported as reconnecting")
	}
	stats := pool.Stats()
	if stats.InUse != 0 || stats.Discarded != 0 {
		t.Fatalf("connection should be returned healthy: in_use=%d discarded=%d", stats.InUse, stats.Discarded)
	}
}

func TestWithConnDiscardsOnConnectivityError(t *testing.T) {
	pool := openTestPool(t, 1)

	err := pool.WithConn(context.Background(), func(db *gorm.DB) error {
		return fmt.Errorf("query posts: %w", io.ErrUnexpectedEOF)
	})
	if !errors.Is(err, ErrReconnecting) {
		t.Fatalf("expected ErrReconnecting, got %v", err)
	}
	if got := pool.Stats().Discarded; got != 1 {
		t.Fatalf("discarded want 1 got %d", got)
	}
}

func TestWithConnReleasesOnPanic(t *testing.T) {
	pool := openTestPool(t, 1)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = pool.WithConn(context.Background(), func(db *gorm.DB) error {
			panic("handler bug")
		})
	}()

	if got := pool.Stats().InUse; got != 0 {
		t.Fatalf("in use want 0 got %d", got)
	}
	if err := pool.Ping(context.Background()); err != nil {
		t.Fatalf("pool should stay usable: %v", err)
	}
}

func TestLeaseSessionUsesSingleConnection(t *testing.T) {
	pool := openTestPool(t, 2)

	err := pool.WithConn(context.Background(), func(db *gorm.DB) error {
		if err := db.Exec("CREATE TEMP TABLE lease_marker (id INTEGER)").Error; err != nil {
			return err
		}
		if err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Exec("INSERT INTO lease_marker (id) VALUES (1), (2)").Error
		}); err != nil {
			return err
		}
		// 临时表只对创建它的连接可见
		var count int64
		if err := db.Raw("SELECT COUNT(*) FROM lease_marker").Scan(&count).Error; err != nil {
			return err
		}
		if count != 2 {
			return fmt.Errorf("count want 2 got %d", count)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("lease session failed: %v", err)
	}
}

func TestAcquireAfterClose(t *testing.T) {
	pool := openTestPool(t, 1)
	if err := pool.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	if _, err := pool.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestIsConnectivityError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "bad conn", err: fmt.Errorf("exec: %w", driver.ErrBadConn), want: true},
		{name: "connect error", err: &pgconn.ConnectError{}, want: true},
		{name: "net op", err: &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}, want: true},
		{name: "unexpected eof", err: io.ErrUnexpectedEOF, want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: false},
		{name: "no rows", err: sql.ErrNoRows, want: false},
		{name: "record not found", err: gorm.ErrRecordNotFound, want: false},
	}
	for _, tc := range cases {
		if got := IsConnectivityError(tc.err); got != tc.want {
			t.Fatalf("%s: want %v got %v", tc.name, tc.want, got)
		}
	}
}

func TestNormalizeDriver(t *testing.T) {
	cases := map[string]string{"": DriverSQLite, "SQLite": DriverSQLite, "postgresql": DriverPostgres, "pgx": DriverPostgres}
	for input, want := range cases {
		got, err := NormalizeDriver(input)
		if err != nil || got != want {
			t.Fatalf("NormalizeDriver(%q) want %s got %s err=%v", input, want, got, err)
		}
	}
}

func TestKeepaliveDialerDefaults(t *testing.T) {
	dialer := newKeepaliveDialer(config.DatabaseConfig{})
	if dialer.Timeout != 10*time.Second {
		t.Fatalf("dial timeout want 10s got %s", dialer.Timeout)
	}
	ka := dialer.KeepAliveConfig
	if !ka.Enable || ka.Idle != 30*time.Second || ka.Interval != 10*time.Second || ka.Count != 5 {
		t.Fatalf("unexpected keepalive config: %+v", ka)
	}
}

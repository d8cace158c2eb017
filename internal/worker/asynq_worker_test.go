package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/congdong-blog/internal/database"
	"github.com/congdong-blog/internal/queue"
	"github.com/congdong-blog/internal/storage"

	"github.com/hibiken/asynq"
)

func newMirrorTestConsumer(t *testing.T) (*Consumer, *storage.LocalStore, *storage.LocalStore) {
	t.Helper()
	source, err := storage.NewLocalStore(t.TempDir(), "/images")
	if err != nil {
		t.Fatalf("new source store failed: %v", err)
	}
	target, err := storage.NewLocalStore(t.TempDir(), "/mirror")
	if err != nil {
		t.Fatalf("new target store failed: %v", err)
	}
	return &Consumer{source: source, target: target}, source, target
}

func newMirrorTask(t *testing.T, payload queue.ImageMirrorPayload) *asynq.Task {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return asynq.NewTask(queue.TaskImageMirror, raw)
}

func TestHandleImageMirrorCopiesImage(t *testing.T) {
	consumer, source, target := newMirrorTestConsumer(t)
	ctx := context.Background()
	if err := source.Save(ctx, "1700000000_abcd1234_cat.png", []byte("png-bytes"), "image/png"); err != nil {
		t.Fatalf("seed source failed: %v", err)
	}

	task := newMirrorTask(t, queue.ImageMirrorPayload{Name: "1700000000_abcd1234_cat.png", ContentType: "image/png", PostID: 7})
	if err := consumer.handleImageMirror(ctx, task); err != nil {
		t.Fatalf("handle mirror failed: %v", err)
	}

	reader, err := target.Open(ctx, "1700000000_abcd1234_cat.png")
	if err != nil {
		t.Fatalf("open mirrored image failed: %v", err)
	}
	defer reader.Close()
	data, _ := io.ReadAll(reader)
	if string(data) != "png-bytes" {
		t.Fatalf("unexpected mirrored content: %q", data)
	}

	// 目标已存在时重复投递直接跳过
	if err := consumer.handleImageMirror(ctx, task); err != nil {
		t.Fatalf("repeated mirror should be skipped, got: %v", err)
	}
}

func TestHandleImageMirrorMissingSourceSkipsRetry(t *testing.T) {
	consumer, _, _ := newMirrorTestConsumer(t)
	task := newMirrorTask(t, queue.ImageMirrorPayload{Name: "missing.png", PostID: 1})
	err := consumer.handleImageMirror(context.Background(), task)
	if err == nil {
		t.Fatalf("expected error for missing source")
	}
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got: %v", err)
	}
}

func TestHandleImageMirrorInvalidPayload(t *testing.T) {
	consumer, _, _ := newMirrorTestConsumer(t)
	err := consumer.handleImageMirror(context.Background(), asynq.NewTask(queue.TaskImageMirror, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for bad payload, got: %v", err)
	}
	if err := consumer.handleImageMirror(context.Background(), newMirrorTask(t, queue.ImageMirrorPayload{Name: "  "})); err != nil {
		t.Fatalf("blank name should be skipped, got: %v", err)
	}
}

func TestHandleImageMirrorWithoutTarget(t *testing.T) {
	consumer, _, _ := newMirrorTestConsumer(t)
	consumer.target = nil
	task := newMirrorTask(t, queue.ImageMirrorPayload{Name: "a.png"})
	if err := consumer.handleImageMirror(context.Background(), task); err != nil {
		t.Fatalf("nil target should be skipped, got: %v", err)
	}
}

type stubPool struct {
	err   error
	pings int
}

func (p *stubPool) Ping(context.Context) error {
	p.pings++
	return p.err
}

func (p *stubPool) Stats() database.PoolStats {
	return database.PoolStats{}
}

func TestCheckPool(t *testing.T) {
	healthy := &stubPool{}
	if !checkPool(context.Background(), healthy) {
		t.Fatalf("expected healthy pool")
	}
	broken := &stubPool{err: database.ErrReconnecting}
	if checkPool(context.Background(), broken) {
		t.Fatalf("expected failed probe")
	}
	if healthy.pings != 1 || broken.pings != 1 {
		t.Fatalf("unexpected ping counts: %d %d", healthy.pings, broken.pings)
	}
}

func TestRunPoolHealthLoopStopsOnCancel(t *testing.T) {
	pool := &stubPool{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runPoolHealthLoop(ctx, pool, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("health loop did not stop")
	}
}
